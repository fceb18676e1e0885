package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lcvriend/toponym-extraction/internal/extract"
	"github.com/lcvriend/toponym-extraction/internal/geodata"
	"github.com/lcvriend/toponym-extraction/internal/model"
	"github.com/lcvriend/toponym-extraction/internal/stats"
	"github.com/lcvriend/toponym-extraction/internal/tagger"
	"github.com/lcvriend/toponym-extraction/internal/topography"
	"github.com/lcvriend/toponym-extraction/internal/worker"
)

const (
	countryAliasDefault = "alts_countries.json"
	placeAliasFile      = "alts_places.json"
	duplicatesFile      = "duplicate_place_names.json"
	patternsFile        = "patterns.json"
)

// Pipeline wires the stages to the configured paths.
type Pipeline struct {
	cfg *model.Config
}

// New creates a pipeline for the given configuration.
func New(cfg *model.Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

func (p *Pipeline) geonamesDir() string {
	return filepath.Join(p.cfg.Paths.Resources, "geonames")
}

// PatternsPath is where the built pattern model lives.
func (p *Pipeline) PatternsPath() string {
	return filepath.Join(p.cfg.Paths.Model, patternsFile)
}

// Gather downloads the configured geonames datasets and extracts the
// zipped ones. Files already on disk are skipped.
func (p *Pipeline) Gather(ctx context.Context) ([]string, error) {
	dl := NewDownloader(p.cfg.HTTP, p.cfg.RateLimit)
	dir := p.geonamesDir()

	var gathered []string
	for _, name := range p.cfg.Geonames.Datasets {
		dest := filepath.Join(dir, name)
		if _, err := os.Stat(dest); err == nil {
			continue
		}
		url := p.cfg.Geonames.BaseURL + name
		if err := dl.Download(ctx, url, dest); err != nil {
			return gathered, fmt.Errorf("gather %s: %w", name, err)
		}
		if strings.HasSuffix(name, ".zip") {
			if err := Unzip(dest, dir); err != nil {
				return gathered, fmt.Errorf("extract %s: %w", name, err)
			}
		}
		gathered = append(gathered, name)
	}
	return gathered, nil
}

// BuildResult summarizes a model build.
type BuildResult struct {
	Places     int
	PerLabel   map[string]int
	Duplicates topography.DuplicateReport
}

// BuildModel loads the gazetteer and country data, partitions them into
// the configured pattern categories, applies any annotation results and
// stores the pattern model. City names that are also country names go to
// the countries category alone.
func (p *Pipeline) BuildModel(ctx context.Context) (*BuildResult, error) {
	countries, err := p.loadCountries(ctx)
	if err != nil {
		return nil, err
	}

	loader := geodata.NewLoader(
		p.geonamesDir(), p.cfg.Geonames.CitiesFile,
		[]string{p.cfg.Project.Language}, p.cfg.Paths.Cache,
	)
	records, err := loader.Load()
	if err != nil {
		return nil, err
	}

	if aliases, err := p.loadAliasFile(placeAliasFile); err != nil {
		return nil, err
	} else if aliases != nil {
		records = geodata.InjectAliases(records, aliases)
	}

	kept := records[:0]
	for _, rec := range records {
		if _, isCountry := countries[rec.AlternateName]; !isCountry {
			kept = append(kept, rec)
		}
	}
	records = kept
	geodata.EnrichRegions(records, countries, nil)

	rules, err := topography.RulesFromConfig(p.cfg.Topography.Rules)
	if err != nil {
		return nil, err
	}
	topo := topography.Build(records, rules, countries)

	dupes := topography.FindDuplicates(topo)
	if err := dupes.Save(filepath.Join(p.cfg.Paths.Parameters, duplicatesFile)); err != nil {
		return nil, err
	}

	topo, err = topography.ApplyPromotions(topo, p.cfg.Paths.Results, p.cfg.Annotation.Threshold)
	if err != nil {
		return nil, err
	}

	patterns := topo.Patterns()
	if err := topography.SavePatterns(p.PatternsPath(), patterns); err != nil {
		return nil, err
	}

	result := &BuildResult{
		Places:     len(records),
		PerLabel:   make(map[string]int, len(topo)),
		Duplicates: dupes,
	}
	for _, label := range topo.Labels() {
		result.PerLabel[label] = len(topo[label])
	}
	return result, nil
}

func (p *Pipeline) loadCountries(ctx context.Context) (model.CountryMap, error) {
	loader := geodata.NewCountryLoader(
		p.cfg.Countries.URL, p.cfg.Project.Language, p.cfg.HTTP, p.cfg.Paths.Cache,
	)
	countries, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	aliasFile := p.cfg.Countries.AliasFile
	if aliasFile == "" {
		aliasFile = countryAliasDefault
	}
	aliases, err := p.loadAliasFile(aliasFile)
	if err != nil {
		return nil, err
	}
	if aliases != nil {
		geodata.InjectCountryAliases(countries, aliases)
	}
	return countries, nil
}

// loadAliasFile reads an alias table from the parameters directory. A
// missing file is not an error: aliases are optional tuning.
func (p *Pipeline) loadAliasFile(name string) (map[string][]string, error) {
	path := filepath.Join(p.cfg.Paths.Parameters, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	aliases, err := geodata.LoadAliases(path)
	if err != nil {
		return nil, fmt.Errorf("load aliases %s: %w", name, err)
	}
	return aliases, nil
}

// ExtractResult summarizes one batch extraction.
type ExtractResult struct {
	Parsed          int
	Skipped         []string
	Duplicates      int
	AuditParagraphs int
	DupeParagraphs  int
	Kept            int
	Removed         int
}

// ExtractBatch parses the batch's docx files and runs the cleanup chain:
// article dedup, field derivation, paragraph dedup, standardization and the
// metadata filter. Raw, processed and removed tables are stored per batch.
func (p *Pipeline) ExtractBatch(batch string) (*ExtractResult, error) {
	rawDir := filepath.Join(p.cfg.Paths.DataRaw, batch)
	articles, skipped, err := extract.ParseBatch(rawDir, p.cfg.LexisNexis.BaseURL)
	if err != nil {
		return nil, err
	}

	articles, removedDupes := extract.Dedup(articles)
	interim := p.cfg.Paths.DataInterim
	if err := SaveJSON(RawTablePath(interim, batch), articles); err != nil {
		return nil, err
	}

	extract.DeriveFields(articles, p.cfg.LexisNexis)

	counts := extract.CountParagraphs(articles)
	audit := extract.ParagraphDupes(counts, 1)
	if err := SaveJSON(ParagraphDupesPath(interim, batch), audit); err != nil {
		return nil, err
	}
	remove := extract.ParagraphDupes(counts, p.cfg.LexisNexis.ParagraphThreshold)
	extract.FilterParagraphs(articles, remove)

	extract.Standardize(articles, batch)

	kept, removed := extract.Filter(articles, p.cfg.LexisNexis.Filter)
	if err := SaveJSON(ProcessedTablePath(interim, batch), kept); err != nil {
		return nil, err
	}
	if err := SaveJSON(RemovedTablePath(interim, batch), removed); err != nil {
		return nil, err
	}

	return &ExtractResult{
		Parsed:          len(articles) + len(removedDupes),
		Skipped:         skipped,
		Duplicates:      len(removedDupes),
		AuditParagraphs: len(audit),
		DupeParagraphs:  len(remove),
		Kept:            len(kept),
		Removed:         len(removed),
	}, nil
}

// TagResult summarizes one batch tagging run.
type TagResult struct {
	Tagged   int
	Patterns int
	Failed   []worker.Result
}

// TagBatch annotates every processed article in the batch with the pattern
// model and stores one tagged document per article. Documents are tagged
// concurrently; a rerun replaces the batch directory's contents.
func (p *Pipeline) TagBatch(ctx context.Context, batch string) (*TagResult, error) {
	patterns, err := topography.LoadPatterns(p.PatternsPath())
	if err != nil {
		return nil, err
	}
	tg, err := tagger.New(patterns, p.cfg.Project.Language)
	if err != nil {
		return nil, err
	}

	articles, err := LoadArticles(ProcessedTablePath(p.cfg.Paths.DataInterim, batch))
	if err != nil {
		return nil, err
	}

	outDir := filepath.Join(p.cfg.Paths.DataProcessed, batch)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", outDir, err)
	}
	if err := tagger.ClearBatchDir(outDir); err != nil {
		return nil, err
	}

	jobs := make([]worker.Job, 0, len(articles))
	for _, art := range articles {
		art := art
		jobs = append(jobs, worker.Job{
			ID: art.ID,
			Fn: func(ctx context.Context) error {
				doc, err := tg.Tag(art.ID, art.BodyText)
				if err != nil {
					return err
				}
				return tagger.WriteDocument(outDir, doc)
			},
		})
	}

	pool := worker.NewPool(p.cfg.Concurrency.Workers)
	results := pool.Run(ctx, jobs)
	failed := worker.Failures(results)

	return &TagResult{
		Tagged:   len(results) - len(failed),
		Patterns: len(patterns),
		Failed:   failed,
	}, nil
}

// BatchStats is the per-batch summary the stats stage reports.
type BatchStats struct {
	Documents int
	Counts    map[string]int
	Failures  int
}

// StatsResult holds the per-batch summaries and where the tables went.
type StatsResult struct {
	PerBatch map[string]BatchStats
	Files    []string
}

// Stats aggregates the tagged batches: per-batch count totals, attribute
// counters in total and unique-per-document mode, frequency rankings for
// lemmas and entity labels, lemma failures and a cross-batch comparison
// table.
func (p *Pipeline) Stats(batches []string, topN int) (*StatsResult, error) {
	result := &StatsResult{PerBatch: make(map[string]BatchStats, len(batches))}
	comparison := make(map[string]map[string]int, len(batches))

	for _, batch := range batches {
		docs, err := tagger.ReadBatch(filepath.Join(p.cfg.Paths.DataProcessed, batch))
		if err != nil {
			return nil, err
		}

		totals := make(map[string]int)
		counters := stats.Counters{}
		uniques := stats.Counters{}
		var fails []stats.Fail
		for _, doc := range docs {
			stats.MergeCounts(totals, stats.Basic(doc).Counts)
			c, f := stats.Attributes(doc, false)
			counters.Merge(c)
			u, _ := stats.Attributes(doc, true)
			uniques.Merge(u)
			fails = append(fails, f...)
		}

		rankings := make(map[string][]stats.Entry, len(counters))
		for attr, table := range counters {
			rankings[attr] = stats.MostCommon(table, topN)
		}

		results := p.cfg.Paths.Results
		files := []string{
			filepath.Join(results, "stats_"+batch+".json"),
			filepath.Join(results, "stats_unique_"+batch+".json"),
			filepath.Join(results, "most_common_"+batch+".json"),
		}
		if err := SaveJSON(files[0], totals); err != nil {
			return nil, err
		}
		if err := SaveJSON(files[1], uniques); err != nil {
			return nil, err
		}
		if err := SaveJSON(files[2], rankings); err != nil {
			return nil, err
		}
		if len(fails) > 0 {
			path := filepath.Join(results, "lemma_failures_"+batch+".json")
			if err := SaveJSON(path, fails); err != nil {
				return nil, err
			}
			files = append(files, path)
		}
		result.Files = append(result.Files, files...)

		comparison[batch] = totals
		result.PerBatch[batch] = BatchStats{
			Documents: len(docs),
			Counts:    totals,
			Failures:  len(fails),
		}
	}

	table := stats.Compare(comparison)
	path := filepath.Join(p.cfg.Paths.Results, "stats_comparison.csv")
	if err := os.MkdirAll(p.cfg.Paths.Results, 0755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := table.WriteCSV(f); err != nil {
		return nil, err
	}
	result.Files = append(result.Files, path)

	return result, nil
}
