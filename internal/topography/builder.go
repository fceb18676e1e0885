// Package topography partitions the joined gazetteer into labeled pattern
// categories, detects cross-category name collisions and applies the
// annotation-based promotion gate.
package topography

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lcvriend/toponym-extraction/internal/annotate"
	"github.com/lcvriend/toponym-extraction/internal/model"
)

// CountriesLabel is the fixed label for the country pattern set.
const CountriesLabel = "countries"

// Rule is one typed predicate over PlaceRecord fields. Empty filters match
// everything; the populated ones are a conjunction.
type Rule struct {
	Label            string
	Countries        []string
	ExcludeCountries []string
	Admin1           []string
	ExcludeAdmin1    []string
	MinPopulation    int64
}

// RulesFromConfig converts and validates the configured rules.
func RulesFromConfig(cfgs []model.RuleConfig) ([]Rule, error) {
	seen := make(map[string]bool)
	rules := make([]Rule, 0, len(cfgs))
	for _, cfg := range cfgs {
		if cfg.Label == "" {
			return nil, fmt.Errorf("topography rule without a label")
		}
		if cfg.Label == CountriesLabel {
			return nil, fmt.Errorf("label %q is reserved for the country patterns", CountriesLabel)
		}
		if seen[cfg.Label] {
			return nil, fmt.Errorf("duplicate topography label %q", cfg.Label)
		}
		seen[cfg.Label] = true
		rules = append(rules, Rule{
			Label:            cfg.Label,
			Countries:        cfg.Countries,
			ExcludeCountries: cfg.ExcludeCountries,
			Admin1:           cfg.Admin1,
			ExcludeAdmin1:    cfg.ExcludeAdmin1,
			MinPopulation:    cfg.MinPopulation,
		})
	}
	return rules, nil
}

// Match reports whether a place record falls under the rule.
func (r Rule) Match(p model.PlaceRecord) bool {
	if len(r.Countries) > 0 && !contains(r.Countries, p.CountryCode) {
		return false
	}
	if contains(r.ExcludeCountries, p.CountryCode) {
		return false
	}
	if len(r.Admin1) > 0 && !contains(r.Admin1, p.AdminCode1) {
		return false
	}
	if contains(r.ExcludeAdmin1, p.AdminCode1) {
		return false
	}
	if p.Population < r.MinPopulation {
		return false
	}
	return true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Topography maps each label to its pattern set.
type Topography map[string][]model.Pattern

// Build partitions the gazetteer by the given rules and adds the country
// names as one fixed extra label. Pattern sets are unique per label and
// sorted by surface string.
func Build(records []model.PlaceRecord, rules []Rule, countries model.CountryMap) Topography {
	topo := make(Topography, len(rules)+1)

	for _, rule := range rules {
		surfaces := make(map[string]bool)
		for _, rec := range records {
			if rule.Match(rec) {
				surfaces[rec.AlternateName] = true
			}
		}
		topo[rule.Label] = patternsFromSet(rule.Label, surfaces)
	}

	names := make(map[string]bool, len(countries))
	for name := range countries {
		names[name] = true
	}
	topo[CountriesLabel] = patternsFromSet(CountriesLabel, names)

	return topo
}

func patternsFromSet(label string, surfaces map[string]bool) []model.Pattern {
	patterns := make([]model.Pattern, 0, len(surfaces))
	for s := range surfaces {
		patterns = append(patterns, model.Pattern{Label: label, Phrase: s})
	}
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].Phrase < patterns[j].Phrase })
	return patterns
}

// Patterns flattens the topography into one pattern list, labels in sorted
// order.
func (t Topography) Patterns() []model.Pattern {
	labels := t.Labels()
	var out []model.Pattern
	for _, label := range labels {
		out = append(out, t[label]...)
	}
	return out
}

// Labels returns the sorted label set.
func (t Topography) Labels() []string {
	labels := make([]string, 0, len(t))
	for label := range t {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// DuplicateReport records, per unordered label pair, the surface strings
// appearing under both labels. A collision is data for human review, not an
// error: the pipeline continues with the unfiltered assignment.
type DuplicateReport map[string][]string

// PairKey is the report key for an unordered label pair.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// FindDuplicates intersects the surface-string sets of every unordered
// label pair. Only non-empty intersections are recorded, sorted.
func FindDuplicates(t Topography) DuplicateReport {
	labels := t.Labels()
	sets := make(map[string]map[string]bool, len(labels))
	for _, label := range labels {
		set := make(map[string]bool, len(t[label]))
		for _, p := range t[label] {
			set[p.Phrase] = true
		}
		sets[label] = set
	}

	report := make(DuplicateReport)
	for i := 0; i < len(labels); i++ {
		for j := i + 1; j < len(labels); j++ {
			var shared []string
			for s := range sets[labels[i]] {
				if sets[labels[j]][s] {
					shared = append(shared, s)
				}
			}
			if len(shared) > 0 {
				sort.Strings(shared)
				report[PairKey(labels[i], labels[j])] = shared
			}
		}
	}
	return report
}

// Empty reports whether no collisions were found.
func (r DuplicateReport) Empty() bool {
	return len(r) == 0
}

// Save persists the report as JSON for manual review.
func (r DuplicateReport) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal duplicate report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write duplicate report: %w", err)
	}
	return nil
}

// ApplyPromotions filters each label's patterns down to the phrases promoted
// by its annotation log. Labels without a log pass through unfiltered (the
// first, pre-annotation pass).
func ApplyPromotions(t Topography, resultsDir string, threshold float64) (Topography, error) {
	out := make(Topography, len(t))
	for label, patterns := range t {
		log, err := annotate.LoadLog(annotate.LogPath(resultsDir, label))
		if err != nil {
			if os.IsNotExist(err) {
				out[label] = patterns
				continue
			}
			return nil, fmt.Errorf("load annotations for %s: %w", label, err)
		}

		promoted := make(map[string]bool)
		for _, phrase := range annotate.Promote(log, threshold) {
			promoted[phrase] = true
		}

		kept := make([]model.Pattern, 0, len(patterns))
		for _, p := range patterns {
			if promoted[p.Phrase] {
				kept = append(kept, p)
			}
		}
		out[label] = kept
	}
	return out, nil
}

// SavePatterns persists the flattened pattern model as JSON.
func SavePatterns(path string, patterns []model.Pattern) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	data, err := json.MarshalIndent(patterns, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal patterns: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write patterns: %w", err)
	}
	return nil
}

// LoadPatterns reads a persisted pattern model.
func LoadPatterns(path string) ([]model.Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: pattern model %s (run 'toponym build' first)", model.ErrResourceMissing, path)
		}
		return nil, fmt.Errorf("read patterns: %w", err)
	}
	var patterns []model.Pattern
	if err := json.Unmarshal(data, &patterns); err != nil {
		return nil, fmt.Errorf("parse patterns %s: %w", path, err)
	}
	return patterns, nil
}
