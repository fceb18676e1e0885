package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lcvriend/toponym-extraction/internal/model"
)

// ParseBatch parses every docx file in dir. Files the parser cannot read
// are skipped and reported, not fatal: one corrupt export must not sink a
// batch of thousands.
func ParseBatch(dir, baseURL string) (articles []model.Article, skipped []string, err error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.docx"))
	if err != nil {
		return nil, nil, fmt.Errorf("glob %s: %w", dir, err)
	}
	if len(paths) == 0 {
		if _, statErr := os.Stat(dir); statErr != nil {
			return nil, nil, fmt.Errorf("%w: batch dir %s", model.ErrResourceMissing, dir)
		}
		return nil, nil, fmt.Errorf("%w: no docx files in %s", model.ErrResourceMissing, dir)
	}
	sort.Strings(paths)

	for _, path := range paths {
		art, parseErr := ParseDocx(path, baseURL)
		if parseErr != nil {
			skipped = append(skipped, fmt.Sprintf("%s: %v", filepath.Base(path), parseErr))
			continue
		}
		articles = append(articles, art)
	}
	return articles, skipped, nil
}

// Dedup removes repeated articles, keeping the first occurrence. The
// archive duplicates articles across search exports; two records with the
// same title and word count are the same article.
func Dedup(articles []model.Article) (kept, removed []model.Article) {
	seen := make(map[string]bool, len(articles))
	for _, art := range articles {
		key := art.Title + "\x00" + art.Meta["length"]
		if seen[key] {
			removed = append(removed, art)
			continue
		}
		seen[key] = true
		kept = append(kept, art)
	}
	return kept, removed
}

// CountParagraphs tallies every body paragraph across the batch.
func CountParagraphs(articles []model.Article) map[string]int {
	counts := make(map[string]int)
	for _, art := range articles {
		for _, p := range art.Body {
			counts[p]++
		}
	}
	return counts
}

// ParagraphDupes returns the paragraphs occurring more than min times.
func ParagraphDupes(counts map[string]int, min int) map[string]int {
	dupes := make(map[string]int)
	for p, n := range counts {
		if n > min {
			dupes[p] = n
		}
	}
	return dupes
}

// FilterParagraphs drops the given paragraphs from every article body and
// fills FilteredBody and BodyText. Paragraphs repeated across many articles
// are section mastheads and ads, not article text.
func FilterParagraphs(articles []model.Article, dupes map[string]int) {
	for i := range articles {
		filtered := make([]string, 0, len(articles[i].Body))
		for _, p := range articles[i].Body {
			if _, dupe := dupes[p]; !dupe {
				filtered = append(filtered, p)
			}
		}
		articles[i].FilteredBody = filtered
		articles[i].BodyText = strings.Join(filtered, "\n")
	}
}

var digits = regexp.MustCompile(`\d+`)

// dutchDates maps the archive's Dutch date words onto the layout names the
// time package knows. Inputs are lowercased first; time.Parse matches names
// case-insensitively.
var dutchDates = strings.NewReplacer(
	"januari", "january",
	"februari", "february",
	"maart", "march",
	"april", "april",
	"mei", "may",
	"juni", "june",
	"juli", "july",
	"augustus", "august",
	"september", "september",
	"oktober", "october",
	"november", "november",
	"december", "december",
	"maandag", "monday",
	"dinsdag", "tuesday",
	"woensdag", "wednesday",
	"donderdag", "thursday",
	"vrijdag", "friday",
	"zaterdag", "saturday",
	"zondag", "sunday",
)

var loadDateLayouts = []string{
	"January 2, 2006",
	"2 January 2006",
	"2006-01-02",
}

// DeriveFields fills the typed article fields from the raw metadata:
// section and page from the combined section line, length from the word
// count, byline, and both dates. Metadata formats vary per source, so every
// derivation tolerates absence.
func DeriveFields(articles []model.Article, cfg model.LexisNexisConfig) {
	for i := range articles {
		art := &articles[i]

		section := art.Meta["section"]
		if head, tail, ok := rsplit(section, ";"); ok {
			art.Section = cleanSection(head)
			art.Page = parsePage(tail)
		} else {
			art.Section = cleanSection(section)
		}

		if fields := strings.Fields(art.Meta["length"]); len(fields) > 0 {
			art.Length, _ = strconv.Atoi(fields[0])
		}
		art.Byline = art.Meta["byline"]

		if t, ok := parsePublicationDate(art.Meta["publication_date"], cfg); ok {
			art.PublicationDate = &t
		}
		if t, ok := parseLoadDate(art.Meta["load_date"]); ok {
			art.LoadDate = &t
		}
	}
}

// rsplit splits on the last occurrence of sep.
func rsplit(s, sep string) (head, tail string, ok bool) {
	idx := strings.LastIndex(s, sep)
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+len(sep):], true
}

func cleanSection(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "| ", "")
}

// parsePage extracts the page number from strings like "Blz. 3" or " A3".
// The prose after the last ". " is dropped first, then the first digit run
// wins. Missing or non-numeric pages become zero.
func parsePage(s string) int {
	if _, tail, ok := rsplit(s, ". "); ok {
		s = tail
	}
	n, _ := strconv.Atoi(digits.FindString(s))
	return n
}

func parsePublicationDate(raw string, cfg model.LexisNexisConfig) (time.Time, bool) {
	if cfg.DateSplit != "" {
		if head, _, ok := rsplit(raw, cfg.DateSplit); ok {
			raw = head
		}
	}
	raw = dutchDates.Replace(strings.ToLower(strings.TrimSpace(raw)))
	t, err := time.Parse(cfg.DateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseLoadDate(raw string) (time.Time, bool) {
	raw = dutchDates.Replace(strings.ToLower(strings.TrimSpace(raw)))
	for _, layout := range loadDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// BatchCode reduces a batch name to its five-character record prefix:
// lowercased, spaces stripped, truncated or underscore-padded to five.
func BatchCode(batch string) string {
	code := strings.ReplaceAll(strings.ToLower(batch), " ", "")
	if len(code) > 5 {
		code = code[:5]
	}
	for len(code) < 5 {
		code += "_"
	}
	return code
}

// ArticleID builds the record identifier from the batch code and the
// article's position in the standardized order.
func ArticleID(batch string, idx int) string {
	return fmt.Sprintf("%s__%04d", BatchCode(batch), idx)
}

// Standardize sorts the batch by publication date and page and assigns
// positional identifiers. The order is deterministic so reruns produce the
// same ids.
func Standardize(articles []model.Article, batch string) {
	sort.SliceStable(articles, func(i, j int) bool {
		ti, tj := articles[i].PublicationDate, articles[j].PublicationDate
		switch {
		case ti == nil && tj != nil:
			return true
		case ti != nil && tj == nil:
			return false
		case ti != nil && tj != nil && !ti.Equal(*tj):
			return ti.Before(*tj)
		}
		return articles[i].Page < articles[j].Page
	})
	for i := range articles {
		articles[i].ID = ArticleID(batch, i)
	}
}

// Filter applies the configured metadata conjunction and splits the batch
// into kept and removed articles. Empty criteria match everything.
func Filter(articles []model.Article, cfg model.FilterConfig) (kept, removed []model.Article) {
	sections := make(map[string]bool, len(cfg.Sections))
	for _, s := range cfg.Sections {
		sections[strings.ToLower(s)] = true
	}
	for _, art := range articles {
		keep := true
		if len(sections) > 0 && !sections[art.Section] {
			keep = false
		}
		if cfg.MaxPage > 0 && art.Page > cfg.MaxPage {
			keep = false
		}
		if cfg.MinLength > 0 && art.Length < cfg.MinLength {
			keep = false
		}
		if keep {
			kept = append(kept, art)
		} else {
			removed = append(removed, art)
		}
	}
	return kept, removed
}
