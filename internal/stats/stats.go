// Package stats derives corpus statistics from tagged documents: per
// document counts, lemma and entity frequency tables and cross-batch
// comparisons.
package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/lcvriend/toponym-extraction/internal/model"
)

// DocStats holds the per-document counts. Fixed keys are n_tokens,
// n_stopwords, n_words, n_sentences, n_entities and n_unique_entities;
// per-attribute keys are pos_<TAG>, ent_<LABEL> and unique_ent_<LABEL>.
type DocStats struct {
	ID     string
	Counts map[string]int
}

// Basic computes the per-document counts.
func Basic(doc *model.TaggedDocument) DocStats {
	counts := make(map[string]int)

	stop := 0
	for _, tok := range doc.Tokens {
		if tok.IsStop {
			stop++
		}
		counts["pos_"+tok.POS]++
	}
	counts["n_tokens"] = len(doc.Tokens)
	counts["n_stopwords"] = stop
	counts["n_words"] = len(doc.Tokens) - stop
	counts["n_sentences"] = len(doc.Sentences)

	seen := make(map[string]bool)
	perLabel := make(map[string]map[string]bool)
	for _, ent := range doc.Entities {
		counts["n_entities"]++
		counts["ent_"+ent.Label]++
		if perLabel[ent.Label] == nil {
			perLabel[ent.Label] = make(map[string]bool)
		}
		seen[ent.Text] = true
		perLabel[ent.Label][ent.Text] = true
	}
	counts["n_unique_entities"] = len(seen)
	for label, texts := range perLabel {
		counts["unique_ent_"+label] = len(texts)
	}

	return DocStats{ID: doc.ID, Counts: counts}
}

// Counters maps an attribute name to its frequency table. The lemma table
// sits under the "lemma" key, entity tables under their label.
type Counters map[string]map[string]int

// Fail records a token whose lemma lookup failed.
type Fail struct {
	DocID string
	Token string
}

// Attributes counts lemma and entity occurrences in one document. When
// unique is set, repeats within the document count once. Tokens without a
// lemma are reported as failures instead of counted.
func Attributes(doc *model.TaggedDocument, unique bool) (Counters, []Fail) {
	var fails []Fail
	counters := Counters{"lemma": make(map[string]int)}

	for _, tok := range doc.Tokens {
		if tok.IsStop || tok.IsPunct || strings.TrimSpace(tok.Text) == "" {
			continue
		}
		if tok.Lemma == "" {
			fails = append(fails, Fail{DocID: doc.ID, Token: tok.Text})
			continue
		}
		if unique && counters["lemma"][tok.Lemma] > 0 {
			continue
		}
		counters["lemma"][tok.Lemma]++
	}

	for _, ent := range doc.Entities {
		if counters[ent.Label] == nil {
			counters[ent.Label] = make(map[string]int)
		}
		if unique && counters[ent.Label][ent.Text] > 0 {
			continue
		}
		counters[ent.Label][ent.Text]++
	}

	return counters, fails
}

// Merge adds the src tables into dst.
func (dst Counters) Merge(src Counters) {
	for attr, table := range src {
		if dst[attr] == nil {
			dst[attr] = make(map[string]int, len(table))
		}
		for k, n := range table {
			dst[attr][k] += n
		}
	}
}

// MergeCounts adds src into dst.
func MergeCounts(dst, src map[string]int) {
	for k, n := range src {
		dst[k] += n
	}
}

// Entry is one row of a frequency ranking.
type Entry struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// MostCommon returns the n highest counts, ties broken alphabetically.
// A non-positive n returns the full ranking.
func MostCommon(table map[string]int, n int) []Entry {
	entries := make([]Entry, 0, len(table))
	for v, c := range table {
		entries = append(entries, Entry{Value: v, Count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Value < entries[j].Value
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Table is a cross-batch comparison: one row per key in the union of all
// batch tables, missing cells zero-filled.
type Table struct {
	Batches []string
	Rows    []Row
}

// Row holds one key's count per batch, in Batches order.
type Row struct {
	Key    string
	Counts []int
}

// Compare lines up per-batch count tables into one zero-filled table.
// Batches and rows are sorted so output is deterministic.
func Compare(batches map[string]map[string]int) Table {
	names := make([]string, 0, len(batches))
	for name := range batches {
		names = append(names, name)
	}
	sort.Strings(names)

	keys := make(map[string]bool)
	for _, table := range batches {
		for k := range table {
			keys[k] = true
		}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	t := Table{Batches: names}
	for _, key := range sorted {
		row := Row{Key: key, Counts: make([]int, len(names))}
		for i, name := range names {
			row.Counts[i] = batches[name][key]
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// WriteCSV renders the table with a header row of batch names.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := append([]string{"key"}, t.Batches...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range t.Rows {
		record := make([]string, 0, len(row.Counts)+1)
		record = append(record, row.Key)
		for _, n := range row.Counts {
			record = append(record, strconv.Itoa(n))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", row.Key, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
