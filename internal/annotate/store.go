// Package annotate implements the human-in-the-loop labeling of candidate
// phrase/article pairs and the threshold-based promotion of phrases.
package annotate

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lcvriend/toponym-extraction/internal/model"
)

// Log is an append-only sequence of annotations for one annotation name.
// Persistence is load-modify-save over a single CSV file; concurrent
// writers are not supported (single interactive user).
type Log []model.Annotation

var logHeader = []string{"phrase", "article_id", "judgment", "timestamp"}

// LogPath returns the log file for an annotation name inside resultsDir.
func LogPath(resultsDir, name string) string {
	return filepath.Join(resultsDir, fmt.Sprintf("annotations_%s.csv", name))
}

// LoadLog reads an annotation log. A missing file is returned as
// os.ErrNotExist so callers can distinguish "first pass" from a read error.
func LoadLog(path string) (Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse annotation log %s: %w", path, err)
	}

	var log Log
	for i, rec := range records {
		if i == 0 && len(rec) > 0 && rec[0] == logHeader[0] {
			continue
		}
		if len(rec) < 4 {
			return nil, fmt.Errorf("annotation log %s: record %d has %d fields", path, i, len(rec))
		}
		ts, err := time.Parse(time.RFC3339, rec[3])
		if err != nil {
			return nil, fmt.Errorf("annotation log %s: record %d: %w", path, i, err)
		}
		log = append(log, model.Annotation{
			Phrase:    rec[0],
			ArticleID: rec[1],
			Judgment:  model.Judgment(rec[2]),
			Timestamp: ts,
		})
	}
	return log, nil
}

// SaveLog writes the complete log, replacing the file.
func SaveLog(path string, log Log) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create annotation log: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(logHeader); err != nil {
		return fmt.Errorf("write annotation log: %w", err)
	}
	for _, a := range log {
		rec := []string{a.Phrase, a.ArticleID, string(a.Judgment), a.Timestamp.UTC().Format(time.RFC3339)}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write annotation log: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write annotation log: %w", err)
	}
	return nil
}

// Phrases returns the set of phrases already present in the log. Replays
// skip these, so interrupted sessions resume without re-asking.
func (l Log) Phrases() map[string]bool {
	set := make(map[string]bool, len(l))
	for _, a := range l {
		set[a.Phrase] = true
	}
	return set
}

// Promote pivots the log to per-phrase judgment counts and returns, sorted,
// every phrase whose percent positive (positives / total judgments × 100,
// rounded to one decimal) meets or exceeds threshold.
func Promote(l Log, threshold float64) []string {
	positives := make(map[string]int)
	totals := make(map[string]int)
	for _, a := range l {
		totals[a.Phrase]++
		if a.Judgment == model.JudgmentPositive {
			positives[a.Phrase]++
		}
	}

	var promoted []string
	for phrase, total := range totals {
		pct := math.Round(float64(positives[phrase])/float64(total)*1000) / 10
		if pct >= threshold {
			promoted = append(promoted, phrase)
		}
	}
	sort.Strings(promoted)
	return promoted
}
