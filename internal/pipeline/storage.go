package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lcvriend/toponym-extraction/internal/model"
)

// Article table locations within the interim data directory. Each batch
// keeps its raw parse, the processed table, the removed articles and the
// paragraph duplicate audit side by side.

func RawTablePath(dir, batch string) string {
	return filepath.Join(dir, batch+".json")
}

func ProcessedTablePath(dir, batch string) string {
	return filepath.Join(dir, batch+"_processed.json")
}

func RemovedTablePath(dir, batch string) string {
	return filepath.Join(dir, batch+"_removed.json")
}

func ParagraphDupesPath(dir, batch string) string {
	return filepath.Join(dir, batch+"_paragraph_dupes.json")
}

// SaveJSON writes v as indented JSON, creating parent directories.
func SaveJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadArticles reads an article table.
func LoadArticles(path string) ([]model.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: article table %s", model.ErrResourceMissing, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var articles []model.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return articles, nil
}
