package tagger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
	"github.com/kljensen/snowball"

	"github.com/lcvriend/toponym-extraction/internal/model"
)

// snowballLanguages maps config language codes to stemmer names. Full names
// pass through unchanged.
var snowballLanguages = map[string]string{
	"nl": "dutch",
	"en": "english",
	"fr": "french",
	"es": "spanish",
	"sv": "swedish",
	"no": "norwegian",
	"ru": "russian",
	"hu": "hungarian",
}

// Tagger runs the linguistic annotation over article text.
type Tagger struct {
	matcher  *Matcher
	language string
	stops    map[string]bool
}

// New compiles the pattern model into a tagger for the given language.
func New(patterns []model.Pattern, language string) (*Tagger, error) {
	matcher, err := Compile(patterns)
	if err != nil {
		return nil, err
	}
	lang := language
	if mapped, ok := snowballLanguages[language]; ok {
		lang = mapped
	}
	return &Tagger{
		matcher:  matcher,
		language: lang,
		stops:    stopwords(lang),
	}, nil
}

// Tag tokenizes and sentence-splits the text, stems each token and marks
// the gazetteer entities. A failed stem leaves the lemma empty; the
// statistics stage reports those.
func (t *Tagger) Tag(id, text string) (*model.TaggedDocument, error) {
	doc, err := prose.NewDocument(text, prose.WithExtraction(false))
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", id, err)
	}

	tagged := &model.TaggedDocument{ID: id, Text: text}

	cursor := 0
	for _, tok := range doc.Tokens() {
		offset := tokenOffset(text, tok.Text, cursor)
		if offset >= 0 {
			cursor = offset + len(tok.Text)
		}

		token := model.Token{
			Text:    tok.Text,
			POS:     tok.Tag,
			Offset:  offset,
			IsStop:  t.stops[strings.ToLower(tok.Text)],
			IsPunct: isPunct(tok.Text),
		}
		if !token.IsPunct {
			if lemma, err := snowball.Stem(strings.ToLower(tok.Text), t.language, true); err == nil {
				token.Lemma = lemma
			}
		}
		tagged.Tokens = append(tagged.Tokens, token)
	}

	cursor = 0
	for _, sent := range doc.Sentences() {
		s := strings.TrimSpace(sent.Text)
		offset := strings.Index(text[cursor:], s)
		if offset < 0 || s == "" {
			continue
		}
		offset += cursor
		cursor = offset + len(s)
		tagged.Sentences = append(tagged.Sentences, model.Sentence{
			Start: offset,
			End:   offset + len(s),
		})
	}

	tagged.Entities = t.matcher.Find(text)
	return tagged, nil
}

// tokenOffset locates tok in text at or after cursor. The tokenizer
// normalizes some characters (curly quotes, ellipses), so a token may not
// occur verbatim in the source; those get offset -1 and are still kept, so
// token counts stay faithful to the tokenizer's output.
func tokenOffset(text, tok string, cursor int) int {
	offset := strings.Index(text[cursor:], tok)
	if offset < 0 {
		return -1
	}
	return offset + cursor
}

func isPunct(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}

// WriteDocument stores a tagged document as <id>.json in dir.
func WriteDocument(dir string, doc *model.TaggedDocument) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create batch dir: %w", err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", doc.ID, err)
	}
	path := filepath.Join(dir, doc.ID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write document %s: %w", doc.ID, err)
	}
	return nil
}

// ReadDocument loads one tagged document.
func ReadDocument(path string) (*model.TaggedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	var doc model.TaggedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document %s: %w", path, err)
	}
	return &doc, nil
}

// ReadBatch loads every tagged document in a batch directory, sorted by
// filename so document order matches id order.
func ReadBatch(dir string) ([]*model.TaggedDocument, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no tagged documents in %s", model.ErrResourceMissing, dir)
	}
	docs := make([]*model.TaggedDocument, 0, len(paths))
	for _, path := range paths {
		doc, err := ReadDocument(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// ClearBatchDir removes previously tagged documents so a rerun starts
// clean.
func ClearBatchDir(dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("glob %s: %w", dir, err)
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return nil
}
