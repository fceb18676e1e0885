// Package tagger annotates article text with tokens, sentences, lemmas and
// the gazetteer-based entity spans.
package tagger

import (
	"fmt"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"

	"github.com/lcvriend/toponym-extraction/internal/model"
)

// Matcher finds pattern phrases in text as exact, word-bounded surface
// matches.
type Matcher struct {
	ac       *ahocorasick.Automaton
	patterns []model.Pattern
}

// Compile builds the matcher from a pattern list. When the same phrase
// appears under more than one label, the first occurrence wins.
func Compile(patterns []model.Pattern) (*Matcher, error) {
	seen := make(map[string]bool, len(patterns))
	kept := make([]model.Pattern, 0, len(patterns))
	phrases := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p.Phrase == "" || seen[p.Phrase] {
			continue
		}
		seen[p.Phrase] = true
		kept = append(kept, p)
		phrases = append(phrases, p.Phrase)
	}
	if len(phrases) == 0 {
		return nil, fmt.Errorf("no patterns to compile")
	}

	ac, err := ahocorasick.NewBuilder().
		AddStrings(phrases).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build automaton: %w", err)
	}
	return &Matcher{ac: ac, patterns: kept}, nil
}

// Size returns the number of compiled phrases.
func (m *Matcher) Size() int {
	return len(m.patterns)
}

// Find returns the entity spans in text, longest match first at every
// position and never overlapping.
func (m *Matcher) Find(text string) []model.EntitySpan {
	matches := m.ac.FindAllOverlapping([]byte(text))

	candidates := make([]model.EntitySpan, 0, len(matches))
	for _, match := range matches {
		if !wordBounded(text, match.Start, match.End) {
			continue
		}
		candidates = append(candidates, model.EntitySpan{
			Label: m.patterns[match.PatternID].Label,
			Text:  text[match.Start:match.End],
			Start: match.Start,
			End:   match.End,
		})
	}
	return resolveOverlaps(candidates)
}

// resolveOverlaps keeps the leftmost longest span wherever candidates
// overlap.
func resolveOverlaps(spans []model.EntitySpan) []model.EntitySpan {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})
	out := spans[:0]
	last := -1
	for _, s := range spans {
		if s.Start < last {
			continue
		}
		out = append(out, s)
		last = s.End
	}
	return out
}

// wordBounded reports whether the byte range [start, end) neither starts
// nor ends in the middle of a word.
func wordBounded(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
