package stats

import (
	"strings"
	"testing"

	"github.com/lcvriend/toponym-extraction/internal/model"
)

func testDoc() *model.TaggedDocument {
	return &model.TaggedDocument{
		ID: "world__0000",
		Tokens: []model.Token{
			{Text: "Paris", Lemma: "paris", POS: "NNP"},
			{Text: "is", Lemma: "is", POS: "VBZ", IsStop: true},
			{Text: "mooi", Lemma: "mooi", POS: "JJ"},
			{Text: ".", POS: ".", IsPunct: true},
			{Text: "Paris", Lemma: "paris", POS: "NNP"},
			{Text: "dus", Lemma: "", POS: "RB"},
		},
		Sentences: []model.Sentence{{Start: 0, End: 14}, {Start: 15, End: 20}},
		Entities: []model.EntitySpan{
			{Label: "places_world", Text: "Paris", Start: 0, End: 5},
			{Label: "places_world", Text: "Paris", Start: 15, End: 20},
		},
	}
}

func TestBasic(t *testing.T) {
	s := Basic(testDoc())
	if s.ID != "world__0000" {
		t.Errorf("id = %q", s.ID)
	}
	want := map[string]int{
		"n_tokens":                6,
		"n_stopwords":             1,
		"n_words":                 5,
		"n_sentences":             2,
		"n_entities":              2,
		"n_unique_entities":       1,
		"pos_NNP":                 2,
		"ent_places_world":        2,
		"unique_ent_places_world": 1,
	}
	for k, v := range want {
		if s.Counts[k] != v {
			t.Errorf("counts[%s] = %d, want %d", k, s.Counts[k], v)
		}
	}
}

func TestAttributes(t *testing.T) {
	counters, fails := Attributes(testDoc(), false)
	if counters["lemma"]["paris"] != 2 {
		t.Errorf("lemma paris = %d, want 2", counters["lemma"]["paris"])
	}
	if _, ok := counters["lemma"]["is"]; ok {
		t.Error("stopword lemma counted")
	}
	if _, ok := counters["lemma"]["."]; ok {
		t.Error("punctuation counted")
	}
	if counters["places_world"]["Paris"] != 2 {
		t.Errorf("entity Paris = %d, want 2", counters["places_world"]["Paris"])
	}
	if len(fails) != 1 || fails[0].Token != "dus" || fails[0].DocID != "world__0000" {
		t.Errorf("fails = %v", fails)
	}
}

func TestAttributesUnique(t *testing.T) {
	counters, _ := Attributes(testDoc(), true)
	if counters["lemma"]["paris"] != 1 {
		t.Errorf("unique lemma paris = %d, want 1", counters["lemma"]["paris"])
	}
	if counters["places_world"]["Paris"] != 1 {
		t.Errorf("unique entity Paris = %d, want 1", counters["places_world"]["Paris"])
	}
}

func TestCountersMerge(t *testing.T) {
	a := Counters{"lemma": {"paris": 2}}
	b := Counters{"lemma": {"paris": 1, "mooi": 1}, "places_nl": {"Sneek": 1}}
	a.Merge(b)
	if a["lemma"]["paris"] != 3 || a["lemma"]["mooi"] != 1 || a["places_nl"]["Sneek"] != 1 {
		t.Errorf("merged = %v", a)
	}
}

func TestMostCommon(t *testing.T) {
	table := map[string]int{"a": 1, "b": 3, "c": 3, "d": 2}
	got := MostCommon(table, 3)
	want := []Entry{{"b", 3}, {"c", 3}, {"d", 2}}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCompareZeroFills(t *testing.T) {
	table := Compare(map[string]map[string]int{
		"world": {"n_tokens": 10, "n_entities": 2},
		"nl":    {"n_tokens": 20},
	})
	if len(table.Batches) != 2 || table.Batches[0] != "nl" || table.Batches[1] != "world" {
		t.Fatalf("batches = %v", table.Batches)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %v", table.Rows)
	}
	if table.Rows[0].Key != "n_entities" || table.Rows[0].Counts[0] != 0 || table.Rows[0].Counts[1] != 2 {
		t.Errorf("row 0 = %v", table.Rows[0])
	}

	var buf strings.Builder
	if err := table.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "key,nl,world\nn_entities,0,2\nn_tokens,20,10\n"
	if buf.String() != want {
		t.Errorf("csv = %q, want %q", buf.String(), want)
	}
}
