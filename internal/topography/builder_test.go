package topography

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lcvriend/toponym-extraction/internal/annotate"
	"github.com/lcvriend/toponym-extraction/internal/model"
)

func testRecords() []model.PlaceRecord {
	return []model.PlaceRecord{
		{GeonameID: 1, AlternateName: "London", CountryCode: "GB", AdminCode1: "ENG", Population: 8900000},
		{GeonameID: 2, AlternateName: "Amsterdam", CountryCode: "NL", AdminCode1: "07", Population: 740000},
		{GeonameID: 3, AlternateName: "Leeuwarden", CountryCode: "NL", AdminCode1: "02", Population: 91000},
		{GeonameID: 4, AlternateName: "Paris", CountryCode: "FR", AdminCode1: "11", Population: 2100000},
	}
}

func testRules(t *testing.T) []Rule {
	t.Helper()
	rules, err := RulesFromConfig([]model.RuleConfig{
		{Label: "places_uk", Countries: []string{"GB"}},
		{Label: "places_nl", Countries: []string{"NL"}, ExcludeAdmin1: []string{"02"}},
		{Label: "places_frl", Countries: []string{"NL"}, Admin1: []string{"02"}},
		{Label: "places_world", ExcludeCountries: []string{"GB", "NL"}},
	})
	if err != nil {
		t.Fatalf("RulesFromConfig: %v", err)
	}
	return rules
}

func TestBuildPartitionsByRule(t *testing.T) {
	countries := model.CountryMap{
		"France": {Name: "France", Alpha2: "FR"},
	}
	topo := Build(testRecords(), testRules(t), countries)

	want := map[string][]string{
		"places_uk":    {"London"},
		"places_nl":    {"Amsterdam"},
		"places_frl":   {"Leeuwarden"},
		"places_world": {"Paris"},
		"countries":    {"France"},
	}
	for label, phrases := range want {
		got := topo[label]
		if len(got) != len(phrases) {
			t.Fatalf("label %s: got %d patterns, want %d", label, len(got), len(phrases))
		}
		for i, phrase := range phrases {
			if got[i].Phrase != phrase {
				t.Errorf("label %s[%d]: got %q, want %q", label, i, got[i].Phrase, phrase)
			}
			if got[i].Label != label {
				t.Errorf("pattern %q carries label %q, want %q", phrase, got[i].Label, label)
			}
		}
	}
}

func TestRuleMinPopulation(t *testing.T) {
	rules, err := RulesFromConfig([]model.RuleConfig{
		{Label: "big", MinPopulation: 1000000},
	})
	if err != nil {
		t.Fatalf("RulesFromConfig: %v", err)
	}
	topo := Build(testRecords(), rules, nil)
	got := topo["big"]
	want := []string{"London", "Paris"}
	if len(got) != len(want) {
		t.Fatalf("got %d patterns, want %d", len(got), len(want))
	}
	for i, phrase := range want {
		if got[i].Phrase != phrase {
			t.Errorf("pattern %d: got %q, want %q", i, got[i].Phrase, phrase)
		}
	}
}

func TestRulesFromConfigRejectsDuplicates(t *testing.T) {
	_, err := RulesFromConfig([]model.RuleConfig{
		{Label: "places"},
		{Label: "places"},
	})
	if err == nil {
		t.Fatal("expected error for duplicate label")
	}
}

func TestRulesFromConfigRejectsReservedLabel(t *testing.T) {
	_, err := RulesFromConfig([]model.RuleConfig{{Label: CountriesLabel}})
	if err == nil {
		t.Fatal("expected error for reserved label")
	}
}

func TestFindDuplicates(t *testing.T) {
	topo := Topography{
		"places_nl": {
			{Label: "places_nl", Phrase: "Bergen"},
			{Label: "places_nl", Phrase: "Amsterdam"},
		},
		"places_world": {
			{Label: "places_world", Phrase: "Bergen"},
			{Label: "places_world", Phrase: "Paris"},
		},
		"countries": {
			{Label: "countries", Phrase: "France"},
		},
	}
	report := FindDuplicates(topo)
	if report.Empty() {
		t.Fatal("expected a collision")
	}
	shared, ok := report[PairKey("places_world", "places_nl")]
	if !ok {
		t.Fatalf("missing pair entry, got %v", report)
	}
	if len(shared) != 1 || shared[0] != "Bergen" {
		t.Errorf("shared = %v, want [Bergen]", shared)
	}
	if len(report) != 1 {
		t.Errorf("got %d pair entries, want 1", len(report))
	}
}

func TestApplyPromotions(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	log := annotate.Log{
		{Phrase: "Bergen", ArticleID: "adver__0001", Judgment: model.JudgmentPositive, Timestamp: now},
		{Phrase: "Bergen", ArticleID: "adver__0002", Judgment: model.JudgmentPositive, Timestamp: now},
		{Phrase: "Sneek", ArticleID: "adver__0003", Judgment: model.JudgmentNegative, Timestamp: now},
	}
	if err := annotate.SaveLog(annotate.LogPath(dir, "places_frl"), log); err != nil {
		t.Fatalf("SaveLog: %v", err)
	}

	topo := Topography{
		"places_frl": {
			{Label: "places_frl", Phrase: "Bergen"},
			{Label: "places_frl", Phrase: "Sneek"},
		},
		"places_uk": {
			{Label: "places_uk", Phrase: "London"},
		},
	}
	out, err := ApplyPromotions(topo, dir, 100)
	if err != nil {
		t.Fatalf("ApplyPromotions: %v", err)
	}
	if len(out["places_frl"]) != 1 || out["places_frl"][0].Phrase != "Bergen" {
		t.Errorf("places_frl = %v, want only Bergen", out["places_frl"])
	}
	if len(out["places_uk"]) != 1 {
		t.Errorf("label without a log must pass through, got %v", out["places_uk"])
	}
}

func TestSaveLoadPatterns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model", "patterns.json")
	in := []model.Pattern{
		{Label: "countries", Phrase: "France"},
		{Label: "places_nl", Phrase: "Amsterdam"},
	}
	if err := SavePatterns(path, in); err != nil {
		t.Fatalf("SavePatterns: %v", err)
	}
	out, err := LoadPatterns(path)
	if err != nil {
		t.Fatalf("LoadPatterns: %v", err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Errorf("round trip mismatch: %v", out)
	}
}

func TestLoadPatternsMissing(t *testing.T) {
	_, err := LoadPatterns(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, model.ErrResourceMissing) {
		t.Fatalf("expected ErrResourceMissing, got %v", err)
	}
}
