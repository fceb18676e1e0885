package annotate

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/lcvriend/toponym-extraction/internal/model"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in     string
		cmd    Command
		phrase string
	}{
		{"+", CmdPositive, ""},
		{" - ", CmdNegative, ""},
		{"?", CmdUncertain, ""},
		{".", CmdQuit, ""},
		{"/ Sneek", CmdNewSearch, "Sneek"},
		{"/Bergen", CmdNewSearch, "Bergen"},
	}
	for _, c := range cases {
		cmd, phrase, err := ParseCommand(c.in)
		if err != nil {
			t.Errorf("ParseCommand(%q): %v", c.in, err)
			continue
		}
		if cmd != c.cmd || phrase != c.phrase {
			t.Errorf("ParseCommand(%q) = %v, %q", c.in, cmd, phrase)
		}
	}
	for _, in := range []string{"", "x", "/", "/ "} {
		if _, _, err := ParseCommand(in); err == nil {
			t.Errorf("ParseCommand(%q) accepted invalid input", in)
		}
	}
}

func TestLogRoundTrip(t *testing.T) {
	path := LogPath(t.TempDir(), "places_frl")
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	in := Log{
		{Phrase: "Sneek", ArticleID: "lc_20__0001", Judgment: model.JudgmentPositive, Timestamp: now},
		{Phrase: "Bergen", ArticleID: "lc_20__0002", Judgment: model.JudgmentNegative, Timestamp: now},
		{Phrase: "Warns", Judgment: model.JudgmentNotFound, Timestamp: now},
	}
	if err := SaveLog(path, in); err != nil {
		t.Fatalf("SaveLog: %v", err)
	}
	out, err := LoadLog(path)
	if err != nil {
		t.Fatalf("LoadLog: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d annotations, want 3", len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("annotation %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestLoadLogMissingFile(t *testing.T) {
	_, err := LoadLog(LogPath(t.TempDir(), "none"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected os.IsNotExist error, got %v", err)
	}
}

func TestPromote(t *testing.T) {
	now := time.Now()
	log := Log{
		{Phrase: "Sneek", Judgment: model.JudgmentPositive, Timestamp: now},
		{Phrase: "Sneek", Judgment: model.JudgmentPositive, Timestamp: now},
		{Phrase: "Bergen", Judgment: model.JudgmentPositive, Timestamp: now},
		{Phrase: "Bergen", Judgment: model.JudgmentNegative, Timestamp: now},
		{Phrase: "Warns", Judgment: model.JudgmentNotFound, Timestamp: now},
	}

	got := Promote(log, 100)
	if len(got) != 1 || got[0] != "Sneek" {
		t.Errorf("Promote(100) = %v, want [Sneek]", got)
	}

	got = Promote(log, 50)
	want := []string{"Bergen", "Sneek"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Promote(50) = %v, want %v", got, want)
	}
}

func TestPromoteRounding(t *testing.T) {
	// 9 of 10 positive is exactly 90.0 after rounding to one decimal.
	var log Log
	for i := 0; i < 9; i++ {
		log = append(log, model.Annotation{Phrase: "Warns", Judgment: model.JudgmentPositive})
	}
	log = append(log, model.Annotation{Phrase: "Warns", Judgment: model.JudgmentNegative})

	if got := Promote(log, 90); len(got) != 1 || got[0] != "Warns" {
		t.Errorf("Promote(90) = %v, want [Warns]", got)
	}
	if got := Promote(log, 91); len(got) != 0 {
		t.Errorf("Promote(91) = %v, want none", got)
	}
}

func testCorpus() []model.Article {
	return []model.Article{
		{
			ID:           "lc_20__0000",
			Source:       "De Krant",
			Title:        "Sneek viert feest",
			FilteredBody: []string{"Heel Sneek liep uit."},
			BodyText:     "Heel Sneek liep uit.",
		},
		{
			ID:           "lc_20__0001",
			Source:       "De Krant",
			Title:        "Weer in het noorden",
			FilteredBody: []string{"Ook in Sneek bleef het droog."},
			BodyText:     "Ook in Sneek bleef het droog.",
		},
	}
}

func TestSessionRecordsJudgments(t *testing.T) {
	path := LogPath(t.TempDir(), "places_frl")
	in := strings.NewReader("+\n-\n")
	s, err := NewSession(testCorpus(), path, 2, in, &strings.Builder{})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Run([]string{"Sneek"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	log, err := LoadLog(path)
	if err != nil {
		t.Fatalf("LoadLog: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("got %d annotations, want 2", len(log))
	}
	judgments := map[model.Judgment]int{}
	for _, a := range log {
		if a.Phrase != "Sneek" {
			t.Errorf("phrase = %q", a.Phrase)
		}
		judgments[a.Judgment]++
	}
	if judgments[model.JudgmentPositive] != 1 || judgments[model.JudgmentNegative] != 1 {
		t.Errorf("judgments = %v", judgments)
	}
}

func TestSessionNotFoundPhrase(t *testing.T) {
	path := LogPath(t.TempDir(), "places_frl")
	s, err := NewSession(testCorpus(), path, 2, strings.NewReader(""), &strings.Builder{})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Run([]string{"Atlantis"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	log, err := LoadLog(path)
	if err != nil {
		t.Fatalf("LoadLog: %v", err)
	}
	if len(log) != 1 || log[0].Judgment != model.JudgmentNotFound || log[0].ArticleID != "" {
		t.Errorf("log = %+v, want single not-found entry", log)
	}
}

func TestSessionQuitDiscardsUnsavedPhrase(t *testing.T) {
	path := LogPath(t.TempDir(), "places_frl")
	// First sample judged positive, then quit mid-phrase.
	s, err := NewSession(testCorpus(), path, 2, strings.NewReader("+\n.\n"), &strings.Builder{})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Run([]string{"Sneek"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("quit mid-phrase must not persist a log")
	}
}

func TestSessionSkipsLoggedPhrases(t *testing.T) {
	path := LogPath(t.TempDir(), "places_frl")
	existing := Log{{Phrase: "Sneek", ArticleID: "lc_20__0000", Judgment: model.JudgmentPositive, Timestamp: time.Now().UTC().Truncate(time.Second)}}
	if err := SaveLog(path, existing); err != nil {
		t.Fatalf("SaveLog: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	// No input needed: the only phrase is already judged.
	s, err := NewSession(testCorpus(), path, 2, strings.NewReader(""), &strings.Builder{})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Run([]string{"Sneek"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if string(before) != string(after) {
		t.Error("rerun over judged phrases changed the log")
	}
}

func TestSessionNewSearchJumpsQueue(t *testing.T) {
	path := LogPath(t.TempDir(), "places_frl")
	// Searching a new phrase interrupts the current one: Bergen is judged
	// first (not found, auto-logged), then Sneek comes back around and its
	// two samples get judged.
	input := "/ Bergen\n+\n+\n"
	s, err := NewSession(testCorpus(), path, 2, strings.NewReader(input), &strings.Builder{})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Run([]string{"Sneek"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	log, err := LoadLog(path)
	if err != nil {
		t.Fatalf("LoadLog: %v", err)
	}
	phrases := log.Phrases()
	if !phrases["Bergen"] || !phrases["Sneek"] {
		t.Errorf("logged phrases = %v, want Bergen and Sneek", phrases)
	}
	count := 0
	for _, a := range log {
		if a.Phrase == "Sneek" && a.Judgment == model.JudgmentPositive {
			count++
		}
	}
	if count != 2 {
		t.Errorf("got %d positive Sneek judgments, want 2", count)
	}
}
