package pipeline

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lcvriend/toponym-extraction/internal/model"
	"github.com/lcvriend/toponym-extraction/internal/stats"
	"github.com/lcvriend/toponym-extraction/internal/tagger"
)

func testHTTPConfig() model.HTTPConfig {
	return model.HTTPConfig{UserAgent: "toponym-test", MaxBodyBytes: 1 << 20}
}

func TestDownloaderFetchesAndSkipsExisting(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nAllow: /\n")
			return
		}
		hits++
		fmt.Fprint(w, "dataset-content")
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "cities5000.txt")
	dl := NewDownloader(testHTTPConfig(), model.RateLimitConfig{RequestsPerSecond: 100, BurstSize: 5})

	if err := dl.Download(context.Background(), srv.URL+"/dump/cities5000.txt", dest); err != nil {
		t.Fatalf("Download: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(data) != "dataset-content" {
		t.Errorf("content = %q", data)
	}

	if err := dl.Download(context.Background(), srv.URL+"/dump/cities5000.txt", dest); err != nil {
		t.Fatalf("second Download: %v", err)
	}
	if hits != 1 {
		t.Errorf("server hit %d times, want 1", hits)
	}
}

func TestDownloaderHonorsRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nDisallow: /dump/\n")
			return
		}
		fmt.Fprint(w, "should not be served")
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "blocked.txt")
	dl := NewDownloader(testHTTPConfig(), model.RateLimitConfig{RequestsPerSecond: 100, BurstSize: 5})

	err := dl.Download(context.Background(), srv.URL+"/dump/blocked.txt", dest)
	if !errors.Is(err, model.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("blocked download left a file behind")
	}
}

func TestDownloaderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	dl := NewDownloader(testHTTPConfig(), model.RateLimitConfig{RequestsPerSecond: 100, BurstSize: 5})
	err := dl.Download(context.Background(), srv.URL+"/dump/x.zip", filepath.Join(t.TempDir(), "x.zip"))
	if !errors.Is(err, model.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
}

func TestUnzip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "data.zip")

	f, err := os.Create(archive)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("cities5000.txt")
	fmt.Fprint(w, "1\tAmsterdam\n")
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	f.Close()

	if err := Unzip(archive, dir); err != nil {
		t.Fatalf("Unzip: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "cities5000.txt"))
	if err != nil {
		t.Fatalf("read extracted: %v", err)
	}
	if !strings.Contains(string(data), "Amsterdam") {
		t.Errorf("extracted = %q", data)
	}
}

func TestUnzipRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")

	f, err := os.Create(archive)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("../escape.txt")
	fmt.Fprint(w, "nope")
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	f.Close()

	if err := Unzip(archive, filepath.Join(dir, "out")); err == nil {
		t.Fatal("expected error for traversal entry")
	}
}

func TestArticleTableRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := []model.Article{
		{ID: "world__0000", Title: "Eerste", BodyText: "tekst"},
		{ID: "world__0001", Title: "Tweede"},
	}
	path := ProcessedTablePath(dir, "world")
	if err := SaveJSON(path, in); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	out, err := LoadArticles(path)
	if err != nil {
		t.Fatalf("LoadArticles: %v", err)
	}
	if len(out) != 2 || out[0].ID != "world__0000" || out[1].Title != "Tweede" {
		t.Errorf("round trip = %v", out)
	}
}

func TestLoadArticlesMissing(t *testing.T) {
	_, err := LoadArticles(ProcessedTablePath(t.TempDir(), "none"))
	if !errors.Is(err, model.ErrResourceMissing) {
		t.Fatalf("expected ErrResourceMissing, got %v", err)
	}
}

func TestStatsWritesTotalAndUniqueTables(t *testing.T) {
	cfg := model.DefaultConfig()
	base := t.TempDir()
	cfg.Paths.DataProcessed = filepath.Join(base, "processed")
	cfg.Paths.Results = filepath.Join(base, "results")

	batchDir := filepath.Join(cfg.Paths.DataProcessed, "world")
	if err := os.MkdirAll(batchDir, 0755); err != nil {
		t.Fatal(err)
	}
	doc := &model.TaggedDocument{
		ID:   "world__0000",
		Text: "Paris is Paris.",
		Tokens: []model.Token{
			{Text: "Paris", Lemma: "paris", POS: "NNP", Offset: 0},
			{Text: "is", Lemma: "is", POS: "VBZ", Offset: 6, IsStop: true},
			{Text: "Paris", Lemma: "paris", POS: "NNP", Offset: 9},
			{Text: ".", POS: ".", Offset: 14, IsPunct: true},
		},
		Entities: []model.EntitySpan{
			{Label: "places_world", Text: "Paris", Start: 0, End: 5},
			{Label: "places_world", Text: "Paris", Start: 9, End: 14},
		},
		Sentences: []model.Sentence{{Start: 0, End: 15}},
	}
	if err := tagger.WriteDocument(batchDir, doc); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}

	result, err := New(cfg).Stats([]string{"world"}, 10)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	uniquePath := filepath.Join(cfg.Paths.Results, "stats_unique_world.json")
	listed := false
	for _, f := range result.Files {
		if f == uniquePath {
			listed = true
		}
	}
	if !listed {
		t.Errorf("unique table missing from result files: %v", result.Files)
	}

	data, err := os.ReadFile(uniquePath)
	if err != nil {
		t.Fatalf("read unique table: %v", err)
	}
	var uniques stats.Counters
	if err := json.Unmarshal(data, &uniques); err != nil {
		t.Fatalf("parse unique table: %v", err)
	}
	// Repeats within one document count once in unique mode.
	if uniques["lemma"]["paris"] != 1 || uniques["places_world"]["Paris"] != 1 {
		t.Errorf("unique counters = %v", uniques)
	}

	data, err = os.ReadFile(filepath.Join(cfg.Paths.Results, "most_common_world.json"))
	if err != nil {
		t.Fatalf("read rankings: %v", err)
	}
	var rankings map[string][]stats.Entry
	if err := json.Unmarshal(data, &rankings); err != nil {
		t.Fatalf("parse rankings: %v", err)
	}
	if len(rankings["lemma"]) == 0 || rankings["lemma"][0].Value != "paris" || rankings["lemma"][0].Count != 2 {
		t.Errorf("lemma ranking = %v", rankings["lemma"])
	}
}
