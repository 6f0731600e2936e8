package storage

import (
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/1984akg/kaggle-competition-scraper3/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func sampleResult() *types.ScrapeResult {
	return types.NewScrapeResult(
		types.CompetitionOverview{
			ID:          "titanic",
			Title:       "Titanic",
			Description: "desc",
			Timeline:    map[string]string{},
			Reward:      "$10,000",
			Evaluation:  "accuracy",
			URL:         "https://www.kaggle.com/competitions/titanic",
		},
		[]types.Thread{{ID: "12345", Title: "Getting started", Author: "alice", ReplyCount: 7, VoteCount: 42, URL: "u", Posts: []types.Post{}}},
		[]types.Notebook{{ID: "titanic-eda", Title: "EDA", Author: "someuser", Votes: 99, Language: "python", URL: "u"}},
	)
}

func TestFileStoreJSON(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, []string{"json"}, testLogger)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer store.Close()

	if err := store.Save(sampleResult()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "titanic_data.json"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	var decoded types.ScrapeResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Competition.ID != "titanic" {
		t.Errorf("round-tripped id: %q", decoded.Competition.ID)
	}
	if len(decoded.DiscussionThreads) != 1 || decoded.DiscussionThreads[0].ReplyCount != 7 {
		t.Errorf("threads did not survive: %+v", decoded.DiscussionThreads)
	}
}

func TestFileStoreMarkdown(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, []string{"markdown"}, testLogger)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer store.Close()

	if err := store.Save(sampleResult()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "titanic_report.md"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Titanic") {
		t.Errorf("unexpected report head: %q", string(data[:40]))
	}
}

func TestFileStoreCSV(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, []string{"csv"}, testLogger)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer store.Close()

	if err := store.Save(sampleResult()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "titanic_threads.csv"))
	if err != nil {
		t.Fatalf("open threads csv: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}
	if rows[0][0] != "id" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "12345" || rows[1][3] != "7" {
		t.Errorf("unexpected row: %v", rows[1])
	}

	if _, err := os.Stat(filepath.Join(dir, "titanic_notebooks.csv")); err != nil {
		t.Errorf("notebooks csv missing: %v", err)
	}
}

func TestFileStoreDefaultsToJSON(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, nil, testLogger)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer store.Close()

	if err := store.Save(sampleResult()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "titanic_data.json")); err != nil {
		t.Errorf("default JSON output missing: %v", err)
	}
	if len(store.Written()) != 1 {
		t.Errorf("expected one written file, got %v", store.Written())
	}
}

func TestMultiStoreFansOut(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	a, err := NewFileStore(dirA, []string{"json"}, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewFileStore(dirB, []string{"json"}, testLogger)
	if err != nil {
		t.Fatal(err)
	}

	multi := NewMultiStore(a, b)
	if err := multi.Save(sampleResult()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := multi.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, dir := range []string{dirA, dirB} {
		if _, err := os.Stat(filepath.Join(dir, "titanic_data.json")); err != nil {
			t.Errorf("backend output missing in %s: %v", dir, err)
		}
	}
}
