package kaggleapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/1984akg/kaggle-competition-scraper3/internal/config"
	"github.com/1984akg/kaggle-competition-scraper3/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func testConfig(apiURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = apiURL
	cfg.API.Username = "tester"
	cfg.API.Key = "secret"
	cfg.API.PageSize = 2
	cfg.Scrape.BaseURL = "https://www.kaggle.com"
	return cfg
}

// kernelsServer serves /kernels/list from a fixed set of items, honoring
// page and pageSize.
func kernelsServer(t *testing.T, items []kernelItem) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/kernels/list" {
			http.NotFound(w, r)
			return
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "tester" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
		start := (page - 1) * pageSize
		end := start + pageSize
		if start > len(items) {
			start = len(items)
		}
		if end > len(items) {
			end = len(items)
		}
		json.NewEncoder(w).Encode(items[start:end])
	}))
}

func TestListNotebooksPaginates(t *testing.T) {
	items := []kernelItem{
		{Ref: "u/nb1", Title: "One", Author: "u", TotalVotes: 3, Language: "python"},
		{Ref: "u/nb2", Title: "Two", Author: "u", TotalVotes: 2, Language: "r"},
		{Ref: "u/nb3", Title: "Three", Author: "u", TotalVotes: 1},
	}
	server := kernelsServer(t, items)
	defer server.Close()

	c := New(testConfig(server.URL), testLogger, nil)
	if !c.Available() {
		t.Fatal("expected adapter to be available with config credentials")
	}

	notebooks, err := c.ListNotebooks(context.Background(), "titanic", 10)
	if err != nil {
		t.Fatalf("ListNotebooks: %v", err)
	}
	if len(notebooks) != 3 {
		t.Fatalf("expected 3 notebooks across pages, got %d", len(notebooks))
	}

	first := notebooks[0]
	if first.ID != "u/nb1" {
		t.Errorf("unexpected id: %q", first.ID)
	}
	if first.URL != "https://www.kaggle.com/u/nb1" {
		t.Errorf("unexpected URL: %q", first.URL)
	}
	if first.Language != "python" {
		t.Errorf("unexpected language: %q", first.Language)
	}

	// The provider omitted the language on the third item.
	if notebooks[2].Language != types.LanguageUnknown {
		t.Errorf("expected %q, got %q", types.LanguageUnknown, notebooks[2].Language)
	}
}

func TestListNotebooksHonorsMax(t *testing.T) {
	items := []kernelItem{
		{Ref: "u/nb1"}, {Ref: "u/nb2"}, {Ref: "u/nb3"}, {Ref: "u/nb4"},
	}
	server := kernelsServer(t, items)
	defer server.Close()

	c := New(testConfig(server.URL), testLogger, nil)
	notebooks, err := c.ListNotebooks(context.Background(), "titanic", 3)
	if err != nil {
		t.Fatalf("ListNotebooks: %v", err)
	}
	if len(notebooks) != 3 {
		t.Errorf("expected 3 notebooks, got %d", len(notebooks))
	}
}

func TestListNotebooksEmptyListing(t *testing.T) {
	server := kernelsServer(t, nil)
	defer server.Close()

	c := New(testConfig(server.URL), testLogger, nil)
	notebooks, err := c.ListNotebooks(context.Background(), "titanic", 10)
	if err != nil {
		t.Fatalf("ListNotebooks: %v", err)
	}
	if len(notebooks) != 0 {
		t.Errorf("expected no notebooks, got %d", len(notebooks))
	}
}

func TestListNotebooksUnavailableWithoutCredentials(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.API.Enabled = false

	c := New(cfg, testLogger, nil)
	if c.Available() {
		t.Fatal("expected adapter to be unavailable")
	}

	_, err := c.ListNotebooks(context.Background(), "titanic", 10)
	if !errors.Is(err, types.ErrAPIUnavailable) {
		t.Errorf("expected ErrAPIUnavailable, got %v", err)
	}
}

func TestListNotebooksServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(testConfig(server.URL), testLogger, nil)
	if _, err := c.ListNotebooks(context.Background(), "titanic", 10); err == nil {
		t.Error("expected error on HTTP 500")
	}
}

func TestListThreadsUnsupported(t *testing.T) {
	c := New(testConfig("http://unused"), testLogger, nil)
	_, err := c.ListThreads(context.Background(), "titanic", 10)
	if !errors.Is(err, types.ErrAPIUnsupported) {
		t.Errorf("expected ErrAPIUnsupported, got %v", err)
	}
}

func TestResolveCredentialsFromFile(t *testing.T) {
	t.Setenv("KAGGLE_USERNAME", "")
	t.Setenv("KAGGLE_KEY", "")
	dir := t.TempDir()
	path := dir + "/kaggle.json"
	if err := os.WriteFile(path, []byte(`{"username":"filer","key":"filekey"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	creds, err := resolveCredentials(&config.APIConfig{CredentialsFile: path})
	if err != nil {
		t.Fatalf("resolveCredentials: %v", err)
	}
	if creds.Username != "filer" || creds.Key != "filekey" {
		t.Errorf("unexpected credentials: %+v", creds)
	}
}

func TestResolveCredentialsIncompleteFile(t *testing.T) {
	t.Setenv("KAGGLE_USERNAME", "")
	t.Setenv("KAGGLE_KEY", "")
	dir := t.TempDir()
	path := dir + "/kaggle.json"
	if err := os.WriteFile(path, []byte(`{"username":"filer"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := resolveCredentials(&config.APIConfig{CredentialsFile: path}); err == nil {
		t.Error("expected error for incomplete credentials file")
	}
}
