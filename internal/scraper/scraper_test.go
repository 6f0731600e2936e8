package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/1984akg/kaggle-competition-scraper3/internal/config"
	"github.com/1984akg/kaggle-competition-scraper3/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const overviewPage = `<!DOCTYPE html>
<html>
<head><title>Titanic - Machine Learning from Disaster | Kaggle</title></head>
<body>
    <h1 data-testid="competition-name">Titanic - Machine Learning from Disaster</h1>
    <div data-testid="competition-description">
        <p>Use machine learning to create a model that predicts which passengers survived the Titanic shipwreck.</p>
    </div>
    <span data-testid="prize-amount">Knowledge</span>
    <div data-testid="competition-evaluation">
        <p>Your score is the percentage of passengers you correctly predict.</p>
    </div>
    <div><span>Final Submission</span><time datetime="2030-01-01T00:00:00Z">Jan 1</time></div>
</body>
</html>`

const threadDetailPage = `<html><body>
    <article><div class="markdown-converter__text"><p>Welcome aboard, this thread covers the basics.</p></div></article>
</body></html>`

// testServer serves a minimal competition site: overview, discussion
// listing with 6 threads, thread detail pages, and a code listing.
func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/competitions/titanic", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, overviewPage)
	})

	mux.HandleFunc("/competitions/titanic/discussion", func(w http.ResponseWriter, r *http.Request) {
		var sb strings.Builder
		sb.WriteString("<html><body><ul>")
		for i := 0; i < 6; i++ {
			fmt.Fprintf(&sb, `<li><a href="/competitions/titanic/discussion/100%d">Thread %d</a> <span data-testid="vote-count">%d</span></li>`, i, i, i*10)
		}
		sb.WriteString("</ul></body></html>")
		fmt.Fprint(w, sb.String())
	})

	mux.HandleFunc("/competitions/titanic/discussion/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, threadDetailPage)
	})

	mux.HandleFunc("/competitions/titanic/code", func(w http.ResponseWriter, r *http.Request) {
		var sb strings.Builder
		sb.WriteString("<html><body><ul>")
		for i := 0; i < 6; i++ {
			fmt.Fprintf(&sb, `<li><a href="/code/user%d/notebook-%d">Notebook %d</a> <span>Python</span></li>`, i, i, i)
		}
		sb.WriteString("</ul></body></html>")
		fmt.Fprint(w, sb.String())
	})

	return httptest.NewServer(mux)
}

func testConfig(baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Scrape.BaseURL = baseURL
	cfg.Scrape.UseRender = false
	cfg.Scrape.ItemDelay = 0
	cfg.Scrape.MaxThreads = 5
	cfg.Scrape.MaxNotebooks = 5
	cfg.Scrape.MaxPosts = 1
	cfg.API.Enabled = false
	return cfg
}

func TestScrapeAll(t *testing.T) {
	server := testServer(t)
	defer server.Close()

	s, err := New(testConfig(server.URL), testLogger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	result, err := s.ScrapeAll(context.Background(), server.URL+"/c/titanic")
	if err != nil {
		t.Fatalf("ScrapeAll: %v", err)
	}

	comp := result.Competition
	if comp.ID != "titanic" {
		t.Errorf("expected id titanic, got %q", comp.ID)
	}
	if comp.Title != "Titanic - Machine Learning from Disaster" {
		t.Errorf("unexpected title: %q", comp.Title)
	}
	if comp.Description == types.DescriptionNotFound || !strings.Contains(comp.Description, "predicts which passengers") {
		t.Errorf("description not extracted: %q", comp.Description)
	}
	if !strings.Contains(comp.Evaluation, "percentage of passengers") {
		t.Errorf("evaluation not extracted: %q", comp.Evaluation)
	}
	if comp.Timeline["Final Submission"] != "2030-01-01T00:00:00Z" {
		t.Errorf("timeline not extracted: %v", comp.Timeline)
	}

	if len(result.DiscussionThreads) != 5 {
		t.Fatalf("expected 5 threads (capped), got %d", len(result.DiscussionThreads))
	}
	for _, thread := range result.DiscussionThreads {
		if thread.ID == "" {
			t.Error("thread with empty id survived the pipeline")
		}
		if thread.URL == "" {
			t.Error("thread with empty URL")
		}
		if len(thread.Posts) != 1 {
			t.Errorf("expected 1 post per thread, got %d", len(thread.Posts))
		}
	}

	if len(result.Notebooks) != 5 {
		t.Fatalf("expected 5 notebooks (capped), got %d", len(result.Notebooks))
	}
	for _, nb := range result.Notebooks {
		if nb.ID == "" || nb.URL == "" {
			t.Errorf("incomplete notebook record: %+v", nb)
		}
		if nb.Language != "python" {
			t.Errorf("expected python, got %q", nb.Language)
		}
	}

	if result.ScrapedAt == "" {
		t.Error("scrapedAt missing")
	}
	if s.Stage() != StageAssembled {
		t.Errorf("expected final stage assembled, got %s", s.Stage())
	}
}

func TestScrapeAllBadURLIsFatal(t *testing.T) {
	s, err := New(testConfig("http://127.0.0.1:0"), testLogger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if _, err := s.ScrapeAll(context.Background(), "https://www.kaggle.com/datasets/foo/bar"); err == nil {
		t.Fatal("expected error for a non-competition URL")
	}
}

func TestScrapeAllDegradesWhenSourceUnreachable(t *testing.T) {
	server := testServer(t)
	baseURL := server.URL
	server.Close() // everything below identification now fails

	s, err := New(testConfig(baseURL), testLogger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	result, err := s.ScrapeAll(context.Background(), baseURL+"/c/titanic")
	if err != nil {
		t.Fatalf("a dead source must degrade, not error: %v", err)
	}

	comp := result.Competition
	if comp.ID != "titanic" || comp.Title != "titanic" {
		t.Errorf("expected placeholder overview, got %+v", comp)
	}
	if comp.Description != types.DescriptionNotFound {
		t.Errorf("expected description sentinel, got %q", comp.Description)
	}
	if comp.Reward != types.RewardNotFound {
		t.Errorf("expected reward sentinel, got %q", comp.Reward)
	}
	if comp.Timeline == nil {
		t.Error("timeline must not be nil")
	}
	if result.DiscussionThreads == nil || len(result.DiscussionThreads) != 0 {
		t.Errorf("expected empty thread list, got %v", result.DiscussionThreads)
	}
	if result.Notebooks == nil || len(result.Notebooks) != 0 {
		t.Errorf("expected empty notebook list, got %v", result.Notebooks)
	}
}

func TestStageString(t *testing.T) {
	cases := map[Stage]string{
		StageIdentify:    "identify",
		StageOverview:    "overview",
		StageDiscussions: "discussions",
		StageNotebooks:   "notebooks",
		StageAssembled:   "assembled",
		Stage(99):        "unknown",
	}
	for stage, want := range cases {
		if got := stage.String(); got != want {
			t.Errorf("Stage(%d).String() = %q, want %q", stage, got, want)
		}
	}
}
