// Package scraper orchestrates one full competition scrape as a fixed
// sequence of stages. Each section stage is its own bulkhead: a failure
// inside it degrades that section to an empty or placeholder result and
// never aborts the siblings.
package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/1984akg/kaggle-competition-scraper3/internal/assemble"
	"github.com/1984akg/kaggle-competition-scraper3/internal/cascade"
	"github.com/1984akg/kaggle-competition-scraper3/internal/config"
	"github.com/1984akg/kaggle-competition-scraper3/internal/fetcher"
	"github.com/1984akg/kaggle-competition-scraper3/internal/kaggleapi"
	"github.com/1984akg/kaggle-competition-scraper3/internal/observability"
	"github.com/1984akg/kaggle-competition-scraper3/internal/pipeline"
	"github.com/1984akg/kaggle-competition-scraper3/internal/types"
)

// Stage identifies the scraper's current position in the sequence.
type Stage int32

const (
	StageIdentify Stage = iota
	StageOverview
	StageDiscussions
	StageNotebooks
	StageAssembled
)

func (s Stage) String() string {
	switch s {
	case StageIdentify:
		return "identify"
	case StageOverview:
		return "overview"
	case StageDiscussions:
		return "discussions"
	case StageNotebooks:
		return "notebooks"
	case StageAssembled:
		return "assembled"
	default:
		return "unknown"
	}
}

// Scraper is the content-extraction engine. One instance serves one
// in-flight scrape at a time; concurrent callers must serialize.
type Scraper struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *observability.Metrics
	client    *fetcher.Client
	engine    *cascade.Engine
	assembler *assemble.Assembler
	api       *kaggleapi.Client

	threadPipe   *pipeline.Pipeline[types.Thread]
	notebookPipe *pipeline.Pipeline[types.Notebook]

	stage atomic.Int32

	// OnStage, when set, is called as each stage begins. Collaborator
	// UIs use it to display progress.
	OnStage func(Stage)
}

// New wires up the engine from configuration. The browser session, if
// render mode is requested, is initialized lazily on first use.
func New(cfg *config.Config, logger *slog.Logger) (*Scraper, error) {
	metrics := observability.NewMetrics(logger)

	client, err := fetcher.NewClient(cfg, logger, metrics, cfg.Scrape.UseRender)
	if err != nil {
		return nil, err
	}

	engine := cascade.New(logger, metrics)

	assembler := assemble.New(client, engine, logger, metrics)
	assembler.ItemDelay = cfg.Scrape.ItemDelay
	assembler.MaxPosts = cfg.Scrape.MaxPosts

	s := &Scraper{
		cfg:       cfg,
		logger:    logger.With("component", "scraper"),
		metrics:   metrics,
		client:    client,
		engine:    engine,
		assembler: assembler,
		api:       kaggleapi.New(cfg, logger, metrics),
	}

	s.threadPipe = pipeline.New[types.Thread](logger)
	s.threadPipe.Use(pipeline.RequiredID[types.Thread]{Key: func(t *types.Thread) string { return t.ID }})
	s.threadPipe.Use(&pipeline.Dedup[types.Thread]{Key: func(t *types.Thread) string { return t.ID }})
	s.threadPipe.Use(pipeline.Transform[types.Thread]{Label: "sanitize", Fn: sanitizeThread})

	s.notebookPipe = pipeline.New[types.Notebook](logger)
	s.notebookPipe.Use(pipeline.RequiredID[types.Notebook]{Key: func(n *types.Notebook) string { return n.ID }})
	s.notebookPipe.Use(&pipeline.Dedup[types.Notebook]{Key: func(n *types.Notebook) string { return n.ID }})
	s.notebookPipe.Use(pipeline.Transform[types.Notebook]{Label: "sanitize", Fn: sanitizeNotebook})

	return s, nil
}

// Metrics exposes the engine's counters.
func (s *Scraper) Metrics() *observability.Metrics {
	return s.metrics
}

// Stage returns the current scrape stage.
func (s *Scraper) Stage() Stage {
	return Stage(s.stage.Load())
}

// Close releases the transport resources, browser session included.
func (s *Scraper) Close() error {
	return s.client.Close()
}

// ScrapeAll runs the full IDENTIFY → OVERVIEW → DISCUSSIONS → NOTEBOOKS
// → ASSEMBLED sequence. Only identifier resolution can fail; everything
// below it degrades into the result instead of erroring.
func (s *Scraper) ScrapeAll(ctx context.Context, rawURL string) (*types.ScrapeResult, error) {
	s.setStage(StageIdentify)
	slug, err := ExtractSlug(rawURL)
	if err != nil {
		return nil, err
	}
	s.logger.Info("scraping competition", "slug", slug)

	s.setStage(StageOverview)
	overview := s.scrapeOverview(ctx, slug)

	s.setStage(StageDiscussions)
	threads := s.threadPipe.Run(s.scrapeDiscussions(ctx, slug))

	s.setStage(StageNotebooks)
	notebooks := s.notebookPipe.Run(s.scrapeNotebooks(ctx, slug))

	s.setStage(StageAssembled)
	result := types.NewScrapeResult(overview, threads, notebooks)

	s.logger.Info("scrape complete",
		"slug", slug,
		"threads", len(result.DiscussionThreads),
		"notebooks", len(result.Notebooks),
	)
	return result, nil
}

func (s *Scraper) setStage(stage Stage) {
	s.stage.Store(int32(stage))
	s.logger.Debug("stage", "stage", stage.String())
	if s.OnStage != nil {
		s.OnStage(stage)
	}
}

// competitionURL builds the canonical overview URL for a slug.
func (s *Scraper) competitionURL(slug string) string {
	return strings.TrimRight(s.cfg.Scrape.BaseURL, "/") + "/competitions/" + slug
}

func (s *Scraper) baseURL() *url.URL {
	u, err := url.Parse(s.cfg.Scrape.BaseURL)
	if err != nil {
		return nil
	}
	return u
}

// sanitizeThread trims text fields and clamps counts to non-negative.
func sanitizeThread(t *types.Thread) {
	t.Title = strings.TrimSpace(t.Title)
	t.Author = strings.TrimSpace(t.Author)
	if t.ReplyCount < 0 {
		t.ReplyCount = 0
	}
	if t.VoteCount < 0 {
		t.VoteCount = 0
	}
	if t.Posts == nil {
		t.Posts = []types.Post{}
	}
}

// sanitizeNotebook trims text fields and restores required defaults.
func sanitizeNotebook(n *types.Notebook) {
	n.Title = strings.TrimSpace(n.Title)
	n.Author = strings.TrimSpace(n.Author)
	if n.Votes < 0 {
		n.Votes = 0
	}
	if n.Language == "" {
		n.Language = types.LanguageUnknown
	}
}
