// Package kagglescrape provides a public SDK for embedding the scraper
// as a library.
//
// Example usage:
//
//	client := kagglescrape.New(
//	    kagglescrape.WithMaxThreads(10),
//	    kagglescrape.WithMaxNotebooks(10),
//	    kagglescrape.WithOutput("./output", "json", "markdown"),
//	)
//	defer client.Close()
//
//	result, err := client.Scrape(ctx, "https://www.kaggle.com/c/titanic")
package kagglescrape

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/1984akg/kaggle-competition-scraper3/internal/config"
	"github.com/1984akg/kaggle-competition-scraper3/internal/report"
	"github.com/1984akg/kaggle-competition-scraper3/internal/scraper"
	"github.com/1984akg/kaggle-competition-scraper3/internal/storage"
	"github.com/1984akg/kaggle-competition-scraper3/internal/types"
)

// Result is the assembled scrape result exposed to SDK consumers.
type Result = types.ScrapeResult

// Option configures a Client.
type Option func(*config.Config)

// WithMaxThreads caps how many discussion threads are collected.
func WithMaxThreads(n int) Option {
	return func(c *config.Config) { c.Scrape.MaxThreads = n }
}

// WithMaxNotebooks caps how many notebooks are collected.
func WithMaxNotebooks(n int) Option {
	return func(c *config.Config) { c.Scrape.MaxNotebooks = n }
}

// WithMaxPosts caps how many posts are collected per thread.
func WithMaxPosts(n int) Option {
	return func(c *config.Config) { c.Scrape.MaxPosts = n }
}

// WithRender enables or disables browser-rendered fetching.
func WithRender(enabled bool) Option {
	return func(c *config.Config) { c.Scrape.UseRender = enabled }
}

// WithItemDelay sets the politeness delay between per-item fetches.
func WithItemDelay(d time.Duration) Option {
	return func(c *config.Config) { c.Scrape.ItemDelay = d }
}

// WithOutput sets the output directory and the export formats to write
// ("json", "markdown", "csv").
func WithOutput(dir string, formats ...string) Option {
	return func(c *config.Config) {
		c.Storage.OutputDir = dir
		c.Storage.Formats = formats
	}
}

// WithCredentials supplies Kaggle API credentials directly, bypassing
// environment and credentials-file resolution.
func WithCredentials(username, key string) Option {
	return func(c *config.Config) {
		c.API.Username = username
		c.API.Key = key
	}
}

// WithBaseURL overrides the site base URL. Intended for tests.
func WithBaseURL(u string) Option {
	return func(c *config.Config) {
		c.Scrape.BaseURL = u
		c.API.BaseURL = u + "/api/v1"
	}
}

// WithVerbose enables debug-level logging.
func WithVerbose() Option {
	return func(c *config.Config) { c.Logging.Level = "debug" }
}

// Client is the high-level API for scraping competitions as a library.
type Client struct {
	cfg     *config.Config
	logger  *slog.Logger
	scraper *scraper.Scraper
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := config.DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	level := slog.LevelInfo
	if cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	s, err := scraper.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create scraper: %w", err)
	}

	return &Client{cfg: cfg, logger: logger, scraper: s}, nil
}

// Scrape runs a full scrape of one competition URL. The returned result
// is always schema-complete; only an unrecognizable URL is an error.
func (c *Client) Scrape(ctx context.Context, url string) (*Result, error) {
	return c.scraper.ScrapeAll(ctx, url)
}

// Save exports a result to the configured output directory in the
// configured formats.
func (c *Client) Save(result *Result) error {
	store, err := storage.NewFileStore(c.cfg.Storage.OutputDir, c.cfg.Storage.Formats, c.logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(result)
}

// Report renders a result as a Markdown document.
func (c *Client) Report(result *Result) string {
	return report.Render(result)
}

// Stats returns a snapshot of the engine's counters.
func (c *Client) Stats() map[string]int64 {
	return c.scraper.Metrics().Snapshot()
}

// Close releases transport resources, the browser session included.
func (c *Client) Close() error {
	return c.scraper.Close()
}
