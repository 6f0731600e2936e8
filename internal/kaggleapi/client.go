// Package kaggleapi wraps the provider's authenticated REST API. When
// credentials are available the adapter supplies structured records
// directly, bypassing markup parsing entirely.
package kaggleapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/1984akg/kaggle-competition-scraper3/internal/config"
	"github.com/1984akg/kaggle-competition-scraper3/internal/observability"
	"github.com/1984akg/kaggle-competition-scraper3/internal/types"
)

// credentials is the shape of the provider's kaggle.json file.
type credentials struct {
	Username string `json:"username"`
	Key      string `json:"key"`
}

// kernelItem is the provider's native notebook listing shape. Attributes
// the provider omits decode to zero values and are mapped to defaults.
type kernelItem struct {
	Ref         string `json:"ref"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	TotalVotes  int    `json:"totalVotes"`
	LastRunTime string `json:"lastRunTime"`
	Language    string `json:"language"`
}

// Client pages through the provider API. Authentication is resolved once
// at construction; a failure disables the adapter for the engine's
// lifetime and is never retried mid-scrape.
type Client struct {
	httpClient *http.Client
	baseURL    string
	siteURL    string
	pageSize   int
	creds      credentials
	available  bool
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates the adapter. metrics may be nil.
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Fetcher.RequestTimeout},
		baseURL:    strings.TrimRight(cfg.API.BaseURL, "/"),
		siteURL:    strings.TrimRight(cfg.Scrape.BaseURL, "/"),
		pageSize:   cfg.API.PageSize,
		logger:     logger.With("component", "api_adapter"),
		metrics:    metrics,
	}

	if !cfg.API.Enabled {
		c.logger.Info("programmatic API disabled by config")
		return c
	}

	creds, err := resolveCredentials(&cfg.API)
	if err != nil {
		c.logger.Warn("programmatic API unavailable, falling back to markup scraping", "reason", err)
		return c
	}

	c.creds = creds
	c.available = true
	c.logger.Info("programmatic API authenticated", "username", creds.Username)
	return c
}

// Available reports whether the adapter can serve requests.
func (c *Client) Available() bool {
	return c.available
}

// ListNotebooks pages through the provider's kernels listing until max
// items are collected, a page comes back short, or a page is empty.
func (c *Client) ListNotebooks(ctx context.Context, slug string, max int) ([]types.Notebook, error) {
	if !c.available {
		return nil, types.ErrAPIUnavailable
	}
	if max <= 0 {
		return []types.Notebook{}, nil
	}

	pageSize := c.pageSize
	if pageSize > max {
		pageSize = max
	}

	notebooks := make([]types.Notebook, 0, max)
	for page := 1; len(notebooks) < max; page++ {
		items, err := c.listKernelsPage(ctx, slug, page, pageSize)
		if err != nil {
			// A mid-pagination failure keeps what was collected so far.
			if len(notebooks) > 0 {
				c.logger.Warn("pagination aborted, returning partial results",
					"page", page, "collected", len(notebooks), "error", err)
				return notebooks, nil
			}
			return nil, err
		}
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			if len(notebooks) >= max {
				break
			}
			notebooks = append(notebooks, c.mapNotebook(item))
		}

		if len(items) < pageSize {
			break // end-of-results signal
		}
	}

	c.logger.Info("notebooks retrieved via API", "count", len(notebooks))
	return notebooks, nil
}

// ListThreads is not exposed by the provider's public API surface; the
// orchestrator falls through to the markup path.
func (c *Client) ListThreads(ctx context.Context, slug string, max int) ([]types.Thread, error) {
	return nil, types.ErrAPIUnsupported
}

// listKernelsPage fetches one page of the kernels listing.
func (c *Client) listKernelsPage(ctx context.Context, slug string, page, pageSize int) ([]kernelItem, error) {
	q := url.Values{}
	q.Set("competition", slug)
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	endpoint := c.baseURL + "/kernels/list?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build API request: %w", err)
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Key)
	req.Header.Set("Accept", "application/json")

	if c.metrics != nil {
		c.metrics.APIRequests.Add(1)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.countFailure()
		return nil, fmt.Errorf("API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.countFailure()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("API status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var items []kernelItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		c.countFailure()
		return nil, fmt.Errorf("decode kernels page: %w", err)
	}
	return items, nil
}

// mapNotebook converts the provider shape into the canonical record,
// substituting fixed defaults for anything the provider omitted.
func (c *Client) mapNotebook(item kernelItem) types.Notebook {
	id := item.Ref
	if id == "" {
		id = "unknown"
	}
	language := item.Language
	if language == "" {
		language = types.LanguageUnknown
	}
	lastRun := ""
	if item.LastRunTime != "" {
		if t, err := time.Parse(time.RFC3339, item.LastRunTime); err == nil {
			lastRun = t.Format(time.RFC3339)
		} else {
			lastRun = item.LastRunTime
		}
	}

	return types.Notebook{
		ID:          id,
		Title:       item.Title,
		Author:      item.Author,
		Votes:       item.TotalVotes,
		URL:         c.siteURL + "/" + strings.TrimLeft(item.Ref, "/"),
		LastRunTime: lastRun,
		Language:    language,
	}
}

func (c *Client) countFailure() {
	if c.metrics != nil {
		c.metrics.APIFailures.Add(1)
	}
}

// resolveCredentials finds provider credentials in, by priority: the
// config itself, the environment pair, an explicit credentials file, and
// finally the provider's conventional ~/.kaggle/kaggle.json.
func resolveCredentials(cfg *config.APIConfig) (credentials, error) {
	if cfg.Username != "" && cfg.Key != "" {
		return credentials{Username: cfg.Username, Key: cfg.Key}, nil
	}

	if user, key := os.Getenv("KAGGLE_USERNAME"), os.Getenv("KAGGLE_KEY"); user != "" && key != "" {
		return credentials{Username: user, Key: key}, nil
	}

	path := cfg.CredentialsFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return credentials{}, fmt.Errorf("no credentials configured and no home dir: %w", err)
		}
		path = filepath.Join(home, ".kaggle", "kaggle.json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return credentials{}, fmt.Errorf("no credentials found (config, env, %s)", path)
	}

	var creds credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return credentials{}, fmt.Errorf("parse credentials file %s: %w", path, err)
	}
	if creds.Username == "" || creds.Key == "" {
		return credentials{}, fmt.Errorf("credentials file %s is incomplete", path)
	}
	return creds, nil
}
