package fetcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/1984akg/kaggle-competition-scraper3/internal/config"
	"github.com/1984akg/kaggle-competition-scraper3/internal/observability"
	"github.com/1984akg/kaggle-competition-scraper3/internal/types"
)

// Client routes requests to the plain HTTP fetcher or the browser
// fetcher based on the per-request render flag. The browser session is
// initialized lazily on first render-mode request; if that fails, the
// client permanently downgrades to plain-mode for its remaining lifetime.
type Client struct {
	cfg          *config.Config
	logger       *slog.Logger
	metrics      *observability.Metrics
	http         *HTTPFetcher
	browser      *BrowserFetcher
	renderWanted bool
	browserTried bool
}

// NewClient creates a transport client. renderWanted disables the browser
// entirely when false (all fetches stay plain). metrics may be nil.
func NewClient(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, renderWanted bool) (*Client, error) {
	httpFetcher, err := NewHTTPFetcher(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:          cfg,
		logger:       logger.With("component", "transport"),
		metrics:      metrics,
		http:         httpFetcher,
		renderWanted: renderWanted,
	}, nil
}

// RenderAvailable reports whether render-mode fetches are currently
// possible. Before the first render request it reflects configuration.
func (c *Client) RenderAvailable() bool {
	if !c.renderWanted {
		return false
	}
	return !c.browserTried || c.browser != nil
}

// Fetch issues the request via the appropriate transport. Render-mode
// requests fall back to plain mode when the browser is unavailable.
func (c *Client) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	if req.Render && c.renderWanted {
		if bf := c.ensureBrowser(); bf != nil {
			resp, err := bf.Fetch(ctx, req)
			if err == nil {
				c.count(resp, nil)
				return resp, nil
			}
			c.logger.Warn("render fetch failed, retrying plain", "url", req.URLString(), "error", err)
		}
	}
	resp, err := c.http.Fetch(ctx, req)
	c.count(resp, err)
	return resp, err
}

func (c *Client) count(resp *types.Response, err error) {
	if c.metrics == nil {
		return
	}
	switch {
	case err != nil:
		c.metrics.FetchesFailed.Add(1)
	case resp.Rendered:
		c.metrics.FetchesBrowser.Add(1)
	default:
		c.metrics.FetchesHTTP.Add(1)
	}
}

// Get is a convenience wrapper building and fetching a GET request.
func (c *Client) Get(ctx context.Context, rawURL string, render bool, waitFor string) (*types.Response, error) {
	req, err := types.NewRequest(rawURL)
	if err != nil {
		return nil, err
	}
	req.Render = render
	req.WaitFor = waitFor
	return c.Fetch(ctx, req)
}

// ensureBrowser lazily launches the browser session once. A launch
// failure is terminal: the transition to plain-mode-only is one-way and
// not retried per call.
func (c *Client) ensureBrowser() *BrowserFetcher {
	if c.browserTried {
		return c.browser
	}
	c.browserTried = true

	start := time.Now()
	bf, err := NewBrowserFetcher(c.cfg, c.logger)
	if err != nil {
		c.logger.Warn("browser unavailable, downgrading to plain HTTP for this engine lifetime",
			"error", err, "elapsed", time.Since(start))
		return nil
	}
	c.browser = bf
	return bf
}

// Close releases both transports. Safe on all exit paths.
func (c *Client) Close() error {
	var firstErr error
	if c.browser != nil {
		if err := c.browser.Close(); err != nil {
			firstErr = err
		}
		c.browser = nil
	}
	if err := c.http.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
