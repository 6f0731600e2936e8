package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/1984akg/kaggle-competition-scraper3/internal/config"
	"github.com/1984akg/kaggle-competition-scraper3/internal/types"
)

// BrowserFetcher implements Fetcher using a headless browser via Rod.
// It is the render-mode transport: slow, but it executes scripts and can
// wait for client-side content. One fetcher owns exactly one browser
// session for its whole lifetime.
type BrowserFetcher struct {
	browser *rod.Browser
	cfg     *config.Config
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewBrowserFetcher launches a headless browser session. An error here
// means render mode is unavailable; the caller decides how to degrade.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger) (*BrowserFetcher, error) {
	bf := &BrowserFetcher{
		cfg:    cfg,
		logger: logger.With("component", "browser_fetcher"),
	}

	launchURL, err := bf.launchBrowser()
	if err != nil {
		return nil, fmt.Errorf("%w: launch: %v", types.ErrBrowserUnavailable, err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: connect: %v", types.ErrBrowserUnavailable, err)
	}
	bf.browser = browser

	bf.logger.Info("browser fetcher ready", "stealth", cfg.Browser.Stealth)
	return bf, nil
}

// launchBrowser starts a Chromium instance with appropriate flags.
func (bf *BrowserFetcher) launchBrowser() (string, error) {
	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if bf.cfg.Browser.WindowSize != "" {
		l = l.Set("window-size", bf.cfg.Browser.WindowSize)
	}

	return l.Launch()
}

// Fetch navigates to a URL and returns the rendered page content. Waits
// are bounded: a wait that times out returns whatever markup is present
// rather than an error.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	// The scrape is sequential by design; serialize page use anyway so a
	// misbehaving caller cannot corrupt the shared session.
	bf.mu.Lock()
	defer bf.mu.Unlock()

	start := time.Now()

	page, err := bf.newPage()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}
	defer page.Close()

	page = page.Context(ctx)

	if ua := req.Headers.Get("User-Agent"); ua != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
			bf.logger.Warn("failed to set user agent", "error", err)
		}
	}

	timeout := bf.cfg.Browser.NavigationTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	if err := page.Timeout(timeout).Navigate(req.URLString()); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}

	if err := page.Timeout(timeout).WaitStable(300 * time.Millisecond); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", req.URLString(), "error", err)
	}

	if req.WaitFor != "" {
		if el, err := page.Timeout(10 * time.Second).Element(req.WaitFor); err != nil {
			bf.logger.Warn("wait selector timeout", "selector", req.WaitFor, "error", err)
		} else {
			_ = el.WaitVisible()
		}
	}

	settle := bf.cfg.Browser.SettleDelay
	if req.Settle > 0 {
		settle = req.Settle
	}
	if settle > 0 {
		time.Sleep(settle)
	}

	if req.Expand {
		bf.expand(page)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}

	finalURL := req.URLString()
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	duration := time.Since(start)
	resp := types.NewBrowserResponse(req, []byte(html), finalURL, duration)

	bf.logger.Debug("browser fetch complete",
		"url", req.URLString(),
		"final_url", finalURL,
		"size", len(html),
		"duration", duration,
	)

	return resp, nil
}

// expand scrolls to the bottom and attempts a single best-effort click on
// any "load more"-like control, then lets late content settle briefly.
func (bf *BrowserFetcher) expand(page *rod.Page) {
	if _, err := page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		bf.logger.Debug("scroll failed", "error", err)
	}
	time.Sleep(500 * time.Millisecond)

	el, err := page.Timeout(3 * time.Second).ElementR("button, a", "/load more|show more|view more/i")
	if err != nil {
		return
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		bf.logger.Debug("load-more click failed", "error", err)
		return
	}
	time.Sleep(time.Second)
}

// newPage opens a fresh page, with stealth patches when configured.
func (bf *BrowserFetcher) newPage() (*rod.Page, error) {
	if bf.cfg.Browser.Stealth {
		return stealth.Page(bf.browser)
	}
	return bf.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

// Close shuts down the browser and releases resources.
func (bf *BrowserFetcher) Close() error {
	if bf.browser != nil {
		return bf.browser.Close()
	}
	return nil
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}
