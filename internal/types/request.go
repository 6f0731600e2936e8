package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request describes one fetch of a page or fragment source.
type Request struct {
	// URL is the target URL to fetch.
	URL *url.URL

	// Method is the HTTP method. Defaults to GET.
	Method string

	// Headers are custom HTTP headers to send with the request.
	Headers http.Header

	// Render selects the headless-browser fetcher instead of plain HTTP.
	Render bool

	// WaitFor is a CSS selector the browser waits for before reading the
	// page. Best-effort; a timeout returns whatever markup is present.
	WaitFor string

	// Settle is an extra delay after navigation for late-loading content.
	Settle time.Duration

	// Expand asks the browser to scroll to the bottom and attempt one
	// click on a "load more"-like control before reading the markup.
	Expand bool

	// Timeout overrides the configured request timeout for this request.
	Timeout time.Duration

	// Tag categorizes the request (e.g. "overview", "thread-detail").
	Tag string

	// CreatedAt is when this request was created.
	CreatedAt time.Time
}

// NewRequest creates a plain-mode GET request.
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	return &Request{
		URL:       u,
		Method:    http.MethodGet,
		Headers:   make(http.Header),
		CreatedAt: time.Now(),
	}, nil
}

// URLString returns the string representation of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// Domain returns the hostname of the request URL.
func (r *Request) Domain() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Hostname()
}
