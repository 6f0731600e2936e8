package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational counters for one scraper engine.
type Metrics struct {
	// Transport metrics
	FetchesHTTP    atomic.Int64
	FetchesBrowser atomic.Int64
	FetchesFailed  atomic.Int64

	// Cascade metrics
	CascadeStructuralHits atomic.Int64
	CascadeFallbackHits   atomic.Int64 // structural hit below the first tier
	CascadeHeuristicHits  atomic.Int64
	CascadeMisses         atomic.Int64

	// Record metrics
	ThreadsAssembled   atomic.Int64
	NotebooksAssembled atomic.Int64
	RecordsRejected    atomic.Int64

	// API adapter metrics
	APIRequests atomic.Int64
	APIFailures atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"kagglescrape_fetches_http_total", "Total plain HTTP fetches", m.FetchesHTTP.Load()},
		{"kagglescrape_fetches_browser_total", "Total browser-rendered fetches", m.FetchesBrowser.Load()},
		{"kagglescrape_fetches_failed_total", "Total failed fetches", m.FetchesFailed.Load()},
		{"kagglescrape_cascade_structural_hits_total", "Fields matched by a structural query", m.CascadeStructuralHits.Load()},
		{"kagglescrape_cascade_fallback_hits_total", "Fields matched below the first cascade tier", m.CascadeFallbackHits.Load()},
		{"kagglescrape_cascade_heuristic_hits_total", "Fields matched by the terminal heuristic", m.CascadeHeuristicHits.Load()},
		{"kagglescrape_cascade_misses_total", "Fields that degraded to a sentinel", m.CascadeMisses.Load()},
		{"kagglescrape_threads_assembled_total", "Discussion threads assembled", m.ThreadsAssembled.Load()},
		{"kagglescrape_notebooks_assembled_total", "Notebooks assembled", m.NotebooksAssembled.Load()},
		{"kagglescrape_records_rejected_total", "Fragments rejected for missing identity", m.RecordsRejected.Load()},
		{"kagglescrape_api_requests_total", "Programmatic API requests made", m.APIRequests.Load()},
		{"kagglescrape_api_failures_total", "Programmatic API request failures", m.APIFailures.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"fetches_http":            m.FetchesHTTP.Load(),
		"fetches_browser":         m.FetchesBrowser.Load(),
		"fetches_failed":          m.FetchesFailed.Load(),
		"cascade_structural_hits": m.CascadeStructuralHits.Load(),
		"cascade_fallback_hits":   m.CascadeFallbackHits.Load(),
		"cascade_heuristic_hits":  m.CascadeHeuristicHits.Load(),
		"cascade_misses":          m.CascadeMisses.Load(),
		"threads_assembled":       m.ThreadsAssembled.Load(),
		"notebooks_assembled":     m.NotebooksAssembled.Load(),
		"records_rejected":        m.RecordsRejected.Load(),
		"api_requests":            m.APIRequests.Load(),
		"api_failures":            m.APIFailures.Load(),
	}
}
