package observability

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestSnapshot(t *testing.T) {
	m := NewMetrics(testLogger)
	m.FetchesHTTP.Add(3)
	m.CascadeMisses.Add(2)
	m.ThreadsAssembled.Add(5)

	snap := m.Snapshot()
	if snap["fetches_http"] != 3 {
		t.Errorf("fetches_http: %d", snap["fetches_http"])
	}
	if snap["cascade_misses"] != 2 {
		t.Errorf("cascade_misses: %d", snap["cascade_misses"])
	}
	if snap["threads_assembled"] != 5 {
		t.Errorf("threads_assembled: %d", snap["threads_assembled"])
	}
	if snap["api_failures"] != 0 {
		t.Errorf("api_failures: %d", snap["api_failures"])
	}
}

func TestPrometheusExposition(t *testing.T) {
	m := NewMetrics(testLogger)
	m.FetchesBrowser.Add(7)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, req)

	resp := rec.Result()
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/plain") {
		t.Errorf("content type: %q", resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(text, "kagglescrape_fetches_browser_total 7") {
		t.Errorf("missing browser counter:\n%s", text)
	}
	if !strings.Contains(text, "# TYPE kagglescrape_fetches_http_total counter") {
		t.Error("missing TYPE line")
	}
}
