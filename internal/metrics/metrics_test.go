package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics() *Metrics {
	return NewWithRegisterer(prometheus.NewRegistry())
}

func TestNew(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	m := New()
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal not initialized")
	}
	if m.CacheLookupsTotal == nil {
		t.Error("CacheLookupsTotal not initialized")
	}
	if m.UpstreamFetchesTotal == nil {
		t.Error("UpstreamFetchesTotal not initialized")
	}
	if m.LLMRequestsTotal == nil {
		t.Error("LLMRequestsTotal not initialized")
	}
}

func TestMetrics_RecordCacheLookup(t *testing.T) {
	m := newTestMetrics()

	m.RecordCacheLookup("market-prices", "hit")
	m.RecordCacheLookup("market-prices", "hit")
	m.RecordCacheLookup("market-prices", "miss")

	if got := testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("market-prices", "hit")); got != 2 {
		t.Errorf("expected 2 hits, got %v", got)
	}
	if got := testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("market-prices", "miss")); got != 1 {
		t.Errorf("expected 1 miss, got %v", got)
	}
}

func TestMetrics_RecordUpstreamFetch(t *testing.T) {
	m := newTestMetrics()

	m.RecordUpstreamFetch("pest-alerts", "fallback", 40*time.Millisecond)
	if got := testutil.ToFloat64(m.UpstreamFetchesTotal.WithLabelValues("pest-alerts", "fallback")); got != 1 {
		t.Errorf("expected 1 fallback fetch, got %v", got)
	}
}

func TestMetrics_RecordLLMAndHTTP(t *testing.T) {
	m := newTestMetrics()

	m.RecordLLMRequest("openai", "error", time.Second)
	m.RecordHTTPRequest("POST", "/api/chat/message", "200", 2*time.Second)
	m.RecordCacheEviction()

	if got := testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("openai", "error")); got != 1 {
		t.Errorf("expected 1 failed llm request, got %v", got)
	}
	if got := testutil.ToFloat64(m.CacheEvictionsTotal); got != 1 {
		t.Errorf("expected 1 eviction, got %v", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	// Should not panic
	m.RecordCacheLookup("x", "hit")
	m.RecordCacheEviction()
	m.RecordUpstreamFetch("x", "live", time.Millisecond)
	m.RecordLLMRequest("x", "ok", time.Millisecond)
	m.RecordHTTPRequest("GET", "/", "200", time.Millisecond)
}

func TestHandler(t *testing.T) {
	handler := Handler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("expected default collectors in output")
	}
}
