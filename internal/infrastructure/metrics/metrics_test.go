package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_CacheCounters(t *testing.T) {
	c := NewCollector("test")

	c.CacheHit("memoize")
	c.CacheHit("memoize")
	c.CacheMiss("namespace")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.CacheHits.WithLabelValues("memoize")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheMisses.WithLabelValues("namespace")))
}

func TestCollector_ObserveScrape(t *testing.T) {
	c := NewCollector("test")

	c.ObserveScrape("market", "scraped", 20*time.Millisecond)
	c.ObserveScrape("market", "failure", time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.ScrapeOutcomes.WithLabelValues("market", "scraped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ScrapeOutcomes.WithLabelValues("market", "failure")))
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.CacheHit("x")
		c.CacheMiss("x")
		c.ObserveScrape("s", "scraped", time.Second)
		c.ObserveHTTP("GET", "/", "200", time.Second)
	})
	assert.Nil(t, c.Registry())
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("test")
	c.CacheHit("memoize")

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_cache_hits_total")
}
