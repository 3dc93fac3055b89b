// Package metrics exposes Prometheus collectors for the cache and scraping layers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application.
// Every method is safe to call on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	ScrapeOutcomes *prometheus.CounterVec
	ScrapeDuration *prometheus.HistogramVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates a collector registered on its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits by layer",
			},
			[]string{"layer"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses by layer",
			},
			[]string{"layer"},
		),
		ScrapeOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scrape_outcomes_total",
				Help:      "Scrape outcomes per source (scraped, fresh, failure)",
			},
			[]string{"source", "outcome"},
		),
		ScrapeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scrape_duration_seconds",
				Help:      "Duration of source scrapes in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		c.CacheHits,
		c.CacheMisses,
		c.ScrapeOutcomes,
		c.ScrapeDuration,
		c.HTTPRequests,
		c.HTTPDuration,
	)
	return c
}

// CacheHit records a hit on a cache layer
func (c *Collector) CacheHit(layer string) {
	if c == nil {
		return
	}
	c.CacheHits.WithLabelValues(layer).Inc()
}

// CacheMiss records a miss on a cache layer
func (c *Collector) CacheMiss(layer string) {
	if c == nil {
		return
	}
	c.CacheMisses.WithLabelValues(layer).Inc()
}

// ObserveScrape records one source outcome and its duration
func (c *Collector) ObserveScrape(source, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.ScrapeOutcomes.WithLabelValues(source, outcome).Inc()
	c.ScrapeDuration.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
