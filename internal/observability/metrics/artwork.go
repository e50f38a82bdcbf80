// Package metrics provides custom Prometheus metrics for the artfetch components.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ShutdownTimeout is the grace period for stopping the telemetry server.
const ShutdownTimeout = 5 * time.Second

// ArtworkMetrics contains all Prometheus metrics related to artwork resolution.
type ArtworkMetrics struct {
	CacheSize          prometheus.Gauge
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	Resolutions        *prometheus.CounterVec
	Errors             *prometheus.CounterVec
	ResolutionDuration prometheus.Histogram
	registry           *prometheus.Registry
}

// NewArtworkMetrics creates a new instance of ArtworkMetrics.
// It requires a Prometheus registry to register the metrics.
// It returns an error if metric registration fails.
func NewArtworkMetrics(registry *prometheus.Registry) (*ArtworkMetrics, error) {
	m := &ArtworkMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register artwork metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for ArtworkMetrics.
func (m *ArtworkMetrics) initMetrics() {
	m.CacheSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "artwork_cache_size_entries",
		Help: "Current number of entries in the artwork cache.",
	})

	m.CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "artwork_cache_hits_total",
		Help: "Total number of artwork cache hits.",
	})

	m.CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "artwork_cache_misses_total",
		Help: "Total number of artwork cache misses.",
	})

	m.Resolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "artwork_resolutions_total",
		Help: "Total number of successful artwork resolutions by source provider.",
	}, []string{"source"})

	m.Errors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "artwork_errors_total",
		Help: "Total number of artwork resolution errors by kind.",
	}, []string{"kind"})

	m.ResolutionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "artwork_resolution_duration_seconds",
		Help:    "Duration of artwork resolutions in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})
}

// SetCacheSize updates the current number of cached artwork entries.
func (m *ArtworkMetrics) SetCacheSize(entries float64) {
	m.CacheSize.Set(entries)
}

// IncrementCacheHits increases the cache hit counter by one.
func (m *ArtworkMetrics) IncrementCacheHits() {
	m.CacheHits.Inc()
}

// IncrementCacheMisses increases the cache miss counter by one.
func (m *ArtworkMetrics) IncrementCacheMisses() {
	m.CacheMisses.Inc()
}

// IncrementResolutions increases the resolution counter for a source provider.
func (m *ArtworkMetrics) IncrementResolutions(source string) {
	m.Resolutions.WithLabelValues(source).Inc()
}

// IncrementErrors increases the error counter for an error kind.
func (m *ArtworkMetrics) IncrementErrors(kind string) {
	m.Errors.WithLabelValues(kind).Inc()
}

// ObserveResolutionDuration records the duration of an artwork resolution.
// The duration should be provided in seconds.
func (m *ArtworkMetrics) ObserveResolutionDuration(durationSeconds float64) {
	m.ResolutionDuration.Observe(durationSeconds)
}

// Collect implements the prometheus.Collector interface.
func (m *ArtworkMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.CacheSize
	ch <- m.CacheHits
	ch <- m.CacheMisses
	m.Resolutions.Collect(ch)
	m.Errors.Collect(ch)
	ch <- m.ResolutionDuration
}

// Describe implements the prometheus.Collector interface.
func (m *ArtworkMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.CacheSize.Desc()
	ch <- m.CacheHits.Desc()
	ch <- m.CacheMisses.Desc()
	m.Resolutions.Describe(ch)
	m.Errors.Describe(ch)
	ch <- m.ResolutionDuration.Desc()
}
