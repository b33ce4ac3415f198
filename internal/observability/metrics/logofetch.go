// Package metrics provides custom Prometheus metrics for the application's
// components.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// LogoFetcherMetrics contains all Prometheus metrics related to the logo
// fetch coordinator.
type LogoFetcherMetrics struct {
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	Downloads        prometheus.Counter
	DownloadErrors   prometheus.Counter
	Coalesced        prometheus.Counter
	Promotions       prometheus.Counter
	Cancellations    prometheus.Counter
	InFlight         prometheus.Gauge
	DownloadDuration prometheus.Histogram
}

// NewLogoFetcherMetrics creates and registers the logo fetcher metrics on
// the given registry.
func NewLogoFetcherMetrics(registry *prometheus.Registry) (*LogoFetcherMetrics, error) {
	m := &LogoFetcherMetrics{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logo_fetcher_cache_hits_total",
			Help: "Total number of requests resolved from the image cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logo_fetcher_cache_misses_total",
			Help: "Total number of requests that missed the image cache.",
		}),
		Downloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logo_fetcher_downloads_total",
			Help: "Total number of completed logo downloads.",
		}),
		DownloadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logo_fetcher_download_errors_total",
			Help: "Total number of failed logo downloads, decode failures included.",
		}),
		Coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logo_fetcher_coalesced_total",
			Help: "Total number of requests coalesced onto an in-flight fetch.",
		}),
		Promotions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logo_fetcher_promotions_total",
			Help: "Total number of low to high priority promotions.",
		}),
		Cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logo_fetcher_cancellations_total",
			Help: "Total number of cancelled in-flight fetches.",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logo_fetcher_in_flight",
			Help: "Number of fetches currently tracked as in flight.",
		}),
		DownloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "logo_fetcher_download_duration_seconds",
			Help:    "Duration of logo downloads in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}

	collectors := []prometheus.Collector{
		m.CacheHits, m.CacheMisses, m.Downloads, m.DownloadErrors,
		m.Coalesced, m.Promotions, m.Cancellations, m.InFlight,
		m.DownloadDuration,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register logo fetcher metrics: %w", err)
		}
	}
	return m, nil
}

// IncrementCacheHits increases the cache hit counter by one.
func (m *LogoFetcherMetrics) IncrementCacheHits() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

// IncrementCacheMisses increases the cache miss counter by one.
func (m *LogoFetcherMetrics) IncrementCacheMisses() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

// IncrementDownloads increases the download counter by one.
func (m *LogoFetcherMetrics) IncrementDownloads() {
	if m != nil {
		m.Downloads.Inc()
	}
}

// IncrementDownloadErrors increases the download error counter by one.
func (m *LogoFetcherMetrics) IncrementDownloadErrors() {
	if m != nil {
		m.DownloadErrors.Inc()
	}
}

// IncrementCoalesced increases the coalesced request counter by one.
func (m *LogoFetcherMetrics) IncrementCoalesced() {
	if m != nil {
		m.Coalesced.Inc()
	}
}

// IncrementPromotions increases the promotion counter by one.
func (m *LogoFetcherMetrics) IncrementPromotions() {
	if m != nil {
		m.Promotions.Inc()
	}
}

// IncrementCancellations increases the cancellation counter by one.
func (m *LogoFetcherMetrics) IncrementCancellations() {
	if m != nil {
		m.Cancellations.Inc()
	}
}

// SetInFlight updates the in-flight gauge.
func (m *LogoFetcherMetrics) SetInFlight(n int) {
	if m != nil {
		m.InFlight.Set(float64(n))
	}
}

// ObserveDownloadDuration records the duration of a download in seconds.
func (m *LogoFetcherMetrics) ObserveDownloadDuration(seconds float64) {
	if m != nil {
		m.DownloadDuration.Observe(seconds)
	}
}
