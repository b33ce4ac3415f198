package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketMetrics contains Prometheus metrics for the market-data client.
type MarketMetrics struct {
	APICalls    prometheus.Counter
	APIErrors   prometheus.Counter
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	APIDuration prometheus.Histogram
}

// NewMarketMetrics creates and registers the market client metrics on the
// given registry.
func NewMarketMetrics(registry *prometheus.Registry) (*MarketMetrics, error) {
	m := &MarketMetrics{
		APICalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "market_api_calls_total",
			Help: "Total number of market API requests issued.",
		}),
		APIErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "market_api_errors_total",
			Help: "Total number of failed market API requests.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "market_cache_hits_total",
			Help: "Total number of market responses served from cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "market_cache_misses_total",
			Help: "Total number of market cache misses.",
		}),
		APIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "market_api_duration_seconds",
			Help:    "Duration of market API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}

	collectors := []prometheus.Collector{
		m.APICalls, m.APIErrors, m.CacheHits, m.CacheMisses, m.APIDuration,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register market metrics: %w", err)
		}
	}
	return m, nil
}

// IncrementAPICalls increases the API call counter by one.
func (m *MarketMetrics) IncrementAPICalls() {
	if m != nil {
		m.APICalls.Inc()
	}
}

// IncrementAPIErrors increases the API error counter by one.
func (m *MarketMetrics) IncrementAPIErrors() {
	if m != nil {
		m.APIErrors.Inc()
	}
}

// IncrementCacheHits increases the cache hit counter by one.
func (m *MarketMetrics) IncrementCacheHits() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

// IncrementCacheMisses increases the cache miss counter by one.
func (m *MarketMetrics) IncrementCacheMisses() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

// ObserveAPIDuration records the duration of an API request in seconds.
func (m *MarketMetrics) ObserveAPIDuration(seconds float64) {
	if m != nil {
		m.APIDuration.Observe(seconds)
	}
}
