// Package observability wires the application's Prometheus registry and
// per-component metric structs together.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coinviewapp/coinview-go/internal/observability/metrics"
)

// Metrics aggregates all component metric structs on one registry.
type Metrics struct {
	LogoFetcher *metrics.LogoFetcherMetrics
	Market      *metrics.MarketMetrics

	registry *prometheus.Registry
}

// NewMetrics creates a registry with Go runtime and process collectors plus
// all application metric structs.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	logoFetcher, err := metrics.NewLogoFetcherMetrics(registry)
	if err != nil {
		return nil, err
	}
	market, err := metrics.NewMarketMetrics(registry)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		LogoFetcher: logoFetcher,
		Market:      market,
		registry:    registry,
	}, nil
}

// Handler returns the HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
