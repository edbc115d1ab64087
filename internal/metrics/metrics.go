// Package metrics holds the Prometheus collectors of the catalog API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "catalog"

// Outcome labels of a service call.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics is the collector set shared by the service decorators, the HTTP
// middleware, the cache read path and the low-stock worker.
type Metrics struct {
	// Service boundary
	ServiceCallDuration *prometheus.HistogramVec
	SlowServiceCalls    *prometheus.CounterVec

	// HTTP
	HTTPRequestDuration *prometheus.HistogramVec

	// Cache
	CacheLookups   *prometheus.CounterVec
	CacheEvictions prometheus.Counter

	// Business
	LowStockProducts prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		ServiceCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "call_duration_seconds",
			Help:      "Catalog service call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
		SlowServiceCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "slow_calls_total",
			Help:      "Catalog service calls slower than the configured threshold",
		}, []string{"operation"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),

		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Product cache lookups by region and result",
		}, []string{"region", "result"}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Full product cache evictions",
		}),

		LowStockProducts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "low_stock_products",
			Help:      "Number of products at or below their low-stock threshold",
		}),

		gatherer: reg,
	}

	reg.MustRegister(
		m.ServiceCallDuration,
		m.SlowServiceCalls,
		m.HTTPRequestDuration,
		m.CacheLookups,
		m.CacheEvictions,
		m.LowStockProducts,
	)
	return m
}

// NewNop returns collectors registered on a private registry, for tests and
// tools that do not expose /metrics.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Outcome maps an error to its outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
