// Package metrics provides Prometheus metrics for the directory server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the Prometheus registry the server binary exposes at
// /metrics. Tests pass their own registries to New.
var Registry = prometheus.NewRegistry()

// ServerMetrics holds the counters and gauges exposed at /metrics.
type ServerMetrics struct {
	// HTTP surface (labels: method, status class)
	Requests *prometheus.CounterVec

	// Object-store operations (labels: op, outcome)
	StoreOps *prometheus.CounterVec

	// Entries seen by the last full listing.
	EntriesListed prometheus.Gauge
}

// New registers and returns the server metrics on the given registry,
// along with the standard Go runtime collector.
func New(reg *prometheus.Registry) *ServerMetrics {
	factory := promauto.With(reg)

	reg.MustRegister(collectors.NewGoCollector())

	return &ServerMetrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "annuaire_http_requests_total",
			Help: "HTTP requests by method and status class.",
		}, []string{"method", "status"}),

		StoreOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "annuaire_store_operations_total",
			Help: "Object-store operations by primitive and outcome.",
		}, []string{"op", "outcome"}),

		EntriesListed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "annuaire_entries_listed",
			Help: "Number of entries returned by the most recent full listing.",
		}),
	}
}
