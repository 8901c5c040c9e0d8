package mcp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the tool surface.
type Metrics struct {
	registry    *prometheus.Registry
	fetchTotal  *prometheus.CounterVec
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	active      prometheus.Gauge
}

// NewMetrics creates and registers the instrument set on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webfetchd_fetch_total",
			Help: "Fetch attempts by outcome.",
		}, []string{"outcome"}),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webfetchd_tool_invocations_total",
			Help: "Tool invocations by tool name and status.",
		}, []string{"tool", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "webfetchd_tool_duration_seconds",
			Help:    "Tool invocation latency.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"tool"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "webfetchd_tool_active_requests",
			Help: "Currently running tool invocations.",
		}),
	}
	m.registry.MustRegister(m.fetchTotal, m.invocations, m.duration, m.active)
	return m
}

// Registry exposes the registry for the metrics HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordFetch counts one fetch by outcome ("ok" or the error code).
func (m *Metrics) RecordFetch(outcome string) {
	m.fetchTotal.WithLabelValues(outcome).Inc()
}

// RecordInvocation counts one finished tool call and its latency.
func (m *Metrics) RecordInvocation(tool string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.invocations.WithLabelValues(tool, status).Inc()
	m.duration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// IncrementActive marks a tool call in flight.
func (m *Metrics) IncrementActive() { m.active.Inc() }

// DecrementActive marks a tool call done.
func (m *Metrics) DecrementActive() { m.active.Dec() }
