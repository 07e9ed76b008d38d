// Package observability provides Prometheus instrumentation for the API.
//
// Metrics are registered against an explicit Registerer so that the server
// uses the default registry while tests use a private one.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "marketplace"

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// RequestsTotal counts HTTP requests by method, route and status.
	RequestsTotal *prometheus.CounterVec

	// RequestDuration measures handler latency by method and route.
	RequestDuration *prometheus.HistogramVec

	// TradeTransitions counts accepted trade events by event and resulting status.
	TradeTransitions *prometheus.CounterVec

	// CounterFailures counts best-effort denormalized counter updates that failed.
	CounterFailures *prometheus.CounterVec

	// CounterDrift counts rows corrected by reconciliation, by counter.
	CounterDrift *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		TradeTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "trades",
			Name:      "transitions_total",
			Help:      "Trade lifecycle events applied, by event and resulting status.",
		}, []string{"event", "status"}),

		CounterFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "counters",
			Name:      "update_failures_total",
			Help:      "Best-effort counter updates that failed and need reconciliation.",
		}, []string{"counter"}),

		CounterDrift: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "counters",
			Name:      "drift_corrected_total",
			Help:      "Denormalized counters corrected by reconciliation.",
		}, []string{"counter"}),
	}
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// TradeTransition records an applied trade event.
func (m *Metrics) TradeTransition(event, status string) {
	if m == nil {
		return
	}
	m.TradeTransitions.WithLabelValues(event, status).Inc()
}

// CounterFailure records a failed best-effort counter update.
func (m *Metrics) CounterFailure(counter string) {
	if m == nil {
		return
	}
	m.CounterFailures.WithLabelValues(counter).Inc()
}

// CounterCorrected records n corrected rows for counter.
func (m *Metrics) CounterCorrected(counter string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CounterDrift.WithLabelValues(counter).Add(float64(n))
}
