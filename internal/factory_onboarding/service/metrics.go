package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "onboarding"

// Metrics tracks onboarding outcomes and upstream calls. A nil *Metrics is a
// valid no-op.
type Metrics struct {
	requests        *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency prometheus.Histogram
	repairNotes     prometheus.Counter
	upstreamUp      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Onboarding requests by terminal state.",
		}, []string{"outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fallback_total",
			Help:      "Fallbacks to the default factory by rule.",
		}, []string{"reason"}),
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "upstream_calls_total",
			Help:      "Calls to the text understanding service.",
		}, []string{"status"}),
		upstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "upstream_latency_seconds",
			Help:      "Latency of calls to the text understanding service.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		repairNotes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "repair_notes_total",
			Help:      "Repairs applied by the normalizer.",
		}),
		upstreamUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "upstream_up",
			Help:      "1 if the last upstream health probe succeeded.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.fallbacks, m.upstreamCalls, m.upstreamLatency, m.repairNotes, m.upstreamUp)
	}
	return m
}

// recordUpstreamCall records an upstream service call
func (m *Metrics) recordUpstreamCall(duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.upstreamCalls.WithLabelValues(status).Inc()
	m.upstreamLatency.Observe(duration.Seconds())
}

// recordOutcome records a terminal state and, on fallback, the rule that fired.
func (m *Metrics) recordOutcome(outcome, reason string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
	if reason != "" {
		m.fallbacks.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) recordRepairNotes(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.repairNotes.Add(float64(n))
}

func (m *Metrics) setUpstreamUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.upstreamUp.Set(1)
		return
	}
	m.upstreamUp.Set(0)
}
