package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Decision label values.
const (
	DecisionAllowed  = "allowed"
	DecisionDenied   = "denied"
	DecisionFailOpen = "fail_open"
)

// Metrics holds rate limiter collectors. A nil *Metrics records nothing.
type Metrics struct {
	decisions *prometheus.CounterVec
	tracked   prometheus.Gauge
}

// NewMetrics creates rate limiter collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ratelimit",
				Name:      "decisions_total",
				Help:      "Total number of rate limit decisions",
			},
			[]string{"decision"},
		),
		tracked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "ratelimit",
				Name:      "tracked_clients",
				Help:      "Number of clients with an in-memory window",
			},
		),
	}
}

// Collectors returns every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.decisions, m.tracked}
}

func (m *Metrics) decision(allowed bool) {
	if m == nil {
		return
	}
	if allowed {
		m.decisions.WithLabelValues(DecisionAllowed).Inc()
	} else {
		m.decisions.WithLabelValues(DecisionDenied).Inc()
	}
}

func (m *Metrics) failOpen() {
	if m != nil {
		m.decisions.WithLabelValues(DecisionFailOpen).Inc()
	}
}

func (m *Metrics) setTracked(n int) {
	if m != nil {
		m.tracked.Set(float64(n))
	}
}
