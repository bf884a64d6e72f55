package scraper

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds scraper client collectors. A nil *Metrics records nothing.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram
	breakerState    prometheus.Gauge
	transitions     *prometheus.CounterVec
}

// NewMetrics creates scraper collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scraper",
				Name:      "requests_total",
				Help:      "Total number of calls to the scraping service by outcome",
			},
			[]string{"outcome"},
		),
		requestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "scraper",
				Name:      "request_duration_seconds",
				Help:      "Duration of calls to the scraping service",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		breakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "scraper",
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scraper",
				Name:      "circuit_breaker_transitions_total",
				Help:      "Total number of circuit breaker state transitions",
			},
			[]string{"from", "to"},
		),
	}
}

// Collectors returns every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.requestsTotal, m.requestDuration, m.breakerState, m.transitions}
}

func (m *Metrics) observe(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(outcome).Inc()
	if seconds >= 0 {
		m.requestDuration.Observe(seconds)
	}
}

func (m *Metrics) transition(from, to string, state int) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
	m.breakerState.Set(float64(state))
}
