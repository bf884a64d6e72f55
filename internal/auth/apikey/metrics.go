package apikey

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Label values for validation metrics.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"

	ReasonValid   = "valid"
	ReasonMissing = "missing"
	ReasonInvalid = "invalid"
)

// Metrics holds Prometheus metrics for API key validation. A nil *Metrics
// records nothing.
type Metrics struct {
	validationTotal    *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		validationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "validation_total",
				Help:      "Total number of API key validation attempts",
			},
			[]string{"result", "reason"},
		),
		validationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "validation_duration_seconds",
				Help:      "API key validation duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"result"},
		),
	}
	m.init()
	return m
}

// init pre-creates label combinations so they are exported before the first
// request.
func (m *Metrics) init() {
	m.validationTotal.WithLabelValues(ResultAccepted, ReasonValid)
	m.validationTotal.WithLabelValues(ResultRejected, ReasonMissing)
	m.validationTotal.WithLabelValues(ResultRejected, ReasonInvalid)
	m.validationDuration.WithLabelValues(ResultAccepted)
	m.validationDuration.WithLabelValues(ResultRejected)
}

// Collectors returns every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.validationTotal, m.validationDuration}
}

func (m *Metrics) record(result, reason string, d time.Duration) {
	if m == nil {
		return
	}
	m.validationTotal.WithLabelValues(result, reason).Inc()
	m.validationDuration.WithLabelValues(result).Observe(d.Seconds())
}
