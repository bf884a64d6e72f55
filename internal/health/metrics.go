package health

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds readiness check collectors. A nil *Metrics records nothing.
type Metrics struct {
	checksTotal *prometheus.CounterVec
	checkStatus *prometheus.GaugeVec
}

// NewMetrics creates health collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "checks_total",
				Help:      "Total number of readiness checks performed",
			},
			[]string{"check", "result"},
		),
		checkStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "check_status",
				Help:      "Current readiness check status (1=healthy, 0=unhealthy)",
			},
			[]string{"check"},
		),
	}
}

// Collectors returns every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.checksTotal, m.checkStatus}
}

func (m *Metrics) record(check string, healthy bool) {
	if m == nil {
		return
	}
	result, value := "ok", 1.0
	if !healthy {
		result, value = "error", 0
	}
	m.checksTotal.WithLabelValues(check, result).Inc()
	m.checkStatus.WithLabelValues(check).Set(value)
}
