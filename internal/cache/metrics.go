package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus collectors for cache activity. A nil *Metrics
// records nothing.
type Metrics struct {
	hitsTotal      *prometheus.CounterVec
	missesTotal    *prometheus.CounterVec
	evictionsTotal *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	sizeGauge      *prometheus.GaugeVec
}

// NewMetrics creates cache collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		hitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"backend"},
		),
		missesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of cache misses, expired entries included",
			},
			[]string{"backend"},
		),
		evictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "evictions_total",
				Help:      "Total number of entries evicted to respect the size bound",
			},
			[]string{"backend"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "errors_total",
				Help:      "Total number of backend errors",
			},
			[]string{"backend", "operation"},
		),
		sizeGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "size",
				Help:      "Current number of entries in the cache",
			},
			[]string{"backend"},
		),
	}
}

// Collectors returns every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.hitsTotal, m.missesTotal, m.evictionsTotal, m.errorsTotal, m.sizeGauge}
}

func (m *Metrics) hit(backend string) {
	if m != nil {
		m.hitsTotal.WithLabelValues(backend).Inc()
	}
}

func (m *Metrics) miss(backend string) {
	if m != nil {
		m.missesTotal.WithLabelValues(backend).Inc()
	}
}

func (m *Metrics) eviction(backend string) {
	if m != nil {
		m.evictionsTotal.WithLabelValues(backend).Inc()
	}
}

func (m *Metrics) failure(backend, op string) {
	if m != nil {
		m.errorsTotal.WithLabelValues(backend, op).Inc()
	}
}

func (m *Metrics) setSize(backend string, n int) {
	if m != nil {
		m.sizeGauge.WithLabelValues(backend).Set(float64(n))
	}
}
