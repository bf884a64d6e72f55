package search

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Search result label values.
const (
	ResultCacheHit    = "cache_hit"
	ResultScraped     = "scraped"
	ResultInvalid     = "invalid"
	ResultScrapeError = "scrape_error"
)

// Metrics holds search pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	searchesTotal  *prometheus.CounterVec
	scrapeDuration prometheus.Histogram
	busyWorkers    prometheus.Gauge
	sharedTotal    prometheus.Counter
}

// NewMetrics creates search collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		searchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "requests_total",
				Help:      "Total number of searches by result",
			},
			[]string{"result"},
		),
		scrapeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "scrape_duration_seconds",
				Help:      "Time spent scraping on a cache miss",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		busyWorkers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "busy_workers",
				Help:      "Number of scrape workers currently running",
			},
		),
		sharedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "shared_scrapes_total",
				Help:      "Total number of searches whose scrape was shared with identical concurrent searches",
			},
		),
	}
}

// Collectors returns every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.searchesTotal, m.scrapeDuration, m.busyWorkers, m.sharedTotal}
}

func (m *Metrics) search(result string) {
	if m != nil {
		m.searchesTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) scrape(seconds float64) {
	if m != nil {
		m.scrapeDuration.Observe(seconds)
	}
}

func (m *Metrics) workerStarted() {
	if m != nil {
		m.busyWorkers.Inc()
	}
}

func (m *Metrics) workerDone() {
	if m != nil {
		m.busyWorkers.Dec()
	}
}

func (m *Metrics) sharedScrape() {
	if m != nil {
		m.sharedTotal.Inc()
	}
}
