// Package metrics exposes collection and scheduler counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "commentradar"

// Cycle outcome labels
const (
	StatusSuccess = "success"
	StatusEmpty   = "empty"
	StatusFailed  = "failed"
)

// Collector holds the metrics of one process. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry *prometheus.Registry

	CyclesTotal      *prometheus.CounterVec
	RecordsCollected *prometheus.CounterVec
	SourceFailures   *prometheus.CounterVec
	StoreRecords     prometheus.Gauge
	CycleDuration    prometheus.Histogram
}

// New creates a Collector on its own registry, including Go runtime and
// process collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
	}

	c.CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Collection cycles by outcome",
		},
		[]string{"status"},
	)

	c.RecordsCollected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_collected_total",
			Help:      "Records returned by each source",
		},
		[]string{"source"},
	)

	c.SourceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Failed source fetches",
		},
		[]string{"source"},
	)

	c.StoreRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_records",
			Help:      "Records in the store after the last merge",
		},
	)

	c.CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of collection cycles",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	c.registry.MustRegister(
		c.CyclesTotal,
		c.RecordsCollected,
		c.SourceFailures,
		c.StoreRecords,
		c.CycleDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Handler returns the HTTP handler serving this collector's registry
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveSource records the outcome of one source fetch
func (c *Collector) ObserveSource(source string, records int, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.SourceFailures.WithLabelValues(source).Inc()
		return
	}
	c.RecordsCollected.WithLabelValues(source).Add(float64(records))
}

// ObserveCycle records a finished cycle. storeTotal < 0 leaves the store
// gauge untouched.
func (c *Collector) ObserveCycle(status string, seconds float64, storeTotal int) {
	if c == nil {
		return
	}
	c.CyclesTotal.WithLabelValues(status).Inc()
	c.CycleDuration.Observe(seconds)
	if storeTotal >= 0 {
		c.StoreRecords.Set(float64(storeTotal))
	}
}
