package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes per-record migration outcomes as Prometheus metrics on
// its own registry.
type Collector struct {
	registry *prometheus.Registry

	records     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	txItems     prometheus.Histogram
	breakerOpen *prometheus.GaugeVec
}

// NewCollector creates a Collector with its metrics registered.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "migration",
				Name:      "records_total",
				Help:      "Total number of source records processed by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "migration",
				Name:      "record_duration_seconds",
				Help:      "Duration of a single record sync in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"outcome"},
		),
		txItems: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "migration",
				Name:      "transaction_items",
				Help:      "Number of items written per transaction",
				Buckets:   []float64{1, 2, 3, 4, 5, 10},
			},
		),
		breakerOpen: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "source",
				Name:      "circuit_open",
				Help:      "Whether the source database circuit breaker is open",
			},
			[]string{"name"},
		),
	}

	c.registry.MustRegister(
		c.records,
		c.duration,
		c.txItems,
		c.breakerOpen,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveRecord counts one processed record and its duration.
func (c *Collector) ObserveRecord(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.records.WithLabelValues(outcome).Inc()
	c.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveTransaction records the size of a written transaction.
func (c *Collector) ObserveTransaction(items int) {
	if c == nil {
		return
	}
	c.txItems.Observe(float64(items))
}

// SetCircuitOpen reports the state of a named circuit breaker.
func (c *Collector) SetCircuitOpen(name string, open bool) {
	if c == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	c.breakerOpen.WithLabelValues(name).Set(v)
}

// Records returns the outcome counter, mainly for tests.
func (c *Collector) Records() *prometheus.CounterVec {
	return c.records
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
