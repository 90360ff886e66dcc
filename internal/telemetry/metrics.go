// Package telemetry records operation metrics on a private Prometheus
// registry. Nothing is reported externally; the registry is only exposed
// when the metrics endpoint is enabled.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "linkmap"

// Operation statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Collector holds the operation metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	namespace string
	registry  *prometheus.Registry

	operations          *prometheus.CounterVec
	duration            *prometheus.HistogramVec
	items               *prometheus.CounterVec
	convergenceFailures *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry, so collectors
// built by tests never collide.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	registry := prometheus.NewRegistry()

	c := &Collector{
		namespace: namespace,
		registry:  registry,
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of operations by name and status",
			},
			[]string{"operation", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "items_processed_total",
				Help:      "Total number of items processed by operation",
			},
			[]string{"operation"},
		),
		convergenceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "convergence_failures_total",
				Help:      "Iterative computations that hit their iteration cap",
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(c.operations, c.duration, c.items, c.convergenceFailures)
	return c
}

// Observe records one finished operation that started at start.
func (c *Collector) Observe(op string, start time.Time, err error) {
	if c == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	c.operations.WithLabelValues(op, status).Inc()
	c.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// AddItems counts items an operation processed.
func (c *Collector) AddItems(op string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.items.WithLabelValues(op).Add(float64(n))
}

// ConvergenceFailure counts a run that stopped at its iteration cap.
func (c *Collector) ConvergenceFailure(op string) {
	if c == nil {
		return
	}
	c.convergenceFailures.WithLabelValues(op).Inc()
}

// RegisterCacheStats exposes embedding cache hit and miss counts read from
// stats at scrape time.
func (c *Collector) RegisterCacheStats(stats func() (hits, misses int64)) error {
	if c == nil || stats == nil {
		return nil
	}
	hits := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: c.namespace,
		Name:      "embedding_cache_hits_total",
		Help:      "Embedding cache hits",
	}, func() float64 {
		h, _ := stats()
		return float64(h)
	})
	misses := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: c.namespace,
		Name:      "embedding_cache_misses_total",
		Help:      "Embedding cache misses",
	}, func() float64 {
		_, m := stats()
		return float64(m)
	})
	if err := c.registry.Register(hits); err != nil {
		return err
	}
	return c.registry.Register(misses)
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
