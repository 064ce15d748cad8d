// Package telemetry exposes Prometheus metrics for the P3IF store.
//
// A Collector registers its metrics on a caller-supplied registry so several
// frameworks (or tests) can live in one process. Every method is safe to call
// on a nil *Collector, which turns telemetry off without branching at the
// call sites.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/orneryd/p3if/pkg/cache"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Collector holds the store metrics.
type Collector struct {
	mutations         *prometheus.CounterVec
	mutationLatency   *prometheus.HistogramVec
	persistenceErrors *prometheus.CounterVec
	indexRebuilds     prometheus.Counter
	cacheEntries      *prometheus.GaugeVec
	cacheHits         *prometheus.GaugeVec
	cacheMisses       *prometheus.GaugeVec
}

// NewCollector creates the metrics and registers them on reg.
// A nil reg uses a fresh private registry.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collector{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "p3if_store_mutations_total",
			Help: "Store mutations by operation and result",
		}, []string{"op", "result"}),
		mutationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "p3if_store_mutation_duration_seconds",
			Help:    "Latency of store mutations including persistence",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		persistenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "p3if_persistence_errors_total",
			Help: "Persistence backend failures by operation",
		}, []string{"op"}),
		indexRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "p3if_index_rebuilds_total",
			Help: "Full secondary index rebuilds",
		}),
		cacheEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "p3if_cache_entries",
			Help: "Current number of cache entries",
		}, []string{"cache"}),
		cacheHits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "p3if_cache_hits",
			Help: "Cache hits since the last clear",
		}, []string{"cache"}),
		cacheMisses: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "p3if_cache_misses",
			Help: "Cache misses since the last clear",
		}, []string{"cache"}),
	}

	for _, m := range []prometheus.Collector{
		c.mutations,
		c.mutationLatency,
		c.persistenceErrors,
		c.indexRebuilds,
		c.cacheEntries,
		c.cacheHits,
		c.cacheMisses,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveMutation records one store mutation.
func (c *Collector) ObserveMutation(op string, d time.Duration, err error) {
	if c == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	c.mutations.WithLabelValues(op, result).Inc()
	c.mutationLatency.WithLabelValues(op).Observe(d.Seconds())
}

// PersistenceError counts a failed backend call.
func (c *Collector) PersistenceError(op string) {
	if c == nil {
		return
	}
	c.persistenceErrors.WithLabelValues(op).Inc()
}

// IndexRebuild counts a full index rebuild.
func (c *Collector) IndexRebuild() {
	if c == nil {
		return
	}
	c.indexRebuilds.Inc()
}

// ObserveCache publishes a cache statistics snapshot under the given name.
func (c *Collector) ObserveCache(name string, stats cache.Stats) {
	if c == nil {
		return
	}
	c.cacheEntries.WithLabelValues(name).Set(float64(stats.Size))
	c.cacheHits.WithLabelValues(name).Set(float64(stats.Hits))
	c.cacheMisses.WithLabelValues(name).Set(float64(stats.Misses))
}
