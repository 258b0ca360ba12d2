package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheMetrics holds Prometheus metrics for the unread-count cache.
type CacheMetrics struct {
	Hits          prometheus.Counter
	Misses        prometheus.Counter
	Invalidations prometheus.Counter
}

// NewCacheMetrics creates and registers cache metrics on the given registry.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "unread_cache",
			Name:      "hits_total",
			Help:      "Total number of unread-count cache hits.",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "unread_cache",
			Name:      "misses_total",
			Help:      "Total number of unread-count cache misses.",
		}),
		Invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "unread_cache",
			Name:      "invalidations_total",
			Help:      "Total number of unread-count cache invalidations.",
		}),
	}

	reg.MustRegister(m.Hits, m.Misses, m.Invalidations)
	return m
}

// IdempotencyMetrics tracks Idempotency-Key handling.
type IdempotencyMetrics struct {
	Outcomes *prometheus.CounterVec
}

func NewIdempotencyMetrics(reg prometheus.Registerer) *IdempotencyMetrics {
	m := &IdempotencyMetrics{
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "idempotency",
			Name:      "requests_total",
			Help:      "Total number of keyed requests, by outcome (first, replayed, in_flight, error).",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.Outcomes)
	return m
}
