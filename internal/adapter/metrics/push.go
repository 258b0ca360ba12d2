package metrics

import "github.com/prometheus/client_golang/prometheus"

// PushMetrics holds Prometheus metrics for outbound push deliveries.
type PushMetrics struct {
	Deliveries   *prometheus.CounterVec
	BreakerState prometheus.Gauge
}

func NewPushMetrics(reg prometheus.Registerer) *PushMetrics {
	m := &PushMetrics{
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "deliveries_total",
			Help:      "Total number of push delivery attempts, by transport and result.",
		}, []string{"transport", "result"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "webhook_breaker_state",
			Help:      "Webhook circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
	}

	reg.MustRegister(m.Deliveries, m.BreakerState)
	return m
}
