package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

// EngineMetrics holds Prometheus metrics for votes, acceptance, notifications and ledger audits.
// It implements app.Metrics.
type EngineMetrics struct {
	VotesTotal            *prometheus.CounterVec
	VoteRejections        *prometheus.CounterVec
	WriteRetries          *prometheus.CounterVec
	OperationSeconds      *prometheus.HistogramVec
	AcceptanceTransitions *prometheus.CounterVec
	NotificationsTotal    *prometheus.CounterVec
	PushFailures          prometheus.Counter
	LedgerDrift           *prometheus.GaugeVec
	LedgerRepairs         *prometheus.CounterVec
}

// NewEngineMetrics creates and registers engine metrics on the given registry.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		VotesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Total number of applied votes, by votable kind and action.",
		}, []string{"kind", "action"}),
		VoteRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_rejections_total",
			Help:      "Total number of rejected votes, by votable kind and reason.",
		}, []string{"kind", "reason"}),
		WriteRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_retries_total",
			Help:      "Total number of retried contended writes, by operation.",
		}, []string{"op"}),
		OperationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of engine operations in seconds, including retries.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"op"}),
		AcceptanceTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acceptance_transitions_total",
			Help:      "Total number of answer acceptance transitions.",
		}, []string{"transition"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total number of stored notifications, by kind.",
		}, []string{"kind"}),
		PushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_failures_total",
			Help:      "Total number of failed push deliveries.",
		}),
		LedgerDrift: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "drift",
			Help:      "Number of drifted records found by the last audit, by category.",
		}, []string{"category"}),
		LedgerRepairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "repairs_total",
			Help:      "Total number of repaired records, by category.",
		}, []string{"category"}),
	}

	reg.MustRegister(m.VotesTotal, m.VoteRejections, m.WriteRetries, m.OperationSeconds,
		m.AcceptanceTransitions, m.NotificationsTotal, m.PushFailures, m.LedgerDrift, m.LedgerRepairs)
	return m
}

func (m *EngineMetrics) VoteCast(kind domain.VotableKind, action domain.VoteAction) {
	m.VotesTotal.WithLabelValues(string(kind), string(action)).Inc()
}

func (m *EngineMetrics) VoteRejected(kind domain.VotableKind, reason string) {
	m.VoteRejections.WithLabelValues(string(kind), reason).Inc()
}

func (m *EngineMetrics) WriteRetried(op string) {
	m.WriteRetries.WithLabelValues(op).Inc()
}

func (m *EngineMetrics) OperationDuration(op string, d time.Duration) {
	m.OperationSeconds.WithLabelValues(op).Observe(d.Seconds())
}

func (m *EngineMetrics) AcceptanceChanged(transition string) {
	m.AcceptanceTransitions.WithLabelValues(transition).Inc()
}

func (m *EngineMetrics) NotificationCreated(kind domain.NotificationKind) {
	m.NotificationsTotal.WithLabelValues(string(kind)).Inc()
}

func (m *EngineMetrics) PushFailed() {
	m.PushFailures.Inc()
}

func (m *EngineMetrics) DriftDetected(category string, n int) {
	m.LedgerDrift.WithLabelValues(category).Set(float64(n))
}

func (m *EngineMetrics) DriftRepaired(category string, n int) {
	m.LedgerRepairs.WithLabelValues(category).Add(float64(n))
}
