package app

import (
	"time"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

// Metrics receives engine events. adapter/metrics provides the Prometheus implementation.
type Metrics interface {
	VoteCast(kind domain.VotableKind, action domain.VoteAction)
	VoteRejected(kind domain.VotableKind, reason string)
	WriteRetried(op string)
	OperationDuration(op string, d time.Duration)
	AcceptanceChanged(transition string)
	NotificationCreated(kind domain.NotificationKind)
	PushFailed()
	DriftDetected(category string, n int)
	DriftRepaired(category string, n int)
}

type noopMetrics struct{}

func (noopMetrics) VoteCast(domain.VotableKind, domain.VoteAction) {}
func (noopMetrics) VoteRejected(domain.VotableKind, string) {}
func (noopMetrics) WriteRetried(string) {}
func (noopMetrics) OperationDuration(string, time.Duration) {}
func (noopMetrics) AcceptanceChanged(string) {}
func (noopMetrics) NotificationCreated(domain.NotificationKind) {}
func (noopMetrics) PushFailed() {}
func (noopMetrics) DriftDetected(string, int) {}
func (noopMetrics) DriftRepaired(string, int) {}

func orNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
