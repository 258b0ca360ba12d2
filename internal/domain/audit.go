package domain

import (
	"context"

	"github.com/google/uuid"
)

type ReputationDrift struct {
	UserID   uuid.UUID
	Stored   int
	Expected int
}

type AnswerCountDrift struct {
	QuestionID uuid.UUID
	Stored     int
	Live       int
}

type AuditReport struct {
	ReputationDrift       []ReputationDrift
	AnswerCountDrift      []AnswerCountDrift
	AcceptanceMismatches  []uuid.UUID
	OrphanedNotifications int
}

func (r *AuditReport) Clean() bool {
	return len(r.ReputationDrift) == 0 &&
		len(r.AnswerCountDrift) == 0 &&
		len(r.AcceptanceMismatches) == 0 &&
		r.OrphanedNotifications == 0
}

// LedgerAuditor is used by reconciliation tooling, never by the vote or acceptance hot paths.
// Repair methods recompute from the live rows while holding the affected row's lock.
type LedgerAuditor interface {
	FindReputationDrift(ctx context.Context) ([]ReputationDrift, error)
	FindAnswerCountDrift(ctx context.Context) ([]AnswerCountDrift, error)
	FindAcceptanceMismatches(ctx context.Context) ([]uuid.UUID, error)
	CountOrphanedNotifications(ctx context.Context) (int, error)

	RepairReputation(ctx context.Context, userID uuid.UUID) (int, error)
	RepairAnswerCount(ctx context.Context, questionID uuid.UUID) (int, error)
	RepairAcceptance(ctx context.Context, questionID uuid.UUID) error
	DeleteOrphanedNotifications(ctx context.Context) (int, error)
}

// LeaderLease lets exactly one instance run periodic background work.
type LeaderLease interface {
	TryAcquire(ctx context.Context) (bool, error)
	Renew(ctx context.Context) error
	Release(ctx context.Context) error
}
