package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

type RepairSummary struct {
	Reputation    int
	AnswerCounts  int
	Acceptance    int
	Notifications int
}

// Auditor compares the incrementally maintained counters against the live rows.
type Auditor struct {
	store   domain.LedgerAuditor
	metrics Metrics
}

func NewAuditor(store domain.LedgerAuditor, m Metrics) *Auditor {
	return &Auditor{store: store, metrics: orNoop(m)}
}

func (a *Auditor) Audit(ctx context.Context) (*domain.AuditReport, error) {
	ctx, span := tracer.Start(ctx, "Auditor.Audit")
	defer span.End()

	var (
		report domain.AuditReport
		err    error
	)
	if report.ReputationDrift, err = a.store.FindReputationDrift(ctx); err != nil {
		return nil, fmt.Errorf("failed to scan reputation: %w", err)
	}
	if report.AnswerCountDrift, err = a.store.FindAnswerCountDrift(ctx); err != nil {
		return nil, fmt.Errorf("failed to scan answer counts: %w", err)
	}
	if report.AcceptanceMismatches, err = a.store.FindAcceptanceMismatches(ctx); err != nil {
		return nil, fmt.Errorf("failed to scan acceptance: %w", err)
	}
	if report.OrphanedNotifications, err = a.store.CountOrphanedNotifications(ctx); err != nil {
		return nil, fmt.Errorf("failed to count orphaned notifications: %w", err)
	}

	a.metrics.DriftDetected("reputation", len(report.ReputationDrift))
	a.metrics.DriftDetected("answer_count", len(report.AnswerCountDrift))
	a.metrics.DriftDetected("acceptance", len(report.AcceptanceMismatches))
	a.metrics.DriftDetected("orphaned_notification", report.OrphanedNotifications)

	return &report, nil
}

// Repair fixes every finding in report. Each fix recomputes from live rows under the row's
// lock, so a finding that healed since the audit is rewritten to the same value.
// Failures are collected and do not stop the remaining repairs.
func (a *Auditor) Repair(ctx context.Context, report *domain.AuditReport) (RepairSummary, error) {
	ctx, span := tracer.Start(ctx, "Auditor.Repair")
	defer span.End()

	var (
		summary RepairSummary
		errs    []error
	)

	for _, d := range report.ReputationDrift {
		fixed, err := a.store.RepairReputation(ctx, d.UserID)
		if err != nil {
			errs = append(errs, fmt.Errorf("reputation of user %s: %w", d.UserID, err))
			continue
		}
		summary.Reputation++
		slog.InfoContext(ctx, "Reputation repaired", "user_id", d.UserID, "stored", d.Stored, "repaired", fixed)
	}

	for _, d := range report.AnswerCountDrift {
		fixed, err := a.store.RepairAnswerCount(ctx, d.QuestionID)
		if err != nil {
			errs = append(errs, fmt.Errorf("answer count of question %s: %w", d.QuestionID, err))
			continue
		}
		summary.AnswerCounts++
		slog.InfoContext(ctx, "Answer count repaired", "question_id", d.QuestionID, "stored", d.Stored, "repaired", fixed)
	}

	for _, qid := range report.AcceptanceMismatches {
		if err := a.store.RepairAcceptance(ctx, qid); err != nil {
			errs = append(errs, fmt.Errorf("acceptance of question %s: %w", qid, err))
			continue
		}
		summary.Acceptance++
		slog.InfoContext(ctx, "Acceptance repaired", "question_id", qid)
	}

	if report.OrphanedNotifications > 0 {
		deleted, err := a.store.DeleteOrphanedNotifications(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("orphaned notifications: %w", err))
		} else {
			summary.Notifications = deleted
		}
	}

	a.metrics.DriftRepaired("reputation", summary.Reputation)
	a.metrics.DriftRepaired("answer_count", summary.AnswerCounts)
	a.metrics.DriftRepaired("acceptance", summary.Acceptance)
	a.metrics.DriftRepaired("orphaned_notification", summary.Notifications)

	return summary, errors.Join(errs...)
}
