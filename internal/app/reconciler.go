package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

// LedgerReconciler periodically audits the ledger on the instance holding the leader lease.
type LedgerReconciler struct {
	auditor  *Auditor
	lease    domain.LeaderLease
	interval time.Duration
	repair   bool
	clock    clockwork.Clock
	stopCh   chan struct{}
	stopOnce sync.Once
	leading  bool
}

// NewLedgerReconciler creates the background job. A nil lease means this instance always leads.
func NewLedgerReconciler(auditor *Auditor, lease domain.LeaderLease, interval time.Duration, repair bool, clock clockwork.Clock) *LedgerReconciler {
	return &LedgerReconciler{
		auditor:  auditor,
		lease:    lease,
		interval: interval,
		repair:   repair,
		clock:    clock,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the reconciliation loop until Stop is called or ctx ends.
func (r *LedgerReconciler) Start(ctx context.Context) {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()
	defer r.resign()

	for {
		select {
		case <-ticker.Chan():
			r.RunOnce(ctx)
		case <-r.stopCh:
			slog.Info("Ledger reconciler stopped")
			return
		case <-ctx.Done():
			slog.Info("Ledger reconciler context cancelled")
			return
		}
	}
}

func (r *LedgerReconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// RunOnce performs a single leader check and, when leading, one audit pass.
func (r *LedgerReconciler) RunOnce(ctx context.Context) {
	if !r.ensureLeadership(ctx) {
		return
	}

	report, err := r.auditor.Audit(ctx)
	if err != nil {
		slog.Error("Ledger audit failed", "error", err)
		return
	}
	if report.Clean() {
		slog.Debug("Ledger audit clean")
		return
	}

	slog.Warn("Ledger drift detected",
		"reputation_drift", len(report.ReputationDrift),
		"answer_count_drift", len(report.AnswerCountDrift),
		"acceptance_mismatches", len(report.AcceptanceMismatches),
		"orphaned_notifications", report.OrphanedNotifications,
		"repair", r.repair)

	if !r.repair {
		return
	}
	summary, err := r.auditor.Repair(ctx, report)
	if err != nil {
		slog.Error("Ledger repair incomplete", "error", err)
	}
	slog.Info("Ledger repaired",
		"reputation", summary.Reputation,
		"answer_counts", summary.AnswerCounts,
		"acceptance", summary.Acceptance,
		"notifications", summary.Notifications)
}

func (r *LedgerReconciler) ensureLeadership(ctx context.Context) bool {
	if r.lease == nil {
		return true
	}

	if r.leading {
		err := r.lease.Renew(ctx)
		if err == nil {
			return true
		}
		slog.Warn("Lost reconciler leadership", "error", err)
		r.leading = false
	}

	ok, err := r.lease.TryAcquire(ctx)
	if err != nil {
		slog.Error("Reconciler leader election failed", "error", err)
		return false
	}
	if ok {
		slog.Info("Acquired reconciler leadership")
	}
	r.leading = ok
	return ok
}

func (r *LedgerReconciler) resign() {
	if r.lease == nil || !r.leading {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.lease.Release(ctx); err != nil {
		slog.Warn("Failed to release reconciler leadership", "error", err)
	}
	r.leading = false
}
