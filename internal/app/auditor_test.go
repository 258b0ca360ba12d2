package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

func TestAuditor_AuditAndRepair(t *testing.T) {
	user, question, dangling := uuid.New(), uuid.New(), uuid.New()
	store := &mockAuditor{
		reputationDrift:  []domain.ReputationDrift{{UserID: user, Stored: 5, Expected: 1}},
		answerCountDrift: []domain.AnswerCountDrift{{QuestionID: question, Stored: 3, Live: 2}},
		mismatches:       []uuid.UUID{dangling},
		orphans:          4,
	}
	auditor := NewAuditor(store, nil)

	report, err := auditor.Audit(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Clean())

	summary, err := auditor.Repair(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, RepairSummary{Reputation: 1, AnswerCounts: 1, Acceptance: 1, Notifications: 4}, summary)
	assert.Equal(t, []uuid.UUID{user}, store.repairedUsers)
	assert.Equal(t, []uuid.UUID{question}, store.repairedQuestions)
	assert.Equal(t, []uuid.UUID{dangling}, store.repairedAccepts)
	assert.True(t, store.orphansDeleted)
}

func TestAuditor_RepairCollectsErrors(t *testing.T) {
	store := &mockAuditor{
		reputationDrift: []domain.ReputationDrift{{UserID: uuid.New()}, {UserID: uuid.New()}},
		mismatches:      []uuid.UUID{uuid.New()},
		repairErr:       errors.New("lock timeout"),
	}
	auditor := NewAuditor(store, nil)

	report, err := auditor.Audit(context.Background())
	require.NoError(t, err)
	summary, err := auditor.Repair(context.Background(), report)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock timeout")
	assert.Zero(t, summary.Reputation)
	assert.Equal(t, 1, summary.Acceptance, "later repairs still run")
}

func TestAuditor_ScanError(t *testing.T) {
	auditor := NewAuditor(&mockAuditor{scanErr: errors.New("boom")}, nil)

	_, err := auditor.Audit(context.Background())

	assert.ErrorContains(t, err, "failed to scan reputation")
}

func TestReconciler_RunOnceRequiresLeadership(t *testing.T) {
	store := &mockAuditor{reputationDrift: []domain.ReputationDrift{{UserID: uuid.New()}}}
	lease := &mockLease{acquire: false}
	r := NewLedgerReconciler(NewAuditor(store, nil), lease, time.Minute, true, clockwork.NewFakeClock())

	r.RunOnce(context.Background())

	assert.Equal(t, 1, lease.acquires)
	assert.Empty(t, store.repairedUsers)
}

func TestReconciler_LeaderRepairsAndRenews(t *testing.T) {
	store := &mockAuditor{reputationDrift: []domain.ReputationDrift{{UserID: uuid.New()}}}
	lease := &mockLease{acquire: true}
	r := NewLedgerReconciler(NewAuditor(store, nil), lease, time.Minute, true, clockwork.NewFakeClock())

	r.RunOnce(context.Background())
	r.RunOnce(context.Background())

	assert.Equal(t, 1, lease.acquires)
	assert.Equal(t, 1, lease.renewals)
	assert.Len(t, store.repairedUsers, 2)
}

func TestReconciler_ReportOnlyMode(t *testing.T) {
	store := &mockAuditor{answerCountDrift: []domain.AnswerCountDrift{{QuestionID: uuid.New()}}}
	r := NewLedgerReconciler(NewAuditor(store, nil), nil, time.Minute, false, clockwork.NewFakeClock())

	r.RunOnce(context.Background())

	assert.Empty(t, store.repairedQuestions)
}

func TestReconciler_LostLeaseReacquires(t *testing.T) {
	lease := &mockLease{acquire: true}
	r := NewLedgerReconciler(NewAuditor(&mockAuditor{}, nil), lease, time.Minute, false, clockwork.NewFakeClock())

	r.RunOnce(context.Background())
	lease.renewErr = errors.New("leader lock lost")
	r.RunOnce(context.Background())

	assert.Equal(t, 2, lease.acquires)
}

type signalLease struct {
	mockLease
	acquired chan struct{}
}

func (l *signalLease) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.mockLease.TryAcquire(ctx)
	l.acquired <- struct{}{}
	return ok, err
}

func TestReconciler_StartTicksAndReleasesOnStop(t *testing.T) {
	lease := &signalLease{mockLease: mockLease{acquire: true}, acquired: make(chan struct{}, 1)}
	clock := clockwork.NewFakeClock()
	r := NewLedgerReconciler(NewAuditor(&mockAuditor{}, nil), lease, time.Minute, false, clock)

	done := make(chan struct{})
	go func() {
		r.Start(context.Background())
		close(done)
	}()

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	clock.Advance(time.Minute)

	select {
	case <-lease.acquired:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not tick")
	}

	r.Stop()
	<-done
	assert.True(t, lease.released)
}
