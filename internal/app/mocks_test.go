package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

// --- Mock implementations ---

type mockEngineStore struct {
	applyVoteFn func(ctx context.Context, ref domain.VotableRef, voterID uuid.UUID, at time.Time, decide domain.VoteDecision) (domain.VoteOutcome, error)
	getVoteFn   func(ctx context.Context, ref domain.VotableRef, voterID uuid.UUID) (*domain.Vote, error)
	acceptFn    func(ctx context.Context, questionID, answerID, actingUserID uuid.UUID, at time.Time, decide domain.AcceptDecision) (*domain.AcceptResult, error)
	unacceptFn  func(ctx context.Context, questionID uuid.UUID, decide domain.UnacceptDecision) (*domain.Question, *domain.Answer, error)
}

func (m *mockEngineStore) ApplyVote(ctx context.Context, ref domain.VotableRef, voterID uuid.UUID, at time.Time, decide domain.VoteDecision) (domain.VoteOutcome, error) {
	if m.applyVoteFn != nil {
		return m.applyVoteFn(ctx, ref, voterID, at, decide)
	}
	return domain.VoteOutcome{}, errors.New("not implemented")
}

func (m *mockEngineStore) GetVote(ctx context.Context, ref domain.VotableRef, voterID uuid.UUID) (*domain.Vote, error) {
	if m.getVoteFn != nil {
		return m.getVoteFn(ctx, ref, voterID)
	}
	return nil, nil
}

func (m *mockEngineStore) Accept(ctx context.Context, questionID, answerID, actingUserID uuid.UUID, at time.Time, decide domain.AcceptDecision) (*domain.AcceptResult, error) {
	if m.acceptFn != nil {
		return m.acceptFn(ctx, questionID, answerID, actingUserID, at, decide)
	}
	return nil, errors.New("not implemented")
}

func (m *mockEngineStore) Unaccept(ctx context.Context, questionID uuid.UUID, decide domain.UnacceptDecision) (*domain.Question, *domain.Answer, error) {
	if m.unacceptFn != nil {
		return m.unacceptFn(ctx, questionID, decide)
	}
	return nil, nil, errors.New("not implemented")
}

type mockPush struct {
	mu        sync.Mutex
	delivered []*domain.Notification
	err       error
	block     chan struct{}
}

func (m *mockPush) DispatchPush(ctx context.Context, n *domain.Notification) error {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered = append(m.delivered, n)
	return m.err
}

func (m *mockPush) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.delivered)
}

type mockUnreadCache struct {
	mu          sync.Mutex
	cached      map[uuid.UUID]int
	invalidated []uuid.UUID
	err         error
}

func newMockUnreadCache() *mockUnreadCache {
	return &mockUnreadCache{cached: make(map[uuid.UUID]int)}
}

func (m *mockUnreadCache) UnreadCount(ctx context.Context, userID uuid.UUID, load func(ctx context.Context) (int, error)) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if v, ok := m.cached[userID]; ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return 0, err
	}
	m.cached[userID] = v
	return v, nil
}

func (m *mockUnreadCache) Invalidate(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cached, userID)
	m.invalidated = append(m.invalidated, userID)
	return nil
}

type mockAuditor struct {
	reputationDrift  []domain.ReputationDrift
	answerCountDrift []domain.AnswerCountDrift
	mismatches       []uuid.UUID
	orphans          int
	scanErr          error
	repairErr        error

	repairedUsers     []uuid.UUID
	repairedQuestions []uuid.UUID
	repairedAccepts   []uuid.UUID
	orphansDeleted    bool
}

func (m *mockAuditor) FindReputationDrift(context.Context) ([]domain.ReputationDrift, error) {
	return m.reputationDrift, m.scanErr
}

func (m *mockAuditor) FindAnswerCountDrift(context.Context) ([]domain.AnswerCountDrift, error) {
	return m.answerCountDrift, nil
}

func (m *mockAuditor) FindAcceptanceMismatches(context.Context) ([]uuid.UUID, error) {
	return m.mismatches, nil
}

func (m *mockAuditor) CountOrphanedNotifications(context.Context) (int, error) {
	return m.orphans, nil
}

func (m *mockAuditor) RepairReputation(_ context.Context, userID uuid.UUID) (int, error) {
	if m.repairErr != nil {
		return 0, m.repairErr
	}
	m.repairedUsers = append(m.repairedUsers, userID)
	return domain.InitialReputation, nil
}

func (m *mockAuditor) RepairAnswerCount(_ context.Context, questionID uuid.UUID) (int, error) {
	m.repairedQuestions = append(m.repairedQuestions, questionID)
	return 0, nil
}

func (m *mockAuditor) RepairAcceptance(_ context.Context, questionID uuid.UUID) error {
	m.repairedAccepts = append(m.repairedAccepts, questionID)
	return nil
}

func (m *mockAuditor) DeleteOrphanedNotifications(context.Context) (int, error) {
	m.orphansDeleted = true
	return m.orphans, nil
}

type mockLease struct {
	acquire  bool
	renewErr error
	acquires int
	renewals int
	released bool
}

func (m *mockLease) TryAcquire(context.Context) (bool, error) {
	m.acquires++
	return m.acquire, nil
}

func (m *mockLease) Renew(context.Context) error {
	m.renewals++
	return m.renewErr
}

func (m *mockLease) Release(context.Context) error {
	m.released = true
	return nil
}

type recordingMetrics struct {
	noopMetrics
	mu       sync.Mutex
	cast     map[domain.VoteAction]int
	rejected map[string]int
	retries  int
	pushFail int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{cast: make(map[domain.VoteAction]int), rejected: make(map[string]int)}
}

func (m *recordingMetrics) VoteCast(_ domain.VotableKind, action domain.VoteAction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cast[action]++
}

func (m *recordingMetrics) VoteRejected(_ domain.VotableKind, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *recordingMetrics) WriteRetried(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

func (m *recordingMetrics) PushFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushFail++
}
