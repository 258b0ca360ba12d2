package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NirdeshGothania/stackit/internal/domain"
	"github.com/NirdeshGothania/stackit/internal/platform/retry"
)

var tracer = otel.Tracer("github.com/NirdeshGothania/stackit/internal/app")

// EngineStore is the part of the ledger the engine writes through.
type EngineStore interface {
	domain.VoteLedger
	domain.AcceptanceStore
}

// Engine applies votes and acceptance transitions. Every write goes through a store call
// that evaluates the engine's decision under the affected rows' locks, so the toggle and
// state-machine rules live here once and the store only guarantees atomicity.
type Engine struct {
	store    EngineStore
	notifier *Notifier
	clock    clockwork.Clock
	policy   retry.Policy
	metrics  Metrics
}

type EngineOption func(*Engine)

func WithRetryPolicy(maxAttempts int, initialBackoff time.Duration) EngineOption {
	return func(e *Engine) {
		e.policy.MaxAttempts = maxAttempts
		e.policy.InitialBackoff = initialBackoff
		e.policy.RateLimitBackoff = initialBackoff
	}
}

func WithEngineMetrics(m Metrics) EngineOption {
	return func(e *Engine) { e.metrics = orNoop(m) }
}

func NewEngine(store EngineStore, notifier *Notifier, clock clockwork.Clock, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		notifier: notifier,
		clock:    clock,
		policy: retry.Policy{
			MaxAttempts:      5,
			InitialBackoff:   10 * time.Millisecond,
			MaxBackoff:       200 * time.Millisecond,
			RateLimitBackoff: 10 * time.Millisecond,
		},
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DecideVote returns the toggle rule for one cast: no vote inserts, the same value removes,
// the opposite value replaces. The vote sum moves by Delta and so does the owner's reputation.
func DecideVote(voterID uuid.UUID, value domain.VoteValue) domain.VoteDecision {
	return func(ownerID uuid.UUID, existing *domain.Vote) (domain.VoteChange, error) {
		if ownerID == voterID {
			return domain.VoteChange{}, domain.ErrSelfVote
		}
		switch {
		case existing == nil:
			return domain.VoteChange{Action: domain.VoteInserted, Value: value, Delta: int(value)}, nil
		case existing.Value == value:
			return domain.VoteChange{Action: domain.VoteRemoved, Value: domain.VoteNone, Delta: -int(value)}, nil
		default:
			return domain.VoteChange{Action: domain.VoteReplaced, Value: value, Delta: int(value) - int(existing.Value)}, nil
		}
	}
}

// CastVote applies one vote from voterID on the referenced votable.
func (e *Engine) CastVote(ctx context.Context, ref domain.VotableRef, voterID uuid.UUID, value domain.VoteValue) (domain.VoteOutcome, error) {
	if !value.Valid() {
		return domain.VoteOutcome{}, domain.ErrInvalidVoteValue
	}
	if _, err := domain.ParseVotableKind(string(ref.Kind)); err != nil {
		return domain.VoteOutcome{}, err
	}

	ctx, span := tracer.Start(ctx, "Engine.CastVote", trace.WithAttributes(
		attribute.String("votable.kind", string(ref.Kind)),
		attribute.String("votable.id", ref.ID.String()),
		attribute.Int("vote.value", int(value)),
	))
	defer span.End()

	start := e.clock.Now()
	defer func() { e.metrics.OperationDuration("cast_vote", e.clock.Since(start)) }()

	decide := DecideVote(voterID, value)
	outcome, err := retry.Do(ctx, e.retryPolicy("cast_vote"), classifyWrite, func(int) (domain.VoteOutcome, error) {
		return e.store.ApplyVote(ctx, ref, voterID, e.clock.Now(), decide)
	})
	if err != nil {
		err = unwrapRetry(err)
		e.metrics.VoteRejected(ref.Kind, rejectionReason(err))
		recordSpanError(span, err)
		return domain.VoteOutcome{}, fmt.Errorf("failed to cast vote on %s %s: %w", ref.Kind, ref.ID, err)
	}

	e.metrics.VoteCast(ref.Kind, outcome.Action)
	span.SetAttributes(
		attribute.String("vote.action", string(outcome.Action)),
		attribute.Int("vote.count", outcome.VoteCount),
	)
	slog.DebugContext(ctx, "Vote applied",
		"votable_kind", ref.Kind,
		"votable_id", ref.ID,
		"voter_id", voterID,
		"action", outcome.Action,
		"vote_count", outcome.VoteCount,
		"reputation_delta", outcome.ReputationDelta)

	return outcome, nil
}

// GetUserVote returns the voter's current value on the votable, VoteNone if they have not voted.
func (e *Engine) GetUserVote(ctx context.Context, ref domain.VotableRef, voterID uuid.UUID) (domain.VoteValue, error) {
	v, err := e.store.GetVote(ctx, ref, voterID)
	if err != nil {
		return domain.VoteNone, err
	}
	if v == nil {
		return domain.VoteNone, nil
	}
	return v.Value, nil
}

func (e *Engine) retryPolicy(op string) retry.Policy {
	p := e.policy
	p.OnRetry = func(attempt int, err error, backoff time.Duration) {
		e.metrics.WriteRetried(op)
		slog.Debug("Retrying contended write", "op", op, "attempt", attempt, "backoff", backoff, "error", err)
	}
	return p
}

func classifyWrite(err error) retry.Action {
	if errors.Is(err, domain.ErrWriteConflict) {
		return retry.Retry
	}
	return retry.Stop
}

// unwrapRetry strips the retry wrapper from decision errors so callers see the domain sentinel.
// Exhaustion keeps its wrapper; it still unwraps to ErrWriteConflict and therefore ErrTransient.
func unwrapRetry(err error) error {
	if perm, ok := errors.AsType[*retry.PermanentError](err); ok {
		return perm.Err
	}
	return err
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrPermissionDenied):
		return "self_vote"
	case errors.Is(err, domain.ErrTransient):
		return "contention"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
