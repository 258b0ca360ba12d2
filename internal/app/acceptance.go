package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/NirdeshGothania/stackit/internal/domain"
	"github.com/NirdeshGothania/stackit/internal/platform/retry"
)

// AcceptAnswer moves a question from no accepted answer to answerID. Accepting the answer
// that is already accepted succeeds without writing anything. The accept notification is
// persisted in the same store unit as the transition and pushed after commit.
func (e *Engine) AcceptAnswer(ctx context.Context, questionID, answerID, actingUserID uuid.UUID) (*domain.AcceptResult, error) {
	ctx, span := tracer.Start(ctx, "Engine.AcceptAnswer", trace.WithAttributes(
		attribute.String("question.id", questionID.String()),
		attribute.String("answer.id", answerID.String()),
	))
	defer span.End()

	start := e.clock.Now()
	defer func() { e.metrics.OperationDuration("accept_answer", e.clock.Since(start)) }()

	decide := func(q *domain.Question, a *domain.Answer) (bool, *domain.Notification, error) {
		if q.OwnerID != actingUserID {
			return false, nil, domain.ErrNotOwner
		}
		if a.QuestionID != q.ID {
			return false, nil, domain.ErrAnswerNotOfQuestion
		}
		if q.AcceptedAnswerID != nil {
			if *q.AcceptedAnswerID == a.ID {
				return false, nil, nil
			}
			return false, nil, domain.ErrAlreadyAccepted
		}
		if a.OwnerID == q.OwnerID {
			return true, nil, nil
		}
		answerRef := a.ID
		return true, e.notifier.newNotification(domain.NotificationAccept, a.OwnerID, actingUserID, q.ID, &answerRef,
			fmt.Sprintf("Your answer to %q has been accepted!", q.Title)), nil
	}

	res, err := retry.Do(ctx, e.retryPolicy("accept_answer"), classifyWrite, func(int) (*domain.AcceptResult, error) {
		return e.store.Accept(ctx, questionID, answerID, actingUserID, e.clock.Now(), decide)
	})
	if err != nil {
		err = unwrapRetry(err)
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to accept answer %s: %w", answerID, err)
	}

	if !res.Applied {
		span.SetAttributes(attribute.Bool("accept.noop", true))
		return res, nil
	}

	e.metrics.AcceptanceChanged("accepted")
	slog.InfoContext(ctx, "Answer accepted", "question_id", questionID, "answer_id", answerID)

	if res.Notification != nil {
		e.notifier.published(ctx, res.Notification)
	}
	return res, nil
}

// UnacceptAnswer clears the question's accepted answer. It never notifies.
func (e *Engine) UnacceptAnswer(ctx context.Context, questionID, actingUserID uuid.UUID) (*domain.Question, error) {
	return e.unaccept(ctx, questionID, uuid.Nil, actingUserID)
}

// UnacceptAnswerByID clears acceptance only while answerID is the question's accepted
// answer; otherwise it fails with domain.ErrNotAccepted.
func (e *Engine) UnacceptAnswerByID(ctx context.Context, questionID, answerID, actingUserID uuid.UUID) (*domain.Question, error) {
	return e.unaccept(ctx, questionID, answerID, actingUserID)
}

func (e *Engine) unaccept(ctx context.Context, questionID, answerID, actingUserID uuid.UUID) (*domain.Question, error) {
	ctx, span := tracer.Start(ctx, "Engine.UnacceptAnswer", trace.WithAttributes(
		attribute.String("question.id", questionID.String()),
	))
	defer span.End()

	start := e.clock.Now()
	defer func() { e.metrics.OperationDuration("unaccept_answer", e.clock.Since(start)) }()

	decide := func(q *domain.Question) error {
		if q.OwnerID != actingUserID {
			return domain.ErrNotOwner
		}
		if !q.HasAcceptedAnswer() {
			return domain.ErrNotAccepted
		}
		if answerID != uuid.Nil && *q.AcceptedAnswerID != answerID {
			return domain.ErrNotAccepted
		}
		return nil
	}

	type result struct {
		q *domain.Question
		a *domain.Answer
	}
	res, err := retry.Do(ctx, e.retryPolicy("unaccept_answer"), classifyWrite, func(int) (result, error) {
		q, a, err := e.store.Unaccept(ctx, questionID, decide)
		return result{q, a}, err
	})
	if err != nil {
		err = unwrapRetry(err)
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to unaccept answer on question %s: %w", questionID, err)
	}

	e.metrics.AcceptanceChanged("unaccepted")
	attrs := []any{"question_id", questionID}
	if res.a != nil {
		attrs = append(attrs, "answer_id", res.a.ID)
	}
	slog.InfoContext(ctx, "Answer unaccepted", attrs...)
	return res.q, nil
}
