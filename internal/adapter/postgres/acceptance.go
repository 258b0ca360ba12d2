package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

func (s *Store) Accept(ctx context.Context, questionID, answerID, actingUserID uuid.UUID, at time.Time, decide domain.AcceptDecision) (*domain.AcceptResult, error) {
	var result *domain.AcceptResult

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		q, err := lockQuestion(ctx, tx, questionID)
		if err != nil {
			return err
		}
		a, err := lockAnswer(ctx, tx, answerID)
		if err != nil {
			return err
		}

		apply, note, err := decide(q, a)
		if err != nil {
			return err
		}
		if !apply {
			result = &domain.AcceptResult{Question: q, Answer: a}
			return nil
		}

		a, err = scanAnswer(tx.QueryRow(ctx, `
			UPDATE answers SET is_accepted = TRUE, accepted_at = $2, accepted_by = $3, version = version + 1, updated_at = $2
			WHERE id = $1
			RETURNING `+answerColumns, answerID, at, actingUserID))
		if err != nil {
			return fmt.Errorf("failed to mark answer accepted: %w", err)
		}
		q, err = scanQuestion(tx.QueryRow(ctx, `
			UPDATE questions SET accepted_answer_id = $2, version = version + 1, updated_at = $3
			WHERE id = $1
			RETURNING `+questionColumns, questionID, answerID, at))
		if err != nil {
			return fmt.Errorf("failed to set accepted answer: %w", err)
		}

		if note != nil {
			if err := insertNotification(ctx, tx, note); err != nil {
				return err
			}
		}

		result = &domain.AcceptResult{Question: q, Answer: a, Applied: true, Notification: note}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) Unaccept(ctx context.Context, questionID uuid.UUID, decide domain.UnacceptDecision) (*domain.Question, *domain.Answer, error) {
	var (
		updated *domain.Question
		cleared *domain.Answer
	)

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		q, err := lockQuestion(ctx, tx, questionID)
		if err != nil {
			return err
		}
		if err := decide(q); err != nil {
			return err
		}

		if q.AcceptedAnswerID != nil {
			cleared, err = clearAcceptance(ctx, tx, *q.AcceptedAnswerID)
			if err != nil {
				return err
			}
		}

		updated, err = scanQuestion(tx.QueryRow(ctx, `
			UPDATE questions SET accepted_answer_id = NULL, version = version + 1
			WHERE id = $1
			RETURNING `+questionColumns, questionID))
		if err != nil {
			return fmt.Errorf("failed to clear accepted answer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, cleared, nil
}

// clearAcceptance resets the answer's flag. A missing answer yields (nil, nil).
func clearAcceptance(ctx context.Context, tx pgx.Tx, answerID uuid.UUID) (*domain.Answer, error) {
	a, err := scanAnswer(tx.QueryRow(ctx, `
		UPDATE answers SET is_accepted = FALSE, accepted_at = NULL, accepted_by = NULL, version = version + 1
		WHERE id = $1
		RETURNING `+answerColumns, answerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to clear answer acceptance: %w", err)
	}
	return a, nil
}
