package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

const answerColumns = `id, question_id, owner_id, content, vote_count, is_accepted, accepted_at, accepted_by,
	version, created_at, updated_at`

func scanAnswer(row pgx.Row) (*domain.Answer, error) {
	var a domain.Answer
	err := row.Scan(&a.ID, &a.QuestionID, &a.OwnerID, &a.Content, &a.VoteCount, &a.IsAccepted,
		&a.AcceptedAt, &a.AcceptedBy, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func lockAnswer(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Answer, error) {
	a, err := scanAnswer(tx.QueryRow(ctx, `SELECT `+answerColumns+` FROM answers WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, domain.ErrAnswerNotFound)
	}
	return a, nil
}

func (s *Store) CreateAnswer(ctx context.Context, a *domain.Answer, notice domain.AnswerNotice) (*domain.Question, *domain.Notification, error) {
	var (
		updated *domain.Question
		note    *domain.Notification
	)

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		q, err := lockQuestion(ctx, tx, a.QuestionID)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO answers (id, question_id, owner_id, content, vote_count, is_accepted, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 0, FALSE, $5, $6, $7)`,
			a.ID, a.QuestionID, a.OwnerID, a.Content, a.Version, a.CreatedAt, a.UpdatedAt)
		switch {
		case isPgCode(err, codeUniqueViolation):
			return domain.ErrAlreadyAnswered
		case isPgCode(err, codeForeignKeyViolation):
			return domain.ErrUserNotFound
		case err != nil:
			return fmt.Errorf("failed to insert answer: %w", err)
		}

		updated, err = scanQuestion(tx.QueryRow(ctx, `
			UPDATE questions SET answer_count = answer_count + 1, version = version + 1, updated_at = $2
			WHERE id = $1
			RETURNING `+questionColumns, a.QuestionID, a.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to increment answer count: %w", err)
		}

		if notice != nil {
			note = notice(q)
		}
		if note != nil {
			if err := insertNotification(ctx, tx, note); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, note, nil
}

func (s *Store) GetAnswer(ctx context.Context, id uuid.UUID) (*domain.Answer, error) {
	a, err := scanAnswer(s.pool.QueryRow(ctx, `SELECT `+answerColumns+` FROM answers WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get answer: %w", notFound(err, domain.ErrAnswerNotFound))
	}
	return a, nil
}

// ListAnswers orders the accepted answer first, then by votes, then oldest first.
func (s *Store) ListAnswers(ctx context.Context, questionID uuid.UUID) ([]*domain.Answer, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM questions WHERE id = $1)`, questionID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check question: %w", err)
	}
	if !exists {
		return nil, domain.ErrQuestionNotFound
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+answerColumns+` FROM answers
		WHERE question_id = $1
		ORDER BY is_accepted DESC, vote_count DESC, created_at ASC`, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Answer, 0)
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read answers: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteAnswer(ctx context.Context, id uuid.UUID, guard func(q *domain.Question, a *domain.Answer) error) (*domain.Answer, error) {
	// An answer never moves between questions, so reading the parent id unlocked is safe.
	var questionID uuid.UUID
	if err := s.pool.QueryRow(ctx, `SELECT question_id FROM answers WHERE id = $1`, id).Scan(&questionID); err != nil {
		return nil, fmt.Errorf("failed to get answer: %w", notFound(err, domain.ErrAnswerNotFound))
	}

	var deleted *domain.Answer
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		q, err := lockQuestion(ctx, tx, questionID)
		if err != nil {
			return err
		}
		a, err := lockAnswer(ctx, tx, id)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(q, a); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, `
			UPDATE questions SET
				accepted_answer_id = CASE WHEN accepted_answer_id = $2 THEN NULL ELSE accepted_answer_id END,
				answer_count = answer_count - 1,
				version = version + 1
			WHERE id = $1`, questionID, id); err != nil {
			return fmt.Errorf("failed to update question: %w", err)
		}

		var weight int
		if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(value), 0)::int FROM answer_votes WHERE answer_id = $1`, id).Scan(&weight); err != nil {
			return fmt.Errorf("failed to sum answer votes: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM answers WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete answer: %w", err)
		}
		if err := adjustReputations(ctx, tx, map[uuid.UUID]int{a.OwnerID: -weight}); err != nil {
			return err
		}

		deleted = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (s *Store) ListAnswersByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*domain.Answer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+answerColumns+` FROM answers
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3`, ownerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers by owner: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Answer, 0, limit)
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CountAnswersByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM answers WHERE owner_id = $1`, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count answers: %w", err)
	}
	return count, nil
}

func (s *Store) UpdateAnswer(ctx context.Context, id uuid.UUID, at time.Time, edit func(a *domain.Answer) error) (*domain.Answer, error) {
	var updated *domain.Answer

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		a, err := lockAnswer(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := edit(a); err != nil {
			return err
		}

		updated, err = scanAnswer(tx.QueryRow(ctx, `
			UPDATE answers SET content = $2, version = version + 1, updated_at = $3
			WHERE id = $1
			RETURNING `+answerColumns, id, a.Content, at))
		if err != nil {
			return fmt.Errorf("failed to update answer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
