package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

const questionColumns = `id, owner_id, title, content, tags, vote_count, answer_count, view_count,
	accepted_answer_id, is_closed, bounty, bounty_expires_at, version, created_at, updated_at`

func scanQuestion(row pgx.Row) (*domain.Question, error) {
	var q domain.Question
	err := row.Scan(&q.ID, &q.OwnerID, &q.Title, &q.Content, &q.Tags, &q.VoteCount, &q.AnswerCount,
		&q.ViewCount, &q.AcceptedAnswerID, &q.IsClosed, &q.Bounty, &q.BountyExpiresAt, &q.Version,
		&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if q.Tags == nil {
		q.Tags = []string{}
	}
	return &q, nil
}

// lockQuestion reads the question and holds its row lock until the transaction ends.
func lockQuestion(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Question, error) {
	q, err := scanQuestion(tx.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, domain.ErrQuestionNotFound)
	}
	return q, nil
}

func (s *Store) CreateQuestion(ctx context.Context, q *domain.Question) error {
	const stmt = `
		INSERT INTO questions (id, owner_id, title, content, tags, vote_count, answer_count, view_count,
			is_closed, bounty, bounty_expires_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, 0, 0, $6, $7, $8, $9, $10, $11)`

	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := s.pool.Exec(ctx, stmt, q.ID, q.OwnerID, q.Title, q.Content, tags, q.IsClosed,
		q.Bounty, q.BountyExpiresAt, q.Version, q.CreatedAt, q.UpdatedAt)
	if isPgCode(err, codeForeignKeyViolation) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

func (s *Store) GetQuestion(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	q, err := scanQuestion(s.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", notFound(err, domain.ErrQuestionNotFound))
	}
	return q, nil
}

func (s *Store) IncrementViewCount(ctx context.Context, id uuid.UUID) (int, error) {
	var views int
	err := s.pool.QueryRow(ctx, `UPDATE questions SET view_count = view_count + 1 WHERE id = $1 RETURNING view_count`, id).Scan(&views)
	if err != nil {
		return 0, fmt.Errorf("failed to increment view count: %w", notFound(err, domain.ErrQuestionNotFound))
	}
	return views, nil
}

func (s *Store) ListQuestionsByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*domain.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+questionColumns+` FROM questions
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3`, ownerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions by owner: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Question, 0, limit)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) CountQuestionsByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions WHERE owner_id = $1`, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

func (s *Store) UpdateQuestion(ctx context.Context, id uuid.UUID, at time.Time, edit func(q *domain.Question) error) (*domain.Question, error) {
	var updated *domain.Question

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		q, err := lockQuestion(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := edit(q); err != nil {
			return err
		}
		if q.Tags == nil {
			q.Tags = []string{}
		}

		updated, err = scanQuestion(tx.QueryRow(ctx, `
			UPDATE questions SET title = $2, content = $3, tags = $4, version = version + 1, updated_at = $5
			WHERE id = $1
			RETURNING `+questionColumns, id, q.Title, q.Content, q.Tags, at))
		if err != nil {
			return fmt.Errorf("failed to update question: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id uuid.UUID, guard func(q *domain.Question) error) (*domain.CascadeResult, error) {
	result := &domain.CascadeResult{QuestionID: id}

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		q, err := lockQuestion(ctx, tx, id)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(q); err != nil {
				return err
			}
		}

		// Votes on answers require the answer lock, so holding every answer freezes the vote set.
		if _, err := tx.Exec(ctx, `SELECT id FROM answers WHERE question_id = $1 ORDER BY id FOR UPDATE`, id); err != nil {
			return fmt.Errorf("failed to lock answers: %w", err)
		}

		adjusted, votes, err := voteWeightByOwner(ctx, tx, id)
		if err != nil {
			return err
		}
		result.ReputationAdjusted = adjusted
		result.VotesDeleted = votes

		if _, err := tx.Exec(ctx, `UPDATE questions SET accepted_answer_id = NULL WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to clear accepted answer: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM answers WHERE question_id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete answers: %w", err)
		}
		result.AnswersDeleted = int(tag.RowsAffected())

		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete question: %w", err)
		}

		return adjustReputations(ctx, tx, adjusted)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// voteWeightByOwner returns the negated vote sum each content owner loses when the question
// and its answers go away, plus the number of votes involved.
func voteWeightByOwner(ctx context.Context, tx pgx.Tx, questionID uuid.UUID) (map[uuid.UUID]int, int, error) {
	const q = `
		SELECT owner_id, COALESCE(SUM(value), 0)::int, COUNT(*)::int
		FROM (
			SELECT qs.owner_id, v.value
			FROM question_votes v JOIN questions qs ON qs.id = v.question_id
			WHERE v.question_id = $1
			UNION ALL
			SELECT a.owner_id, v.value
			FROM answer_votes v JOIN answers a ON a.id = v.answer_id
			WHERE a.question_id = $1
		) w
		GROUP BY owner_id`

	rows, err := tx.Query(ctx, q, questionID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to sum vote weight: %w", err)
	}
	defer rows.Close()

	adjusted := make(map[uuid.UUID]int)
	total := 0
	for rows.Next() {
		var owner uuid.UUID
		var sum, count int
		if err := rows.Scan(&owner, &sum, &count); err != nil {
			return nil, 0, fmt.Errorf("failed to scan vote weight: %w", err)
		}
		total += count
		if sum != 0 {
			adjusted[owner] = -sum
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read vote weight: %w", err)
	}
	return adjusted, total, nil
}
