package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

// earnedCTE lists every live vote with the user it credits.
const earnedCTE = `
	WITH earned AS (
		SELECT q.owner_id AS user_id, v.value
		FROM question_votes v JOIN questions q ON q.id = v.question_id
		UNION ALL
		SELECT a.owner_id AS user_id, v.value
		FROM answer_votes v JOIN answers a ON a.id = v.answer_id
	)`

func (s *Store) FindReputationDrift(ctx context.Context) ([]domain.ReputationDrift, error) {
	rows, err := s.pool.Query(ctx, earnedCTE+`
		SELECT u.id, u.reputation, ($1 + COALESCE(SUM(e.value), 0))::int
		FROM users u LEFT JOIN earned e ON e.user_id = u.id
		GROUP BY u.id, u.reputation
		HAVING u.reputation <> $1 + COALESCE(SUM(e.value), 0)`, domain.InitialReputation)
	if err != nil {
		return nil, fmt.Errorf("failed to find reputation drift: %w", err)
	}
	defer rows.Close()

	var drift []domain.ReputationDrift
	for rows.Next() {
		var d domain.ReputationDrift
		if err := rows.Scan(&d.UserID, &d.Stored, &d.Expected); err != nil {
			return nil, fmt.Errorf("failed to scan reputation drift: %w", err)
		}
		drift = append(drift, d)
	}
	return drift, rows.Err()
}

func (s *Store) FindAnswerCountDrift(ctx context.Context) ([]domain.AnswerCountDrift, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT q.id, q.answer_count, COUNT(a.id)::int
		FROM questions q LEFT JOIN answers a ON a.question_id = q.id
		GROUP BY q.id, q.answer_count
		HAVING q.answer_count <> COUNT(a.id)`)
	if err != nil {
		return nil, fmt.Errorf("failed to find answer count drift: %w", err)
	}
	defer rows.Close()

	var drift []domain.AnswerCountDrift
	for rows.Next() {
		var d domain.AnswerCountDrift
		if err := rows.Scan(&d.QuestionID, &d.Stored, &d.Live); err != nil {
			return nil, fmt.Errorf("failed to scan answer count drift: %w", err)
		}
		drift = append(drift, d)
	}
	return drift, rows.Err()
}

// FindAcceptanceMismatches returns questions whose pointer does not name an accepted answer of
// their own, or that have an accepted answer the pointer does not name.
func (s *Store) FindAcceptanceMismatches(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT q.id FROM questions q
		WHERE (
			q.accepted_answer_id IS NOT NULL AND NOT EXISTS (
				SELECT 1 FROM answers a
				WHERE a.id = q.accepted_answer_id AND a.question_id = q.id AND a.is_accepted
			)
		) OR EXISTS (
			SELECT 1 FROM answers a
			WHERE a.question_id = q.id AND a.is_accepted
				AND (q.accepted_answer_id IS NULL OR a.id <> q.accepted_answer_id)
		)`)
	if err != nil {
		return nil, fmt.Errorf("failed to find acceptance mismatches: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan acceptance mismatch: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const orphanedNotifications = `NOT EXISTS (SELECT 1 FROM questions q WHERE q.id = n.question_id)`

func (s *Store) CountOrphanedNotifications(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications n WHERE `+orphanedNotifications).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count orphaned notifications: %w", err)
	}
	return count, nil
}

func (s *Store) RepairReputation(ctx context.Context, userID uuid.UUID) (int, error) {
	var repaired int
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT 1 FROM users WHERE id = $1 FOR UPDATE`, userID); err != nil {
			return fmt.Errorf("failed to lock user: %w", err)
		}
		err := tx.QueryRow(ctx, earnedCTE+`
			UPDATE users SET reputation = $2 + COALESCE((SELECT SUM(value) FROM earned WHERE user_id = $1), 0)
			WHERE id = $1
			RETURNING reputation`, userID, domain.InitialReputation).Scan(&repaired)
		return notFound(err, domain.ErrUserNotFound)
	})
	return repaired, err
}

func (s *Store) RepairAnswerCount(ctx context.Context, questionID uuid.UUID) (int, error) {
	var repaired int
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := lockQuestion(ctx, tx, questionID); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			UPDATE questions SET
				answer_count = (SELECT COUNT(*) FROM answers WHERE question_id = $1),
				version = version + 1
			WHERE id = $1
			RETURNING answer_count`, questionID).Scan(&repaired)
	})
	return repaired, err
}

// RepairAcceptance keeps the question's pointer when it names one of its own answers and clears
// every other accepted flag. A pointer to a foreign answer is dropped.
func (s *Store) RepairAcceptance(ctx context.Context, questionID uuid.UUID) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		q, err := lockQuestion(ctx, tx, questionID)
		if err != nil {
			return err
		}

		keep := q.AcceptedAnswerID
		if keep != nil {
			var owner uuid.UUID
			err := tx.QueryRow(ctx, `SELECT question_id FROM answers WHERE id = $1 FOR UPDATE`, *keep).Scan(&owner)
			switch {
			case errors.Is(err, pgx.ErrNoRows):
				keep = nil
			case err != nil:
				return fmt.Errorf("failed to lock accepted answer: %w", err)
			case owner != questionID:
				keep = nil
			}
		}

		// Clear first: at most one accepted answer per question may exist at any point.
		if _, err := tx.Exec(ctx, `
			UPDATE answers SET is_accepted = FALSE, accepted_at = NULL, accepted_by = NULL, version = version + 1
			WHERE question_id = $1 AND is_accepted AND ($2::uuid IS NULL OR id <> $2::uuid)`, questionID, keep); err != nil {
			return fmt.Errorf("failed to clear stray acceptance: %w", err)
		}
		if keep != nil {
			if _, err := tx.Exec(ctx, `UPDATE answers SET is_accepted = TRUE, version = version + 1 WHERE id = $1 AND NOT is_accepted`, *keep); err != nil {
				return fmt.Errorf("failed to restore acceptance: %w", err)
			}
		}

		if _, err := tx.Exec(ctx, `UPDATE questions SET accepted_answer_id = $2, version = version + 1 WHERE id = $1`, questionID, keep); err != nil {
			return fmt.Errorf("failed to repair accepted answer: %w", err)
		}
		return nil
	})
}

func (s *Store) DeleteOrphanedNotifications(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notifications n WHERE `+orphanedNotifications)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
