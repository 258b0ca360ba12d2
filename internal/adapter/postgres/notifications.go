package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

const notificationColumns = `id, kind, to_user_id, from_user_id, question_id, answer_id, content, is_read, read_at, created_at`

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	var kind string
	err := row.Scan(&n.ID, &kind, &n.ToUserID, &n.FromUserID, &n.QuestionID, &n.AnswerID, &n.Content,
		&n.IsRead, &n.ReadAt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	n.Kind = domain.NotificationKind(kind)
	return &n, nil
}

func insertNotification(ctx context.Context, q querier, n *domain.Notification) error {
	_, err := q.Exec(ctx, `
		INSERT INTO notifications (id, kind, to_user_id, from_user_id, question_id, answer_id, content, is_read, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		n.ID, string(n.Kind), n.ToUserID, n.FromUserID, n.QuestionID, n.AnswerID, n.Content, n.IsRead, n.ReadAt, n.CreatedAt)
	if isPgCode(err, codeForeignKeyViolation) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	return insertNotification(ctx, s.pool, n)
}

func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*domain.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE to_user_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3`, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Notification, 0, limit)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notifications: %w", err)
	}
	return out, nil
}

func (s *Store) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE to_user_id = $1 AND NOT is_read`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkNotificationRead keeps the first read timestamp when called again.
func (s *Store) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND to_user_id = $2`, id, userID, at)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID, at time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE, read_at = $2 WHERE to_user_id = $1 AND NOT is_read`, userID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) DeleteNotification(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND to_user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (s *Store) DeleteAllNotifications(ctx context.Context, userID uuid.UUID) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE to_user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) DeleteNotificationsForQuestion(ctx context.Context, questionID uuid.UUID) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE question_id = $1`, questionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete question notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
