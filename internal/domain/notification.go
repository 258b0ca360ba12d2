package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationAnswer  NotificationKind = "answer"
	NotificationAccept  NotificationKind = "accept"
	NotificationMention NotificationKind = "mention"
	NotificationComment NotificationKind = "comment"
	NotificationVote    NotificationKind = "vote"
	NotificationBounty  NotificationKind = "bounty"
)

func (k NotificationKind) Valid() bool {
	switch k {
	case NotificationAnswer, NotificationAccept, NotificationMention,
		NotificationComment, NotificationVote, NotificationBounty:
		return true
	}
	return false
}

type Notification struct {
	ID         uuid.UUID
	Kind       NotificationKind
	ToUserID   uuid.UUID
	FromUserID uuid.UUID
	QuestionID uuid.UUID
	AnswerID   *uuid.UUID
	Content    string
	IsRead     bool
	ReadAt     *time.Time
	CreatedAt  time.Time
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *Notification) error
	// ListNotifications returns the recipient's notifications, newest first.
	ListNotifications(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkNotificationRead(ctx context.Context, userID, id uuid.UUID, at time.Time) error
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID, at time.Time) (int, error)
	DeleteNotification(ctx context.Context, userID, id uuid.UUID) error
	DeleteAllNotifications(ctx context.Context, userID uuid.UUID) (int, error)
	DeleteNotificationsForQuestion(ctx context.Context, questionID uuid.UUID) (int, error)
}

// PushDispatcher hands a persisted notification to an external delivery transport.
// Implementations must not assume the caller waits for delivery.
type PushDispatcher interface {
	DispatchPush(ctx context.Context, n *Notification) error
}

// UnreadCountCache fronts CountUnread. load is called on a miss.
type UnreadCountCache interface {
	UnreadCount(ctx context.Context, userID uuid.UUID, load func(ctx context.Context) (int, error)) (int, error)
	Invalidate(ctx context.Context, userID uuid.UUID) error
}
