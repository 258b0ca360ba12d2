package app

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
	ProfilePageSize = 10
)

// Notifier persists notifications and fans them out to the push transport.
// Push is fire-and-forget: the durable row is the delivery guarantee.
type Notifier struct {
	store       domain.NotificationRepository
	push        domain.PushDispatcher
	unread      domain.UnreadCountCache
	clock       clockwork.Clock
	pushTimeout time.Duration
	metrics     Metrics
	pushWg      sync.WaitGroup
}

type NotifierOption func(*Notifier)

// WithPush enables push delivery. Without it notifications are only stored.
func WithPush(p domain.PushDispatcher, timeout time.Duration) NotifierOption {
	return func(n *Notifier) {
		n.push = p
		n.pushTimeout = timeout
	}
}

func WithUnreadCache(c domain.UnreadCountCache) NotifierOption {
	return func(n *Notifier) { n.unread = c }
}

func WithNotifierMetrics(m Metrics) NotifierOption {
	return func(n *Notifier) { n.metrics = orNoop(m) }
}

func NewNotifier(store domain.NotificationRepository, clock clockwork.Clock, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		store:       store,
		clock:       clock,
		pushTimeout: 5 * time.Second,
		metrics:     noopMetrics{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Notifier) newNotification(kind domain.NotificationKind, to, from, questionID uuid.UUID, answerID *uuid.UUID, content string) *domain.Notification {
	return &domain.Notification{
		ID:         uuid.New(),
		Kind:       kind,
		ToUserID:   to,
		FromUserID: from,
		QuestionID: questionID,
		AnswerID:   answerID,
		Content:    content,
		CreatedAt:  n.clock.Now(),
	}
}

// Notify stores a notification for toUserID and schedules a push. The record is durable when
// Notify returns; the push outcome is never reported to the caller.
func (n *Notifier) Notify(ctx context.Context, kind domain.NotificationKind, toUserID, fromUserID, questionID uuid.UUID, answerID *uuid.UUID, content string) (*domain.Notification, error) {
	if !kind.Valid() {
		return nil, domain.ErrInvalidNotificationKind
	}

	note := n.newNotification(kind, toUserID, fromUserID, questionID, answerID, content)
	if err := n.store.CreateNotification(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to store %s notification: %w", kind, err)
	}

	n.published(ctx, note)
	return note, nil
}

// RecordAnswerCreated notifies the question owner about a new answer. It is a no-op when the
// owner answered their own question.
func (n *Notifier) RecordAnswerCreated(ctx context.Context, questionID, answerID, answerOwnerID, questionOwnerID uuid.UUID, questionTitle string) (*domain.Notification, error) {
	note := n.answerNotification(questionID, answerID, answerOwnerID, questionOwnerID, questionTitle)
	if note == nil {
		return nil, nil
	}
	if err := n.store.CreateNotification(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to store %s notification: %w", note.Kind, err)
	}
	n.published(ctx, note)
	return note, nil
}

// answerNotice builds the answer notification from the locked question, so the store can
// persist it in the same unit as the answer.
func (n *Notifier) answerNotice(answerID, answerOwnerID uuid.UUID) domain.AnswerNotice {
	return func(q *domain.Question) *domain.Notification {
		return n.answerNotification(q.ID, answerID, answerOwnerID, q.OwnerID, q.Title)
	}
}

func (n *Notifier) answerNotification(questionID, answerID, answerOwnerID, questionOwnerID uuid.UUID, questionTitle string) *domain.Notification {
	if answerOwnerID == questionOwnerID {
		return nil
	}
	answerRef := answerID
	return n.newNotification(domain.NotificationAnswer, questionOwnerID, answerOwnerID, questionID, &answerRef,
		fmt.Sprintf("Someone answered your question %q", questionTitle))
}

// published runs the post-commit side effects for a stored notification.
func (n *Notifier) published(ctx context.Context, note *domain.Notification) {
	n.metrics.NotificationCreated(note.Kind)
	n.invalidateUnread(ctx, note.ToUserID)

	if n.push == nil {
		return
	}

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.pushTimeout)
	n.pushWg.Go(func() {
		defer cancel()
		if err := n.push.DispatchPush(pushCtx, note); err != nil {
			n.metrics.PushFailed()
			slog.WarnContext(pushCtx, "Push delivery failed",
				"notification_id", note.ID,
				"to_user_id", note.ToUserID,
				"kind", note.Kind,
				"error", err)
		}
	})
}

// Wait blocks until in-flight pushes have finished. Called on shutdown.
func (n *Notifier) Wait() {
	n.pushWg.Wait()
}

func (n *Notifier) invalidateUnread(ctx context.Context, userID uuid.UUID) {
	if n.unread == nil {
		return
	}
	if err := n.unread.Invalidate(ctx, userID); err != nil {
		slog.WarnContext(ctx, "Failed to invalidate unread count", "user_id", userID, "error", err)
	}
}

// ListNotifications returns one page of the user's inbox, newest first. Zero page or limit
// fall back to the defaults.
func (n *Notifier) ListNotifications(ctx context.Context, userID uuid.UUID, page, limit int) ([]*domain.Notification, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultPageSize
	}
	offset, err := pageOffset(page, limit, MaxPageSize)
	if err != nil {
		return nil, err
	}
	return n.store.ListNotifications(ctx, userID, offset, limit)
}

// pageOffset validates a 1-based page and its limit and returns the row offset. The end of
// the page must stay within int32.
func pageOffset(page, limit, maxLimit int) (int, error) {
	if page < 1 || limit < 1 || limit > maxLimit {
		return 0, domain.ErrInvalidPagination
	}
	if page-1 > (math.MaxInt32-limit)/limit {
		return 0, domain.ErrInvalidPagination
	}
	return (page - 1) * limit, nil
}

func (n *Notifier) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	load := func(ctx context.Context) (int, error) {
		return n.store.CountUnread(ctx, userID)
	}
	if n.unread == nil {
		return load(ctx)
	}
	count, err := n.unread.UnreadCount(ctx, userID, load)
	if err != nil {
		slog.WarnContext(ctx, "Unread count cache failed, reading store", "user_id", userID, "error", err)
		return load(ctx)
	}
	return count, nil
}

func (n *Notifier) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if err := n.store.MarkNotificationRead(ctx, userID, notificationID, n.clock.Now()); err != nil {
		return err
	}
	n.invalidateUnread(ctx, userID)
	return nil
}

func (n *Notifier) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	marked, err := n.store.MarkAllNotificationsRead(ctx, userID, n.clock.Now())
	if err != nil {
		return 0, err
	}
	n.invalidateUnread(ctx, userID)
	return marked, nil
}

func (n *Notifier) DeleteNotification(ctx context.Context, userID, notificationID uuid.UUID) error {
	if err := n.store.DeleteNotification(ctx, userID, notificationID); err != nil {
		return err
	}
	n.invalidateUnread(ctx, userID)
	return nil
}

func (n *Notifier) DeleteAllNotifications(ctx context.Context, userID uuid.UUID) (int, error) {
	deleted, err := n.store.DeleteAllNotifications(ctx, userID)
	if err != nil {
		return 0, err
	}
	n.invalidateUnread(ctx, userID)
	return deleted, nil
}
