package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

func (s *Store) CreateNotification(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications[n.ID] = cloneNotification(n)
	return nil
}

func (s *Store) ListNotifications(_ context.Context, userID uuid.UUID, offset, limit int) ([]*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var inbox []*domain.Notification
	for _, n := range s.notifications {
		if n.ToUserID == userID {
			inbox = append(inbox, n)
		}
	}
	slices.SortFunc(inbox, func(a, b *domain.Notification) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(b.ID[:], a.ID[:])
	})

	return pageOf(inbox, offset, limit, cloneNotification), nil
}

func (s *Store) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications {
		if n.ToUserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, userID, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.ToUserID != userID {
		return domain.ErrNotificationNotFound
	}
	if !n.IsRead {
		readAt := at
		n.IsRead = true
		n.ReadAt = &readAt
	}
	return nil
}

func (s *Store) MarkAllNotificationsRead(_ context.Context, userID uuid.UUID, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	marked := 0
	for _, n := range s.notifications {
		if n.ToUserID == userID && !n.IsRead {
			readAt := at
			n.IsRead = true
			n.ReadAt = &readAt
			marked++
		}
	}
	return marked, nil
}

func (s *Store) DeleteNotification(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.ToUserID != userID {
		return domain.ErrNotificationNotFound
	}
	delete(s.notifications, id)
	return nil
}

func (s *Store) DeleteAllNotifications(_ context.Context, userID uuid.UUID) (int, error) {
	return s.deleteNotificationsWhere(func(n *domain.Notification) bool { return n.ToUserID == userID }), nil
}

func (s *Store) DeleteNotificationsForQuestion(_ context.Context, questionID uuid.UUID) (int, error) {
	return s.deleteNotificationsWhere(func(n *domain.Notification) bool { return n.QuestionID == questionID }), nil
}

func (s *Store) deleteNotificationsWhere(match func(n *domain.Notification) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, n := range s.notifications {
		if match(n) {
			delete(s.notifications, id)
			deleted++
		}
	}
	return deleted
}
