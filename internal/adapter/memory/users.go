package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByExternalID(_ context.Context, externalID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByExtID[externalID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(s.users[id]), nil
}

func (s *Store) UpsertUser(_ context.Context, identity domain.Identity, at time.Time) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.usersByExtID[identity.ExternalID]; ok {
		u := s.users[id]
		u.DisplayName = identity.DisplayName
		u.Email = identity.Email
		u.AvatarURL = identity.AvatarURL
		if identity.PushToken != "" {
			u.PushToken = identity.PushToken
		}
		u.LastSeenAt = at
		return cloneUser(u), nil
	}

	u := &domain.User{
		ID:          uuid.New(),
		ExternalID:  identity.ExternalID,
		DisplayName: identity.DisplayName,
		Email:       identity.Email,
		AvatarURL:   identity.AvatarURL,
		PushToken:   identity.PushToken,
		Reputation:  domain.InitialReputation,
		IsActive:    true,
		JoinedAt:    at,
		LastSeenAt:  at,
	}
	s.users[u.ID] = u
	s.usersByExtID[u.ExternalID] = u.ID
	return cloneUser(u), nil
}

func (s *Store) TouchLastSeen(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LastSeenAt = at
	return nil
}

func (s *Store) SetPushToken(_ context.Context, id uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PushToken = token
	return nil
}
