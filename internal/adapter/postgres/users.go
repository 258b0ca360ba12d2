package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

const userColumns = `id, external_id, display_name, email, avatar_url, push_token, reputation, is_active, joined_at, last_seen_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.ExternalID, &u.DisplayName, &u.Email, &u.AvatarURL, &u.PushToken,
		&u.Reputation, &u.IsActive, &u.JoinedAt, &u.LastSeenAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", notFound(err, domain.ErrUserNotFound))
	}
	return u, nil
}

func (s *Store) GetUserByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = $1`, externalID))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by external ID: %w", notFound(err, domain.ErrUserNotFound))
	}
	return u, nil
}

// UpsertUser keeps the stored push token when the identity carries none.
func (s *Store) UpsertUser(ctx context.Context, identity domain.Identity, at time.Time) (*domain.User, error) {
	const q = `
		INSERT INTO users (id, external_id, display_name, email, avatar_url, push_token, reputation, is_active, joined_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $8)
		ON CONFLICT (external_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			email        = EXCLUDED.email,
			avatar_url   = EXCLUDED.avatar_url,
			push_token   = COALESCE(NULLIF(EXCLUDED.push_token, ''), users.push_token),
			last_seen_at = EXCLUDED.last_seen_at
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, q, uuid.New(), identity.ExternalID, identity.DisplayName,
		identity.Email, identity.AvatarURL, identity.PushToken, domain.InitialReputation, at))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return u, nil
}

func (s *Store) TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET last_seen_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to update last seen: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) SetPushToken(ctx context.Context, id uuid.UUID, token string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET push_token = $2 WHERE id = $1`, id, token)
	if err != nil {
		return fmt.Errorf("failed to set push token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// adjustReputations applies per-user deltas in id order so concurrent transactions
// take user row locks in the same sequence.
func adjustReputations(ctx context.Context, tx pgx.Tx, deltas map[uuid.UUID]int) error {
	ids := make([]uuid.UUID, 0, len(deltas))
	for id, d := range deltas {
		if d != 0 {
			ids = append(ids, id)
		}
	}
	sortUUIDs(ids)

	for _, id := range ids {
		if _, err := tx.Exec(ctx, `UPDATE users SET reputation = reputation + $2 WHERE id = $1`, id, deltas[id]); err != nil {
			return fmt.Errorf("failed to adjust reputation: %w", err)
		}
	}
	return nil
}
