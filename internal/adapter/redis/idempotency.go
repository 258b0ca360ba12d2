package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

const (
	idempotencyPending   = "pending"
	idempotencyCompleted = "completed"
)

type idempotencyRecord struct {
	State    string                 `json:"state"`
	Response *domain.StoredResponse `json:"response,omitempty"`
}

// IdempotencyStore keeps one record per (scope, key). A pending record is written with SET NX
// so exactly one request owns a key; the owner replaces it with the completed response.
type IdempotencyStore struct {
	rdb goredis.Cmdable
	ttl time.Duration
}

var _ domain.IdempotencyStore = (*IdempotencyStore)(nil)

func NewIdempotencyStore(rdb goredis.Cmdable, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyStore) Begin(ctx context.Context, scope, key string) (*domain.StoredResponse, error) {
	rk := idempotencyKey(scope, key)
	pending, _ := json.Marshal(idempotencyRecord{State: idempotencyPending})

	// A record can expire between the failed SET NX and the GET; one more round settles it.
	for range 2 {
		err := s.rdb.SetArgs(ctx, rk, pending, goredis.SetArgs{Mode: "NX", TTL: s.ttl}).Err()
		if err == nil {
			return nil, nil
		}
		if !errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
		}

		data, err := s.rdb.Get(ctx, rk).Bytes()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read idempotency key: %w", err)
		}

		var rec idempotencyRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode idempotency record: %w", err)
		}
		if rec.State == idempotencyCompleted && rec.Response != nil {
			return rec.Response, nil
		}
		return nil, domain.ErrRequestInFlight
	}
	return nil, domain.ErrRequestInFlight
}

func (s *IdempotencyStore) Complete(ctx context.Context, scope, key string, resp domain.StoredResponse) error {
	data, err := json.Marshal(idempotencyRecord{State: idempotencyCompleted, Response: &resp})
	if err != nil {
		return fmt.Errorf("failed to encode idempotency record: %w", err)
	}
	if err := s.rdb.Set(ctx, idempotencyKey(scope, key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotent response: %w", err)
	}
	return nil
}

// Abandon releases a key whose request produced no replayable response.
func (s *IdempotencyStore) Abandon(ctx context.Context, scope, key string) error {
	if err := s.rdb.Del(ctx, idempotencyKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

func idempotencyKey(scope, key string) string {
	return "idem:" + scope + ":" + key
}
