package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

var ErrLeaseLost = errors.New("leader lease lost")

// renewScript extends the TTL only while the caller still holds the lease.
// ARGV: [1]=holder, [2]=ttl_ms
var renewScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// releaseScript deletes the lease only if the caller holds it.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LeaderLease is a SET NX lease with TTL. holder should be unique per instance
// (e.g., hostname-PID).
type LeaderLease struct {
	rdb    goredis.Cmdable
	key    string
	holder string
	ttl    time.Duration
}

var _ domain.LeaderLease = (*LeaderLease)(nil)

func NewLeaderLease(rdb goredis.Cmdable, key, holder string, ttl time.Duration) *LeaderLease {
	return &LeaderLease{rdb: rdb, key: key, holder: holder, ttl: ttl}
}

// TryAcquire reports whether this instance now holds the lease.
func (l *LeaderLease) TryAcquire(ctx context.Context) (bool, error) {
	err := l.rdb.SetArgs(ctx, l.key, l.holder, goredis.SetArgs{Mode: "NX", TTL: l.ttl}).Err()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to acquire leader lease: %w", err)
	}
	return true, nil
}

// Renew returns ErrLeaseLost when another instance holds the lease or it expired.
func (l *LeaderLease) Renew(ctx context.Context) error {
	ok, err := renewScript.Run(ctx, l.rdb, []string{l.key}, l.holder, l.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to renew leader lease: %w", err)
	}
	if ok == 0 {
		return ErrLeaseLost
	}
	return nil
}

func (l *LeaderLease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.holder).Err(); err != nil {
		return fmt.Errorf("failed to release leader lease: %w", err)
	}
	return nil
}
