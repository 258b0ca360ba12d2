package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/NirdeshGothania/stackit/internal/adapter/metrics"
	"github.com/NirdeshGothania/stackit/internal/domain"
)

// UnreadCountCache is a read-through cache of inbox unread counts. Concurrent misses for one
// user share a single load.
type UnreadCountCache struct {
	rdb     goredis.Cmdable
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.CacheMetrics
}

var _ domain.UnreadCountCache = (*UnreadCountCache)(nil)

// NewUnreadCountCache creates the cache. m may be nil.
func NewUnreadCountCache(rdb goredis.Cmdable, ttl time.Duration, m *metrics.CacheMetrics) *UnreadCountCache {
	return &UnreadCountCache{rdb: rdb, ttl: ttl, metrics: m}
}

func (c *UnreadCountCache) UnreadCount(ctx context.Context, userID uuid.UUID, load func(ctx context.Context) (int, error)) (int, error) {
	key := unreadKey(userID)

	cached, err := c.rdb.Get(ctx, key).Int()
	switch {
	case err == nil:
		c.hit()
		return cached, nil
	case !errors.Is(err, goredis.Nil):
		return 0, fmt.Errorf("failed to read unread count: %w", err)
	}
	c.miss()

	v, err, _ := c.group.Do(key, func() (any, error) {
		count, err := load(ctx)
		if err != nil {
			return 0, err
		}
		if err := c.rdb.Set(ctx, key, strconv.Itoa(count), c.ttl).Err(); err != nil {
			slog.Warn("Failed to populate unread count cache", "user_id", userID, "error", err)
		}
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (c *UnreadCountCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if err := c.rdb.Del(ctx, unreadKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate unread count: %w", err)
	}
	if c.metrics != nil {
		c.metrics.Invalidations.Inc()
	}
	return nil
}

func (c *UnreadCountCache) hit() {
	if c.metrics != nil {
		c.metrics.Hits.Inc()
	}
}

func (c *UnreadCountCache) miss() {
	if c.metrics != nil {
		c.metrics.Misses.Inc()
	}
}

func unreadKey(userID uuid.UUID) string {
	return "unread:" + userID.String()
}
