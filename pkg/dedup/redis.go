// Package dedup is a short-lived replay filter in front of the database
// receipt ledger. It is advisory: a miss or an outage only costs a trip to
// the database, which stays authoritative.
package dedup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 10 * time.Minute

type Cache interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// Key identifies one delivery, e.g. billing:event:RENEWAL_NOTIFICATION:234801...:TX-9.
func Key(eventType, phone, ref string) string {
	return strings.Join([]string{"billing", "event", eventType, phone, ref}, ":")
}

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Seen(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	return n > 0, nil
}

func (c *RedisCache) Mark(ctx context.Context, key string) error {
	if err := c.rdb.Set(ctx, key, time.Now().Unix(), c.ttl).Err(); err != nil {
		return fmt.Errorf("dedup mark: %w", err)
	}
	return nil
}

// Disabled never reports a replay.
type Disabled struct{}

func (Disabled) Seen(context.Context, string) (bool, error) { return false, nil }

func (Disabled) Mark(context.Context, string) error { return nil }
