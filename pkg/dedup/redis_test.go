package dedup

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "billing:event:SYNC_NOTIFICATION:2348012345678:TX-1",
		Key("SYNC_NOTIFICATION", "2348012345678", "TX-1"))
}

func TestDisabled(t *testing.T) {
	var c Cache = Disabled{}
	require.NoError(t, c.Mark(context.Background(), "k"))
	seen, err := c.Seen(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	ctx := context.Background()
	c := NewRedisCache(rdb, time.Minute)
	key := Key("SYNC_NOTIFICATION", "2348012345678", uuid.NewString())
	defer rdb.Del(ctx, key)

	seen, err := c.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, c.Mark(ctx, key))
	seen, err = c.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)

	ttl, err := rdb.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)
}
