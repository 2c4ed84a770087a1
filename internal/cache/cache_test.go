package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// ── MemoryCache ──

func TestMemoryCache_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)

	c.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	c.Delete(ctx, "k")
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Set(ctx, "forever", []byte("v"), 0)

	now = now.Add(time.Minute)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestMemoryCache_Add(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	assert.True(t, c.Add(ctx, "ip", []byte("1"), time.Minute))
	assert.False(t, c.Add(ctx, "ip", []byte("1"), time.Minute))

	now = now.Add(61 * time.Second)
	assert.True(t, c.Add(ctx, "ip", []byte("1"), time.Minute))
}

func TestMemoryCache_CopiesValue(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	buf := []byte("abc")
	c.Set(ctx, "k", buf, 0)
	buf[0] = 'x'

	got, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), got)
}

// ── RedisCache ──

func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRedisCache_Unreachable(t *testing.T) {
	rdb := unreachableRedis()
	defer rdb.Close()
	c := NewRedisCache(rdb)
	ctx := context.Background()

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.True(t, c.Add(ctx, "k", []byte("v"), time.Minute), "unreachable redis fails open")

	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Delete(ctx, "k")
}

func TestConnect_BadURL(t *testing.T) {
	_, err := Connect(context.Background(), "://nope")
	assert.Error(t, err)
}
