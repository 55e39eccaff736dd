package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledCacheAlwaysMisses(t *testing.T) {
	c := New(Options{})
	ctx := context.Background()

	assert.False(t, c.Enabled())
	require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))

	var out map[string]int
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrCacheMiss)
	assert.NoError(t, c.Delete(ctx, "k"))
	assert.NoError(t, c.Ping(ctx))
	assert.NoError(t, c.Close())

	_, _, err := c.Incr(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrDisabled)

	v, err := c.Version(ctx, "v")
	require.NoError(t, err)
	assert.Zero(t, v)
	assert.NoError(t, c.Bump(ctx, "v"))
}

func TestNilCacheIsDisabled(t *testing.T) {
	var c *Cache
	assert.False(t, c.Enabled())
	var out string
	assert.ErrorIs(t, c.Get(context.Background(), "k", &out), ErrCacheMiss)
}

func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c := New(Options{Addr: addr, Prefix: "hrreview-test:"})
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Ping(ctx))

	type payload struct {
		Total int `json:"total"`
	}
	require.NoError(t, c.Set(ctx, "summary", payload{Total: 5}, time.Minute))

	var got payload
	require.NoError(t, c.Get(ctx, "summary", &got))
	assert.Equal(t, 5, got.Total)

	require.NoError(t, c.Delete(ctx, "summary"))
	assert.ErrorIs(t, c.Get(ctx, "summary", &got), ErrCacheMiss)
}

func TestRedisIncrWindow(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c := New(Options{Addr: addr, Prefix: "hrreview-test:"})
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Delete(ctx, "hits"))

	count, ttl, err := c.Incr(ctx, "hits", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Greater(t, ttl, 50*time.Second)

	count, _, err = c.Incr(ctx, "hits", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRedisVersionBump(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c := New(Options{Addr: addr, Prefix: "hrreview-test:"})
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Delete(ctx, "gen"))

	v, err := c.Version(ctx, "gen")
	require.NoError(t, err)
	assert.Zero(t, v)

	require.NoError(t, c.Bump(ctx, "gen"))
	require.NoError(t, c.Bump(ctx, "gen"))
	v, err = c.Version(ctx, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}
