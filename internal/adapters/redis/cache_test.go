package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisad "rms_sync/internal/adapters/redis"
)

func newCache(t *testing.T) *redisad.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0, 0)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCacheRoundTrip(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "hotel:HX", int64(42), 60))

	var id int64
	ok, err := c.Get(ctx, "hotel:HX", &id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
}

func TestCacheMiss(t *testing.T) {
	c := newCache(t)

	var id int64
	ok, err := c.Get(context.Background(), "hotel:absent", &id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheStringSlice(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	labels := []string{"Hotel Y", "Hotel Z"}
	require.NoError(t, c.Set(ctx, "competitors:9:ota_insight", labels, 0))

	var got []string
	ok, err := c.Get(ctx, "competitors:9:ota_insight", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, labels, got)
}

func TestCacheTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0, time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "hotel:HX", int64(42), 0))
	mr.FastForward(2 * time.Minute)

	var id int64
	ok, err := c.Get(ctx, "hotel:HX", &id)
	require.NoError(t, err)
	assert.False(t, ok, "the default TTL applies when no explicit ttl is given")
}

func TestCacheDel(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	require.NoError(t, c.Del(ctx, "k"))

	var s string
	ok, err := c.Get(ctx, "k", &s)
	require.NoError(t, err)
	assert.False(t, ok)
}
