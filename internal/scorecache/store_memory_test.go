package scorecache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", []byte("v1"), time.Minute, []string{"tag_a"}))

	got, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), got)

	_, ok, err = c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", []byte("v1"), time.Minute, nil))

	now = now.Add(30 * time.Second)
	_, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(31 * time.Second)
	_, ok, err = c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok, "entry must die at TTL")

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Zero(t, stats.Entries)
}

func TestMemoryCacheInvalidateTag(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", []byte("v1"), time.Minute, []string{"time_hour_14", "time_day_10"}))
	require.NoError(t, c.Set(ctx, "k2", []byte("v2"), time.Minute, []string{"time_hour_14"}))
	require.NoError(t, c.Set(ctx, "k3", []byte("v3"), time.Minute, []string{"time_hour_15"}))

	n, err := c.InvalidateTag(ctx, "time_hour_14")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok, _ := c.Get(ctx, "k1")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "k2")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "k3")
	assert.True(t, ok, "entries under other tags survive")
}

func TestMemoryCacheInvalidateSingleKey(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", []byte("v1"), time.Minute, []string{"shared"}))
	require.NoError(t, c.Set(ctx, "k2", []byte("v2"), time.Minute, []string{"shared"}))
	require.NoError(t, c.Invalidate(ctx, "k1"))

	_, ok, _ := c.Get(ctx, "k1")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "k2")
	assert.True(t, ok)
}

func TestMemoryCacheClear(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", []byte("v1"), time.Minute, []string{"tag_a"}))
	require.NoError(t, c.Set(ctx, "k2", []byte("v2"), time.Minute, nil))
	require.NoError(t, c.Clear(ctx))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)

	_, ok, _ := c.Get(ctx, "k1")
	assert.False(t, ok)
}

func TestMemoryCacheOverwriteReplacesTags(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", []byte("v1"), time.Minute, []string{"old_tag"}))
	require.NoError(t, c.Set(ctx, "k1", []byte("v2"), time.Minute, []string{"new_tag"}))

	n, err := c.InvalidateTag(ctx, "old_tag")
	require.NoError(t, err)
	assert.Zero(t, n, "stale tag must not reach the rewritten entry")

	got, ok, _ := c.Get(ctx, "k1")
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), got)
}
