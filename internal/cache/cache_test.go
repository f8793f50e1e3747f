package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryCache(t *testing.T) *Service {
	t.Helper()
	return New("", zerolog.Nop())
}

func TestRoundTrip(t *testing.T) {
	s := newMemoryCache(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", map[string]float64{"score": 61.5}, time.Minute))

	var got map[string]float64
	ok, err := s.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 61.5, got["score"], 1e-9)
}

func TestGet_Miss(t *testing.T) {
	s := newMemoryCache(t)

	var got string
	ok, err := s.Get(context.Background(), "absent", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTTL_Expiry(t *testing.T) {
	s := newMemoryCache(t)
	ctx := context.Background()

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	require.NoError(t, s.Set(ctx, "k", "v", 30*time.Second))

	var got string
	ok, _ := s.Get(ctx, "k", &got)
	require.True(t, ok)
	assert.Equal(t, "v", got)

	// Just before expiry
	clock = clock.Add(29 * time.Second)
	ok, _ = s.Get(ctx, "k", &got)
	assert.True(t, ok)

	// At expiry
	clock = clock.Add(time.Second)
	ok, _ = s.Get(ctx, "k", &got)
	assert.False(t, ok)
	assert.False(t, s.Exists(ctx, "k"))
}

func TestDelete(t *testing.T) {
	s := newMemoryCache(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", 1, time.Minute))
	assert.True(t, s.Delete(ctx, "k"))
	assert.False(t, s.Delete(ctx, "k"))
	assert.False(t, s.Exists(ctx, "k"))
}

func TestDeletePattern(t *testing.T) {
	s := newMemoryCache(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "index:latest", 1, time.Minute))
	require.NoError(t, s.Set(ctx, "index:history", 2, time.Minute))
	require.NoError(t, s.Set(ctx, "media:latest", 3, time.Minute))

	removed := s.DeletePattern(ctx, "index:*")
	assert.Equal(t, 2, removed)

	assert.False(t, s.Exists(ctx, "index:latest"))
	assert.False(t, s.Exists(ctx, "index:history"))
	assert.True(t, s.Exists(ctx, "media:latest"))
}

func TestGetOrSet(t *testing.T) {
	s := newMemoryCache(t)
	ctx := context.Background()

	calls := 0
	compute := func() (interface{}, error) {
		calls++
		return 42, nil
	}

	var got int
	require.NoError(t, s.GetOrSet(ctx, "k", time.Minute, &got, compute))
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls)

	got = 0
	require.NoError(t, s.GetOrSet(ctx, "k", time.Minute, &got, compute))
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls, "compute must not run on cache hit")
}

func TestClear(t *testing.T) {
	s := newMemoryCache(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, s.Set(ctx, "b", 2, time.Minute))

	s.Clear(ctx)

	assert.False(t, s.Exists(ctx, "a"))
	assert.False(t, s.Exists(ctx, "b"))
	assert.Equal(t, 0, s.GetStats(ctx).MemoryKeys)
}

func TestGetStats_MemoryBackend(t *testing.T) {
	s := newMemoryCache(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", 1, time.Minute))

	stats := s.GetStats(ctx)
	assert.Equal(t, "memory", stats.Backend)
	assert.Equal(t, 1, stats.MemoryKeys)
	assert.False(t, stats.RedisConnected)
}

func TestNew_BadRedisURLFallsBack(t *testing.T) {
	s := New("not-a-url", zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))

	var got string
	ok, err := s.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", got)
}
