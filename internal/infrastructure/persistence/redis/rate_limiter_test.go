package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*RateLimiter, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(NewClientFromRedis(rdb))
	l.now = func() time.Time { return now }
	return l, &now
}

func TestRateLimiter_Allow(t *testing.T) {
	l, now := newTestLimiter(t)
	ctx := context.Background()
	key := BuildRateLimitKey("sess-1", "/v1/pipeline/run")

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, key, 3, time.Second)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}

	ok, err := l.Allow(ctx, key, 3, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	remaining, err := l.Remaining(ctx, key, 3, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	*now = now.Add(1500 * time.Millisecond)
	ok, err = l.Allow(ctx, key, 3, time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "window slid past earlier requests")

	remaining, err = l.Remaining(ctx, key, 3, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	ok, err := l.Allow(ctx, BuildRateLimitKey("a", "x"), 1, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(ctx, BuildRateLimitKey("b", "x"), 1, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(ctx, BuildRateLimitKey("a", "x"), 1, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRateLimiter_Reset(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()
	key := BuildRateLimitKey("sess-2", "/v1/notes/transform")

	ok, err := l.Allow(ctx, key, 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.Reset(ctx, key))

	ok, err = l.Allow(ctx, key, 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_HealthCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewClientFromRedis(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })

	assert.NoError(t, c.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, c.HealthCheck(context.Background()))
}
