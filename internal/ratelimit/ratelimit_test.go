package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestNewRedisInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  RedisConfig
	}{
		{name: "nil client", cfg: RedisConfig{Limit: 1, Window: time.Second}},
		{name: "zero limit", cfg: RedisConfig{Client: &redis.Client{}, Window: time.Second}},
		{name: "zero window", cfg: RedisConfig{Client: &redis.Client{}, Limit: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRedis(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestRedisSlidingWindow(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	limiter, err := NewRedis(RedisConfig{Client: client, Limit: 3, Window: time.Minute})
	require.NoError(t, err)

	t0 := time.UnixMilli(1_700_000_000_000)
	limiter.now = func() time.Time { return t0 }

	for i := range 3 {
		info, err := limiter.Allow(ctx, "user:1")
		require.NoError(t, err)
		assert.True(t, info.Allowed, "request %d", i+1)
		assert.Equal(t, 2-i, info.Remaining)
	}

	info, err := limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, t0.Add(time.Minute), info.ResetAt)

	other, err := limiter.Allow(ctx, "user:2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	limiter.now = func() time.Time { return t0.Add(time.Minute + time.Millisecond) }
	info, err = limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
	assert.Equal(t, 2, info.Remaining)
}

func TestRedisWindowSlides(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	limiter, err := NewRedis(RedisConfig{Client: client, Limit: 2, Window: 10 * time.Second})
	require.NoError(t, err)

	t0 := time.UnixMilli(1_700_000_000_000)
	at := func(d time.Duration) { limiter.now = func() time.Time { return t0.Add(d) } }

	at(0)
	_, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	at(6 * time.Second)
	_, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)

	at(8 * time.Second)
	info, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, info.Allowed)

	// the first request has left the window, the second has not
	at(11 * time.Second)
	info, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, t0.Add(16*time.Second), info.ResetAt)
}

func TestRedisUnavailable(t *testing.T) {
	client, mr := setupTestRedis(t)
	limiter, err := NewRedis(RedisConfig{Client: client, Limit: 1, Window: time.Second})
	require.NoError(t, err)

	mr.Close()
	_, err = limiter.Allow(context.Background(), "k")
	assert.Error(t, err)
}

func TestMemoryFixedWindow(t *testing.T) {
	limiter, err := NewMemory(2, time.Minute)
	require.NoError(t, err)

	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return t0 }
	ctx := context.Background()

	for range 2 {
		info, err := limiter.Allow(ctx, "ip:1")
		require.NoError(t, err)
		assert.True(t, info.Allowed)
	}

	info, err := limiter.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.Equal(t, t0.Add(time.Minute), info.ResetAt)

	limiter.now = func() time.Time { return t0.Add(time.Minute) }
	info, err = limiter.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
	assert.Equal(t, 1, info.Remaining)
}

func TestMemorySweepsExpiredKeys(t *testing.T) {
	limiter, err := NewMemory(1, time.Second)
	require.NoError(t, err)

	t0 := time.Now()
	limiter.now = func() time.Time { return t0 }
	for _, key := range []string{"a", "b", "c"} {
		_, err := limiter.Allow(context.Background(), key)
		require.NoError(t, err)
	}

	limiter.now = func() time.Time { return t0.Add(2 * time.Second) }
	_, err = limiter.Allow(context.Background(), "d")
	require.NoError(t, err)
	assert.Len(t, limiter.counters, 1)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (*RateLimitInfo, error) {
	return nil, errors.New("redis down")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestMiddlewareDeniesOverLimit(t *testing.T) {
	limiter, err := NewMemory(1, time.Minute)
	require.NoError(t, err)

	h := Middleware(limiter, func(*http.Request) string { return "ip:test" }, zap.NewNop())(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())
}

func TestMiddlewareFailsOpen(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	h := Middleware(failingLimiter{}, func(*http.Request) string { return "k" }, zap.New(core))(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, 1, logs.FilterMessage("rate limiter unavailable, allowing request").Len())
}

func TestMiddlewareSkipsEmptyKey(t *testing.T) {
	h := Middleware(failingLimiter{}, func(*http.Request) string { return "" }, zap.NewNop())(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
