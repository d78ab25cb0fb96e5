package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterBurstAndRefill(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, _, err := rl.Allow(context.Background(), "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, wait, _ := rl.Allow(context.Background(), "1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	ok, _, _ = rl.Allow(context.Background(), "5.6.7.8")
	assert.True(t, ok, "buckets are per key")

	now = now.Add(time.Second)
	ok, _, _ = rl.Allow(context.Background(), "1.2.3.4")
	assert.True(t, ok)
}

func TestRateLimiterSweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }
	_, _, _ = rl.Allow(context.Background(), "a")

	now = now.Add(time.Hour)
	rl.Sweep(10 * time.Minute)
	assert.Empty(t, rl.buckets)
}

func TestRedisLimiterSharedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2026, 1, 1, 0, 0, 10, 0, time.UTC)
	a := NewRedisLimiter(client, 2, time.Minute)
	b := NewRedisLimiter(client, 2, time.Minute)
	a.now = func() time.Time { return now }
	b.now = a.now

	ok, _, err := a.Allow(context.Background(), "ip")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _, _ = b.Allow(context.Background(), "ip")
	assert.True(t, ok)

	ok, retry, err := a.Allow(context.Background(), "ip")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 50*time.Second, retry)

	now = now.Add(time.Minute)
	ok, _, _ = b.Allow(context.Background(), "ip")
	assert.True(t, ok, "new window resets the count")
}

func TestRedisLimiterFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	ok, _, err := NewRedisLimiter(client, 1, time.Minute).Allow(context.Background(), "ip")
	assert.Error(t, err)
	assert.True(t, ok)
}

func TestRateLimitMiddleware(t *testing.T) {
	mw := RateLimit(NewRateLimiter(0, 1), nil)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/vets", nil)
	req.RemoteAddr = "198.51.100.7:4000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}
