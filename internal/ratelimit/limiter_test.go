package ratelimit

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channels-core/internal/common/errors"
	"channels-core/internal/common/logging"
	"channels-core/internal/redis"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

type failingCounter struct{}

func (failingCounter) CheckRateLimit(context.Context, string, int, time.Duration) (bool, int, error) {
	return false, 0, stderrors.New("redis down")
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	_, err := NewLocalLimiter(Config{RequestsPerSecond: 0, BurstSize: 1})
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))

	_, err = NewLocalLimiter(Config{RequestsPerSecond: 1, BurstSize: 0})
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestLocalLimiter_Burst(t *testing.T) {
	limiter, err := NewLocalLimiter(Config{RequestsPerSecond: 0.001, BurstSize: 2})
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := limiter.Allow(ctx, "a")
	assert.False(t, ok)

	ok, _ = limiter.Allow(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, 2, limiter.Keys())
}

func TestLocalLimiter_EvictsIdleKeys(t *testing.T) {
	limiter, err := NewLocalLimiter(Config{RequestsPerSecond: 1, BurstSize: 1, MaxKeys: 2, CleanupPeriod: time.Hour})
	require.NoError(t, err)

	limiter.Allow(context.Background(), "a")
	limiter.limiters["a"].lastUsed = time.Now().Add(-2 * time.Hour)
	limiter.Allow(context.Background(), "b")
	limiter.Allow(context.Background(), "c")

	assert.Equal(t, 2, limiter.Keys())
	_, kept := limiter.limiters["a"]
	assert.False(t, kept)
}

func TestRedisLimiter(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := redis.NewClient(&redis.Config{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	limiter := NewRedisLimiter(client, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = NewRedisLimiter(failingCounter{}, 1, time.Minute).Allow(ctx, "k")
	assert.True(t, errors.IsType(err, errors.ErrTypeInternal))
}

func TestMiddleware(t *testing.T) {
	limiter, err := NewLocalLimiter(Config{RequestsPerSecond: 0.001, BurstSize: 1})
	require.NoError(t, err)
	handler := Middleware(limiter, IPBasedKey, logging.NewNopLogger())(okHandler())

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/pusher/auth", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000").Code)

	limited := send("10.0.0.1:2000")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000").Code)
}

func TestMiddleware_FailsOpen(t *testing.T) {
	handler := Middleware(NewRedisLimiter(failingCounter{}, 1, time.Minute), IPBasedKey, logging.NewNopLogger())(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/pusher/auth", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	empty := Middleware(NewRedisLimiter(failingCounter{}, 1, time.Minute), func(*http.Request) string { return "" }, nil)(okHandler())
	rr = httptest.NewRecorder()
	empty.ServeHTTP(rr, httptest.NewRequest("POST", "/pusher/auth", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestIPBasedKey(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.168.1.1:12345", "ip:192.168.1.1"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1"}, "10.0.0.1:1", "ip:203.0.113.1"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.1:1", "ip:198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, IPBasedKey(req))
		})
	}
}
