package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"auth-be/pkg/logger"
)

func newTestRateLimiter(t *testing.T, burst int) *RateLimiter {
	t.Helper()

	rl := NewRateLimiter(RateLimiterConfig{
		Rate:            1,
		Burst:           burst,
		CleanupInterval: time.Minute,
		IdleTimeout:     time.Minute,
	}, logger.NewNop())
	t.Cleanup(rl.Stop)
	return rl
}

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	rl := newTestRateLimiter(t, 3)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiterTracksClientsSeparately(t *testing.T) {
	rl := newTestRateLimiter(t, 1)
	var calls int
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	// Same host, different ephemeral port: same bucket
	req = httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:5678"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Different host: fresh bucket
	req = httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 2, calls)
}

func TestRateLimiterCleanupDropsIdleClients(t *testing.T) {
	rl := newTestRateLimiter(t, 1)

	rl.allow("10.0.0.1")
	rl.mu.Lock()
	rl.limiters["10.0.0.1"].lastAccess = time.Now().Add(-2 * time.Minute)
	rl.mu.Unlock()

	rl.cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.limiters)
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(DefaultLoginRateLimiterConfig(), logger.NewNop())
	rl.Stop()
	rl.Stop()
}
