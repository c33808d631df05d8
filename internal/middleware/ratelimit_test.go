package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dsearch/dsearchd/internal/observability"
	"github.com/dsearch/dsearchd/internal/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMiddleware(t *testing.T, rules ratelimit.Config, skipPaths []string) *RateLimitMiddleware {
	t.Helper()
	rl, err := ratelimit.New(rules)
	require.NoError(t, err)
	t.Cleanup(func() { rl.Close() })

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsCollectorWithRegistry("test", reg)
	config := RateLimitConfig{
		Limiter:          rl,
		Rules:            rules,
		MetricsCollector: metrics,
		SkipPaths:        skipPaths,
	}
	logger := observability.NewLogger(observability.LoggerConfig{Level: "info"})
	return NewRateLimitMiddleware(config, logger)
}

func TestRateLimitMiddleware_Allow(t *testing.T) {
	rules := ratelimit.Config{
		Enabled:         true,
		Algorithm:       ratelimit.SlidingWindow,
		Global:          ratelimit.LimitConfig{Requests: 2, Window: time.Minute},
		BurstMultiplier: 1.0,
		CleanupInterval: time.Minute,
	}
	mw := newTestMiddleware(t, rules, []string{"/skip"})

	handler := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "127.0.0.1:12345"
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
	}

	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limited")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimitMiddleware_SkipPaths(t *testing.T) {
	rules := ratelimit.Config{
		Enabled:         true,
		Algorithm:       ratelimit.SlidingWindow,
		Global:          ratelimit.LimitConfig{Requests: 0, Window: time.Minute},
		BurstMultiplier: 1.0,
		CleanupInterval: time.Minute,
	}
	mw := newTestMiddleware(t, rules, []string{"/health"})

	handler := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))

	req := httptest.NewRequest("GET", "/health", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddleware_SearchClassUsesSearchLimit(t *testing.T) {
	rules := ratelimit.Config{
		Enabled:         true,
		Algorithm:       ratelimit.SlidingWindow,
		Global:          ratelimit.LimitConfig{Requests: 1, Window: time.Minute},
		Search:          ratelimit.LimitConfig{Requests: 2, Window: time.Minute},
		BurstMultiplier: 1.0,
		CleanupInterval: time.Minute,
	}
	mw := newTestMiddleware(t, rules, nil)

	handler := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))

	req := httptest.NewRequest("POST", "/api/v1/searcher/search", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	mw := newTestMiddleware(t, ratelimit.Config{Enabled: false}, nil)

	handler := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "127.0.0.1:12345"
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	}
}
