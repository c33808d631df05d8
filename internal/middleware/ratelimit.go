package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dsearch/dsearchd/internal/apierr"
	"github.com/dsearch/dsearchd/internal/observability"
	"github.com/dsearch/dsearchd/internal/ratelimit"
)

// RateLimitConfig holds configuration for the rate limiting middleware.
type RateLimitConfig struct {
	Limiter          *ratelimit.Limiter
	Rules            ratelimit.Config
	MetricsCollector *observability.MetricsCollector

	SkipPaths      []string
	TrustedProxies []string
}

// RateLimitMiddleware provides HTTP middleware for per-client, per-route-class
// rate limiting. When an authenticated API key is present (set by
// AuthMiddleware earlier in the chain) the key id is the rate limit
// identifier; otherwise the middleware falls back to the client IP.
type RateLimitMiddleware struct {
	config RateLimitConfig
	logger *observability.Logger
}

// NewRateLimitMiddleware creates a new rate limiting middleware.
func NewRateLimitMiddleware(config RateLimitConfig, logger *observability.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{config: config, logger: logger}
}

// Middleware returns an HTTP middleware function that enforces rate limits.
func (rlm *RateLimitMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if rlm.shouldSkipPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		limiterType, identifier := rlm.getLimiterInfo(r)
		class := ratelimit.ClassFor(r)
		limitConfig := rlm.config.Rules.LimitFor(class)

		result, err := rlm.config.Limiter.Allow(r.Context(), limiterType, identifier, limitConfig)
		if err != nil {
			rlm.logger.Error("rate limit check failed",
				"error", err,
				"limiter_type", limiterType,
				"path", r.URL.Path,
				"method", r.Method,
			)
			// Fail open: a broken rate limiter backend should not take the
			// whole API down.
			next.ServeHTTP(w, r)
			return
		}

		duration := time.Since(start)
		rlm.recordMetrics(r, result, duration, limiterType)
		rlm.setRateLimitHeaders(w, result)

		if !result.Allowed {
			rlm.logger.Info("rate limit exceeded",
				"limiter_type", limiterType,
				"class", class,
				"path", r.URL.Path,
				"method", r.Method,
				"current_count", result.CurrentCount,
				"limit", result.Limit,
				"retry_after", result.RetryAfter,
			)
			WriteError(w, apierr.RateLimited(int(result.RetryAfter.Seconds())))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rlm *RateLimitMiddleware) shouldSkipPath(path string) bool {
	for _, skipPath := range rlm.config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	return false
}

// getLimiterInfo determines the limiter identity: the authenticated API
// key's id when present, otherwise the client IP (considering trusted
// proxies for X-Forwarded-For).
func (rlm *RateLimitMiddleware) getLimiterInfo(r *http.Request) (ratelimit.LimiterType, string) {
	if key, ok := KeyFromContext(r.Context()); ok {
		return ratelimit.KeyLimiter, key.ID
	}
	return ratelimit.IPLimiter, rlm.getClientIP(r)
}

func (rlm *RateLimitMiddleware) getClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		clientIP := strings.TrimSpace(ips[0])
		if net.ParseIP(clientIP) != nil && rlm.isTrustedProxy(r.RemoteAddr) {
			return clientIP
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (rlm *RateLimitMiddleware) isTrustedProxy(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	for _, trustedCIDR := range rlm.config.TrustedProxies {
		_, network, err := net.ParseCIDR(trustedCIDR)
		if err != nil {
			continue
		}
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func (rlm *RateLimitMiddleware) setRateLimitHeaders(w http.ResponseWriter, result *ratelimit.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))
}

func (rlm *RateLimitMiddleware) recordMetrics(r *http.Request, result *ratelimit.Result, duration time.Duration, limiterType ratelimit.LimiterType) {
	if rlm.config.MetricsCollector == nil {
		return
	}

	resultStr := "allowed"
	if !result.Allowed {
		resultStr = "hit"
	}
	rlm.config.MetricsCollector.RecordRateLimit(string(limiterType), resultStr, duration)
	rlm.config.MetricsCollector.UpdateRateLimitRemaining(string(limiterType), string(ratelimit.ClassFor(r)), result.Remaining)
}
