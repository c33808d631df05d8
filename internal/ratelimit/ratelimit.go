// Package ratelimit provides per-client rate limiting with a Redis backend
// and an in-memory fallback. Supports sliding window and token bucket
// algorithms with limits configurable per route class.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Algorithm selects the rate limiting algorithm.
type Algorithm string

const (
	SlidingWindow Algorithm = "sliding_window"
	TokenBucket   Algorithm = "token_bucket"
)

// LimiterType distinguishes IP-based from API-key-based limiting.
type LimiterType string

const (
	IPLimiter  LimiterType = "ip"
	KeyLimiter LimiterType = "key"
)

// RouteClass groups routes that share a rate limit bucket.
type RouteClass string

const (
	ClassGlobal RouteClass = "global"
	ClassSearch RouteClass = "search"
	ClassIndex  RouteClass = "index"
)

// Config holds rate limiting configuration.
type Config struct {
	Enabled   bool        `json:"enabled" yaml:"enabled"`
	Algorithm Algorithm   `json:"algorithm" yaml:"algorithm"`
	Redis     RedisConfig `json:"redis" yaml:"redis"`

	// Global applies to all routes not covered by a more specific class.
	Global LimitConfig `json:"global" yaml:"global"`
	// Search applies to the searcher.search route.
	Search LimitConfig `json:"search" yaml:"search"`
	// Index applies to every route under /api/v1/directories/.
	Index LimitConfig `json:"index" yaml:"index"`

	BurstMultiplier float64       `json:"burst_multiplier" yaml:"burst_multiplier"`
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// LimitConfig is the limit for one route class: Requests per Window.
type LimitConfig struct {
	Requests int           `json:"requests" yaml:"requests"`
	Window   time.Duration `json:"window" yaml:"window"`
}

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed      bool          `json:"allowed"`
	Remaining    int64         `json:"remaining"`
	RetryAfter   time.Duration `json:"retry_after"`
	ResetTime    time.Time     `json:"reset_time"`
	CurrentCount int64         `json:"current_count"`
	Limit        int64         `json:"limit"`
}

// Limiter enforces rate limits, backed by Redis with an in-memory fallback.
type Limiter struct {
	config   Config
	redis    *redis.Client
	inMemory *inMemoryLimiter
}

// New creates a Limiter. If config.Redis.Enabled, it dials Redis and fails
// fast if unreachable; otherwise it falls back to the in-memory limiter.
func New(config Config) (*Limiter, error) {
	rl := &Limiter{
		config:   config,
		inMemory: newInMemoryLimiter(config.CleanupInterval),
	}

	if config.Redis.Enabled {
		rl.redis = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := rl.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ratelimit: connect to redis: %w", err)
		}
	}

	return rl, nil
}

// Allow checks whether a request from identifier against limiterType should
// be permitted under limitConfig.
func (rl *Limiter) Allow(ctx context.Context, limiterType LimiterType, identifier string, limitConfig LimitConfig) (*Result, error) {
	if !rl.config.Enabled {
		return &Result{Allowed: true}, nil
	}

	key := rl.buildKey(limiterType, identifier)

	switch rl.config.Algorithm {
	case TokenBucket:
		return rl.allowTokenBucket(ctx, key, limitConfig)
	default:
		return rl.allowSlidingWindow(ctx, key, limitConfig)
	}
}

func (rl *Limiter) allowSlidingWindow(ctx context.Context, key string, limitConfig LimitConfig) (*Result, error) {
	now := time.Now().UnixMilli()
	windowStart := now - limitConfig.Window.Milliseconds()

	if rl.redis != nil {
		return rl.allowSlidingWindowRedis(ctx, key, limitConfig, now, windowStart)
	}
	return rl.inMemory.AllowSlidingWindow(key, limitConfig, now, windowStart)
}

func (rl *Limiter) allowSlidingWindowRedis(ctx context.Context, key string, limitConfig LimitConfig, now, windowStart int64) (*Result, error) {
	if err := rl.redis.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now}).Err(); err != nil {
		return nil, fmt.Errorf("ratelimit: add request: %w", err)
	}
	if err := rl.redis.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%d", windowStart)).Err(); err != nil {
		return nil, fmt.Errorf("ratelimit: trim window: %w", err)
	}
	count, err := rl.redis.ZCard(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("ratelimit: count requests: %w", err)
	}
	if err := rl.redis.Expire(ctx, key, limitConfig.Window*2).Err(); err != nil {
		return nil, fmt.Errorf("ratelimit: set expiry: %w", err)
	}

	allowed := count <= int64(limitConfig.Requests)
	var retryAfter time.Duration
	if !allowed {
		oldest, err := rl.redis.ZRangeWithScores(ctx, key, 0, 0).Result()
		if err == nil && len(oldest) > 0 {
			oldestTime := int64(oldest[0].Score)
			retryAfter = time.Duration(windowStart-oldestTime) * time.Millisecond
			if retryAfter < 0 {
				retryAfter = limitConfig.Window
			}
		} else {
			retryAfter = limitConfig.Window
		}
	}

	return &Result{
		Allowed:      allowed,
		Remaining:    maxInt64(0, int64(limitConfig.Requests)-count),
		RetryAfter:   retryAfter,
		ResetTime:    time.UnixMilli(now + limitConfig.Window.Milliseconds()),
		CurrentCount: count,
		Limit:        int64(limitConfig.Requests),
	}, nil
}

func (rl *Limiter) allowTokenBucket(ctx context.Context, key string, limitConfig LimitConfig) (*Result, error) {
	now := time.Now()
	rate := float64(limitConfig.Requests) / limitConfig.Window.Seconds()
	burst := int(float64(limitConfig.Requests) * rl.config.BurstMultiplier)

	if rl.redis != nil {
		return rl.allowTokenBucketRedis(ctx, key, rate, burst, now)
	}
	return rl.inMemory.AllowTokenBucket(key, rate, burst, now)
}

func (rl *Limiter) allowTokenBucketRedis(ctx context.Context, key string, rate float64, burst int, now time.Time) (*Result, error) {
	script := `
		local key = KEYS[1]
		local rate = tonumber(ARGV[1])
		local burst = tonumber(ARGV[2])
		local now = tonumber(ARGV[3])

		local data = redis.call('HMGET', key, 'tokens', 'last_update')
		local tokens = tonumber(data[1]) or burst
		local last_update = tonumber(data[2]) or now

		local elapsed = now - last_update
		local new_tokens = math.min(burst, tokens + elapsed * rate)

		local allowed = new_tokens >= 1

		if allowed then
			new_tokens = new_tokens - 1
		end

		redis.call('HMSET', key, 'tokens', new_tokens, 'last_update', now)
		redis.call('EXPIRE', key, math.ceil(burst / rate * 2))

		return {allowed and 1 or 0, new_tokens, math.ceil((1 - new_tokens) / rate)}
	`

	result, err := rl.redis.Eval(ctx, script, []string{key}, rate, burst, now.Unix()).Result()
	if err != nil {
		return nil, fmt.Errorf("ratelimit: token bucket script: %w", err)
	}

	results := result.([]interface{})
	allowed := results[0].(int64) == 1
	remaining := results[1].(int64)
	retryAfterSeconds := results[2].(int64)

	return &Result{
		Allowed:      allowed,
		Remaining:    remaining,
		RetryAfter:   time.Duration(retryAfterSeconds) * time.Second,
		ResetTime:    now.Add(time.Duration(float64(burst)/rate) * time.Second),
		CurrentCount: int64(burst) - remaining,
		Limit:        int64(burst),
	}, nil
}

func (rl *Limiter) buildKey(limiterType LimiterType, identifier string) string {
	prefix := "dsearchd_ratelimit"
	if rl.config.Redis.KeyPrefix != "" {
		prefix = rl.config.Redis.KeyPrefix
	}
	sanitized := strings.ReplaceAll(identifier, ":", "_")
	sanitized = strings.ReplaceAll(sanitized, " ", "_")
	return fmt.Sprintf("%s:%s:%s", prefix, limiterType, sanitized)
}

// ClassFor maps a request's path to the route class whose limit applies.
func ClassFor(r *http.Request) RouteClass {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/searcher/"):
		return ClassSearch
	case strings.HasPrefix(path, "/api/v1/directories/"):
		return ClassIndex
	default:
		return ClassGlobal
	}
}

// LimitFor returns the configured LimitConfig for a route class.
func (c Config) LimitFor(class RouteClass) LimitConfig {
	switch class {
	case ClassSearch:
		return c.Search
	case ClassIndex:
		return c.Index
	default:
		return c.Global
	}
}

// Close releases the Redis client, if any.
func (rl *Limiter) Close() error {
	if rl.redis != nil {
		return rl.redis.Close()
	}
	return nil
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// DefaultConfig returns the spec's default rate limiting configuration:
// 100/min global, 50/min search, 10/min index, sliding window.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Algorithm: SlidingWindow,
		Redis: RedisConfig{
			Enabled:   false,
			Addr:      "localhost:6379",
			KeyPrefix: "dsearchd_ratelimit",
		},
		Global: LimitConfig{Requests: 100, Window: time.Minute},
		Search: LimitConfig{Requests: 50, Window: time.Minute},
		Index:  LimitConfig{Requests: 10, Window: time.Minute},

		BurstMultiplier: 1.2,
		CleanupInterval: time.Minute * 5,
	}
}
