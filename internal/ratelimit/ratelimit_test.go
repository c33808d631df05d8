package ratelimit

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_SlidingWindow(t *testing.T) {
	config := Config{
		Enabled:   true,
		Algorithm: SlidingWindow,
		Global: LimitConfig{
			Requests: 5,
			Window:   time.Minute,
		},
		BurstMultiplier: 1.0,
		CleanupInterval: time.Minute,
	}

	rl, err := New(config)
	require.NoError(t, err)
	defer rl.Close()

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result, err := rl.Allow(ctx, IPLimiter, "127.0.0.1", config.Global)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, int64(5-i-1), result.Remaining)
		assert.Equal(t, int64(5), result.Limit)
	}

	result, err := rl.Allow(ctx, IPLimiter, "127.0.0.1", config.Global)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, int64(0), result.Remaining)
	assert.True(t, result.RetryAfter > 0)
}

func TestLimiter_TokenBucket(t *testing.T) {
	config := Config{
		Enabled:   true,
		Algorithm: TokenBucket,
		Global: LimitConfig{
			Requests: 10,
			Window:   time.Minute,
		},
		BurstMultiplier: 2.0,
		CleanupInterval: time.Minute,
	}

	rl, err := New(config)
	require.NoError(t, err)
	defer rl.Close()

	ctx := context.Background()

	for i := 0; i < 20; i++ {
		result, err := rl.Allow(ctx, IPLimiter, "127.0.0.2", config.Global)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := rl.Allow(ctx, IPLimiter, "127.0.0.2", config.Global)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.True(t, result.RetryAfter > 0)
}

func TestLimiter_PerKeyIsolation(t *testing.T) {
	config := DefaultConfig()
	config.Global = LimitConfig{Requests: 1, Window: time.Minute}

	rl, err := New(config)
	require.NoError(t, err)
	defer rl.Close()

	ctx := context.Background()

	r1, err := rl.Allow(ctx, KeyLimiter, "key-a", config.Global)
	require.NoError(t, err)
	assert.True(t, r1.Allowed)

	r2, err := rl.Allow(ctx, KeyLimiter, "key-b", config.Global)
	require.NoError(t, err)
	assert.True(t, r2.Allowed, "a different key must not share key-a's bucket")

	r3, err := rl.Allow(ctx, KeyLimiter, "key-a", config.Global)
	require.NoError(t, err)
	assert.False(t, r3.Allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = false
	config.Global = LimitConfig{Requests: 1, Window: time.Minute}

	rl, err := New(config)
	require.NoError(t, err)
	defer rl.Close()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		result, err := rl.Allow(ctx, IPLimiter, "any", config.Global)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}
}

func TestClassFor(t *testing.T) {
	cases := []struct {
		path string
		want RouteClass
	}{
		{"/api/v1/searcher/search", ClassSearch},
		{"/api/v1/directories/add", ClassIndex},
		{"/api/v1/auth/login", ClassGlobal},
		{"/health", ClassGlobal},
	}

	for _, c := range cases {
		r := &http.Request{URL: &url.URL{Path: c.path}}
		if got := ClassFor(r); got != c.want {
			t.Errorf("ClassFor(%s) = %s, want %s", c.path, got, c.want)
		}
	}
}

func TestConfig_LimitFor(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, config.Search, config.LimitFor(ClassSearch))
	assert.Equal(t, config.Index, config.LimitFor(ClassIndex))
	assert.Equal(t, config.Global, config.LimitFor(ClassGlobal))
}
