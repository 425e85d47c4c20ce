package guardrail

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	rds "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	sw := NewSlidingWindow(2, time.Hour)
	sw.now = func() time.Time { return now }

	ok, _ := sw.Allow(ctx, "u")
	assert.True(t, ok)
	now = now.Add(10 * time.Minute)
	ok, _ = sw.Allow(ctx, "u")
	assert.True(t, ok)

	ok, msg := sw.Allow(ctx, "u")
	assert.False(t, ok)
	assert.Equal(t, "Rate limit exceeded. Maximum 2 queries per hour.", msg)

	ok, _ = sw.Allow(ctx, "other")
	assert.True(t, ok, "keys are independent")

	now = now.Add(51 * time.Minute)
	ok, _ = sw.Allow(ctx, "u")
	assert.True(t, ok, "first hit left the window")

	err := Check(ctx, sw, "u")
	assert.True(t, errors.Is(err, ErrRateLimited))
}

func TestDeniedMessageNamesWindow(t *testing.T) {
	cases := []struct {
		window time.Duration
		want   string
	}{
		{time.Hour, "Rate limit exceeded. Maximum 1 queries per hour."},
		{time.Minute, "Rate limit exceeded. Maximum 1 queries per minute."},
		{24 * time.Hour, "Rate limit exceeded. Maximum 1 queries per day."},
		{90 * time.Second, "Rate limit exceeded. Maximum 1 queries per 1m30s."},
	}
	for _, tc := range cases {
		sw := NewSlidingWindow(1, tc.window)
		ok, _ := sw.Allow(context.Background(), "k")
		require.True(t, ok)
		ok, msg := sw.Allow(context.Background(), "k")
		assert.False(t, ok)
		assert.Equal(t, tc.want, msg)
	}
}

func TestNewSlidingWindowDefaults(t *testing.T) {
	sw := NewSlidingWindow(0, 0)
	assert.Equal(t, DefaultMaxPerWindow, sw.Max)
	assert.Equal(t, time.Hour, sw.Window)
}

func TestRedisLimiter(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := rds.ParseURL(url)
	require.NoError(t, err)
	client := rds.NewClient(opts)
	defer client.Close()
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	l := NewRedisLimiter(client, 2, time.Minute)
	l.Prefix = "ratelimit-test-" + time.Now().Format("150405.000")
	defer client.Del(ctx, l.Prefix+":k")

	ok, _ := l.Allow(ctx, "k")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "k")
	assert.True(t, ok)
	ok, msg := l.Allow(ctx, "k")
	assert.False(t, ok)
	assert.Contains(t, msg, "Maximum 2 queries")
}
