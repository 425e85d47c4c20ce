package guardrail

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	rds "github.com/redis/go-redis/v9"
)

// Defaults of the research rate limit.
const (
	DefaultMaxPerWindow = 10
	DefaultWindow       = time.Hour
)

// ErrRateLimited is wrapped by Check when a key is over its limit.
var ErrRateLimited = errors.New("rate limited")

// Limiter admits or denies one request for key. A denial carries a user
// facing message.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, string)
}

// Check turns a denial into an error wrapping ErrRateLimited.
func Check(ctx context.Context, l Limiter, key string) error {
	if ok, msg := l.Allow(ctx, key); !ok {
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	}
	return nil
}

func deniedMessage(max int, window time.Duration) string {
	return fmt.Sprintf("Rate limit exceeded. Maximum %d queries per %s.", max, windowName(window))
}

func windowName(w time.Duration) string {
	switch w {
	case time.Second:
		return "second"
	case time.Minute:
		return "minute"
	case time.Hour:
		return "hour"
	case 24 * time.Hour:
		return "day"
	}
	return w.String()
}

// SlidingWindow keeps request timestamps per key in memory.
type SlidingWindow struct {
	Max    int
	Window time.Duration

	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

// NewSlidingWindow applies the defaults to non-positive arguments.
func NewSlidingWindow(max int, window time.Duration) *SlidingWindow {
	if max <= 0 {
		max = DefaultMaxPerWindow
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &SlidingWindow{Max: max, Window: window, hits: make(map[string][]time.Time), now: time.Now}
}

func (s *SlidingWindow) Allow(ctx context.Context, key string) (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	kept := s.hits[key][:0]
	for _, ts := range s.hits[key] {
		if now.Sub(ts) < s.Window {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= s.Max {
		s.hits[key] = kept
		return false, deniedMessage(s.Max, s.Window)
	}
	s.hits[key] = append(kept, now)
	return true, ""
}

// slidingScript trims, counts and records atomically.
// KEYS[1] set, ARGV: now(ms), window(ms), max, member.
var slidingScript = rds.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1] - ARGV[2])
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[3]) then
  return 0
end
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// RedisLimiter shares a sliding window between processes with one sorted
// set per key. Redis errors fail open.
type RedisLimiter struct {
	Client rds.UniversalClient
	Prefix string
	Max    int
	Window time.Duration
}

// NewRedisLimiter applies the defaults to non-positive arguments.
func NewRedisLimiter(client rds.UniversalClient, max int, window time.Duration) *RedisLimiter {
	if max <= 0 {
		max = DefaultMaxPerWindow
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisLimiter{Client: client, Prefix: "ratelimit", Max: max, Window: window}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, string) {
	now := time.Now().UnixMilli()
	res, err := slidingScript.Run(ctx, r.Client, []string{r.Prefix + ":" + key},
		strconv.FormatInt(now, 10), strconv.FormatInt(r.Window.Milliseconds(), 10), r.Max, uuid.NewString()).Int()
	if err != nil {
		return true, ""
	}
	if res == 0 {
		return false, deniedMessage(r.Max, r.Window)
	}
	return true, ""
}

var (
	_ Limiter = (*SlidingWindow)(nil)
	_ Limiter = (*RedisLimiter)(nil)
)
