package http

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// UserAgent is sent by every tool that talks to the web.
const UserAgent = "agent-contrib/1.0"

// LimitedTransport applies a token bucket per host. A zero Limit disables it.
type LimitedTransport struct {
	Base  http.RoundTripper
	Limit rate.Limit
	Burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func (t *LimitedTransport) limiter(host string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limiters == nil {
		t.limiters = make(map[string]*rate.Limiter)
	}
	l, ok := t.limiters[host]
	if !ok {
		burst := t.Burst
		if burst <= 0 {
			burst = 1
		}
		l = rate.NewLimiter(t.Limit, burst)
		t.limiters[host] = l
	}
	return l
}

// RoundTrip waits for the host's limiter before delegating.
func (t *LimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Limit > 0 {
		if err := t.limiter(req.URL.Host).Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// NewClient returns an http.Client limited to rps requests per second per host.
func NewClient(timeout time.Duration, rps float64) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &LimitedTransport{Limit: rate.Limit(rps), Burst: 1},
	}
}
