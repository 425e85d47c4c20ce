package llm

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Retrier handles retry logic for LLM operations
type Retrier struct {
	config RetryConfig
	mu     sync.Mutex
	rand   *rand.Rand
}

// NewRetrier creates a new retrier with the given configuration
func NewRetrier(config RetryConfig) *Retrier {
	return &Retrier{
		config: config,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RetryOperation represents an operation that can be retried
type RetryOperation[T any] func(ctx context.Context, attempt int) (T, error)

// Execute runs operation until it succeeds, returns a non-retryable error, or the
// configured attempts are exhausted.
func Execute[T any](r *Retrier, ctx context.Context, operation RetryOperation[T]) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := operation(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !r.shouldRetry(err, attempt) {
			if attempt >= r.config.MaxRetries && attempt > 0 {
				return zero, fmt.Errorf("operation failed after %d attempts: %w", attempt+1, err)
			}
			return zero, err
		}

		timer := time.NewTimer(r.calculateDelay(attempt, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, fmt.Errorf("operation failed after %d attempts: %w", r.config.MaxRetries+1, lastErr)
}

func (r *Retrier) shouldRetry(err error, attempt int) bool {
	if attempt >= r.config.MaxRetries {
		return false
	}
	if e, ok := AsLLMError(err); ok {
		return e.Retryable || retryableType(e.Type)
	}
	msg := strings.ToLower(err.Error())
	for _, s := range r.config.RetryableErrors {
		if strings.Contains(msg, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// calculateDelay is exponential backoff with +-25% jitter, clamped to
// [InitialDelay, MaxDelay]. A provider supplied Retry-After wins.
func (r *Retrier) calculateDelay(attempt int, err error) time.Duration {
	if e, ok := AsLLMError(err); ok && e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter) * time.Second
	}

	delay := float64(r.config.InitialDelay) * math.Pow(r.config.BackoffFactor, float64(attempt))
	r.mu.Lock()
	delay += 0.25 * delay * (r.rand.Float64()*2 - 1)
	r.mu.Unlock()

	if r.config.MaxDelay > 0 && delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}
	if delay < float64(r.config.InitialDelay) {
		delay = float64(r.config.InitialDelay)
	}
	return time.Duration(delay)
}

// RetryingClient decorates a Client so that Chat and Completion are retried on
// transient provider failures. Stream is passed through untouched.
type RetryingClient struct {
	Client
	retrier *Retrier
}

// WithRetry wraps c with the given retry policy.
func WithRetry(c Client, cfg RetryConfig) *RetryingClient {
	return &RetryingClient{Client: c, retrier: NewRetrier(cfg)}
}

func (c *RetryingClient) Chat(ctx context.Context, req *ChatRequest) (*Response, error) {
	return Execute(c.retrier, ctx, func(ctx context.Context, _ int) (*Response, error) {
		return c.Client.Chat(ctx, req)
	})
}

func (c *RetryingClient) Completion(ctx context.Context, prompt string) (*Response, error) {
	return Execute(c.retrier, ctx, func(ctx context.Context, _ int) (*Response, error) {
		return c.Client.Completion(ctx, prompt)
	})
}
