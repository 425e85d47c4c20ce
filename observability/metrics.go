package observability

import (
	"sync"
	"time"
)

// Metrics defines the interface for collecting agent metrics
type Metrics interface {
	IncrementRequests(labels map[string]string)
	RecordLatency(duration time.Duration, labels map[string]string)
	IncrementTokensUsed(tokens int, labels map[string]string)
	RecordError(errorType string, labels map[string]string)
	SetActiveAgents(count int)
}

// NoOpMetrics is a no-operation implementation of Metrics
type NoOpMetrics struct{}

func (n *NoOpMetrics) IncrementRequests(labels map[string]string)                     {}
func (n *NoOpMetrics) RecordLatency(duration time.Duration, labels map[string]string) {}
func (n *NoOpMetrics) IncrementTokensUsed(tokens int, labels map[string]string)       {}
func (n *NoOpMetrics) RecordError(errorType string, labels map[string]string)         {}
func (n *NoOpMetrics) SetActiveAgents(count int)                                      {}

// DefaultMetrics is a simple in-memory metrics collector. It is safe for
// concurrent use since research fan-out records from many goroutines.
type DefaultMetrics struct {
	mu           sync.Mutex
	requests     int64
	totalLatency time.Duration
	tokensUsed   int64
	errors       map[string]int64
	activeAgents int
}

// NewDefaultMetrics creates a new DefaultMetrics instance
func NewDefaultMetrics() *DefaultMetrics {
	return &DefaultMetrics{errors: make(map[string]int64)}
}

func (m *DefaultMetrics) IncrementRequests(labels map[string]string) {
	m.mu.Lock()
	m.requests++
	m.mu.Unlock()
}

func (m *DefaultMetrics) RecordLatency(duration time.Duration, labels map[string]string) {
	m.mu.Lock()
	m.totalLatency += duration
	m.mu.Unlock()
}

func (m *DefaultMetrics) IncrementTokensUsed(tokens int, labels map[string]string) {
	m.mu.Lock()
	m.tokensUsed += int64(tokens)
	m.mu.Unlock()
}

func (m *DefaultMetrics) RecordError(errorType string, labels map[string]string) {
	m.mu.Lock()
	m.errors[errorType]++
	m.mu.Unlock()
}

func (m *DefaultMetrics) SetActiveAgents(count int) {
	m.mu.Lock()
	m.activeAgents = count
	m.mu.Unlock()
}

// GetStats returns current statistics
func (m *DefaultMetrics) GetStats() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	errs := make(map[string]int64, len(m.errors))
	for k, v := range m.errors {
		errs[k] = v
	}
	return map[string]interface{}{
		"requests":      m.requests,
		"total_latency": m.totalLatency.String(),
		"tokens_used":   m.tokensUsed,
		"errors":        errs,
		"active_agents": m.activeAgents,
	}
}

var (
	_ Metrics = (*NoOpMetrics)(nil)
	_ Metrics = (*DefaultMetrics)(nil)
)
