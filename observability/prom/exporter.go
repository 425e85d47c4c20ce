// Package prom exposes runtime metrics in the Prometheus text format.
package prom

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/KamdynS/agent-contrib/observability"
)

// Exporter implements observability.Metrics and serves a /metrics page. Series
// are keyed by their rendered label set.
type Exporter struct {
	mu       sync.Mutex
	requests map[string]float64
	latency  map[string]float64
	count    map[string]float64
	tokens   map[string]float64
	errors   map[string]float64
	active   float64
}

// New creates a new in-process exporter.
func New() *Exporter {
	return &Exporter{
		requests: make(map[string]float64),
		latency:  make(map[string]float64),
		count:    make(map[string]float64),
		tokens:   make(map[string]float64),
		errors:   make(map[string]float64),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler(e *Exporter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		e.mu.Lock()
		defer e.mu.Unlock()
		var b strings.Builder
		write(&b, "agentcontrib_requests_total", "counter", e.requests)
		write(&b, "agentcontrib_latency_seconds_sum", "counter", e.latency)
		write(&b, "agentcontrib_latency_seconds_count", "counter", e.count)
		write(&b, "agentcontrib_tokens_total", "counter", e.tokens)
		write(&b, "agentcontrib_errors_total", "counter", e.errors)
		fmt.Fprintf(&b, "# TYPE agentcontrib_active_agents gauge\nagentcontrib_active_agents %s\n", formatFloat(e.active))
		_, _ = w.Write([]byte(b.String()))
	})
}

func write(b *strings.Builder, name, kind string, series map[string]float64) {
	if len(series) == 0 {
		return
	}
	fmt.Fprintf(b, "# TYPE %s %s\n", name, kind)
	keys := make([]string, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s%s %s\n", name, k, formatFloat(series[k]))
	}
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func (e *Exporter) IncrementRequests(labels map[string]string) {
	e.mu.Lock()
	e.requests[labelSet(labels)]++
	e.mu.Unlock()
}

func (e *Exporter) RecordLatency(d time.Duration, labels map[string]string) {
	k := labelSet(labels)
	e.mu.Lock()
	e.latency[k] += d.Seconds()
	e.count[k]++
	e.mu.Unlock()
}

func (e *Exporter) IncrementTokensUsed(tokens int, labels map[string]string) {
	e.mu.Lock()
	e.tokens[labelSet(labels)] += float64(tokens)
	e.mu.Unlock()
}

func (e *Exporter) RecordError(errorType string, labels map[string]string) {
	merged := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		merged[k] = v
	}
	merged["type"] = errorType
	e.mu.Lock()
	e.errors[labelSet(merged)]++
	e.mu.Unlock()
}

func (e *Exporter) SetActiveAgents(count int) {
	e.mu.Lock()
	e.active = float64(count)
	e.mu.Unlock()
}

// labelSet renders labels as {a="x",b="y"} with sorted keys.
func labelSet(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strconv.Quote(labels[k]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

var _ observability.Metrics = (*Exporter)(nil)
