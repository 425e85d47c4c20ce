// Package filetrace records spans as a tree per trace and writes each trace to
// a JSON file. It is meant for local runs (Ollama, offline demos) where no
// hosted trace viewer is available.
package filetrace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	obs "github.com/KamdynS/agent-contrib/observability"
)

const timestampLayout = "20060102_150405"

// Tracer implements observability.Tracer and observability.TraceEnder.
type Tracer struct {
	dir    string
	log    zerolog.Logger
	now    func() time.Time
	mu     sync.Mutex
	traces map[string]*trace
	order  []string
}

type trace struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	WorkflowName *string `json:"workflow_name"`
	StartTime    string  `json:"start_time"`
	Start        stamp   `json:"start"`
	Children     []*node `json:"children"`
	End          *stamp  `json:"end,omitempty"`
	TotalSpans   int     `json:"total_spans"`

	filename string
	implicit bool
	rootSpan string
}

type stamp struct {
	Name       string         `json:"name,omitempty"`
	At         time.Time      `json:"at"`
	Status     string         `json:"status,omitempty"`
	Message    string         `json:"message,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Events     []obs.Event    `json:"events,omitempty"`
}

type node struct {
	ID       string  `json:"id"`
	ParentID string  `json:"parent_id,omitempty"`
	Start    stamp   `json:"start"`
	End      *stamp  `json:"end,omitempty"`
	Children []*node `json:"children,omitempty"`
}

// Option customizes a Tracer.
type Option func(*Tracer)

// WithLogger sets the logger used to report saved files.
func WithLogger(l zerolog.Logger) Option { return func(t *Tracer) { t.log = l } }

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(t *Tracer) { t.now = now } }

// New creates a tracer writing into dir (default "sandbox").
func New(dir string, opts ...Option) (*Tracer, error) {
	if dir == "" {
		dir = "sandbox"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	t := &Tracer{
		dir:    dir,
		log:    obs.Component("filetrace"),
		now:    time.Now,
		traces: make(map[string]*trace),
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

type spanCtxKey struct{}

// StartSpan implements observability.Tracer.
func (t *Tracer) StartSpan(ctx context.Context, name string) (obs.Span, context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	parent, _ := ctx.Value(spanCtxKey{}).(*span)
	var tr *trace
	switch info, ok := obs.TraceFromContext(ctx); {
	case ok:
		tr = t.traceFor(info.ID, info.WorkflowName, false)
	case parent != nil:
		tr = t.traces[parent.traceID]
	}

	s := &span{tracer: t, id: "span_" + uuid.NewString()[:24], name: name}
	if tr == nil {
		tr = t.traceFor(obs.NewTraceID(), name, true)
		tr.rootSpan = s.id
	}
	s.traceID = tr.ID

	n := &node{ID: s.id, Start: stamp{Name: name, At: t.now()}}
	if parent != nil && parent.traceID == tr.ID {
		n.ParentID = parent.id
		if pn := find(tr.Children, parent.id); pn != nil {
			pn.Children = append(pn.Children, n)
		} else {
			tr.Children = append(tr.Children, n)
		}
	} else {
		tr.Children = append(tr.Children, n)
	}

	ctx = context.WithValue(ctx, spanCtxKey{}, s)
	s.ctx = ctx
	return s, ctx
}

// SpanFromContext implements observability.Tracer.
func (t *Tracer) SpanFromContext(ctx context.Context) obs.Span {
	if s, ok := ctx.Value(spanCtxKey{}).(*span); ok {
		return s
	}
	return &obs.NoOpSpan{}
}

// EndTrace marks the trace in ctx finished and saves it.
func (t *Tracer) EndTrace(ctx context.Context) {
	info, ok := obs.TraceFromContext(ctx)
	if !ok {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if tr, ok := t.traces[info.ID]; ok {
		tr.End = &stamp{Name: tr.Name, At: t.now()}
		t.save(tr)
	}
}

// ForceFlush writes every known trace, finished or not.
func (t *Tracer) ForceFlush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var first error
	for _, id := range t.order {
		if err := t.save(t.traces[id]); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Shutdown flushes all traces. The tracer stays usable afterwards.
func (t *Tracer) Shutdown() error { return t.ForceFlush() }

// traceFor returns the trace with id, creating it when unseen. Caller holds mu.
func (t *Tracer) traceFor(id, name string, implicit bool) *trace {
	if tr, ok := t.traces[id]; ok {
		return tr
	}
	now := t.now()
	ts := now.Format(timestampLayout)
	tr := &trace{
		ID:        id,
		Name:      name,
		StartTime: ts,
		Start:     stamp{Name: name, At: now},
		Children:  []*node{},
		implicit:  implicit,
	}
	fileName := name
	if !implicit && name != "" {
		wf := name
		tr.WorkflowName = &wf
	}
	if fileName == "" {
		fileName = "unknown_trace"
	}
	tr.filename = filepath.Join(t.dir, fmt.Sprintf("%s-%s.json", fileName, ts))
	t.traces[id] = tr
	t.order = append(t.order, id)
	return tr
}

// save writes tr to its file. Caller holds mu.
func (t *Tracer) save(tr *trace) error {
	if tr == nil {
		return nil
	}
	tr.TotalSpans = count(tr.Children)
	data, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tr.filename, data, 0o644); err != nil {
		t.log.Error().Err(err).Str("file", tr.filename).Msg("save trace")
		return err
	}
	t.log.Debug().Str("trace_id", tr.ID).Int("spans", tr.TotalSpans).Str("file", tr.filename).Msg("saved trace")
	return nil
}

// Files returns the paths of every trace file this tracer knows about.
func (t *Tracer) Files() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.traces[id].filename)
	}
	return out
}

func find(nodes []*node, id string) *node {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
		if got := find(n.Children, id); got != nil {
			return got
		}
	}
	return nil
}

func count(nodes []*node) int {
	c := len(nodes)
	for _, n := range nodes {
		c += count(n.Children)
	}
	return c
}

type span struct {
	tracer  *Tracer
	ctx     context.Context
	id      string
	traceID string
	name    string

	mu     sync.Mutex
	status obs.StatusCode
	msg    string
	attrs  map[string]any
	events []obs.Event
	ended  bool
}

func (s *span) SetAttribute(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attrs == nil {
		s.attrs = make(map[string]any)
	}
	s.attrs[key] = value
}

func (s *span) SetStatus(code obs.StatusCode, message string) {
	s.mu.Lock()
	s.status, s.msg = code, message
	s.mu.Unlock()
}

func (s *span) AddEvent(name string, attributes map[string]interface{}) {
	s.mu.Lock()
	s.events = append(s.events, obs.Event{Name: name, Time: s.tracer.now(), Attributes: attributes})
	s.mu.Unlock()
}

func (s *span) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	end := &stamp{
		Name:       s.name,
		Status:     statusName(s.status),
		Message:    s.msg,
		Attributes: s.attrs,
		Events:     s.events,
	}
	s.mu.Unlock()

	t := s.tracer
	t.mu.Lock()
	defer t.mu.Unlock()
	end.At = t.now()
	tr, ok := t.traces[s.traceID]
	if !ok {
		return
	}
	if n := find(tr.Children, s.id); n != nil {
		n.End = end
	}
	if tr.implicit && tr.rootSpan == s.id {
		tr.End = &stamp{Name: tr.Name, At: end.At}
		t.save(tr)
	}
}

func (s *span) Context() context.Context { return s.ctx }

func statusName(c obs.StatusCode) string {
	switch c {
	case obs.StatusCodeOk:
		return "ok"
	case obs.StatusCodeError:
		return "error"
	}
	return ""
}

var (
	_ obs.Tracer     = (*Tracer)(nil)
	_ obs.TraceEnder = (*Tracer)(nil)
	_ obs.Span       = (*span)(nil)
)
