package observability

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tracer defines the interface for distributed tracing
type Tracer interface {
	// StartSpan creates a new span with the given name
	StartSpan(ctx context.Context, name string) (Span, context.Context)

	// SpanFromContext extracts the span from context
	SpanFromContext(ctx context.Context) Span
}

// Span represents a tracing span
type Span interface {
	SetAttribute(key string, value interface{})
	SetStatus(code StatusCode, message string)
	AddEvent(name string, attributes map[string]interface{})
	End()
	Context() context.Context
}

// StatusCode represents span status codes
type StatusCode int

const (
	StatusCodeUnset StatusCode = iota
	StatusCodeOk
	StatusCodeError
)

// Common attribute keys (align loosely with OTel HTTP and GenAI conventions)
const (
	AttrHTTPMethod   = "http.method"
	AttrHTTPRoute    = "http.route"
	AttrHTTPStatus   = "http.status_code"
	AttrRequestID    = "request.id"
	AttrProvider     = "genai.provider"
	AttrModel        = "genai.model"
	AttrFinishReason = "genai.finish_reason"
	AttrToolName     = "genai.tool.name"
	AttrAgentName    = "genai.agent.name"
	AttrTokensInput  = "genai.tokens.input"
	AttrTokensOutput = "genai.tokens.output"
	AttrSessionID    = "session.id"
	AttrGraphNode    = "graph.node"
)

// Global, swappable implementations (no-ops by default)
var (
	TracerImpl  Tracer  = &NoOpTracer{}
	MetricsImpl Metrics = &NoOpMetrics{}
)

// SetTracer swaps the global tracer implementation
func SetTracer(t Tracer) { TracerImpl = t }

// SetMetrics swaps the global metrics implementation
func SetMetrics(m Metrics) { MetricsImpl = m }

// NoOpTracer is a no-operation implementation of Tracer
type NoOpTracer struct{}

func (t *NoOpTracer) StartSpan(ctx context.Context, name string) (Span, context.Context) {
	return &NoOpSpan{ctx: ctx}, ctx
}

func (t *NoOpTracer) SpanFromContext(ctx context.Context) Span { return &NoOpSpan{ctx: ctx} }

// NoOpSpan is a no-operation implementation of Span
type NoOpSpan struct{ ctx context.Context }

func (s *NoOpSpan) SetAttribute(key string, value interface{})              {}
func (s *NoOpSpan) SetStatus(code StatusCode, message string)               {}
func (s *NoOpSpan) AddEvent(name string, attributes map[string]interface{}) {}
func (s *NoOpSpan) End()                                                    {}
func (s *NoOpSpan) Context() context.Context {
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// ----- trace identity -----

type traceKey struct{}

// TraceInfo names the logical workflow a span belongs to. Exporters that group
// spans per trace (filetrace) read it from the context.
type TraceInfo struct {
	ID           string
	WorkflowName string
}

// NewTraceID returns a fresh trace identifier in the "trace_<hex>" form used in
// trace viewer links.
func NewTraceID() string {
	return "trace_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// WithTrace starts a logical trace. Spans started below ctx are grouped under it.
func WithTrace(ctx context.Context, workflowName string) (context.Context, TraceInfo) {
	info := TraceInfo{ID: NewTraceID(), WorkflowName: workflowName}
	return context.WithValue(ctx, traceKey{}, info), info
}

// TraceFromContext returns the current trace, if any.
func TraceFromContext(ctx context.Context) (TraceInfo, bool) {
	info, ok := ctx.Value(traceKey{}).(TraceInfo)
	return info, ok
}

// ----- default in-memory tracer -----

type spanKey struct{}

// DefaultTracer is a simple in-memory tracer for development
type DefaultTracer struct {
	mu    sync.Mutex
	spans []SpanData
}

// SpanData holds information about a completed span
type SpanData struct {
	Name       string                 `json:"name"`
	TraceID    string                 `json:"trace_id,omitempty"`
	Parent     string                 `json:"parent,omitempty"`
	StartTime  time.Time              `json:"start_time"`
	EndTime    time.Time              `json:"end_time"`
	Duration   time.Duration          `json:"duration"`
	Status     StatusCode             `json:"status"`
	Message    string                 `json:"message"`
	Attributes map[string]interface{} `json:"attributes"`
	Events     []Event                `json:"events"`
}

// Event represents a span event
type Event struct {
	Name       string                 `json:"name"`
	Time       time.Time              `json:"time"`
	Attributes map[string]interface{} `json:"attributes"`
}

// NewDefaultTracer creates a new DefaultTracer instance
func NewDefaultTracer() *DefaultTracer { return &DefaultTracer{} }

func (t *DefaultTracer) StartSpan(ctx context.Context, name string) (Span, context.Context) {
	span := &DefaultSpan{
		tracer:     t,
		name:       name,
		startTime:  time.Now(),
		attributes: make(map[string]interface{}),
	}
	if info, ok := TraceFromContext(ctx); ok {
		span.traceID = info.ID
	}
	if parent, ok := ctx.Value(spanKey{}).(*DefaultSpan); ok {
		span.parent = parent.name
	}
	ctx = context.WithValue(ctx, spanKey{}, span)
	span.ctx = ctx
	return span, ctx
}

func (t *DefaultTracer) SpanFromContext(ctx context.Context) Span {
	if span, ok := ctx.Value(spanKey{}).(*DefaultSpan); ok {
		return span
	}
	return &NoOpSpan{ctx: ctx}
}

// GetSpans returns a copy of all recorded spans
func (t *DefaultTracer) GetSpans() []SpanData {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SpanData(nil), t.spans...)
}

// DefaultSpan is a simple in-memory span implementation
type DefaultSpan struct {
	tracer     *DefaultTracer
	ctx        context.Context
	name       string
	traceID    string
	parent     string
	startTime  time.Time
	mu         sync.Mutex
	status     StatusCode
	message    string
	attributes map[string]interface{}
	events     []Event
	ended      bool
}

func (s *DefaultSpan) SetAttribute(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.attributes[key] = value
	}
}

func (s *DefaultSpan) SetStatus(code StatusCode, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.status, s.message = code, message
	}
}

func (s *DefaultSpan) AddEvent(name string, attributes map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.events = append(s.events, Event{Name: name, Time: time.Now(), Attributes: attributes})
	}
}

func (s *DefaultSpan) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	end := time.Now()
	data := SpanData{
		Name:       s.name,
		TraceID:    s.traceID,
		Parent:     s.parent,
		StartTime:  s.startTime,
		EndTime:    end,
		Duration:   end.Sub(s.startTime),
		Status:     s.status,
		Message:    s.message,
		Attributes: s.attributes,
		Events:     s.events,
	}
	s.mu.Unlock()

	s.tracer.mu.Lock()
	s.tracer.spans = append(s.tracer.spans, data)
	s.tracer.mu.Unlock()
}

func (s *DefaultSpan) Context() context.Context { return s.ctx }

var (
	_ Tracer = (*NoOpTracer)(nil)
	_ Tracer = (*DefaultTracer)(nil)
	_ Span   = (*NoOpSpan)(nil)
	_ Span   = (*DefaultSpan)(nil)
)

// ----- Simple HTTP context propagation helpers -----

const headerRequestID = "X-Request-ID"

type requestIDKey struct{}

// GenerateRequestID returns a random request identifier
func GenerateRequestID() string { return uuid.NewString() }

// WithRequestID stores a request id in the context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext retrieves a request id from context
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// ExtractHTTPContext extracts basic propagation headers into context
func ExtractHTTPContext(ctx context.Context, r *http.Request) context.Context {
	id := r.Header.Get(headerRequestID)
	if id == "" {
		id = GenerateRequestID()
	}
	return WithRequestID(ctx, id)
}

// InjectHTTPHeaders writes propagation headers to the response
func InjectHTTPHeaders(w http.ResponseWriter, ctx context.Context) {
	if id, ok := RequestIDFromContext(ctx); ok {
		w.Header().Set(headerRequestID, id)
	}
}

// TraceEnder is implemented by tracers that group spans per trace and need to
// know when a logical trace is finished.
type TraceEnder interface {
	EndTrace(ctx context.Context)
}

// EndTrace signals the global tracer that the trace carried by ctx is complete.
func EndTrace(ctx context.Context) {
	if te, ok := TracerImpl.(TraceEnder); ok {
		te.EndTrace(ctx)
	}
}
