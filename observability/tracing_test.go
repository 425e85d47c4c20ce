package observability

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDefaultTracerAndHTTPHelpers(t *testing.T) {
	tr := NewDefaultTracer()

	ctx, info := WithTrace(context.Background(), "Research trace")
	if !strings.HasPrefix(info.ID, "trace_") || len(info.ID) != len("trace_")+32 {
		t.Fatalf("unexpected trace id %q", info.ID)
	}

	parent, ctx := tr.StartSpan(ctx, "agent.run")
	child, _ := tr.StartSpan(ctx, "tool.execute")
	child.SetAttribute(AttrToolName, "search")
	child.AddEvent("evt", map[string]interface{}{"k": "v"})
	child.SetStatus(StatusCodeOk, "")
	child.End()
	parent.End()
	parent.End()

	spans := tr.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Parent != "agent.run" || spans[0].TraceID != info.ID {
		t.Fatalf("child span not linked: %+v", spans[0])
	}
	if tr.SpanFromContext(ctx) != parent {
		t.Fatalf("span not found in context")
	}

	id := GenerateRequestID()
	ctx = WithRequestID(ctx, id)
	if have, ok := RequestIDFromContext(ctx); !ok || have != id {
		t.Fatalf("request id missing")
	}

	req := httptest.NewRequest("GET", "/", nil)
	ctx2 := ExtractHTTPContext(context.Background(), req)
	rw := httptest.NewRecorder()
	InjectHTTPHeaders(rw, ctx2)
	if rw.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing header")
	}
}

func TestNoOpSpanKeepsContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "r1")
	span, got := (&NoOpTracer{}).StartSpan(ctx, "x")
	if got != ctx || span.Context() != ctx {
		t.Fatalf("noop tracer should pass context through")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(LogConfig{Level: "debug", Format: "json", Output: &buf})
	l.Debug().Str("tool", "search").Msg("hello")
	if !strings.Contains(buf.String(), `"tool":"search"`) {
		t.Fatalf("expected json field, got %s", buf.String())
	}

	buf.Reset()
	l = NewLogger(LogConfig{Level: "nonsense", Output: &buf})
	l.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at default info level")
	}

	old := *Log()
	t.Cleanup(func() { SetLogger(old) })
	SetLogger(NewLogger(LogConfig{Output: &buf}))
	c := Component("research")
	c.Info().Msg("x")
	if !strings.Contains(buf.String(), `"component":"research"`) {
		t.Fatalf("component field missing: %s", buf.String())
	}
}
