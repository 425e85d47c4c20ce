// Package otel adapts the runtime's Tracer interface to OpenTelemetry.
package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/KamdynS/agent-contrib/observability"
)

// Tracer implements observability.Tracer using OpenTelemetry.
type Tracer struct{ tracer trace.Tracer }

// NewTracer uses the global OTel tracer provider. Configure the provider
// (exporters, sampling) before calling this.
func NewTracer(serviceName string) *Tracer {
	return &Tracer{tracer: otel.Tracer(serviceName)}
}

// NewTracerFromProvider binds to an explicit provider.
func NewTracerFromProvider(tp trace.TracerProvider, serviceName string) *Tracer {
	return &Tracer{tracer: tp.Tracer(serviceName)}
}

func (t *Tracer) StartSpan(ctx context.Context, name string) (observability.Span, context.Context) {
	var opts []trace.SpanStartOption
	if info, ok := observability.TraceFromContext(ctx); ok {
		opts = append(opts, trace.WithAttributes(
			attribute.String("workflow.trace_id", info.ID),
			attribute.String("workflow.name", info.WorkflowName),
		))
	}
	ctx, span := t.tracer.Start(ctx, name, opts...)
	return &spanWrapper{span: span, ctx: ctx}, ctx
}

func (t *Tracer) SpanFromContext(ctx context.Context) observability.Span {
	return &spanWrapper{span: trace.SpanFromContext(ctx), ctx: ctx}
}

type spanWrapper struct {
	span trace.Span
	ctx  context.Context
}

func (s *spanWrapper) SetAttribute(key string, value interface{}) {
	s.span.SetAttributes(toAttr(key, value))
}

func (s *spanWrapper) SetStatus(code observability.StatusCode, message string) {
	switch code {
	case observability.StatusCodeOk:
		s.span.SetStatus(codes.Ok, message)
	case observability.StatusCodeError:
		s.span.SetStatus(codes.Error, message)
	default:
		s.span.SetStatus(codes.Unset, message)
	}
}

func (s *spanWrapper) AddEvent(name string, attrs map[string]interface{}) {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kvs = append(kvs, toAttr(k, v))
	}
	s.span.AddEvent(name, trace.WithAttributes(kvs...))
}

func (s *spanWrapper) End()                     { s.span.End() }
func (s *spanWrapper) Context() context.Context { return s.ctx }

func toAttr(key string, v interface{}) attribute.KeyValue {
	switch x := v.(type) {
	case string:
		return attribute.String(key, x)
	case int:
		return attribute.Int(key, x)
	case int64:
		return attribute.Int64(key, x)
	case float64:
		return attribute.Float64(key, x)
	case bool:
		return attribute.Bool(key, x)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}

var (
	_ observability.Tracer = (*Tracer)(nil)
	_ observability.Span   = (*spanWrapper)(nil)
)
