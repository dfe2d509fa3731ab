package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NewTracingHooks opens one span per call, named "toolgate.call", records each
// step as a span event and closes the span with the call outcome. The span
// parent is taken from the context passed to the dispatcher.
func NewTracingHooks(tracer trace.Tracer) Hooks {
	var spans sync.Map // call ID -> trace.Span

	return Hooks{
		OnCallStart: func(ctx context.Context, e *Event) {
			_, span := tracer.Start(ctx, "toolgate.call",
				trace.WithTimestamp(e.Start),
				trace.WithAttributes(attribute.String("tool.name", e.Tool)),
			)
			spans.Store(e.CallID, span)
		},
		OnStep: func(ctx context.Context, e *Event) {
			v, ok := spans.Load(e.CallID)
			if !ok {
				return
			}
			attrs := []attribute.KeyValue{
				attribute.Bool("ok", e.OK),
				attribute.Int64("duration_us", e.Duration.Microseconds()),
			}
			if e.Err != nil {
				attrs = append(attrs, attribute.String("error", e.Err.Error()))
			}
			v.(trace.Span).AddEvent(string(e.Step), trace.WithAttributes(attrs...))
		},
		OnCallEnd: func(ctx context.Context, e *Event) {
			v, ok := spans.LoadAndDelete(e.CallID)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(
				attribute.String("tool.action", e.Action),
				attribute.Int("tool.chain_length", e.ChainLength),
			)
			if !e.OK {
				if e.Err != nil {
					span.RecordError(e.Err)
				}
				span.SetStatus(codes.Error, e.ErrorKind)
			} else {
				span.SetStatus(codes.Ok, "")
			}
			span.End()
		},
	}
}
