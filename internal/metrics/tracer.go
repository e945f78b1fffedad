package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer emits spans for runs and chunk writes. The returned function ends
// the span.
type Tracer interface {
	StartRunSpan(ctx context.Context, runID, filename string) (context.Context, func())
	StartChunkSpan(ctx context.Context, runID string, size int) (context.Context, func())
	RecordError(ctx context.Context, err error)
}

// OtelTracer emits spans through the global OpenTelemetry tracer provider.
// Exporter wiring is left to the embedding process; without one the spans
// are no-ops.
type OtelTracer struct {
	tracer trace.Tracer
}

var _ Tracer = (*OtelTracer)(nil)

// NewOtelTracer creates a tracer scoped to the feedmart instrumentation name.
func NewOtelTracer() *OtelTracer {
	return &OtelTracer{tracer: otel.Tracer("github.com/openihd/feedmart")}
}

func (t *OtelTracer) StartRunSpan(ctx context.Context, runID, filename string) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "feedmart.run",
		trace.WithAttributes(
			attribute.String("feedmart.run_id", runID),
			attribute.String("feedmart.filename", filename),
		))
	return ctx, func() { span.End() }
}

func (t *OtelTracer) StartChunkSpan(ctx context.Context, runID string, size int) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "feedmart.chunk_write",
		trace.WithAttributes(
			attribute.String("feedmart.run_id", runID),
			attribute.Int("feedmart.chunk_size", size),
		))
	return ctx, func() { span.End() }
}

func (t *OtelTracer) RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
