// Package metrics records pipeline observability signals: Prometheus
// counters and histograms for runs and items, and OpenTelemetry spans for
// runs and chunk writes.
package metrics

import (
	"context"
	"time"

	"github.com/openihd/feedmart/internal/model"
)

// Recorder receives pipeline events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	// RecordRunStart records the start of an ingestion run.
	RecordRunStart(ctx context.Context, filename string)
	// RecordRunEnd records the outcome and duration of a finished run.
	RecordRunEnd(ctx context.Context, filename string, status model.JobStatus, exitStatus model.ExitStatus, duration time.Duration)
	// RecordItemRead records one successfully read record.
	RecordItemRead(ctx context.Context)
	// RecordItemFilter records one record filtered by the transformer.
	RecordItemFilter(ctx context.Context)
	// RecordItemSkip records one skipped record; phase is "read", "process", or "write".
	RecordItemSkip(ctx context.Context, phase string)
	// RecordItemRetry records one retry attempt; phase is "read", "process", or "write".
	RecordItemRetry(ctx context.Context, phase string)
	// RecordChunkCommit records one committed chunk and its written row count.
	RecordChunkCommit(ctx context.Context, written int)
	// RecordChunkRollback records one rolled-back chunk.
	RecordChunkRollback(ctx context.Context)
}

// NoopRecorder discards all events. Used in tests.
type NoopRecorder struct{}

var _ Recorder = (*NoopRecorder)(nil)

// NewNoopRecorder creates a recorder that does nothing.
func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (*NoopRecorder) RecordRunStart(context.Context, string) {}
func (*NoopRecorder) RecordRunEnd(context.Context, string, model.JobStatus, model.ExitStatus, time.Duration) {
}
func (*NoopRecorder) RecordItemRead(context.Context)          {}
func (*NoopRecorder) RecordItemFilter(context.Context)        {}
func (*NoopRecorder) RecordItemSkip(context.Context, string)  {}
func (*NoopRecorder) RecordItemRetry(context.Context, string) {}
func (*NoopRecorder) RecordChunkCommit(context.Context, int)  {}
func (*NoopRecorder) RecordChunkRollback(context.Context)     {}
