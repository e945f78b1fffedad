// Package engine drives the chunk-oriented pipeline: concurrent workers
// read fixed-size chunks, transform them, and write each chunk in one
// transaction, under configurable retry and skip policies.
package engine

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/openihd/feedmart/internal/metrics"
	"github.com/openihd/feedmart/internal/model"
	"github.com/openihd/feedmart/internal/pipeline"
	"github.com/openihd/feedmart/internal/support/exception"
	"github.com/openihd/feedmart/internal/support/logger"
)

const moduleName = "engine"

// Options configures a ChunkEngine.
type Options struct {
	RunID       string
	ChunkSize   int
	WorkerCount int
	RetryPolicy RetryPolicy
	SkipPolicy  SkipPolicy
	Recorder    metrics.Recorder
	Tracer      metrics.Tracer
	// OnChunkCommitted, when set, receives the cumulative written-row count
	// after each committed chunk.
	OnChunkCommitted func(totalWritten int)
	// OnItemSkipped, when set, receives every failure-driven skip with the
	// phase ("read", "process", or "write") and its cause.
	OnItemSkipped func(ctx context.Context, phase string, err error)
}

// ChunkEngine runs one source through the reader/processor/writer pipeline.
type ChunkEngine[I, O any] struct {
	opts Options

	readerMu    sync.Mutex
	readCount   atomic.Int64
	writeCount  atomic.Int64
	filterCount atomic.Int64
	dedupSkips  atomic.Int64
}

// NewChunkEngine creates an engine. Zero or negative sizes fall back to
// single-item chunks and a single worker.
func NewChunkEngine[I, O any](opts Options) *ChunkEngine[I, O] {
	if opts.ChunkSize < 1 {
		opts.ChunkSize = 1
	}
	if opts.WorkerCount < 1 {
		opts.WorkerCount = 1
	}
	if opts.RetryPolicy == nil {
		opts.RetryPolicy = NewRetryPolicy(1, 0)
	}
	if opts.SkipPolicy == nil {
		opts.SkipPolicy = NewSkipPolicy(0)
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NewNoopRecorder()
	}
	return &ChunkEngine[I, O]{opts: opts}
}

// Run executes the pipeline to exhaustion and returns the counter summary.
// The returned summary is valid even when err is non-nil.
func (e *ChunkEngine[I, O]) Run(
	ctx context.Context,
	reader pipeline.ItemReader[I],
	processor pipeline.ItemProcessor[I, O],
	writer pipeline.ItemWriter[O],
) (model.StepSummary, error) {
	if err := reader.Open(ctx); err != nil {
		return model.StepSummary{}, err
	}
	defer func() {
		if err := reader.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warnf("Run %s: reader close failed: %v", e.opts.RunID, err)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var errMu sync.Mutex
	var runErrs *multierror.Error
	fail := func(err error) {
		errMu.Lock()
		runErrs = multierror.Append(runErrs, err)
		errMu.Unlock()
		cancel()
	}

	var wg sync.WaitGroup
	for i := 0; i < e.opts.WorkerCount; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			if err := e.workerLoop(runCtx, reader, processor, writer); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Errorf("Run %s: worker %d failed: %v", e.opts.RunID, worker, err)
				fail(err)
			}
		}(i)
	}
	wg.Wait()

	summary := model.StepSummary{
		ReadCount:   int(e.readCount.Load()),
		WriteCount:  int(e.writeCount.Load()),
		SkipCount:   e.opts.SkipPolicy.SkipCount() + int(e.dedupSkips.Load()),
		FilterCount: int(e.filterCount.Load()),
	}
	logger.Infof("Run %s: step finished (read=%d write=%d skip=%d filter=%d).",
		e.opts.RunID, summary.ReadCount, summary.WriteCount, summary.SkipCount, summary.FilterCount)
	if runErrs == nil && ctx.Err() != nil {
		return summary, ctx.Err()
	}
	return summary, runErrs.ErrorOrNil()
}

// workerLoop reads, transforms, and writes chunks until the source is
// exhausted or a fatal error occurs.
func (e *ChunkEngine[I, O]) workerLoop(
	ctx context.Context,
	reader pipeline.ItemReader[I],
	processor pipeline.ItemProcessor[I, O],
	writer pipeline.ItemWriter[O],
) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, exhausted, err := e.readChunk(ctx, reader)
		if err != nil {
			return err
		}
		if len(chunk) > 0 {
			outputs, err := e.processChunk(ctx, processor, chunk)
			if err != nil {
				return err
			}
			if len(outputs) > 0 {
				if err := e.writeChunk(ctx, writer, outputs); err != nil {
					return err
				}
			}
		}
		if exhausted {
			return nil
		}
	}
}

// readChunk reads up to ChunkSize records. The reader mutex is held for the
// whole chunk so each chunk preserves the source order of its records.
func (e *ChunkEngine[I, O]) readChunk(ctx context.Context, reader pipeline.ItemReader[I]) ([]I, bool, error) {
	e.readerMu.Lock()
	defer e.readerMu.Unlock()

	items := make([]I, 0, e.opts.ChunkSize)
	for len(items) < e.opts.ChunkSize {
		item, err := e.readWithRetry(ctx, reader)
		if errors.Is(err, pipeline.ErrNoMoreItems) {
			return items, true, nil
		}
		if err != nil {
			if e.opts.SkipPolicy.ShouldSkip(err) {
				e.recordSkip(ctx, "read", err)
				logger.Warnf("Run %s: skipping unreadable record: %v", e.opts.RunID, err)
				continue
			}
			return items, false, exception.NewBatchError(moduleName, "read failed beyond policy limits", err, false, false)
		}
		items = append(items, item)
		e.readCount.Add(1)
		e.opts.Recorder.RecordItemRead(ctx)
	}
	return items, false, nil
}

func (e *ChunkEngine[I, O]) readWithRetry(ctx context.Context, reader pipeline.ItemReader[I]) (I, error) {
	var zero I
	for attempt := 1; ; attempt++ {
		item, err := reader.Read(ctx)
		if err == nil || errors.Is(err, pipeline.ErrNoMoreItems) {
			return item, err
		}
		if attempt >= e.opts.RetryPolicy.MaxAttempts() || !e.opts.RetryPolicy.ShouldRetry(err) {
			return zero, err
		}
		e.opts.Recorder.RecordItemRetry(ctx, "read")
		if waitErr := e.backoff(ctx, attempt); waitErr != nil {
			return zero, waitErr
		}
	}
}

// processChunk transforms each record, dropping filtered ones and applying
// the retry and skip policies to failures.
func (e *ChunkEngine[I, O]) processChunk(ctx context.Context, processor pipeline.ItemProcessor[I, O], chunk []I) ([]O, error) {
	outputs := make([]O, 0, len(chunk))
	for _, item := range chunk {
		out, err := e.processWithRetry(ctx, processor, item)
		if err != nil {
			if e.opts.SkipPolicy.ShouldSkip(err) {
				e.recordSkip(ctx, "process", err)
				continue
			}
			return nil, exception.NewBatchError(moduleName, "processing failed beyond policy limits", err, false, false)
		}
		if isNilItem(out) {
			e.filterCount.Add(1)
			e.opts.Recorder.RecordItemFilter(ctx)
			continue
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func (e *ChunkEngine[I, O]) processWithRetry(ctx context.Context, processor pipeline.ItemProcessor[I, O], item I) (O, error) {
	var zero O
	for attempt := 1; ; attempt++ {
		out, err := processor.Process(ctx, item)
		if err == nil {
			return out, nil
		}
		if attempt >= e.opts.RetryPolicy.MaxAttempts() || !e.opts.RetryPolicy.ShouldRetry(err) {
			return zero, err
		}
		e.opts.Recorder.RecordItemRetry(ctx, "process")
		if waitErr := e.backoff(ctx, attempt); waitErr != nil {
			return zero, waitErr
		}
	}
}

// writeChunk writes the chunk, retrying transient failures. When the whole
// chunk fails with a skippable error, it degrades to one-record writes so
// only the offending records are dropped.
func (e *ChunkEngine[I, O]) writeChunk(ctx context.Context, writer pipeline.ItemWriter[O], outputs []O) error {
	spanCtx := ctx
	if e.opts.Tracer != nil {
		var endSpan func()
		spanCtx, endSpan = e.opts.Tracer.StartChunkSpan(ctx, e.opts.RunID, len(outputs))
		defer endSpan()
	}

	result, err := e.writeWithRetry(spanCtx, writer, outputs)
	if err == nil {
		e.commitChunk(spanCtx, result)
		return nil
	}

	e.opts.Recorder.RecordChunkRollback(spanCtx)
	if e.opts.Tracer != nil {
		e.opts.Tracer.RecordError(spanCtx, err)
	}
	if !e.opts.SkipPolicy.ShouldSkip(err) {
		return exception.NewBatchError(moduleName, "chunk write failed beyond policy limits", err, false, false)
	}

	logger.Warnf("Run %s: chunk write failed with a skippable error, retrying record by record: %v", e.opts.RunID, err)
	for _, out := range outputs {
		result, err := e.writeWithRetry(spanCtx, writer, []O{out})
		if err != nil {
			if e.opts.SkipPolicy.ShouldSkip(err) {
				e.recordSkip(spanCtx, "write", err)
				continue
			}
			return exception.NewBatchError(moduleName, "record write failed beyond policy limits", err, false, false)
		}
		e.commitChunk(spanCtx, result)
	}
	return nil
}

func (e *ChunkEngine[I, O]) writeWithRetry(ctx context.Context, writer pipeline.ItemWriter[O], outputs []O) (pipeline.WriteResult, error) {
	for attempt := 1; ; attempt++ {
		result, err := writer.Write(ctx, outputs)
		if err == nil {
			return result, nil
		}
		if attempt >= e.opts.RetryPolicy.MaxAttempts() || !e.opts.RetryPolicy.ShouldRetry(err) {
			return pipeline.WriteResult{}, err
		}
		e.opts.Recorder.RecordItemRetry(ctx, "write")
		if waitErr := e.backoff(ctx, attempt); waitErr != nil {
			return pipeline.WriteResult{}, waitErr
		}
	}
}

// recordSkip counts one failure-driven skip and notifies the listener.
func (e *ChunkEngine[I, O]) recordSkip(ctx context.Context, phase string, err error) {
	e.opts.SkipPolicy.RecordSkip()
	e.opts.Recorder.RecordItemSkip(ctx, phase)
	if e.opts.OnItemSkipped != nil {
		e.opts.OnItemSkipped(ctx, phase, err)
	}
}

func (e *ChunkEngine[I, O]) commitChunk(ctx context.Context, result pipeline.WriteResult) {
	e.writeCount.Add(int64(result.Written))
	e.dedupSkips.Add(int64(result.Skipped))
	for i := 0; i < result.Skipped; i++ {
		e.opts.Recorder.RecordItemSkip(ctx, "write")
	}
	e.opts.Recorder.RecordChunkCommit(ctx, result.Written)
	if e.opts.OnChunkCommitted != nil {
		e.opts.OnChunkCommitted(int(e.writeCount.Load()))
	}
}

func (e *ChunkEngine[I, O]) backoff(ctx context.Context, attempt int) error {
	interval := e.opts.RetryPolicy.BackoffInterval(attempt)
	if interval <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isNilItem reports whether a processor output represents a filtered item.
func isNilItem(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
		return rv.IsNil()
	default:
		return false
	}
}
