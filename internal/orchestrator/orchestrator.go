// Package orchestrator accepts ingestion submissions, executes them on a
// fixed worker pool, and reports run state through the job registry.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/openihd/feedmart/internal/config"
	"github.com/openihd/feedmart/internal/engine"
	"github.com/openihd/feedmart/internal/entity"
	"github.com/openihd/feedmart/internal/errorlog"
	"github.com/openihd/feedmart/internal/metrics"
	"github.com/openihd/feedmart/internal/model"
	"github.com/openihd/feedmart/internal/reader"
	"github.com/openihd/feedmart/internal/registry"
	"github.com/openihd/feedmart/internal/repository"
	"github.com/openihd/feedmart/internal/resolver"
	"github.com/openihd/feedmart/internal/support/logger"
	"github.com/openihd/feedmart/internal/transform"
	"github.com/openihd/feedmart/internal/writer"
)

const retryBackoffInterval = 1 * time.Second

// ErrQueueFull is returned by Submit when the run queue has no free slot.
var ErrQueueFull = errors.New("run queue is full")

// ErrNotAccepting is returned by Submit after Stop has been called.
var ErrNotAccepting = errors.New("orchestrator is not accepting submissions")

type submission struct {
	runID    string
	path     string
	filename string
}

// Orchestrator owns the run queue and the worker pool that drains it.
type Orchestrator struct {
	cfg       *config.Config
	warehouse repository.Warehouse
	registry  *registry.JobRegistry
	errorSink errorlog.Sink
	recorder  metrics.Recorder
	tracer    metrics.Tracer

	mu      sync.Mutex
	queue   chan submission
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	closed  bool
}

// NewOrchestrator wires the orchestrator. Call Start before submitting runs.
func NewOrchestrator(
	cfg *config.Config,
	warehouse repository.Warehouse,
	reg *registry.JobRegistry,
	errorSink errorlog.Sink,
	recorder metrics.Recorder,
	tracer metrics.Tracer,
) *Orchestrator {
	capacity := cfg.Feedmart.Registry.QueueCapacity
	if capacity < 1 {
		capacity = 1
	}
	return &Orchestrator{
		cfg:       cfg,
		warehouse: warehouse,
		registry:  reg,
		errorSink: errorSink,
		recorder:  recorder,
		tracer:    tracer,
		queue:     make(chan submission, capacity),
	}
}

// Start launches the run workers. Runs outlive the caller's context; use
// Stop for shutdown.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return nil
	}
	o.started = true
	o.runCtx, o.cancel = context.WithCancel(context.WithoutCancel(ctx))

	workers := o.cfg.Feedmart.Registry.RunWorkers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for sub := range o.queue {
				o.execute(o.runCtx, sub)
			}
		}()
	}
	logger.Infof("Orchestrator started with %d run worker(s), queue capacity %d.", workers, cap(o.queue))
	return nil
}

// Stop rejects further submissions and waits for queued and in-flight runs
// to finish, or until ctx expires, in which case running work is cancelled.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if o.closed || !o.started {
		o.closed = true
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Infof("Orchestrator drained all runs.")
		return nil
	case <-ctx.Done():
		o.cancel()
		<-done
		logger.Warnf("Orchestrator shutdown cancelled in-flight runs: %v", ctx.Err())
		return ctx.Err()
	}
}

// Submit registers a new run for the given feedback file and queues it for
// execution. The returned run ID can be used to poll status and errors.
func (o *Orchestrator) Submit(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("feedback file %s is not readable: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("feedback file %s is a directory", path)
	}

	o.registry.CleanupOldJobs(o.cfg.Feedmart.Registry.MaxJobs)

	runID := model.NewRunID()
	record := model.NewJobRecord(runID, path)
	if err := o.registry.Register(record); err != nil {
		return "", err
	}

	o.mu.Lock()
	if o.closed || !o.started {
		o.mu.Unlock()
		o.registry.MarkFailed(runID, ErrNotAccepting)
		return "", ErrNotAccepting
	}
	sub := submission{runID: runID, path: path, filename: path}
	select {
	case o.queue <- sub:
		o.mu.Unlock()
	default:
		o.mu.Unlock()
		o.registry.MarkFailed(runID, ErrQueueFull)
		return "", ErrQueueFull
	}

	logger.Infof("Accepted run %s for file %s.", runID, path)
	return runID, nil
}

// GetStatus returns a copy of the registry record for the run.
func (o *Orchestrator) GetStatus(runID string) (*model.JobRecord, error) {
	return o.registry.Get(runID)
}

// ListJobs returns all known runs, newest first.
func (o *Orchestrator) ListJobs() []*model.JobRecord {
	return o.registry.List()
}

// GetErrors returns the record-level failures persisted for the run.
func (o *Orchestrator) GetErrors(ctx context.Context, runID string) ([]entity.JobErrorLog, error) {
	if _, err := o.registry.Get(runID); err != nil {
		return nil, err
	}
	return o.errorSink.ErrorsForRun(ctx, runID)
}

func (o *Orchestrator) execute(ctx context.Context, sub submission) {
	start := time.Now()
	runCtx := ctx
	endSpan := func() {}
	if o.tracer != nil {
		runCtx, endSpan = o.tracer.StartRunSpan(ctx, sub.runID, sub.filename)
	}
	defer endSpan()

	o.recorder.RecordRunStart(runCtx, sub.filename)
	if err := o.registry.MarkStarted(sub.runID); err != nil {
		logger.Errorf("Run %s: could not mark started: %v", sub.runID, err)
		return
	}
	logger.Infof("Run %s started for file %s.", sub.runID, sub.path)

	summary, err := o.runPipeline(runCtx, sub)
	duration := time.Since(start)
	if err != nil {
		if o.tracer != nil {
			o.tracer.RecordError(runCtx, err)
		}
		if markErr := o.registry.MarkFailed(sub.runID, err); markErr != nil {
			logger.Errorf("Run %s: could not mark failed: %v", sub.runID, markErr)
		}
		o.recorder.RecordRunEnd(runCtx, sub.filename, model.JobStatusFailed, model.ExitStatusFailed, duration)
		logger.Errorf("Run %s failed after %s: %v", sub.runID, duration, err)
		return
	}

	exitStatus := summary.ExitStatus()
	if markErr := o.registry.MarkCompleted(sub.runID, exitStatus, summary.WriteCount); markErr != nil {
		logger.Errorf("Run %s: could not mark completed: %v", sub.runID, markErr)
	}
	o.recorder.RecordRunEnd(runCtx, sub.filename, model.JobStatusCompleted, exitStatus, duration)
	logger.Infof("Run %s completed in %s with exit status %s (read=%d write=%d skip=%d filter=%d).",
		sub.runID, duration, exitStatus, summary.ReadCount, summary.WriteCount, summary.SkipCount, summary.FilterCount)
}

func (o *Orchestrator) runPipeline(ctx context.Context, sub submission) (model.StepSummary, error) {
	pipelineCfg := o.cfg.Feedmart.Pipeline

	fileReader := reader.NewFeedbackFileReader(sub.path)
	dims := resolver.NewDimensionResolver(o.warehouse)
	counter := transform.NewFeedbackIDCounter(o.warehouse, int64(pipelineCfg.IDBlockSize))
	processor := transform.NewTransformer(sub.runID, dims, counter, o.errorSink)
	factWriter := writer.NewFactWriter(sub.runID, o.warehouse)

	eng := engine.NewChunkEngine[*model.RawFeedbackRecord, *transform.FeedbackBundle](engine.Options{
		RunID:       sub.runID,
		ChunkSize:   pipelineCfg.ChunkSize,
		WorkerCount: pipelineCfg.WorkerCount,
		RetryPolicy: engine.NewRetryPolicy(pipelineCfg.RetryLimit, retryBackoffInterval),
		SkipPolicy:  engine.NewSkipPolicy(pipelineCfg.SkipLimit),
		Recorder:    o.recorder,
		Tracer:      o.tracer,
		OnChunkCommitted: func(totalWritten int) {
			if err := o.registry.UpdateProgress(sub.runID, totalWritten); err != nil {
				logger.Warnf("Run %s: progress update failed: %v", sub.runID, err)
			}
		},
		OnItemSkipped: func(ctx context.Context, phase string, err error) {
			o.errorSink.Report(ctx, sub.runID, err, nil)
		},
	})
	return eng.Run(ctx, fileReader, processor, factWriter)
}
