package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/openihd/feedmart/internal/model"
)

// PrometheusRecorder is the Prometheus implementation of Recorder.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	runDurationSeconds *prometheus.HistogramVec
	runStatusCounter   *prometheus.CounterVec

	itemReadCounter   prometheus.Counter
	itemFilterCounter prometheus.Counter
	itemSkipCounter   *prometheus.CounterVec
	itemRetryCounter  *prometheus.CounterVec

	chunkCommitCounter   prometheus.Counter
	chunkRollbackCounter prometheus.Counter
	rowsWrittenCounter   prometheus.Counter
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder creates a recorder with its own registry, including
// the standard Go and process collectors.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		runDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feedmart_run_duration_seconds",
			Help:    "Duration of ingestion runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status", "exit_status"}),
		runStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedmart_run_status_total",
			Help: "Total number of ingestion runs by status.",
		}, []string{"status"}),
		itemReadCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedmart_item_read_total",
			Help: "Total records read from input files.",
		}),
		itemFilterCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedmart_item_filter_total",
			Help: "Total records filtered during transformation.",
		}),
		itemSkipCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedmart_item_skip_total",
			Help: "Total records skipped by phase.",
		}, []string{"phase"}),
		itemRetryCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedmart_item_retry_total",
			Help: "Total retry attempts by phase.",
		}, []string{"phase"}),
		chunkCommitCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedmart_chunk_commit_total",
			Help: "Total committed chunks.",
		}),
		chunkRollbackCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedmart_chunk_rollback_total",
			Help: "Total rolled-back chunks.",
		}),
		rowsWrittenCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedmart_fact_rows_written_total",
			Help: "Total fact rows written to the warehouse.",
		}),
	}

	registry.MustRegister(
		r.runDurationSeconds,
		r.runStatusCounter,
		r.itemReadCounter,
		r.itemFilterCounter,
		r.itemSkipCounter,
		r.itemRetryCounter,
		r.chunkCommitCounter,
		r.chunkRollbackCounter,
		r.rowsWrittenCounter,
	)
	return r
}

// Gatherer exposes the registry for scraping by an embedding process.
func (r *PrometheusRecorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *PrometheusRecorder) RecordRunStart(ctx context.Context, filename string) {
	r.runStatusCounter.WithLabelValues(string(model.JobStatusStarted)).Inc()
}

func (r *PrometheusRecorder) RecordRunEnd(ctx context.Context, filename string, status model.JobStatus, exitStatus model.ExitStatus, duration time.Duration) {
	r.runStatusCounter.WithLabelValues(string(status)).Inc()
	r.runDurationSeconds.WithLabelValues(string(status), string(exitStatus)).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) RecordItemRead(ctx context.Context) {
	r.itemReadCounter.Inc()
}

func (r *PrometheusRecorder) RecordItemFilter(ctx context.Context) {
	r.itemFilterCounter.Inc()
}

func (r *PrometheusRecorder) RecordItemSkip(ctx context.Context, phase string) {
	r.itemSkipCounter.WithLabelValues(phase).Inc()
}

func (r *PrometheusRecorder) RecordItemRetry(ctx context.Context, phase string) {
	r.itemRetryCounter.WithLabelValues(phase).Inc()
}

func (r *PrometheusRecorder) RecordChunkCommit(ctx context.Context, written int) {
	r.chunkCommitCounter.Inc()
	r.rowsWrittenCounter.Add(float64(written))
}

func (r *PrometheusRecorder) RecordChunkRollback(ctx context.Context) {
	r.chunkRollbackCounter.Inc()
}
