// Package errorlog records record-level ingestion failures in the warehouse
// so skipped records can be inspected after a run.
package errorlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"

	"github.com/openihd/feedmart/internal/entity"
	"github.com/openihd/feedmart/internal/repository"
	"github.com/openihd/feedmart/internal/support/exception"
	"github.com/openihd/feedmart/internal/support/logger"
)

// Sink accepts record-level failures and exposes them for later inspection.
type Sink interface {
	// Report logs one failure with the offending record. Reporting failures
	// must never fail the pipeline; errors are logged and swallowed.
	Report(ctx context.Context, runID string, cause error, record interface{})
	// ErrorsForRun returns the failures logged for a run, oldest first.
	ErrorsForRun(ctx context.Context, runID string) ([]entity.JobErrorLog, error)
}

// WarehouseSink persists failures to the job_error_log table.
type WarehouseSink struct {
	warehouse repository.Warehouse
}

var _ Sink = (*WarehouseSink)(nil)

// NewWarehouseSink creates a sink backed by the warehouse repository.
func NewWarehouseSink(warehouse repository.Warehouse) *WarehouseSink {
	return &WarehouseSink{warehouse: warehouse}
}

func (s *WarehouseSink) Report(ctx context.Context, runID string, cause error, record interface{}) {
	row := &entity.JobErrorLog{
		JobID:        runID,
		ErrorMessage: exception.ExtractErrorMessage(cause),
		StackTrace:   stackTraceOf(cause),
		ItemData:     serializeRecord(record),
	}
	if err := s.warehouse.AppendErrorLog(ctx, row); err != nil {
		logger.Warnf("Failed to persist error log for run %s: %v", runID, err)
	}
}

func (s *WarehouseSink) ErrorsForRun(ctx context.Context, runID string) ([]entity.JobErrorLog, error) {
	return s.warehouse.ErrorsForRun(ctx, runID)
}

// stackTraceOf prefers the stack captured when the BatchError was built,
// falling back to the current goroutine's stack.
func stackTraceOf(cause error) string {
	var be *exception.BatchError
	if errors.As(cause, &be) && be.StackTrace != "" {
		return be.StackTrace
	}
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// serializeRecord renders the offending record as JSON, with a plain-text
// fallback when the record cannot be marshaled.
func serializeRecord(record interface{}) string {
	if record == nil {
		return ""
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Sprintf("Could not serialize item: %v", record)
	}
	return string(data)
}
