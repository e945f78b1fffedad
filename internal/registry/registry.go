// Package registry keeps the in-memory record of every ingestion run for
// status reporting. Records live for the process lifetime; old terminal
// entries are evicted when the registry exceeds its configured size.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/openihd/feedmart/internal/model"
	"github.com/openihd/feedmart/internal/support/logger"
)

// ErrJobNotFound is returned when the requested run ID is not registered.
var ErrJobNotFound = errors.New("job not found")

// JobRegistry stores run records keyed by run ID.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*model.JobRecord
}

// NewJobRegistry creates an empty registry.
func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[string]*model.JobRecord)}
}

// Register adds a new run record.
// It returns an error if a record with the same run ID already exists.
func (r *JobRegistry) Register(record *model.JobRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[record.RunID]; exists {
		return fmt.Errorf("job with run ID %s already exists", record.RunID)
	}
	r.jobs[record.RunID] = record.Clone()
	return nil
}

// MarkStarted transitions the run to STARTED.
func (r *JobRegistry) MarkStarted(runID string) error {
	return r.update(runID, func(record *model.JobRecord) error {
		record.MarkAsStarted()
		return nil
	})
}

// MarkCompleted transitions the run to COMPLETED with the given exit status
// and final written-row count.
func (r *JobRegistry) MarkCompleted(runID string, exitStatus model.ExitStatus, recordsProcessed int) error {
	return r.update(runID, func(record *model.JobRecord) error {
		record.MarkAsCompleted(exitStatus, recordsProcessed)
		return nil
	})
}

// MarkFailed transitions the run to FAILED and records the cause.
func (r *JobRegistry) MarkFailed(runID string, cause error) error {
	return r.update(runID, func(record *model.JobRecord) error {
		record.MarkAsFailed(cause)
		return nil
	})
}

// UpdateProgress sets the running written-row count for an in-flight run.
func (r *JobRegistry) UpdateProgress(runID string, recordsProcessed int) error {
	return r.update(runID, func(record *model.JobRecord) error {
		record.RecordsProcessed = recordsProcessed
		record.LastUpdated = time.Now()
		return nil
	})
}

// AddFailure appends a failure message to the run without changing its status.
func (r *JobRegistry) AddFailure(runID string, cause error) error {
	return r.update(runID, func(record *model.JobRecord) error {
		record.AddFailure(cause)
		return nil
	})
}

// Get returns a copy of the record for the given run ID.
func (r *JobRegistry) Get(runID string) (*model.JobRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.jobs[runID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return record.Clone(), nil
}

// List returns copies of all records, newest start time first.
func (r *JobRegistry) List() []*model.JobRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*model.JobRecord, 0, len(r.jobs))
	for _, record := range r.jobs {
		records = append(records, record.Clone())
	}
	sort.Slice(records, func(i, j int) bool {
		return records[j].StartTime.Before(records[i].StartTime)
	})
	return records
}

// Size returns the number of registered records.
func (r *JobRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// CleanupOldJobs evicts the oldest-started terminal records so that after
// one more registration the registry holds at most maxSize entries.
// Records still running are never evicted.
func (r *JobRegistry) CleanupOldJobs(maxSize int) {
	if maxSize < 1 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	excess := len(r.jobs) - maxSize + 1
	if excess <= 0 {
		return
	}

	terminal := make([]*model.JobRecord, 0, len(r.jobs))
	for _, record := range r.jobs {
		if record.Status.IsTerminal() {
			terminal = append(terminal, record)
		}
	}
	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].StartTime.Before(terminal[j].StartTime)
	})

	if excess > len(terminal) {
		excess = len(terminal)
	}
	for _, record := range terminal[:excess] {
		delete(r.jobs, record.RunID)
		logger.Debugf("Registry: evicted finished run %s (started %s).", record.RunID, record.StartTime.Format(time.RFC3339))
	}
}

func (r *JobRegistry) update(runID string, fn func(*model.JobRecord) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.jobs[runID]
	if !ok {
		return ErrJobNotFound
	}
	return fn(record)
}
