// Package model defines the domain types shared across the feedmart
// pipeline: raw feedback records, run tracking, and step results.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openihd/feedmart/internal/support/exception"
	"github.com/openihd/feedmart/internal/support/logger"
)

// JobStatus represents the state of an ingestion run.
type JobStatus string

const (
	JobStatusStarting  JobStatus = "STARTING"
	JobStatusStarted   JobStatus = "STARTED"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	// Stopping, Stopped, and Abandoned are reserved for operator-initiated
	// cancellation, which no current code path triggers.
	JobStatusStopping  JobStatus = "STOPPING"
	JobStatusStopped   JobStatus = "STOPPED"
	JobStatusAbandoned JobStatus = "ABANDONED"
	JobStatusUnknown   JobStatus = "UNKNOWN"
)

// String returns the string representation of the JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal checks if the JobStatus represents a finished state.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusStopped, JobStatusAbandoned:
		return true
	default:
		return false
	}
}

// ExitStatus represents the detailed outcome of a finished run or step.
type ExitStatus string

const (
	ExitStatusUnknown   ExitStatus = "UNKNOWN"
	ExitStatusCompleted ExitStatus = "COMPLETED"
	// ExitStatusCompletedWithWarnings marks a run that read records but
	// wrote none of them to the warehouse.
	ExitStatusCompletedWithWarnings ExitStatus = "COMPLETED_WITH_WARNINGS"
	ExitStatusFailed                ExitStatus = "FAILED"
	ExitStatusStopped               ExitStatus = "STOPPED"
)

// String returns the ExitStatus as a string.
func (s ExitStatus) String() string {
	return string(s)
}

// NewRunID generates a unique run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// JobRecord tracks one ingestion run in the job registry.
type JobRecord struct {
	RunID            string
	Filename         string
	Status           JobStatus
	ExitStatus       ExitStatus
	StartTime        time.Time
	EndTime          *time.Time
	RecordsProcessed int
	Failures         []string
	LastUpdated      time.Time
}

// NewJobRecord creates a registry entry for a newly accepted run.
func NewJobRecord(runID, filename string) *JobRecord {
	now := time.Now()
	return &JobRecord{
		RunID:       runID,
		Filename:    filename,
		Status:      JobStatusStarting,
		ExitStatus:  ExitStatusUnknown,
		StartTime:   now,
		Failures:    make([]string, 0),
		LastUpdated: now,
	}
}

// isValidJobTransition checks if the state transition for a run is valid.
func isValidJobTransition(current, next JobStatus) bool {
	switch current {
	case JobStatusStarting:
		return next == JobStatusStarted || next == JobStatusFailed || next == JobStatusStopped || next == JobStatusAbandoned
	case JobStatusStarted:
		return next == JobStatusStopping || next == JobStatusCompleted || next == JobStatusFailed || next == JobStatusAbandoned
	case JobStatusStopping:
		return next == JobStatusStopped || next == JobStatusFailed || next == JobStatusAbandoned
	case JobStatusFailed:
		return next == JobStatusAbandoned
	case JobStatusCompleted, JobStatusStopped, JobStatusAbandoned:
		return false
	default:
		return false
	}
}

// TransitionTo safely transitions the run's status.
func (r *JobRecord) TransitionTo(newStatus JobStatus) error {
	if !isValidJobTransition(r.Status, newStatus) {
		return fmt.Errorf("run %s: invalid state transition: %s -> %s", r.RunID, r.Status, newStatus)
	}
	r.Status = newStatus
	return nil
}

// MarkAsStarted updates the run status to STARTED.
func (r *JobRecord) MarkAsStarted() {
	if err := r.TransitionTo(JobStatusStarted); err != nil {
		logger.Warnf("Could not update run %s status to STARTED: %v", r.RunID, err)
		r.Status = JobStatusStarted
	}
	r.LastUpdated = time.Now()
}

// MarkAsCompleted updates the run status to COMPLETED and records the
// final exit status and processed-record count.
func (r *JobRecord) MarkAsCompleted(exitStatus ExitStatus, recordsProcessed int) {
	if err := r.TransitionTo(JobStatusCompleted); err != nil {
		logger.Warnf("Could not update run %s status to COMPLETED: %v", r.RunID, err)
		r.Status = JobStatusCompleted
	}
	r.ExitStatus = exitStatus
	r.RecordsProcessed = recordsProcessed
	now := time.Now()
	r.EndTime = &now
	r.LastUpdated = now
}

// MarkAsFailed updates the run status to FAILED and adds error information.
func (r *JobRecord) MarkAsFailed(err error) {
	if terr := r.TransitionTo(JobStatusFailed); terr != nil {
		logger.Warnf("Could not update run %s status to FAILED: %v", r.RunID, terr)
		r.Status = JobStatusFailed
	}
	r.ExitStatus = ExitStatusFailed
	now := time.Now()
	r.EndTime = &now
	r.LastUpdated = now
	if err != nil {
		r.AddFailure(err)
	}
}

// AddFailure records an error on the run. Duplicate messages are dropped.
func (r *JobRecord) AddFailure(err error) {
	if err == nil {
		return
	}
	errMsg := exception.ExtractErrorMessage(err)

	for _, existing := range r.Failures {
		if existing == errMsg {
			logger.Debugf("Skipped adding duplicate error '%s' to run %s.", errMsg, r.RunID)
			return
		}
	}

	r.Failures = append(r.Failures, errMsg)
	r.LastUpdated = time.Now()
}

// ErrorMessage joins the recorded failures into a single display string.
func (r *JobRecord) ErrorMessage() string {
	if len(r.Failures) == 0 {
		return ""
	}
	msg := r.Failures[0]
	for _, f := range r.Failures[1:] {
		msg += "; " + f
	}
	return msg
}

// Clone returns a deep copy so registry callers cannot mutate stored state.
func (r *JobRecord) Clone() *JobRecord {
	clone := *r
	if r.EndTime != nil {
		end := *r.EndTime
		clone.EndTime = &end
	}
	clone.Failures = make([]string, len(r.Failures))
	copy(clone.Failures, r.Failures)
	return &clone
}
