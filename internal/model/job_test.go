package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openihd/feedmart/internal/model"
)

func TestJobStatusIsTerminal(t *testing.T) {
	assert.False(t, model.JobStatusStarting.IsTerminal())
	assert.False(t, model.JobStatusStarted.IsTerminal())
	assert.False(t, model.JobStatusStopping.IsTerminal())
	assert.True(t, model.JobStatusCompleted.IsTerminal())
	assert.True(t, model.JobStatusFailed.IsTerminal())
	assert.True(t, model.JobStatusStopped.IsTerminal())
	assert.True(t, model.JobStatusAbandoned.IsTerminal())
}

func TestJobRecordLifecycle(t *testing.T) {
	record := model.NewJobRecord(model.NewRunID(), "feedback.json")
	assert.Equal(t, model.JobStatusStarting, record.Status)
	assert.Equal(t, model.ExitStatusUnknown, record.ExitStatus)

	record.MarkAsStarted()
	assert.Equal(t, model.JobStatusStarted, record.Status)

	record.MarkAsCompleted(model.ExitStatusCompleted, 42)
	assert.Equal(t, model.JobStatusCompleted, record.Status)
	assert.Equal(t, model.ExitStatusCompleted, record.ExitStatus)
	assert.Equal(t, 42, record.RecordsProcessed)
	require.NotNil(t, record.EndTime)
}

func TestJobRecordFailure(t *testing.T) {
	record := model.NewJobRecord(model.NewRunID(), "feedback.json")
	record.MarkAsStarted()
	record.MarkAsFailed(errors.New("boom"))

	assert.Equal(t, model.JobStatusFailed, record.Status)
	assert.Equal(t, model.ExitStatusFailed, record.ExitStatus)
	assert.Equal(t, "boom", record.ErrorMessage())
	require.NotNil(t, record.EndTime)
}

func TestJobRecordTransitionValidation(t *testing.T) {
	record := model.NewJobRecord(model.NewRunID(), "feedback.json")
	// STARTING -> COMPLETED skips STARTED and must be rejected.
	err := record.TransitionTo(model.JobStatusCompleted)
	require.Error(t, err)

	require.NoError(t, record.TransitionTo(model.JobStatusStarted))
	require.NoError(t, record.TransitionTo(model.JobStatusCompleted))
	// Terminal states accept no further transitions.
	require.Error(t, record.TransitionTo(model.JobStatusFailed))
}

func TestJobRecordAddFailureDeduplicates(t *testing.T) {
	record := model.NewJobRecord(model.NewRunID(), "feedback.json")
	record.AddFailure(errors.New("same message"))
	record.AddFailure(errors.New("same message"))
	record.AddFailure(errors.New("other message"))

	assert.Len(t, record.Failures, 2)
	assert.Equal(t, "same message; other message", record.ErrorMessage())
}

func TestJobRecordCloneIsDeep(t *testing.T) {
	record := model.NewJobRecord(model.NewRunID(), "feedback.json")
	record.AddFailure(errors.New("original"))

	clone := record.Clone()
	clone.AddFailure(errors.New("only in clone"))
	clone.Filename = "other.json"

	assert.Len(t, record.Failures, 1)
	assert.Equal(t, "feedback.json", record.Filename)
}

func TestStepSummaryExitStatus(t *testing.T) {
	assert.Equal(t, model.ExitStatusCompleted, model.StepSummary{ReadCount: 10, WriteCount: 10}.ExitStatus())
	assert.Equal(t, model.ExitStatusCompleted, model.StepSummary{}.ExitStatus(), "an empty file completes cleanly")
	assert.Equal(t, model.ExitStatusCompletedWithWarnings,
		model.StepSummary{ReadCount: 10, WriteCount: 0, SkipCount: 10}.ExitStatus())
}
