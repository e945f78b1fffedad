package registry_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openihd/feedmart/internal/model"
	"github.com/openihd/feedmart/internal/registry"
)

func newRecord(runID string, startOffset time.Duration) *model.JobRecord {
	record := model.NewJobRecord(runID, runID+".json")
	record.StartTime = time.Now().Add(startOffset)
	return record
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := registry.NewJobRegistry()
	record := newRecord("run-1", 0)
	require.NoError(t, reg.Register(record))

	got, err := reg.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, model.JobStatusStarting, got.Status)

	require.Error(t, reg.Register(record), "duplicate run IDs are rejected")

	_, err = reg.Get("missing")
	assert.ErrorIs(t, err, registry.ErrJobNotFound)
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	reg := registry.NewJobRegistry()
	require.NoError(t, reg.Register(newRecord("run-1", 0)))

	got, err := reg.Get("run-1")
	require.NoError(t, err)
	got.Status = model.JobStatusFailed
	got.Failures = append(got.Failures, "mutated")

	again, err := reg.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusStarting, again.Status)
	assert.Empty(t, again.Failures)
}

func TestRegistryStatusTransitions(t *testing.T) {
	reg := registry.NewJobRegistry()
	require.NoError(t, reg.Register(newRecord("run-1", 0)))

	require.NoError(t, reg.MarkStarted("run-1"))
	require.NoError(t, reg.UpdateProgress("run-1", 150))
	require.NoError(t, reg.MarkCompleted("run-1", model.ExitStatusCompleted, 400))

	got, err := reg.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.Equal(t, 400, got.RecordsProcessed)

	require.ErrorIs(t, reg.MarkStarted("missing"), registry.ErrJobNotFound)
}

func TestRegistryMarkFailedRecordsCause(t *testing.T) {
	reg := registry.NewJobRegistry()
	require.NoError(t, reg.Register(newRecord("run-1", 0)))
	require.NoError(t, reg.MarkStarted("run-1"))
	require.NoError(t, reg.MarkFailed("run-1", errors.New("write exploded")))

	got, err := reg.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage(), "write exploded")
}

func TestRegistryListNewestFirst(t *testing.T) {
	reg := registry.NewJobRegistry()
	require.NoError(t, reg.Register(newRecord("old", -2*time.Hour)))
	require.NoError(t, reg.Register(newRecord("middle", -1*time.Hour)))
	require.NoError(t, reg.Register(newRecord("new", 0)))

	records := reg.List()
	require.Len(t, records, 3)
	assert.Equal(t, "new", records[0].RunID)
	assert.Equal(t, "middle", records[1].RunID)
	assert.Equal(t, "old", records[2].RunID)
}

func TestRegistryCleanupEvictsOldestTerminalOnly(t *testing.T) {
	reg := registry.NewJobRegistry()

	// Three finished runs of increasing age plus one still running.
	for i, runID := range []string{"done-oldest", "done-middle", "done-newest"} {
		record := newRecord(runID, time.Duration(-(3 - i)) * time.Hour)
		require.NoError(t, reg.Register(record))
		require.NoError(t, reg.MarkStarted(runID))
		require.NoError(t, reg.MarkCompleted(runID, model.ExitStatusCompleted, 1))
	}
	require.NoError(t, reg.Register(newRecord("running", -4*time.Hour)))
	require.NoError(t, reg.MarkStarted("running"))

	// Size 4, max 4: one slot must be freed for the next registration.
	reg.CleanupOldJobs(4)

	assert.Equal(t, 3, reg.Size())
	_, err := reg.Get("done-oldest")
	assert.ErrorIs(t, err, registry.ErrJobNotFound)
	_, err = reg.Get("running")
	assert.NoError(t, err, "running entries are never evicted, even the oldest")
}

func TestRegistryCleanupKeepsRunningWhenOverLimit(t *testing.T) {
	reg := registry.NewJobRegistry()
	for i := 0; i < 5; i++ {
		runID := fmt.Sprintf("running-%d", i)
		require.NoError(t, reg.Register(newRecord(runID, 0)))
		require.NoError(t, reg.MarkStarted(runID))
	}

	reg.CleanupOldJobs(3)
	assert.Equal(t, 5, reg.Size(), "nothing terminal to evict")
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := registry.NewJobRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			runID := fmt.Sprintf("run-%d", n)
			if err := reg.Register(newRecord(runID, 0)); err != nil {
				return
			}
			_ = reg.MarkStarted(runID)
			_ = reg.UpdateProgress(runID, n)
			_, _ = reg.Get(runID)
			_ = reg.List()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, reg.Size())
}
