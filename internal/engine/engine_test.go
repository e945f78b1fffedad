package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openihd/feedmart/internal/engine"
	"github.com/openihd/feedmart/internal/model"
	"github.com/openihd/feedmart/internal/pipeline"
	"github.com/openihd/feedmart/internal/support/exception"
)

type testItem struct {
	ID    int
	Value string
}

// mockReader simulates ItemReader behavior with controlled failures.
type mockReader struct {
	mu        sync.Mutex
	items     []testItem
	readCount int
	failAt    int // item ID that fails with a retryable error
	failCount int // number of retryable failures before the read succeeds
	skipAt    int // item ID that always fails with a skippable error
}

func newMockReader(items []testItem, failAt, skipAt, failCount int) *mockReader {
	return &mockReader{items: items, failAt: failAt, skipAt: skipAt, failCount: failCount}
}

func (m *mockReader) Open(ctx context.Context) error  { return nil }
func (m *mockReader) Close(ctx context.Context) error { return nil }

func (m *mockReader) Read(ctx context.Context) (*testItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.readCount >= len(m.items) {
		return nil, pipeline.ErrNoMoreItems
	}
	item := m.items[m.readCount]

	if item.ID == m.failAt && m.failCount > 0 {
		m.failCount--
		return nil, exception.NewBatchError("reader", "transient read failure", errors.New("db timeout"), false, true)
	}
	if item.ID == m.skipAt {
		m.readCount++
		return nil, exception.NewBatchError("reader", "skippable read failure", errors.New("bad format"), true, false)
	}

	m.readCount++
	return &item, nil
}

// mockProcessor simulates ItemProcessor behavior with controlled failures
// and filtering.
type mockProcessor struct {
	mu        sync.Mutex
	failAt    int
	failCount int
	skipAt    int
	filterAt  int
}

func (m *mockProcessor) Process(ctx context.Context, item *testItem) (*testItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item.ID == m.failAt && m.failCount > 0 {
		m.failCount--
		return nil, exception.NewBatchError("processor", "transient process failure", errors.New("service unavailable"), false, true)
	}
	if item.ID == m.skipAt {
		return nil, exception.NewBatchError("processor", "skippable process failure", errors.New("invalid item data"), true, false)
	}
	if item.ID == m.filterAt {
		return nil, nil
	}
	return item, nil
}

// mockWriter records written items and can fail whole chunks.
type mockWriter struct {
	mu          sync.Mutex
	written     []testItem
	failID      int  // item whose presence fails the write with a skippable error
	chunkFailed bool // set once a multi-item chunk has been rejected
	fatalErr    error
}

func (m *mockWriter) Write(ctx context.Context, items []*testItem) (pipeline.WriteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fatalErr != nil {
		return pipeline.WriteResult{}, m.fatalErr
	}
	for _, item := range items {
		if item.ID == m.failID {
			if len(items) > 1 {
				m.chunkFailed = true
			}
			return pipeline.WriteResult{}, exception.NewBatchError("writer", "constraint violation", errors.New("duplicate key value violates unique constraint"), true, false)
		}
	}
	for _, item := range items {
		m.written = append(m.written, *item)
	}
	return pipeline.WriteResult{Written: len(items)}, nil
}

func makeItems(n int) []testItem {
	items := make([]testItem, n)
	for i := range items {
		items[i] = testItem{ID: i + 1, Value: "v"}
	}
	return items
}

func newEngine(chunkSize, workers, retryLimit, skipLimit int) *engine.ChunkEngine[*testItem, *testItem] {
	return engine.NewChunkEngine[*testItem, *testItem](engine.Options{
		RunID:       "test-run",
		ChunkSize:   chunkSize,
		WorkerCount: workers,
		RetryPolicy: engine.NewRetryPolicy(retryLimit, 0),
		SkipPolicy:  engine.NewSkipPolicy(skipLimit),
	})
}

func TestChunkEngine_HappyPath(t *testing.T) {
	reader := newMockReader(makeItems(10), 0, 0, 0)
	writer := &mockWriter{}
	eng := newEngine(3, 1, 3, -1)

	summary, err := eng.Run(context.Background(), reader, &mockProcessor{}, writer)
	require.NoError(t, err)

	assert.Equal(t, 10, summary.ReadCount)
	assert.Equal(t, 10, summary.WriteCount)
	assert.Equal(t, 0, summary.SkipCount)
	assert.Equal(t, 0, summary.FilterCount)
	assert.Len(t, writer.written, 10)
	assert.Equal(t, model.ExitStatusCompleted, summary.ExitStatus())
}

func TestChunkEngine_RetryableReadFailureRecovers(t *testing.T) {
	reader := newMockReader(makeItems(5), 3, 0, 2)
	writer := &mockWriter{}
	eng := newEngine(2, 1, 3, -1)

	summary, err := eng.Run(context.Background(), reader, &mockProcessor{}, writer)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.ReadCount)
	assert.Equal(t, 5, summary.WriteCount)
	assert.Equal(t, 0, summary.SkipCount)
}

func TestChunkEngine_RetryLimitExceededFailsRun(t *testing.T) {
	// Item 3 fails more times than the retry limit allows and the error is
	// retryable but not skippable, so the run must fail.
	reader := newMockReader(makeItems(5), 3, 0, 10)
	writer := &mockWriter{}
	eng := newEngine(2, 1, 3, 0)

	_, err := eng.Run(context.Background(), reader, &mockProcessor{}, writer)
	require.Error(t, err)
}

func TestChunkEngine_SkippableFailuresAreCounted(t *testing.T) {
	reader := newMockReader(makeItems(6), 0, 2, 0)
	processor := &mockProcessor{skipAt: 5}
	writer := &mockWriter{}
	eng := newEngine(3, 1, 3, -1)

	summary, err := eng.Run(context.Background(), reader, processor, writer)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.ReadCount, "the skipped read never counts as read")
	assert.Equal(t, 4, summary.WriteCount)
	assert.Equal(t, 2, summary.SkipCount)
}

func TestChunkEngine_SkipListenerReceivesEveryFailureDrivenSkip(t *testing.T) {
	reader := newMockReader(makeItems(6), 0, 2, 0)
	processor := &mockProcessor{skipAt: 5}
	writer := &mockWriter{}

	var mu sync.Mutex
	skipped := make(map[string]int)
	eng := engine.NewChunkEngine[*testItem, *testItem](engine.Options{
		RunID:       "test-run",
		ChunkSize:   3,
		WorkerCount: 1,
		RetryPolicy: engine.NewRetryPolicy(3, 0),
		SkipPolicy:  engine.NewSkipPolicy(-1),
		OnItemSkipped: func(ctx context.Context, phase string, err error) {
			mu.Lock()
			defer mu.Unlock()
			require.Error(t, err)
			skipped[phase]++
		},
	})

	summary, err := eng.Run(context.Background(), reader, processor, writer)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.SkipCount)
	assert.Equal(t, map[string]int{"read": 1, "process": 1}, skipped)
}

func TestChunkEngine_SkipLimitExceededFailsRun(t *testing.T) {
	reader := newMockReader(makeItems(6), 0, 0, 0)
	processor := &mockProcessor{skipAt: 2}
	writer := &mockWriter{}
	eng := newEngine(3, 1, 1, 0)

	_, err := eng.Run(context.Background(), reader, processor, writer)
	require.Error(t, err)
}

func TestChunkEngine_FilteredItemsAreNotWritten(t *testing.T) {
	reader := newMockReader(makeItems(4), 0, 0, 0)
	processor := &mockProcessor{filterAt: 2}
	writer := &mockWriter{}
	eng := newEngine(4, 1, 3, -1)

	summary, err := eng.Run(context.Background(), reader, processor, writer)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.ReadCount)
	assert.Equal(t, 3, summary.WriteCount)
	assert.Equal(t, 1, summary.FilterCount)
}

func TestChunkEngine_SkippableWriteFailureSplitsChunk(t *testing.T) {
	reader := newMockReader(makeItems(6), 0, 0, 0)
	writer := &mockWriter{failID: 4}
	eng := newEngine(6, 1, 1, -1)

	summary, err := eng.Run(context.Background(), reader, &mockProcessor{}, writer)
	require.NoError(t, err)

	assert.True(t, writer.chunkFailed, "the whole chunk must be rejected first")
	assert.Equal(t, 5, summary.WriteCount, "only the offending record is dropped")
	assert.Equal(t, 1, summary.SkipCount)
	for _, item := range writer.written {
		assert.NotEqual(t, 4, item.ID)
	}
}

func TestChunkEngine_FatalWriteFailureFailsRun(t *testing.T) {
	reader := newMockReader(makeItems(3), 0, 0, 0)
	writer := &mockWriter{fatalErr: errors.New("disk full")}
	eng := newEngine(3, 1, 1, -1)

	_, err := eng.Run(context.Background(), reader, passthroughProcessor(), writer)
	require.Error(t, err)
}

func TestChunkEngine_AllRecordsSkippedYieldsWarning(t *testing.T) {
	reader := newMockReader(makeItems(4), 0, 0, 0)
	writer := &mockWriter{}

	dropAll := processorFunc(func(ctx context.Context, item *testItem) (*testItem, error) {
		return nil, nil
	})
	eng := newEngine(2, 2, 1, -1)

	summary, err := eng.Run(context.Background(), reader, dropAll, writer)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.ReadCount)
	assert.Equal(t, 0, summary.WriteCount)
	assert.Equal(t, model.ExitStatusCompletedWithWarnings, summary.ExitStatus())
}

func TestChunkEngine_ConcurrentWorkersProcessEverything(t *testing.T) {
	reader := newMockReader(makeItems(100), 0, 0, 0)
	writer := &mockWriter{}
	eng := newEngine(7, 4, 3, -1)

	summary, err := eng.Run(context.Background(), reader, &mockProcessor{}, writer)
	require.NoError(t, err)

	assert.Equal(t, 100, summary.ReadCount)
	assert.Equal(t, 100, summary.WriteCount)
	assert.Len(t, writer.written, 100)

	seen := make(map[int]bool, 100)
	for _, item := range writer.written {
		assert.False(t, seen[item.ID], "item %d written twice", item.ID)
		seen[item.ID] = true
	}
}

// processorFunc adapts a function to the ItemProcessor interface.
type processorFunc func(ctx context.Context, item *testItem) (*testItem, error)

func (f processorFunc) Process(ctx context.Context, item *testItem) (*testItem, error) {
	return f(ctx, item)
}

func passthroughProcessor() pipeline.ItemProcessor[*testItem, *testItem] {
	return processorFunc(func(ctx context.Context, item *testItem) (*testItem, error) {
		return item, nil
	})
}
