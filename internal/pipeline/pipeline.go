// Package pipeline defines the component contracts of the chunk-oriented
// ingestion pipeline: item readers, processors, and writers.
package pipeline

import (
	"context"
	"errors"
)

// ErrNoMoreItems is returned by ItemReader.Read when the source is exhausted.
var ErrNoMoreItems = errors.New("no more items to read")

// ItemReader reads items one at a time from a source.
type ItemReader[O any] interface {
	// Open acquires the underlying resources.
	Open(ctx context.Context) error
	// Read returns the next item, or ErrNoMoreItems when the source is exhausted.
	Read(ctx context.Context) (O, error)
	// Close releases the underlying resources.
	Close(ctx context.Context) error
}

// ItemProcessor transforms an input item into an output item.
// A nil output with a nil error means the item was filtered.
type ItemProcessor[I, O any] interface {
	Process(ctx context.Context, item I) (O, error)
}

// WriteResult reports what happened to a chunk handed to an ItemWriter.
type WriteResult struct {
	// Written is the number of items committed.
	Written int
	// Skipped is the number of items the writer dropped as duplicates.
	Skipped int
}

// ItemWriter persists a chunk of items atomically.
type ItemWriter[I any] interface {
	Write(ctx context.Context, items []I) (WriteResult, error)
}
