package transform

import (
	"context"
	"sync"

	"github.com/openihd/feedmart/internal/repository"
	"github.com/openihd/feedmart/internal/support/logger"
)

// FeedbackIDCounter hands out fact surrogate keys from blocks reserved in
// the durable sequence. Because each counter holds exclusively reserved
// blocks, concurrent runs can never produce overlapping identifiers.
type FeedbackIDCounter struct {
	warehouse repository.Warehouse
	blockSize int64

	mu   sync.Mutex
	next int64
	end  int64
}

// NewFeedbackIDCounter creates a counter. No identifiers are reserved until
// the first call to Next.
func NewFeedbackIDCounter(warehouse repository.Warehouse, blockSize int64) *FeedbackIDCounter {
	return &FeedbackIDCounter{
		warehouse: warehouse,
		blockSize: blockSize,
	}
}

// Next returns the next surrogate key, reserving a fresh block from the
// durable sequence when the current one is exhausted.
func (c *FeedbackIDCounter) Next(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.next >= c.end {
		start, err := c.warehouse.ReserveFeedbackIDs(ctx, c.blockSize)
		if err != nil {
			return 0, err
		}
		c.next = start
		c.end = start + c.blockSize
		logger.Debugf("Reserved feedback id block [%d, %d).", start, c.end)
	}

	id := c.next
	c.next++
	return id, nil
}
