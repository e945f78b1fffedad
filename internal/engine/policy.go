package engine

import (
	"sync"
	"time"

	"github.com/openihd/feedmart/internal/support/exception"
)

// RetryPolicy defines retry behavior for transient failures.
type RetryPolicy interface {
	// ShouldRetry determines if a given error is retryable.
	ShouldRetry(err error) bool
	// BackoffInterval returns the wait before the given attempt (starting from 1).
	BackoffInterval(attempt int) time.Duration
	// MaxAttempts returns the maximum number of attempts including the first.
	MaxAttempts() int
}

// NewRetryPolicy creates a fixed-interval retry policy. Retryability is
// decided by the error's own classification.
func NewRetryPolicy(maxAttempts int, initialInterval time.Duration) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &defaultRetryPolicy{
		maxAttempts:     maxAttempts,
		initialInterval: initialInterval,
	}
}

type defaultRetryPolicy struct {
	maxAttempts     int
	initialInterval time.Duration
}

var _ RetryPolicy = (*defaultRetryPolicy)(nil)

func (p *defaultRetryPolicy) ShouldRetry(err error) bool {
	return exception.IsRetryable(err)
}

func (p *defaultRetryPolicy) BackoffInterval(attempt int) time.Duration {
	return p.initialInterval
}

func (p *defaultRetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// SkipPolicy decides whether a failed record may be dropped and tracks the
// number of drops against the configured limit. Safe for concurrent use.
type SkipPolicy interface {
	// ShouldSkip determines if the error is skippable and the limit allows
	// another skip.
	ShouldSkip(err error) bool
	// RecordSkip counts one skipped record.
	RecordSkip()
	// SkipCount returns the total number of records skipped so far.
	SkipCount() int
	// SkipLimit returns the configured limit; negative means unbounded.
	SkipLimit() int
}

// NewSkipPolicy creates a skip policy. A negative skipLimit permits
// unbounded skipping; zero forbids it entirely.
func NewSkipPolicy(skipLimit int) SkipPolicy {
	return &defaultSkipPolicy{skipLimit: skipLimit}
}

type defaultSkipPolicy struct {
	skipLimit int

	mu    sync.Mutex
	count int
}

var _ SkipPolicy = (*defaultSkipPolicy)(nil)

func (p *defaultSkipPolicy) ShouldSkip(err error) bool {
	if err == nil {
		return false
	}
	if !exception.IsSkippable(err) {
		return false
	}
	if p.skipLimit < 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count < p.skipLimit
}

func (p *defaultSkipPolicy) RecordSkip() {
	p.mu.Lock()
	p.count++
	p.mu.Unlock()
}

func (p *defaultSkipPolicy) SkipCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

func (p *defaultSkipPolicy) SkipLimit() int {
	return p.skipLimit
}
