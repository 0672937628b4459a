package ratelimit

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Concurrency is a fixed-capacity semaphore limiter.
type Concurrency struct {
	sem      *semaphore.Weighted
	capacity int64
}

// NewConcurrency creates a concurrency limiter with the given
// capacity.
func NewConcurrency(capacity int64) (*Concurrency, error) {
	if capacity <= 0 {
		return nil, NewValidationError("capacity", "must be positive")
	}

	return &Concurrency{
		sem:      semaphore.NewWeighted(capacity),
		capacity: capacity,
	}, nil
}

// Acquire reserves cost units, waiting for capacity if necessary.
func (c *Concurrency) Acquire(ctx context.Context, cost int64) error {
	if err := checkCost(cost, c.capacity); err != nil {
		return err
	}
	return c.sem.Acquire(ctx, cost)
}

// Release returns cost units reserved by a prior Acquire.
func (c *Concurrency) Release(cost int64) {
	if cost <= 0 {
		return
	}
	c.sem.Release(cost)
}

// Capacity returns the configured capacity.
func (c *Concurrency) Capacity() int64 {
	return c.capacity
}
