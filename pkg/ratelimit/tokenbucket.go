package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket allows bursts up to the bucket size and refills one
// token per refill interval. Release is a no-op; tokens come back with
// time.
type TokenBucket struct {
	capacity int64
	refill   time.Duration

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewTokenBucket creates a token bucket limiter. The bucket starts
// full.
func NewTokenBucket(capacity int64, refill time.Duration) (*TokenBucket, error) {
	if capacity <= 0 {
		return nil, NewValidationError("capacity", "must be positive")
	}
	if refill <= 0 {
		return nil, NewValidationError("refill", "must be positive")
	}

	return &TokenBucket{
		capacity: capacity,
		refill:   refill,
		tokens:   float64(capacity),
		last:     time.Now(),
	}, nil
}

// Acquire takes cost tokens, waiting for the bucket to refill if
// necessary.
func (b *TokenBucket) Acquire(ctx context.Context, cost int64) error {
	if err := checkCost(cost, b.capacity); err != nil {
		return err
	}

	for {
		b.mu.Lock()
		b.advance(time.Now())

		if b.tokens >= float64(cost) {
			b.tokens -= float64(cost)
			b.mu.Unlock()
			return nil
		}

		// Wait until enough tokens have dripped in, then re-check:
		// another waiter may have drained the bucket meanwhile.
		missing := float64(cost) - b.tokens
		wait := time.Duration(missing * float64(b.refill))
		b.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Release is a no-op for token buckets.
func (b *TokenBucket) Release(cost int64) {}

// Capacity returns the bucket size.
func (b *TokenBucket) Capacity() int64 {
	return b.capacity
}

// advance credits tokens for the time elapsed since the last refill,
// capped at the bucket size. Callers must hold b.mu.
func (b *TokenBucket) advance(now time.Time) {
	elapsed := now.Sub(b.last)
	if elapsed <= 0 {
		return
	}

	b.tokens += float64(elapsed) / float64(b.refill)
	if b.tokens > float64(b.capacity) {
		b.tokens = float64(b.capacity)
	}
	b.last = now
}
