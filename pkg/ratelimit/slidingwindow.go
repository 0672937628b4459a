package ratelimit

import (
	"context"
	"sync"
	"time"
)

// grant records one admitted reservation inside the window.
type grant struct {
	at   time.Time
	cost int64
}

// SlidingWindow admits at most capacity units over a rolling duration.
// Release is a no-op; grants fall out of the window as time passes.
type SlidingWindow struct {
	capacity int64
	window   time.Duration

	mu     sync.Mutex
	grants []grant
	used   int64
}

// NewSlidingWindow creates a sliding-window limiter.
func NewSlidingWindow(capacity int64, window time.Duration) (*SlidingWindow, error) {
	if capacity <= 0 {
		return nil, NewValidationError("capacity", "must be positive")
	}
	if window <= 0 {
		return nil, NewValidationError("window", "must be positive")
	}

	return &SlidingWindow{
		capacity: capacity,
		window:   window,
	}, nil
}

// Acquire admits cost units, waiting for old grants to slide out of
// the window if necessary.
func (w *SlidingWindow) Acquire(ctx context.Context, cost int64) error {
	if err := checkCost(cost, w.capacity); err != nil {
		return err
	}

	for {
		w.mu.Lock()
		now := time.Now()
		w.prune(now)

		if w.used+cost <= w.capacity {
			w.grants = append(w.grants, grant{at: now, cost: cost})
			w.used += cost
			w.mu.Unlock()
			return nil
		}

		// Wait until the oldest grant leaves the window, then
		// re-check against competing waiters.
		wait := w.grants[0].at.Add(w.window).Sub(now)
		w.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Release is a no-op for sliding windows.
func (w *SlidingWindow) Release(cost int64) {}

// Capacity returns the configured capacity.
func (w *SlidingWindow) Capacity() int64 {
	return w.capacity
}

// prune drops grants older than the window. Callers must hold w.mu.
func (w *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)

	i := 0
	for i < len(w.grants) && !w.grants[i].at.After(cutoff) {
		w.used -= w.grants[i].cost
		i++
	}
	if i > 0 {
		w.grants = append(w.grants[:0], w.grants[i:]...)
	}
}
