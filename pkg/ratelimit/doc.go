// Package ratelimit bounds access to shared downstream resources.
//
// A Limiter hands out reservations through Acquire and takes them back
// through Release. Three policies share the contract:
//
// # Concurrency
//
// A fixed semaphore; at most Capacity units are held at once. Release
// returns capacity explicitly:
//
//	lim, _ := ratelimit.NewConcurrency(8)
//	if err := lim.Acquire(ctx, 1); err != nil {
//	    return err
//	}
//	defer lim.Release(1)
//
// # TokenBucket
//
// Bursts up to the bucket size, refilling one unit per refill
// interval. Release is a no-op; spent tokens come back with time.
//
// # SlidingWindow
//
// An exact count over a rolling duration. Release is a no-op; grants
// expire as the window slides past them.
//
// Acquire never fails with a limiter error: it waits for capacity and
// only returns the context error when the caller is cancelled.
// Cancelling a waiter never leaks a partial reservation.
package ratelimit
