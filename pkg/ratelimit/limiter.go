package ratelimit

import (
	"context"
	"strings"
)

// Policy identifies the admission rule a limiter applies.
type Policy string

const (
	PolicyConcurrency   Policy = "concurrency"
	PolicyTokenBucket   Policy = "token_bucket"
	PolicySlidingWindow Policy = "sliding_window"
)

// ParsePolicy converts a config string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "concurrency", "":
		return PolicyConcurrency, nil
	case "token_bucket", "tokenbucket":
		return PolicyTokenBucket, nil
	case "sliding_window", "slidingwindow":
		return PolicySlidingWindow, nil
	default:
		return "", NewValidationError("policy", "unknown policy: "+s)
	}
}

// Limiter is the admission contract shared by all policies.
//
// Implementations must be safe for concurrent use. All internal
// counters are mutated only under the limiter's own synchronization,
// never by callers.
type Limiter interface {
	// Acquire suspends the caller until cost units of capacity are
	// available, then reserves them. It returns an error only when ctx
	// is cancelled, or when cost is invalid for the limiter; it never
	// fails because the limiter is busy. A cancelled waiter holds no
	// reservation.
	Acquire(ctx context.Context, cost int64) error

	// Release returns cost units of capacity. For window and bucket
	// policies whose reservations expire naturally this is a no-op.
	// For the concurrency policy every successful Acquire must be
	// paired with a Release of the same cost.
	Release(cost int64)

	// Capacity returns the configured capacity.
	Capacity() int64
}

// Ensure interface compliance at compile time.
var (
	_ Limiter = (*Concurrency)(nil)
	_ Limiter = (*TokenBucket)(nil)
	_ Limiter = (*SlidingWindow)(nil)
)
