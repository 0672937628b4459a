// Package retry wraps fallible operations with bounded retries and
// exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/cascadehq/cascade/pkg/config"
)

// Policy configures retry behavior.
type Policy struct {
	// MaxAttempts is the total number of invocations, including the
	// first. Values below 1 are treated as 1.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt.
	BaseDelay time.Duration

	// Multiplier grows the delay per attempt:
	// BaseDelay * Multiplier^(attempt-1).
	Multiplier float64

	// Jitter adds up to 10% of random delay to each backoff.
	Jitter bool

	// Classify reports whether an error is retryable. Nil means
	// DefaultClassifier.
	Classify func(error) bool
}

// FromConfig builds a Policy from configuration.
func FromConfig(cfg *config.RetryConfig) Policy {
	return Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		Multiplier:  cfg.Multiplier,
		Jitter:      cfg.HasJitter(),
	}
}

// retryable is implemented by errors that carry their own retry hint.
type retryable interface {
	IsRetryable() bool
}

// DefaultClassifier treats errors with an IsRetryable hint according
// to that hint and timeouts as retryable; everything else is
// permanent.
func DefaultClassifier(err error) bool {
	var r retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// DoValue invokes op until it succeeds, a non-retryable error occurs,
// or the attempt bound is reached. Non-retryable errors propagate
// immediately after a single invocation. After MaxAttempts failures
// the last error is propagated with its kind intact.
func DoValue[T any](ctx context.Context, p Policy, name string, op func(context.Context) (T, error)) (T, error) {
	var zero T

	classify := p.Classify
	if classify == nil {
		classify = DefaultClassifier
	}

	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !classify(err) {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}
		// Stop early when the caller itself has gone away.
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		delay := p.delay(attempt)
		slog.Warn("Retrying operation",
			"op", name,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", name, maxAttempts, lastErr)
}

// Do invokes an operation without a result value.
func Do(ctx context.Context, p Policy, name string, op func(context.Context) error) error {
	_, err := DoValue(ctx, p, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// delay computes the backoff before attempt+1.
func (p Policy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		return 0
	}

	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	d := time.Duration(float64(base) * math.Pow(multiplier, float64(attempt-1)))
	if p.Jitter {
		d += time.Duration(rand.Float64() * 0.1 * float64(d))
	}
	return d
}
