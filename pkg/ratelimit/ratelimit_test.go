package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadehq/cascade/pkg/config"
)

func TestConcurrencyNeverExceedsCapacity(t *testing.T) {
	const capacity = 4
	const workers = 32

	lim, err := NewConcurrency(capacity)
	require.NoError(t, err)

	var inFlight, maxSeen atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if !assert.NoError(t, lim.Acquire(context.Background(), 1)) {
				return
			}
			defer lim.Release(1)

			cur := inFlight.Add(1)
			for {
				seen := maxSeen.Load()
				if cur <= seen || maxSeen.CompareAndSwap(seen, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)
		}()
	}

	wg.Wait()
	assert.LessOrEqual(t, maxSeen.Load(), int64(capacity))
}

func TestConcurrencyCancelledWaiterHoldsNothing(t *testing.T) {
	lim, err := NewConcurrency(1)
	require.NoError(t, err)

	require.NoError(t, lim.Acquire(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = lim.Acquire(ctx, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The cancelled waiter must not have consumed capacity: after the
	// holder releases, a fresh Acquire succeeds immediately.
	lim.Release(1)

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	require.NoError(t, lim.Acquire(ctx2, 1))
	lim.Release(1)
}

func TestConcurrencyInvalidCost(t *testing.T) {
	lim, err := NewConcurrency(2)
	require.NoError(t, err)

	assert.ErrorIs(t, lim.Acquire(context.Background(), 0), ErrInvalidCost)
	assert.ErrorIs(t, lim.Acquire(context.Background(), 3), ErrInvalidCost)
}

func TestTokenBucketBurstThenWait(t *testing.T) {
	lim, err := NewTokenBucket(3, 50*time.Millisecond)
	require.NoError(t, err)

	ctx := context.Background()

	// Full bucket allows an immediate burst.
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, lim.Acquire(ctx, 1))
	}
	assert.Less(t, time.Since(start), 40*time.Millisecond)

	// Fourth acquire has to wait for a refill.
	start = time.Now()
	require.NoError(t, lim.Acquire(ctx, 1))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestTokenBucketCancellation(t *testing.T) {
	lim, err := NewTokenBucket(1, time.Minute)
	require.NoError(t, err)

	require.NoError(t, lim.Acquire(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, lim.Acquire(ctx, 1), context.DeadlineExceeded)
}

func TestSlidingWindowExactCount(t *testing.T) {
	lim, err := NewSlidingWindow(2, 80*time.Millisecond)
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, lim.Acquire(ctx, 1))
	require.NoError(t, lim.Acquire(ctx, 1))

	// Third acquire must wait for the first grant to expire.
	start := time.Now()
	require.NoError(t, lim.Acquire(ctx, 1))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestSlidingWindowConcurrentBound(t *testing.T) {
	const capacity = 5

	lim, err := NewSlidingWindow(capacity, 200*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	var granted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lim.Acquire(ctx, 1) == nil {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	// Within a single window, no more than capacity grants.
	assert.LessOrEqual(t, granted.Load(), int64(capacity))
}

func TestNewFromConfig(t *testing.T) {
	enabled := true
	disabled := false

	tests := []struct {
		name string
		cfg  *config.RateLimitConfig
		want Policy
		nil_ bool
	}{
		{
			name: "disabled returns nil",
			cfg:  &config.RateLimitConfig{Enabled: &disabled, Policy: "concurrency", Capacity: 1},
			nil_: true,
		},
		{
			name: "concurrency",
			cfg:  &config.RateLimitConfig{Enabled: &enabled, Policy: "concurrency", Capacity: 4},
			want: PolicyConcurrency,
		},
		{
			name: "token bucket",
			cfg:  &config.RateLimitConfig{Enabled: &enabled, Policy: "token_bucket", Capacity: 4, Refill: time.Millisecond},
			want: PolicyTokenBucket,
		},
		{
			name: "sliding window",
			cfg:  &config.RateLimitConfig{Enabled: &enabled, Policy: "sliding_window", Capacity: 4, Window: time.Second},
			want: PolicySlidingWindow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lim, err := NewFromConfig(tt.cfg)
			require.NoError(t, err)

			if tt.nil_ {
				assert.Nil(t, lim)
				return
			}
			require.NotNil(t, lim)
			assert.Equal(t, int64(4), lim.Capacity())
		})
	}

	_, err := NewFromConfig(&config.RateLimitConfig{Enabled: &enabled, Policy: "nope", Capacity: 1})
	assert.Error(t, err)
}
