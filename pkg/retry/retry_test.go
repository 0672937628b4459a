package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transientErr struct{ msg string }

func (e *transientErr) Error() string     { return e.msg }
func (e *transientErr) IsRetryable() bool { return true }

type permanentErr struct{ msg string }

func (e *permanentErr) Error() string     { return e.msg }
func (e *permanentErr) IsRetryable() bool { return false }

func fastPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		Multiplier:  2,
	}
}

func TestRetryableErrorExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := &transientErr{msg: "boom"}

	err := Do(context.Background(), fastPolicy(4), "op", func(context.Context) error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls, "should invoke exactly MaxAttempts times")

	// The final error keeps its kind.
	var te *transientErr
	assert.ErrorAs(t, err, &te)
}

func TestNonRetryableErrorPropagatesImmediately(t *testing.T) {
	calls := 0
	boom := &permanentErr{msg: "bad request"}

	err := Do(context.Background(), fastPolicy(5), "op", func(context.Context) error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "non-retryable errors consume no retries")
	assert.Equal(t, boom, err)
}

func TestSuccessAfterFailures(t *testing.T) {
	calls := 0

	v, err := DoValue(context.Background(), fastPolicy(5), "op", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &transientErr{msg: "not yet"}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
}

func TestTimeoutIsRetryable(t *testing.T) {
	calls := 0

	err := Do(context.Background(), fastPolicy(3), "op", func(context.Context) error {
		calls++
		return context.DeadlineExceeded
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCancellationStopsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := Policy{MaxAttempts: 10, BaseDelay: time.Hour, Multiplier: 1}

	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, p, "op", func(context.Context) error {
			return &transientErr{msg: "always"}
		})
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestDelaySchedule(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, p.delay(1))
	assert.Equal(t, 200*time.Millisecond, p.delay(2))
	assert.Equal(t, 400*time.Millisecond, p.delay(3))
}

func TestDelayJitterBounded(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, Multiplier: 1, Jitter: true}

	for i := 0; i < 50; i++ {
		d := p.delay(1)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 110*time.Millisecond)
	}
}

func TestCustomClassifier(t *testing.T) {
	sentinel := errors.New("special")
	calls := 0

	p := fastPolicy(3)
	p.Classify = func(err error) bool { return errors.Is(err, sentinel) }

	err := Do(context.Background(), p, "op", func(context.Context) error {
		calls++
		return sentinel
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}
