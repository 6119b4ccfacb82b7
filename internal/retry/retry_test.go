package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{64, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.expected, p.Backoff(tt.attempt))
		})
	}
}

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	var waits []time.Duration
	p := fastPolicy(3)
	p.OnRetry = func(_ int, _ error, wait time.Duration) { waits = append(waits, wait) }

	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestDo_Exhausted(t *testing.T) {
	boom := errors.New("boom")
	calls := 0

	err := Do(context.Background(), fastPolicy(2), func(context.Context) error {
		calls++
		return boom
	})

	var ex *ExhaustedError
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, 2, ex.Attempts)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	permanent := errors.New("bad request")
	p := fastPolicy(5)
	p.Retryable = func(err error) bool { return !errors.Is(err, permanent) }
	calls := 0

	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		return permanent
	})

	assert.Same(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestDo_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}

	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, p, func(context.Context) error { return errors.New("down") })
	}()
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Do ignored cancellation")
	}
}

func TestDo_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastPolicy(3), func(context.Context) error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
