// Package retry runs an operation again with capped exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
)

// Policy describes how often and how patiently to retry.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Retryable decides whether err is worth another attempt. Nil retries
	// everything except context errors.
	Retryable func(error) bool

	// OnRetry is called before sleeping. attempt is 1-based and refers to the
	// attempt that just failed.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultPolicy returns 3 attempts backing off from 1s up to 30s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Backoff returns the wait after the given 0-based retry: base * 2^attempt,
// capped at MaxDelay.
func (p Policy) Backoff(attempt int) time.Duration {
	base, max := p.BaseDelay, p.MaxDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if max < base {
		max = base
	}
	if attempt < 0 {
		attempt = 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	return d
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do calls fn until it succeeds, returns a non-retryable error, runs out of
// attempts, or ctx ends. A non-retryable error is returned as is.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			if err == nil {
				return cerr
			}
			return &ExhaustedError{Attempts: attempt - 1, Err: err}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !p.retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		wait := p.Backoff(attempt - 1)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &ExhaustedError{Attempts: attempt, Err: err}
		case <-timer.C:
		}
	}
	return &ExhaustedError{Attempts: attempts, Err: err}
}

func (p Policy) retryable(err error) bool {
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return !errors.Is(err, context.Canceled)
}
