package suggest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/core"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/log"
	"github.com/Marcelo-Code/asistentePersonalAhorro/internal/retry"
)

const (
	DefaultTimeout          = 20 * time.Second
	DefaultRatePerSecond    = 1.0
	DefaultBreakerFailures  = 5
	DefaultBreakerOpenDelay = 30 * time.Second
)

// Options tunes Resilient. Zero values take the defaults above.
type Options struct {
	Timeout          time.Duration
	Retry            retry.Policy
	RatePerSecond    float64
	Burst            int
	BreakerFailures  uint32
	BreakerOpenDelay time.Duration
	Logger           *log.Logger
}

// Resilient wraps a Suggester with a token bucket, a per-attempt timeout,
// retries with backoff and a circuit breaker.
type Resilient struct {
	next    Suggester
	timeout time.Duration
	policy  retry.Policy
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *log.Logger
}

func NewResilient(next Suggester, opts Options) *Resilient {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = DefaultRatePerSecond
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = DefaultBreakerFailures
	}
	if opts.BreakerOpenDelay <= 0 {
		opts.BreakerOpenDelay = DefaultBreakerOpenDelay
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}

	r := &Resilient{
		next:    next,
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		logger:  opts.Logger.WithComponent(log.ComponentSuggest),
	}

	failures := opts.BreakerFailures
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "suggest",
		MaxRequests: 1,
		Timeout:     opts.BreakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// caller cancellations and bad input say nothing about upstream health
			return err == nil || errors.Is(err, context.Canceled) || core.IsValidation(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	r.policy = opts.Retry
	r.policy.Retryable = Retryable
	userOnRetry := opts.Retry.OnRetry
	r.policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		r.logger.Warn("Suggestion attempt failed, retrying",
			log.FieldAttempt, attempt,
			log.FieldError, err.Error(),
			"backoff", wait.String())
		if userOnRetry != nil {
			userOnRetry(attempt, err, wait)
		}
	}
	return r
}

// State exposes the breaker state for readiness checks.
func (r *Resilient) State() gobreaker.State {
	return r.breaker.State()
}

// Suggest returns ErrUnavailable, wrapping the last cause, when the model
// could not be reached. Validation errors and caller cancellation pass
// through unchanged.
func (r *Resilient) Suggest(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	var text string
	err := retry.Do(ctx, r.policy, func(ctx context.Context) error {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		out, err := r.breaker.Execute(func() (interface{}, error) {
			actx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			return r.next.Suggest(actx, req)
		})
		if err != nil {
			return err
		}
		text = out.(string)
		return nil
	})
	if err == nil {
		return text, nil
	}

	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return "", err
	}
	if core.IsValidation(err) {
		return "", err
	}
	return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// Retryable classifies model errors. Open circuits, validation failures,
// empty answers and 4xx other than 429 are final.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, ErrEmptyResponse), errors.Is(err, ErrDisabled):
		return false
	case core.IsValidation(err):
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	// timeouts and transport failures
	return true
}
