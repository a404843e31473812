// Package retry holds the backoff policy used when (re)dialing the relay.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Policy describes how many times and how fast an operation is re-attempted.
type Policy struct {
	MaxRetries   int           `json:"max_retries" validate:"gte=0"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Backoff      BackoffType   `json:"backoff"`
	JitterFactor float64       `json:"jitter_factor" validate:"gte=0,lte=1"`
}

// BackoffType identifies the backoff strategy.
type BackoffType string

const (
	BackoffFixed       BackoffType = "fixed"
	BackoffLinear      BackoffType = "linear"
	BackoffExponential BackoffType = "exponential"
)

// DialPolicy is the exponential policy used for relay connections.
func DialPolicy(retries int, initial time.Duration) Policy {
	return Policy{
		MaxRetries:   retries,
		InitialDelay: initial,
		MaxDelay:     initial * 16,
		Backoff:      BackoffExponential,
		JitterFactor: 0.2,
	}
}

// NoRetry never re-attempts.
func NoRetry() Policy {
	return Policy{}
}

// CalculateDelay returns the wait before the given retry (1-based).
func (p Policy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 0 || p.InitialDelay <= 0 {
		return 0
	}

	var delay time.Duration
	switch p.Backoff {
	case BackoffLinear:
		delay = p.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		delay = p.InitialDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	default:
		delay = p.InitialDelay
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.JitterFactor > 0 {
		jitter := float64(delay) * p.JitterFactor * (rand.Float64()*2 - 1)
		delay = time.Duration(float64(delay) + jitter)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Func is one attempt of a retried operation. attempt starts at 0.
type Func func(ctx context.Context, attempt int) error

// Executor runs functions under a policy.
type Executor struct {
	policy  Policy
	onRetry func(attempt int, delay time.Duration, err error)
}

// NewExecutor creates an executor for policy.
func NewExecutor(policy Policy) *Executor {
	return &Executor{policy: policy}
}

// OnRetry registers a hook called before each wait.
func (e *Executor) OnRetry(fn func(attempt int, delay time.Duration, err error)) *Executor {
	e.onRetry = fn
	return e
}

// Execute runs fn until it succeeds, returns a permanent error, the policy is
// exhausted or ctx is done. The last error is returned unwrapped.
func (e *Executor) Execute(ctx context.Context, fn Func) error {
	var lastErr error
	for attempt := 0; attempt <= e.policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt >= e.policy.MaxRetries {
			break
		}

		delay := e.policy.CalculateDelay(attempt + 1)
		if e.onRetry != nil {
			e.onRetry(attempt+1, delay, err)
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}
