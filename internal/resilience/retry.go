// Package resilience wraps storage operations with bounded retry for
// transient failures such as lock contention.
package resilience

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultMaxAttempts is the total attempt budget, first try included.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is multiplied by the attempt number for the linear
	// backoff between attempts.
	DefaultBaseDelay = 100 * time.Millisecond
)

// Retryer retries operations that fail with a retryable signature. The
// attempt budget bounds retries; nothing bounds total wall-clock time beyond
// the caller's context.
type Retryer struct {
	MaxAttempts int
	BaseDelay   time.Duration

	// Retryable classifies errors. Operations failing with an error this
	// rejects are not retried.
	Retryable func(error) bool

	Log *slog.Logger
}

// New creates a Retryer with the given classifier and default budget.
func New(retryable func(error) bool) *Retryer {
	return &Retryer{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Retryable:   retryable,
		Log:         slog.Default(),
	}
}

// Do invokes op, retrying retryable failures with linearly increasing
// backoff until the attempt budget is spent. The last error is returned
// unchanged.
func (r *Retryer) Do(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, r *Retryer, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if r.Retryable == nil || !r.Retryable(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		delay := time.Duration(attempt) * r.BaseDelay
		if r.Log != nil {
			r.Log.Warn("transient storage error, retrying",
				"attempt", attempt, "max_attempts", attempts, "delay", delay, "error", err)
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, lastErr
}
