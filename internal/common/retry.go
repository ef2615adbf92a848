package common

import (
	"context"
	"log/slog"
	"time"
)

// Retry defaults.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 200 * time.Millisecond
)

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Permanent marks err so Retry returns it immediately instead of trying again.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err, Retryable: false}
}

// RetryOptions configures Retry. The delay between attempts is fixed.
type RetryOptions struct {
	Logger      *slog.Logger
	Name        string
	MaxAttempts int
	Delay       time.Duration
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Delay <= 0 {
		o.Delay = DefaultRetryDelay
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Name == "" {
		o.Name = "operation"
	}
	return o
}

// Retry runs operation up to MaxAttempts times. An attempt fails when it returns
// an error or ok=false; both are retried and logged differently. Cancellation of
// ctx, before an attempt or during the delay, ends the loop with no result and a
// nil error. Errors that IsRetryable rejects are returned to the caller at once.
// Exhausting every attempt also yields no result and a nil error.
func Retry[T any](ctx context.Context, opts RetryOptions, operation func(ctx context.Context) (T, bool, error)) (T, bool, error) {
	opts = opts.withDefaults()
	var zero T

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return zero, false, nil
		}

		result, ok, err := operation(ctx)
		switch {
		case err != nil && !IsRetryable(err):
			if ctx.Err() != nil {
				return zero, false, nil
			}
			return zero, false, err
		case err == nil && ok:
			if attempt > 1 {
				opts.Logger.Info("Operation succeeded after retry",
					"operation", opts.Name,
					"attempt", attempt)
			}
			return result, true, nil
		}

		if attempt == opts.MaxAttempts {
			if err != nil {
				opts.Logger.Error("Operation failed after all attempts",
					"operation", opts.Name,
					"attempts", opts.MaxAttempts,
					"error", err)
			} else {
				opts.Logger.Error("Operation returned no result after all attempts",
					"operation", opts.Name,
					"attempts", opts.MaxAttempts)
			}
			break
		}

		if err != nil {
			opts.Logger.Warn("Operation failed, retrying",
				"operation", opts.Name,
				"attempt", attempt,
				"max_attempts", opts.MaxAttempts,
				"delay", opts.Delay,
				"error", err)
		} else {
			opts.Logger.Warn("Operation returned no result, retrying",
				"operation", opts.Name,
				"attempt", attempt,
				"max_attempts", opts.MaxAttempts,
				"delay", opts.Delay)
		}

		timer := time.NewTimer(opts.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			opts.Logger.Warn("Retry wait cancelled", "operation", opts.Name)
			return zero, false, nil
		case <-timer.C:
		}
	}

	return zero, false, nil
}

// RetryBool is Retry for operations whose only result is success or failure.
func RetryBool(ctx context.Context, opts RetryOptions, operation func(ctx context.Context) (bool, error)) (bool, error) {
	_, ok, err := Retry(ctx, opts, func(ctx context.Context) (struct{}, bool, error) {
		ok, err := operation(ctx)
		return struct{}{}, ok, err
	})
	return ok, err
}
