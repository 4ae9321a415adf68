package fetch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// RetryPolicy defines how transient failures are retried.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultRetryPolicy retries twice with 1s, 2s backoff, never waiting more
// than 10s between attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
	}
}

// ErrRetriesExhausted is wrapped into the error returned once every attempt failed.
var ErrRetriesExhausted = errors.New("max retries exceeded")

// RetryableError wraps an error to indicate it should be retried.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError marks err as transient.
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable checks if an error should trigger a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryable *RetryableError
	return errors.As(err, &retryable)
}

// Retry runs fn until it succeeds, returns a non-retryable error, or the
// policy is exhausted. fn receives the zero-based attempt number. The number
// of attempts made is returned alongside the error.
func Retry(ctx context.Context, policy RetryPolicy, fn func(attempt int) error) (int, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		attempts++
		err := fn(attempt)
		if err == nil {
			return attempts, nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return attempts, err
		}

		// Don't sleep after the last attempt
		if attempt == policy.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return attempts, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(Backoff(policy, attempt)):
		}
	}

	return attempts, fmt.Errorf("%w (%d): %w", ErrRetriesExhausted, policy.MaxRetries, lastErr)
}

// Backoff computes initialBackoff * factor^attempt, capped at MaxBackoff.
func Backoff(policy RetryPolicy, attempt int) time.Duration {
	backoff := float64(policy.InitialBackoff) * math.Pow(policy.BackoffFactor, float64(attempt))

	if policy.MaxBackoff > 0 && backoff > float64(policy.MaxBackoff) {
		backoff = float64(policy.MaxBackoff)
	}

	return time.Duration(backoff)
}
