package storage

import (
	"context"
	"database/sql/driver"
	stderrors "errors"
	"fmt"
	"net"
	"syscall"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including first try).
	// Default: 3
	MaxAttempts int

	// InitialDelay is the initial delay between retries.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	// Default: 5s
	MaxDelay time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	// Default: 2.0
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryResult reports what a retried operation did.
type RetryResult struct {
	// Attempts is the number of attempts made.
	Attempts int

	// LastError is the last error encountered (nil if successful).
	LastError error

	// Errors contains all errors from each attempt.
	Errors []error

	// Success indicates whether the operation ultimately succeeded.
	Success bool
}

// String provides a human-readable summary of the retry result.
func (r RetryResult) String() string {
	if r.Success {
		if r.Attempts == 1 {
			return "succeeded on first attempt"
		}
		return fmt.Sprintf("succeeded after %d attempts", r.Attempts)
	}
	return fmt.Sprintf("failed after %d attempts: %v", r.Attempts, r.LastError)
}

// RetryableError wraps an error with retry information.
type RetryableError struct {
	Result RetryResult
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Result.Attempts, e.Result.LastError)
}

func (e *RetryableError) Unwrap() error {
	return e.Result.LastError
}

// IsRetryable reports whether err looks like a transient connection
// failure. Context cancellation and SQL errors are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if stderrors.Is(err, driver.ErrBadConn) || stderrors.Is(err, syscall.ECONNREFUSED) || stderrors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var opErr *net.OpError
	return stderrors.As(err, &opErr)
}

// ExecuteWithRetry runs fn until it succeeds, fails with a non-retryable
// error, or runs out of attempts. The returned result records every attempt.
func ExecuteWithRetry(ctx context.Context, config RetryConfig, fn func() error) RetryResult {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = 2.0
	}

	result := RetryResult{
		Errors: make([]error, 0, config.MaxAttempts),
	}
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		result.Attempts = attempt

		if ctx.Err() != nil {
			result.LastError = ctx.Err()
			result.Errors = append(result.Errors, ctx.Err())
			return result
		}

		err := fn()
		if err == nil {
			result.Success = true
			return result
		}
		result.LastError = err
		result.Errors = append(result.Errors, err)

		if !IsRetryable(err) {
			return result
		}

		if attempt < config.MaxAttempts {
			select {
			case <-ctx.Done():
				result.LastError = ctx.Err()
				result.Errors = append(result.Errors, ctx.Err())
				return result
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * config.BackoffMultiplier)
				if delay > config.MaxDelay {
					delay = config.MaxDelay
				}
			}
		}
	}

	return result
}
