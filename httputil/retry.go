package httputil

import (
	"context"
	"fmt"
	"log"
	"time"
)

// RetryConfig holds the parameters for the retry strategy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Retryable marks an error as worth another attempt (HTTP 429 and 5xx map
// here). Non-retryable errors abort the loop immediately.
type Retryable struct {
	Err error
}

func (r Retryable) Error() string { return r.Err.Error() }
func (r Retryable) Unwrap() error { return r.Err }

// Do executes fn with exponential back-off, retrying only Retryable errors.
func (r RetryConfig) Do(ctx context.Context, operation string, fn func() error) error {
	delay := r.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if _, ok := lastErr.(Retryable); !ok {
			return lastErr
		}
		if attempt == r.MaxAttempts {
			break
		}

		log.Printf("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
			operation, attempt, r.MaxAttempts, lastErr, delay)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		delay *= 2
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, r.MaxAttempts, lastErr)
}
