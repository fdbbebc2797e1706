package services

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/apperrors"
)

const (
	defaultRetryAttempts  = 4
	defaultRetryBaseDelay = 20 * time.Millisecond
	defaultJitterFactor   = 0.3
)

// RetryOption configures RetryOnConflict.
type RetryOption func(*retryConfig)

type retryConfig struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
}

// WithMaxAttempts sets the total number of attempts. Values below one are ignored.
func WithMaxAttempts(attempts int) RetryOption {
	return func(c *retryConfig) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
	}
}

// WithBaseDelay sets the first backoff delay. Later delays double.
func WithBaseDelay(delay time.Duration) RetryOption {
	return func(c *retryConfig) {
		if delay >= 0 {
			c.baseDelay = delay
		}
	}
}

// RetryOnConflict runs fn, retrying with exponential backoff while it fails with
// ErrConcurrencyConflict. Any other error, including timeouts, fails fast.
func RetryOnConflict(ctx context.Context, fn func(ctx context.Context) error, opts ...RetryOption) error {
	cfg := &retryConfig{
		maxAttempts:  defaultRetryAttempts,
		baseDelay:    defaultRetryBaseDelay,
		jitterFactor: defaultJitterFactor,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var lastErr error
	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := cfg.baseDelay * time.Duration(1<<(attempt-1))
			delay += time.Duration(rand.Float64() * float64(delay) * cfg.jitterFactor) //nolint:gosec // jitter only

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil || !errors.Is(lastErr, apperrors.ErrConcurrencyConflict) {
			return lastErr
		}
	}
	return lastErr
}
