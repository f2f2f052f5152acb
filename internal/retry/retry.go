// Package retry provides a generic retry-with-exponential-backoff wrapper for
// network-calling operations.
package retry

import (
	"context"
	"errors"
	"net"
	"net/url"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/holocron-dev/holocron/internal/logger"
)

const (
	// DefaultMaxAttempts is the default total number of attempts.
	DefaultMaxAttempts = 5

	// DefaultInitialDelay is the default base delay used to compute backoff.
	DefaultInitialDelay = 1 * time.Second

	// DefaultMaxDelay is the default cap on the delay between attempts.
	DefaultMaxDelay = 30 * time.Second
)

type config struct {
	maxAttempts  uint
	initialDelay time.Duration
	maxDelay     time.Duration
	retryIf      func(error) bool
}

// Option configures the retry behavior.
type Option func(*config)

// WithMaxAttempts sets the total number of attempts (including the first).
func WithMaxAttempts(n uint) Option {
	return func(c *config) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithInitialDelay sets the base delay; the wait before attempt n+1 is
// min(initialDelay * 2^n, maxDelay).
func WithInitialDelay(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.initialDelay = d
		}
	}
}

// WithMaxDelay caps the delay between attempts.
func WithMaxDelay(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.maxDelay = d
		}
	}
}

// WithRetryIf replaces the default retryable-error classification
// (IsNetworkError) with a custom predicate.
func WithRetryIf(pred func(error) bool) Option {
	return func(c *config) {
		if pred != nil {
			c.retryIf = pred
		}
	}
}

// Do runs op, retrying on network-kind failures with exponential backoff.
//
// Only connection failures, timeouts, and request-layer transport errors are
// retried; any other error fails after exactly one attempt. Each retry emits
// a warning with the attempt number and the computed delay. The terminal
// failure is logged once at error level and returned; callers must treat any
// non-nil error uniformly as "operation failed" and never branch on its cause.
func Do[T any](ctx context.Context, name string, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	cfg := &config{
		maxAttempts:  DefaultMaxAttempts,
		initialDelay: DefaultInitialDelay,
		maxDelay:     DefaultMaxDelay,
		retryIf:      IsNetworkError,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	wrapped := func() (T, error) {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if !cfg.retryIf(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	expo := backoff.NewExponentialBackOff()
	// First wait is initialDelay * 2, matching min(initial * 2^n, max) with
	// n counting from the first failed attempt.
	expo.InitialInterval = 2 * cfg.initialDelay
	expo.Multiplier = 2
	expo.MaxInterval = cfg.maxDelay
	expo.RandomizationFactor = 0

	attempt := 0
	notify := func(err error, wait time.Duration) {
		attempt++
		logger.Warnw("network error, retrying",
			"operation", name,
			"attempt", attempt,
			"max_attempts", cfg.maxAttempts,
			"next_wait", wait.String(),
			"error", err,
		)
	}

	result, err := backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(cfg.maxAttempts),
		backoff.WithNotify(notify),
	)
	if err != nil {
		logger.Errorw("operation failed",
			"operation", name,
			"attempts", attempt+1,
			"error", err,
		)
		var zero T
		return zero, err
	}

	return result, nil
}

// IsNetworkError reports whether err is a connection failure, timeout, or
// request-layer transport error, i.e. the class of failures worth retrying.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ETIMEDOUT):
		return true
	}

	return false
}
