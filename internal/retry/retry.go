// Package retry runs an operation with exponential backoff between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"time"
)

var (
	// ErrMaxAttemptsExceeded is returned when max retry attempts are exceeded
	ErrMaxAttemptsExceeded = errors.New("max retry attempts exceeded")
	// ErrContextCancelled is returned when the context is cancelled during retry
	ErrContextCancelled = errors.New("context cancelled during retry")
)

const (
	defaultMaxAttempts  = 4
	defaultInitialDelay = time.Second
	defaultMaxDelay     = 30 * time.Second
	defaultMultiplier   = 2.0
)

// Config configures retry behavior.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration
	// Multiplier is the exponential backoff multiplier.
	Multiplier float64
	// IsRetryable decides whether an error warrants another attempt.
	IsRetryable func(error) bool
	// OnRetry is called before each backoff sleep with the failed attempt number (1-based).
	OnRetry func(attempt int, delay time.Duration, err error)
	// Sleep waits for d or until ctx is done. Defaults to a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// WithDefaults returns a copy of the config with zero values filled in.
func (c Config) WithDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = defaultInitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.Multiplier <= 0 {
		c.Multiplier = defaultMultiplier
	}
	if c.IsRetryable == nil {
		c.IsRetryable = DefaultIsRetryable
	}
	if c.Sleep == nil {
		c.Sleep = SleepContext
	}
	return c
}

// Backoff returns the delay after the given failed attempt (1-based):
// InitialDelay * Multiplier^(attempt-1), capped at MaxDelay.
func (c Config) Backoff(attempt int) time.Duration {
	d := time.Duration(float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1)))
	if c.MaxDelay > 0 && d > c.MaxDelay {
		return c.MaxDelay
	}
	return d
}

// DefaultIsRetryable treats timeouts as retryable.
func DefaultIsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry executes fn until it succeeds, returns a non-retryable error,
// or MaxAttempts is reached.
func Retry(ctx context.Context, config Config, fn func(ctx context.Context) error) error {
	config = config.WithDefaults()

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !config.IsRetryable(err) {
			return err
		}

		// No sleep after the last attempt
		if attempt == config.MaxAttempts {
			break
		}

		delay := config.Backoff(attempt)
		if config.OnRetry != nil {
			config.OnRetry(attempt, delay, err)
		}
		if sleepErr := config.Sleep(ctx, delay); sleepErr != nil {
			return fmt.Errorf("%w: %w", ErrContextCancelled, sleepErr)
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxAttemptsExceeded, config.MaxAttempts, lastErr)
}
