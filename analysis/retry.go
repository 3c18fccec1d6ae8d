// ABOUTME: Retry logic with exponential backoff and jitter for analysis calls.
// ABOUTME: Retries only errors that report themselves retryable and honors provider Retry-After hints.

package analysis

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryPolicy configures how analysis calls are repeated after a failure.
type RetryPolicy struct {
	// MaxRetries is the maximum number of retry attempts (not counting the initial call).
	MaxRetries int

	// BaseDelay is the initial delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay is the upper bound on the delay between retries.
	MaxDelay time.Duration

	BackoffMultiplier float64

	// Jitter randomizes each delay between zero and the computed backoff.
	Jitter bool

	// OnRetry is invoked before each retry with the triggering error, the
	// attempt number (0-indexed) and the delay about to be applied.
	OnRetry func(err error, attempt int, delay time.Duration)
}

// DefaultRetryPolicy returns 2 retries, 1s base delay, 60s max delay, 2x backoff, jitter enabled.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        2,
		BaseDelay:         time.Second,
		MaxDelay:          60 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// NoRetry returns a policy that makes exactly one attempt.
func NoRetry() RetryPolicy {
	return RetryPolicy{BackoffMultiplier: 1}
}

// CalculateDelay computes the delay for a given retry attempt, capped at MaxDelay.
func (p RetryPolicy) CalculateDelay(attempt int) time.Duration {
	delayFloat := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt))
	if delayFloat > float64(p.MaxDelay) {
		delayFloat = float64(p.MaxDelay)
	}
	delay := time.Duration(delayFloat)
	if p.Jitter && delay > 0 {
		delay = time.Duration(rand.Int64N(int64(delay) + 1))
	}
	return delay
}

// ShouldRetry reports whether err is retryable and attempts remain.
func (p RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= p.MaxRetries {
		return false
	}
	var r interface{ IsRetryable() bool }
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return false
}

// Retry runs fn until it succeeds, returns a non-retryable error, exhausts
// the policy, or ctx is cancelled. The last error is returned.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !policy.ShouldRetry(err, attempt) {
			return err
		}

		delay := applyRetryAfter(err, policy.CalculateDelay(attempt))
		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

// applyRetryAfter returns the larger of the computed delay and the
// provider's Retry-After hint.
func applyRetryAfter(err error, calculated time.Duration) time.Duration {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.RetryAfter != nil {
		if hint := time.Duration(*pe.RetryAfter * float64(time.Second)); hint > calculated {
			return hint
		}
	}
	return calculated
}
