package engine

import (
	"context"
	"time"
)

// Policy configures retry behavior for a single step. It is pure
// configuration; the driver carries all mutable state.
type Policy struct {
	// MaxAttempts is the number of retries after the original execution, so
	// a policy with MaxAttempts = N performs up to N+1 executions in total.
	MaxAttempts int
	// Delay is the wait before the first retry.
	Delay time.Duration
	// Multiplier scales the delay for each subsequent retry.
	Multiplier float64
	// RetryOn decides whether an error is retryable. Nil retries any error.
	RetryOn func(error) bool
}

// DefaultPolicy is applied by RetryStep when the caller passes no policy.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Delay: time.Second, Multiplier: 2}
}

// ShouldRetry reports whether another attempt is allowed after a failure on
// the given zero-indexed attempt.
func (p Policy) ShouldRetry(err error, attempt int) bool {
	if attempt >= p.MaxAttempts {
		return false
	}
	if p.RetryOn != nil {
		return p.RetryOn(err)
	}
	return true
}

// DelayFor returns the backoff before attempt n (zero-indexed, n >= 1):
// Delay x Multiplier^(n-1).
func (p Policy) DelayFor(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	d := float64(p.Delay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	return time.Duration(d)
}

// retryRun drives execute through the policy as an explicit loop, carrying
// the attempt counter instead of recursing. It returns the successful output
// and the total number of attempts made. On exhaustion it returns a
// RetryExhaustedError that includes the failing attempt in the count.
func retryRun(ctx context.Context, stepName string, policy Policy, sleep func(time.Duration), execute func(context.Context) (map[string]any, error)) (map[string]any, int, error) {
	for attempt := 0; ; attempt++ {
		out, err := execute(ctx)
		if err == nil {
			return out, attempt + 1, nil
		}
		if !policy.ShouldRetry(err, attempt) {
			return nil, attempt + 1, &RetryExhaustedError{Step: stepName, Attempts: attempt + 1, Cause: err}
		}
		sleep(policy.DelayFor(attempt + 1))
	}
}
