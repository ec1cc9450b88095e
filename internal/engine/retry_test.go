package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDelayForGrowsGeometrically(t *testing.T) {
	policy := Policy{MaxAttempts: 5, Delay: 100 * time.Millisecond, Multiplier: 2}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := policy.DelayFor(tc.attempt); got != tc.want {
			t.Fatalf("DelayFor(%d)=%v, want %v", tc.attempt, got, tc.want)
		}
	}
	if got := policy.DelayFor(0); got != 0 {
		t.Fatalf("DelayFor(0)=%v, want 0", got)
	}
}

func TestShouldRetryRespectsMaxAttempts(t *testing.T) {
	policy := Policy{MaxAttempts: 2}
	err := errors.New("boom")
	if !policy.ShouldRetry(err, 0) || !policy.ShouldRetry(err, 1) {
		t.Fatalf("expected retry below max attempts")
	}
	if policy.ShouldRetry(err, 2) {
		t.Fatalf("expected no retry at max attempts")
	}
}

func TestShouldRetryConsultsPredicate(t *testing.T) {
	permanent := errors.New("permanent")
	policy := Policy{
		MaxAttempts: 5,
		RetryOn:     func(err error) bool { return !errors.Is(err, permanent) },
	}
	if policy.ShouldRetry(permanent, 0) {
		t.Fatalf("expected predicate to block retry")
	}
	if !policy.ShouldRetry(errors.New("transient"), 0) {
		t.Fatalf("expected predicate to allow retry")
	}
}

func TestRetryRunExhaustionPerformsMaxPlusOneAttempts(t *testing.T) {
	policy := Policy{MaxAttempts: 3, Delay: time.Second, Multiplier: 2}
	var slept []time.Duration
	sleep := func(d time.Duration) { slept = append(slept, d) }

	calls := 0
	_, attempts, err := retryRun(context.Background(), "always-fails", policy, sleep, func(context.Context) (map[string]any, error) {
		calls++
		return nil, errors.New("boom")
	})
	if calls != 4 {
		t.Fatalf("executed %d times, want 4", calls)
	}
	if attempts != 4 {
		t.Fatalf("attempts=%d, want 4", attempts)
	}
	var exhausted *RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err=%v, want RetryExhaustedError", err)
	}
	if exhausted.Step != "always-fails" || exhausted.Attempts != 4 {
		t.Fatalf("exhausted=%+v, want step always-fails attempts 4", exhausted)
	}

	wantSleeps := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(slept) != len(wantSleeps) {
		t.Fatalf("slept %d times, want %d", len(slept), len(wantSleeps))
	}
	for i, want := range wantSleeps {
		if slept[i] != want {
			t.Fatalf("sleep %d = %v, want %v", i, slept[i], want)
		}
	}
}

func TestRetryRunSucceedsMidway(t *testing.T) {
	policy := Policy{MaxAttempts: 5, Delay: 10 * time.Millisecond, Multiplier: 2}
	calls := 0
	out, attempts, err := retryRun(context.Background(), "flaky", policy, func(time.Duration) {}, func(context.Context) (map[string]any, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("transient")
		}
		return map[string]any{"done": true}, nil
	})
	if err != nil {
		t.Fatalf("retryRun err=%v", err)
	}
	if calls != 3 || attempts != 3 {
		t.Fatalf("calls=%d attempts=%d, want 3/3", calls, attempts)
	}
	if out["done"] != true {
		t.Fatalf("out=%v, want done=true", out)
	}
}

func TestRetryRunStopsOnNonRetryableError(t *testing.T) {
	permanent := errors.New("permanent")
	policy := Policy{
		MaxAttempts: 5,
		Delay:       time.Second,
		RetryOn:     func(err error) bool { return !errors.Is(err, permanent) },
	}
	calls := 0
	_, attempts, err := retryRun(context.Background(), "fatal", policy, func(time.Duration) {}, func(context.Context) (map[string]any, error) {
		calls++
		return nil, permanent
	})
	if calls != 1 || attempts != 1 {
		t.Fatalf("calls=%d attempts=%d, want 1/1", calls, attempts)
	}
	var exhausted *RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err=%v, want RetryExhaustedError", err)
	}
	if !errors.Is(err, permanent) {
		t.Fatalf("cause not preserved: %v", err)
	}
}
