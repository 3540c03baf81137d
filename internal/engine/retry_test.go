package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestCallWithRetry_RetriesRateLimitThenSucceeds mirrors scenario S5: a
// 429 on the first attempt followed by success produces exactly one
// successful result and no propagated error.
func TestCallWithRetry_RetriesRateLimitThenSucceeds(t *testing.T) {
	restore := stubSleeper(t)
	defer restore()

	attempts := 0
	result, err := callWithRetry(context.Background(), func() (string, error) {
		attempts++
		if attempts == 1 {
			return "", &RateLimitError{Err: errors.New("429 too many requests")}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("expected success after one retry, got error: %v", err)
	}
	if result != "ok" {
		t.Errorf("expected result 'ok', got %q", result)
	}
	if attempts != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", attempts)
	}
}

// TestCallWithRetry_FifthRateLimitPropagates checks invariant 10: a 429
// persisting past all 4 retries (5 total attempts) propagates as an error
// rather than retrying forever.
func TestCallWithRetry_FifthRateLimitPropagates(t *testing.T) {
	restore := stubSleeper(t)
	defer restore()

	attempts := 0
	_, err := callWithRetry(context.Background(), func() (string, error) {
		attempts++
		return "", &RateLimitError{Err: errors.New("429")}
	})
	if err == nil {
		t.Fatal("expected the 5th consecutive 429 to propagate as an error")
	}
	if attempts != 5 {
		t.Errorf("expected exactly 5 attempts (1 + 4 retries), got %d", attempts)
	}
}

// TestCallWithRetry_NonRateLimitPropagatesImmediately checks that any
// other error is never retried.
func TestCallWithRetry_NonRateLimitPropagatesImmediately(t *testing.T) {
	restore := stubSleeper(t)
	defer restore()

	attempts := 0
	wantErr := errors.New("boom")
	_, err := callWithRetry(context.Background(), func() (string, error) {
		attempts++
		return "", wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected the original error to propagate, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected exactly 1 attempt for a non-rate-limit error, got %d", attempts)
	}
}

// stubSleeper replaces the package's back-off sleep function with a no-op
// so retry tests don't burn the real 10/20/30/40s schedule, restoring the
// original on cleanup.
func stubSleeper(t *testing.T) func() {
	t.Helper()
	original := sleeper
	sleeper = func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	}
	return func() { sleeper = original }
}
