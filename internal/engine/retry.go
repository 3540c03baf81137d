package engine

import (
	"context"
	"errors"
	"strings"
	"time"
)

// rateLimitBackoff is the linear back-off schedule for LLM 429 responses:
// retry up to 4 times, waiting 10s, 20s, 30s, 40s.
var rateLimitBackoff = []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second, 40 * time.Second}

// RateLimitError marks an error as a 429/rate-limit response so callWithRetry
// can distinguish it from any other provider error, which propagates
// unretried.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string { return e.Err.Error() }
func (e *RateLimitError) Unwrap() error { return e.Err }

// isRateLimit reports whether err is (or wraps) a RateLimitError, or — for
// providers that don't give us a typed error — carries the telltale "429"
// substring (see internal/mcpclient's reconnectOn401 for the analogous 401
// check).
func isRateLimit(err error) bool {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}
	return strings.Contains(err.Error(), "429")
}

// sleeper is the back-off sleep function; tests override it to avoid
// burning the linear 10/20/30/40s schedule in real time.
var sleeper = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// callWithRetry invokes call, retrying on a rate-limit error up to
// len(rateLimitBackoff) times with linear back-off. Every other error
// propagates on the first attempt; a rate-limit error that persists past
// the last retry also propagates.
func callWithRetry[T any](ctx context.Context, call func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= len(rateLimitBackoff); attempt++ {
		result, err := call()
		if err == nil {
			return result, nil
		}
		if !isRateLimit(err) {
			return zero, err
		}
		lastErr = err
		if attempt == len(rateLimitBackoff) {
			break
		}
		if sleepErr := sleeper(ctx, rateLimitBackoff[attempt]); sleepErr != nil {
			return zero, sleepErr
		}
	}
	return zero, lastErr
}
