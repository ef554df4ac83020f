package flowercare

import (
	"context"
	"errors"
	"time"
)

// Retry runs op up to attempts times, sleeping with exponential backoff
// (1s, 2s, 4s, ... capped at maxBackoff) between attempts. Only
// transport-kind failures are retried; protocol errors such as
// ErrStaleRead, ErrMalformedFrame and ErrUnknownCommand describe the
// device or the caller, not the link, and are returned immediately.
//
// The engine itself never retries: each session operation runs exactly
// once per call, and this wrapper is the composition point for callers
// that want a retry policy.
func Retry(ctx context.Context, attempts int, maxBackoff time.Duration, op func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffDelay(attempt-1, maxBackoff)):
			}
		}
		if err = op(); err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
	}
	return err
}

func retryable(err error) bool {
	return errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrConnectionTimeout) ||
		errors.Is(err, ErrCommandWrite)
}

// backoffDelay returns the delay for attempt n, capped at max.
func backoffDelay(attempt int, max time.Duration) time.Duration {
	delay := time.Duration(1<<uint(attempt)) * time.Second
	if max > 0 && delay > max {
		return max
	}
	return delay
}
