// Package retry runs an operation a bounded number of times, with either a
// fixed delay or doubling backoff between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy bounds a retry loop. Delay is the wait before the second attempt;
// when MaxDelay is set the delay doubles after each failure up to that cap,
// otherwise it stays fixed.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	MaxDelay    time.Duration

	// OnRetry observes each failed attempt that will be retried, with the
	// delay before the next one. May be nil.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// permanentError stops a retry loop early.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps an error so Do gives up immediately instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs op until it succeeds, exhausts the attempt budget, hits a
// Permanent error, or the context is done. The returned error is the last
// one from op, unwrapped from any Permanent marker.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	delay := p.Delay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		var permanent *permanentError
		if errors.As(err, &permanent) {
			return permanent.err
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = p.nextDelay(delay)
	}

	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

func (p Policy) nextDelay(current time.Duration) time.Duration {
	if p.MaxDelay <= 0 {
		return current
	}
	next := current * 2
	if next > p.MaxDelay {
		next = p.MaxDelay
	}
	return next
}
