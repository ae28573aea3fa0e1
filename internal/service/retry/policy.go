// Package retry implements a small bounded-retry combinator on top of
// cenkalti/backoff: a maximum number of attempts, a backoff function from the
// failed attempt to the next delay, and a predicate separating retryable
// failures from terminal ones.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how an operation is retried. The zero value runs the
// operation once.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first one.
	MaxAttempts int
	// Backoff returns the delay after the given 1-based failed attempt.
	Backoff func(attempt int, err error) time.Duration
	// Retryable reports whether err may be retried. Nil retries everything.
	Retryable func(err error) bool
	// Timer drives the waits between attempts. Nil uses a real timer.
	Timer backoff.Timer
	// OnRetry is called before every wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// errorBackOff feeds the last failure to Policy.Backoff.
type errorBackOff struct {
	next    func(attempt int, err error) time.Duration
	attempt int
	lastErr error
}

func (b *errorBackOff) NextBackOff() time.Duration {
	if b.next == nil {
		return 0
	}
	// 负值会被当作 backoff.Stop。
	return max(b.next(b.attempt, b.lastErr), 0)
}

func (b *errorBackOff) Reset() {
	b.attempt = 0
	b.lastErr = nil
}

// Do runs op until it succeeds, fails with a non-retryable error, or runs out
// of attempts. Terminal errors are returned unchanged; exhaustion is reported
// as *ExhaustedError wrapping the last failure. Cancelling ctx while waiting
// returns ctx.Err().
func (p Policy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	attempts := max(p.MaxAttempts, 1)

	eb := &errorBackOff{next: p.Backoff}
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)

	terminal := false
	operation := func() error {
		eb.attempt++
		err := op(ctx, eb.attempt)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			terminal = true
			return backoff.Permanent(err)
		}
		eb.lastErr = err
		return err
	}

	var notify backoff.Notify
	if p.OnRetry != nil {
		notify = func(err error, delay time.Duration) {
			p.OnRetry(eb.attempt, delay, err)
		}
	}

	err := backoff.RetryNotifyWithTimer(operation, b, notify, p.Timer)
	switch {
	case err == nil, terminal:
		return err
	case ctx.Err() != nil:
		return err
	default:
		return &ExhaustedError{Attempts: eb.attempt, Err: err}
	}
}

// Constant waits d after every failure.
func Constant(d time.Duration) func(int, error) time.Duration {
	return func(int, error) time.Duration { return d }
}

// Linear waits attempt*step after a failure: step, 2*step, 3*step...
func Linear(step time.Duration) func(int, error) time.Duration {
	return func(attempt int, _ error) time.Duration {
		return time.Duration(attempt) * step
	}
}
