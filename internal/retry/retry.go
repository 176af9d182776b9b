// Package retry runs an operation with bounded retries and exponential backoff.
//
// The loop is explicit: attempt counter, computed delay, last error. Sleeping goes
// through an injectable function so callers can exercise the schedule without
// waiting on real timers.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Func is one attempt. attempt starts at 1.
type Func func(ctx context.Context, attempt int) error

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy describes how many times to retry and how long to wait in between.
type Policy struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	multiplier float64

	retryIf   func(error) bool
	delayHint func(error) (time.Duration, bool)
	onRetry   func(attempt int, delay time.Duration, err error)
	sleep     SleepFunc
}

// Option configures a Policy.
type Option func(*Policy)

// WithMaxRetries sets how many times a failed attempt is retried. 0 disables retries.
func WithMaxRetries(n int) Option {
	return func(p *Policy) {
		if n >= 0 {
			p.maxRetries = n
		}
	}
}

// WithBaseDelay sets the wait before the first retry.
func WithBaseDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d >= 0 {
			p.baseDelay = d
		}
	}
}

// WithMaxDelay caps any single wait.
func WithMaxDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.maxDelay = d
		}
	}
}

// WithMultiplier sets the growth factor between consecutive waits.
func WithMultiplier(m float64) Option {
	return func(p *Policy) {
		if m >= 1 {
			p.multiplier = m
		}
	}
}

// WithRetryIf restricts retries to errors for which fn returns true.
// Errors it rejects are returned immediately.
func WithRetryIf(fn func(error) bool) Option {
	return func(p *Policy) {
		if fn != nil {
			p.retryIf = fn
		}
	}
}

// WithDelayHint lets an error dictate its own wait, e.g. from a Retry-After header.
// The hint is still capped by the max delay.
func WithDelayHint(fn func(error) (time.Duration, bool)) Option {
	return func(p *Policy) {
		p.delayHint = fn
	}
}

// WithOnRetry registers a hook invoked before each wait.
func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(p *Policy) {
		p.onRetry = fn
	}
}

// WithSleep replaces the timer-based sleep.
func WithSleep(fn SleepFunc) Option {
	return func(p *Policy) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

// NewPolicy returns a policy with defaults of 3 retries, 300ms base delay,
// doubling, capped at 120s, retrying every error.
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		maxRetries: 3,
		baseDelay:  300 * time.Millisecond,
		maxDelay:   120 * time.Second,
		multiplier: 2,
		retryIf:    func(error) bool { return true },
		sleep:      Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do runs fn until it succeeds, fails with a non-retryable error, the retries
// run out, or ctx is done.
func (p *Policy) Do(ctx context.Context, fn Func) error {
	if fn == nil {
		return errors.New("retry: function cannot be nil")
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if !p.retryIf(lastErr) {
			return lastErr
		}
		if attempt > p.maxRetries {
			return &ExhaustedError{Attempts: attempt, Err: lastErr}
		}

		delay := p.Delay(attempt)
		if p.delayHint != nil {
			if hint, ok := p.delayHint(lastErr); ok {
				delay = min(hint, p.maxDelay)
			}
		}
		if p.onRetry != nil {
			p.onRetry(attempt, delay, lastErr)
		}
		if err := p.sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry aborted during backoff after attempt %d: %w", attempt, err)
		}
	}
}

// Delay is the wait after the given failed attempt: base * multiplier^(attempt-1), capped.
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.baseDelay) * math.Pow(p.multiplier, float64(attempt-1))
	if d >= float64(p.maxDelay) {
		return p.maxDelay
	}
	return time.Duration(d)
}

// Sleep waits on a timer and returns early with ctx.Err() on cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
