// Package retry applies a bounded exponential-backoff policy to I/O calls.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Backoff is an exponential wait schedule. A zero Min disables waiting.
type Backoff struct {
	Min    time.Duration
	Max    time.Duration
	Factor float64
	Jitter float64
}

// Next returns the wait before the given retry (1-based).
func (b Backoff) Next(attempt int) time.Duration {
	if b.Min <= 0 {
		return 0
	}
	if attempt <= 0 {
		attempt = 1
	}
	factor := b.Factor
	if factor <= 1 {
		factor = 2.0
	}

	wait := b.Min
	for i := 1; i < attempt; i++ {
		next := time.Duration(float64(wait) * factor)
		if b.Max > 0 && next > b.Max {
			wait = b.Max
			break
		}
		wait = next
	}

	if b.Jitter <= 0 {
		return wait
	}
	jitter := b.Jitter
	if jitter > 1 {
		jitter = 1
	}
	delta := float64(wait) * jitter
	return wait - time.Duration(delta) + time.Duration(rand.Float64()*2*delta)
}

// Policy decides which errors are retried, how often and how long to wait.
type Policy struct {
	Name        string
	MaxAttempts int
	Backoff     Backoff
	Retryable   func(error) bool
}

// Exponential builds a policy waiting base, 2*base, 4*base... between
// attempts, capped at max.
func Exponential(name string, attempts int, base, max time.Duration, retryable func(error) bool) Policy {
	return Policy{
		Name:        name,
		MaxAttempts: attempts,
		Backoff:     Backoff{Min: base, Max: max, Factor: 2},
		Retryable:   retryable,
	}
}

// AttemptsError reports a retryable error that outlived the policy.
type AttemptsError struct {
	Policy   string
	Attempts int
	Err      error
}

func (e *AttemptsError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Policy, e.Attempts, e.Err)
}

func (e *AttemptsError) Unwrap() error { return e.Err }

// Do runs op until it succeeds, returns a non-retryable error, the policy's
// attempts are exhausted or ctx is done.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		wait := p.Backoff.Next(attempt)
		if wait <= 0 {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return &AttemptsError{Policy: p.Name, Attempts: attempts, Err: err}
}

// Value runs op under the policy and returns the result of the last
// attempt, also when that attempt failed.
func Value[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		out = v
		return err
	})
	return out, err
}
