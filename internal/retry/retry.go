// Package retry runs an operation under a fixed-delay, bounded-attempt policy.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhausted is returned when every attempt finished without success.
var ErrExhausted = errors.New("retry budget exhausted")

var errNotDone = errors.New("attempt not done")

// Policy retries up to MaxAttempts times with a constant Delay between
// attempts. No delay follows the final attempt or a successful one.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration

	// Timer drives the waits; nil uses a real timer.
	Timer backoff.Timer
	// Notify is called before each wait with the attempt that just failed.
	Notify func(attempt int, next time.Duration)
}

// Fixed is the upload polling policy: 10 attempts, one second apart.
func Fixed() Policy {
	return Policy{MaxAttempts: 10, Delay: time.Second}
}

// Op is one attempt. done reports success; a non-nil error aborts the loop.
type Op func(ctx context.Context, attempt int) (done bool, err error)

// Do runs op until it reports done, returns an error, the context ends, or
// the attempt budget is spent (ErrExhausted).
func (p Policy) Do(ctx context.Context, op Op) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(maxAttempts-1)),
		ctx,
	)

	attempt := 0
	operation := func() error {
		attempt++
		done, err := op(ctx, attempt)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !done {
			return errNotDone
		}
		return nil
	}
	notify := func(_ error, next time.Duration) {
		if p.Notify != nil {
			p.Notify(attempt, next)
		}
	}

	err := backoff.RetryNotifyWithTimer(operation, b, notify, p.Timer)
	if errors.Is(err, errNotDone) {
		return ErrExhausted
	}
	return err
}
