// Package retry wraps a single idempotent attempt in a bounded backoff
// policy.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how often and how patiently an attempt is repeated.
type Policy struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
	// Retryable decides whether a failed attempt is worth repeating. Nil
	// retries every error.
	Retryable func(error) bool
	// Notify is called before each wait with the attempt number that failed.
	Notify func(attempt int, err error, wait time.Duration)
}

// Permanent marks err as not retryable regardless of the policy predicate.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a non-retryable error, the attempt
// budget is spent or ctx is done. The last error is returned.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	if p.Initial > 0 {
		eb.InitialInterval = p.Initial
	}
	if p.Max > 0 {
		eb.MaxInterval = p.Max
	}
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	var notify backoff.Notify
	if p.Notify != nil {
		notify = func(err error, wait time.Duration) { p.Notify(attempt, err, wait) }
	}
	return backoff.RetryNotify(operation, b, notify)
}
