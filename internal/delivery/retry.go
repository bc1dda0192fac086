package delivery

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff"
)

// RetryPolicy controls how transient download failures are retried.
// MaxRetries counts total attempts, the first one included. After failed
// attempt n (1-based) the policy waits Base * 2^n before the next one.
type RetryPolicy struct {
	MaxRetries int
	Base       time.Duration
	// Sleep waits for d or until ctx is done. Nil means a real timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy allows three attempts spaced 1s then 2s apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Base: 500 * time.Millisecond}
}

// backOff builds the wait schedule: deterministic doubling starting at
// 2*Base, stopped after MaxRetries-1 waits.
func (p RetryPolicy) backOff() backoff.BackOff {
	if p.MaxRetries <= 1 {
		return &backoff.StopBackOff{}
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     2 * p.Base,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         time.Duration(math.MaxInt64),
		MaxElapsedTime:      0,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(p.MaxRetries-1))
}

// Do runs op until it succeeds, returns a permanent error, the attempts run
// out or ctx is done. Errors wrapped with backoff.Permanent are returned
// unwrapped without retrying. Running out yields *DeliveryExhaustedError.
// The returned count is the number of attempts actually made.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) (int, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	b := p.backOff()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		err := op(ctx)
		if err == nil {
			return attempt, nil
		}
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return attempt, perm.Err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt, ctxErr
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return attempt, &DeliveryExhaustedError{Attempts: attempt, Err: err}
		}
		if err := sleep(ctx, wait); err != nil {
			return attempt, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
