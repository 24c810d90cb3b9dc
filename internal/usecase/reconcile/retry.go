package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"dbdoc/internal/bootstrap/logging"
	"dbdoc/internal/errs"
)

const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 10 * time.Second
)

// RetryPolicy is a bounded retry with a constant delay between attempts.
// Errors marked with errs.Permanent stop it immediately.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultRetryAttempts, Delay: DefaultRetryDelay}
}

// Do runs op until it succeeds, fails permanently, runs out of attempts or
// ctx is done. It returns the number of attempts made.
func (p RetryPolicy) Do(ctx context.Context, name string, op func(ctx context.Context) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	delay := p.Delay
	if delay < 0 {
		delay = 0
	}

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		err := op(ctx)
		if err == nil {
			return struct{}{}, nil
		}
		if errs.IsPermanent(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(delay)),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logging.Warn(ctx, "tracker call failed, retrying",
				slog.String("call", name),
				slog.Int("attempt", attempts),
				slog.Duration("next_in", next),
				slog.Any("err", errs.Loggable(err)),
			)
		}),
	)
	return attempts, err
}
