// Package retry re-runs game write regions that lost a race for the game's
// state. Only errors wrapping model.ErrContention are retried.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/mcoot/assassins-go/internal/model"
)

// Policy bounds how contention is retried
type Policy struct {
	// MaxAttempts includes the first try
	MaxAttempts int

	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy returns the retry policy used by the services
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     5,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     250 * time.Millisecond,
	}
}

// Retrier runs operations under a Policy
type Retrier struct {
	policy Policy
	logger *slog.Logger
}

// New creates a Retrier
func New(policy Policy, logger *slog.Logger) *Retrier {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = DefaultPolicy().InitialInterval
	}
	if policy.MaxInterval < policy.InitialInterval {
		policy.MaxInterval = policy.InitialInterval
	}
	return &Retrier{policy: policy, logger: logger}
}

// Do runs fn until it succeeds, fails with a non-contention error, or the
// attempts run out. The last contention error is returned in that case.
func (r *Retrier) Do(ctx context.Context, op string, fn func() error) error {
	_, err := Value(ctx, r, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Value is Do for operations that produce a result
func Value[T any](ctx context.Context, r *Retrier, op string, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialInterval
	b.MaxInterval = r.policy.MaxInterval

	attempt := 0
	return backoff.Retry(ctx,
		func() (T, error) {
			attempt++
			result, err := fn()
			if err != nil && !errors.Is(err, model.ErrContention) {
				return result, backoff.Permanent(err)
			}
			return result, err
		},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.policy.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.Warn("retrying after contention",
				slog.String("op", op),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", next),
				slog.String("error", err.Error()),
			)
		}),
	)
}
