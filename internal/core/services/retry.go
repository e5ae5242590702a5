package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how often and how patiently a transfer attempt is retried.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is used when no policy is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   20 * time.Millisecond,
		MaxDelay:    500 * time.Millisecond,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Retrier re-runs an attempt while it fails with a transient error.
// It holds configuration only and is safe for concurrent use.
type Retrier struct {
	BaseService
	policy RetryPolicy
	sleep  Sleeper
}

// RetrierOption configures a Retrier.
type RetrierOption func(*Retrier)

// WithSleeper replaces the real timer, mainly for tests.
func WithSleeper(sleep Sleeper) RetrierOption {
	return func(r *Retrier) {
		r.sleep = sleep
	}
}

// NewRetrier creates a Retrier. Zero fields in policy fall back to defaults.
func NewRetrier(policy RetryPolicy, options ...RetrierOption) *Retrier {
	r := &Retrier{
		policy: policy.normalized(),
		sleep:  sleepWithContext,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Policy returns the effective policy.
func (r *Retrier) Policy() RetryPolicy {
	return r.policy
}

func (r *Retrier) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.BaseDelay
	b.MaxInterval = r.policy.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	// Attempts, not elapsed time, bound the loop.
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Retry runs attempt until it succeeds, fails permanently, or the attempt budget
// is spent. Only errors classified by apperrors.IsTransient are retried; anything
// else is returned as is. Running out of attempts yields a TransferFailed error
// carrying the last transient cause. Cancellation of ctx between attempts stops
// the loop with the context error.
func Retry[T any](ctx context.Context, r *Retrier, attempt func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	b := r.newBackOff()

	var lastErr error
	for n := 1; n <= r.policy.MaxAttempts; n++ {
		result, err := attempt(ctx)
		if err == nil {
			return result, nil
		}
		if !apperrors.IsTransient(ctx, err) {
			return zero, err
		}
		lastErr = err
		if n == r.policy.MaxAttempts {
			break
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			delay = r.policy.MaxDelay
		}
		r.LogWarn(ctx, err, "Transient failure, retrying",
			slog.Int("attempt", n),
			slog.Int("max_attempts", r.policy.MaxAttempts),
			slog.Duration("delay", delay))

		if err := r.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	r.LogWarn(ctx, lastErr, "Retry budget exhausted", slog.Int("attempts", r.policy.MaxAttempts))
	return zero, apperrors.NewTransferFailedError(apperrors.ReasonTransientExhausted, lastErr)
}

// Do is Retry for attempts that only report an error.
func (r *Retrier) Do(ctx context.Context, attempt func(ctx context.Context) error) error {
	_, err := Retry(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, attempt(ctx)
	})
	return err
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("retry wait interrupted: %w", ctx.Err())
	}
}
