package delivery

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"
)

// RetryPolicy controls how failed deliveries are retried with exponential backoff.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultRetryPolicy returns 3 attempts, 2s initial delay, 2x multiplier and
// a 30s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		Multiplier:   2.0,
		MaxDelay:     30 * time.Second,
	}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retryable reports whether a delivery that failed with err may succeed on a
// later attempt. Missing senders, cancellation and errors marked Permanent
// are final.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var perm *permanentError
	switch {
	case errors.As(err, &perm),
		errors.Is(err, ErrNoSender),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// NextDelay returns the backoff before attempt+1, where attempt is 1-indexed:
// InitialDelay * Multiplier^(attempt-1), capped at MaxDelay.
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// Deliver sends text through r, retrying transient failures. It returns nil
// on success, or the last error once attempts run out, the error is final or
// ctx is done.
func (p RetryPolicy) Deliver(ctx context.Context, r *Registry, target, text string) error {
	attempts := max(p.MaxAttempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := r.Deliver(ctx, target, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if !Retryable(err) || attempt == attempts {
			break
		}

		delay := p.NextDelay(attempt)
		slog.Warn("delivery failed, retrying", "target", target, "attempt", attempt, "delay", delay, "error", err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(lastErr, ctx.Err())
		case <-timer.C:
		}
	}
	return lastErr
}
