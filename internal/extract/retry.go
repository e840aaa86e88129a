package extract

import (
	"context"
	"errors"
	"time"
)

// attemptState models the lifecycle of one (study, role) request:
// Pending → InFlight → {Succeeded, RetryPending → InFlight, Failed}.
// Succeeded and Failed are terminal; there is no path back out of them.
type attemptState int

const (
	statePending attemptState = iota
	stateInFlight
	stateRetryPending
	stateSucceeded
	stateFailed
)

// retrier drives the retry state machine with exponential backoff. The
// sleep function is injectable so tests run without real delays.
type retrier struct {
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
}

// do runs fn until it succeeds, exhausts maxAttempts, hits a non-retryable
// error, or the context is cancelled. A schema violation is terminal: the
// model produced a well-formed but non-conforming answer, and an identical
// retry just spends quota on the same answer.
func (r *retrier) do(ctx context.Context, fn func(ctx context.Context) error) error {
	state := statePending
	attempt := 0
	var lastErr error

	for {
		switch state {
		case statePending:
			attempt++
			state = stateInFlight

		case stateInFlight:
			lastErr = fn(ctx)
			var sv *ErrSchemaViolation
			switch {
			case lastErr == nil:
				state = stateSucceeded
			case errors.As(lastErr, &sv), attempt >= r.maxAttempts, ctx.Err() != nil:
				state = stateFailed
			default:
				state = stateRetryPending
			}

		case stateRetryPending:
			if err := r.sleep(ctx, backoff(attempt)); err != nil {
				return lastErr
			}
			attempt++
			state = stateInFlight

		case stateSucceeded:
			return nil

		case stateFailed:
			return lastErr
		}
	}
}

// backoff returns 2^attempt seconds, matching the service's documented
// rate-limit guidance.
func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
