package relay

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Operation is one attempt of a repeatable unit of work. Implementations
// mark failures that are worth another attempt with retry.RetryableError;
// anything else aborts the budget immediately.
type Operation func(ctx context.Context) error

// Executor runs an Operation under a fixed attempt budget with a per-attempt
// timeout and exponential backoff (baseDelay * 2^(n-1), no jitter). It knows
// nothing about HTTP; callers decide what counts as retryable.
type Executor struct {
	maxAttempts       int
	baseDelay         time.Duration
	perAttemptTimeout time.Duration
}

// NewExecutor creates an Executor. maxAttempts below 1 is clamped to 1.
func NewExecutor(maxAttempts int, baseDelay, perAttemptTimeout time.Duration) *Executor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Executor{
		maxAttempts:       maxAttempts,
		baseDelay:         baseDelay,
		perAttemptTimeout: perAttemptTimeout,
	}
}

// Do executes op until it succeeds, fails non-retryably, or the attempt
// budget is exhausted, in which case the last failure is returned. An
// attempt exceeding the per-attempt timeout counts as a failed attempt, not
// a separate error class.
func (e *Executor) Do(ctx context.Context, op Operation) error {
	backoff := retry.WithMaxRetries(uint64(e.maxAttempts-1), retry.NewExponential(e.baseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if e.perAttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, e.perAttemptTimeout)
		}
		defer cancel()

		err := op(attemptCtx)
		if err != nil && attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			// the attempt timed out but the overall budget has not
			return retry.RetryableError(err)
		}
		return err
	})
}
