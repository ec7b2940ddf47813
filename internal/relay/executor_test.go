package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_SucceedsFirstAttempt(t *testing.T) {
	exec := NewExecutor(3, time.Millisecond, time.Second)

	attempts := 0
	err := exec.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestExecutor_ExhaustsBudgetOnTransientFailure(t *testing.T) {
	exec := NewExecutor(4, time.Millisecond, time.Second)

	attempts := 0
	wantErr := errors.New("connection refused")
	err := exec.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return retry.RetryableError(wantErr)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 4, attempts)
}

func TestExecutor_BackoffNonDecreasing(t *testing.T) {
	exec := NewExecutor(3, 20*time.Millisecond, time.Second)

	var stamps []time.Time
	_ = exec.Do(context.Background(), func(ctx context.Context) error {
		stamps = append(stamps, time.Now())
		return retry.RetryableError(errors.New("timeout"))
	})

	require.Len(t, stamps, 3)
	first := stamps[1].Sub(stamps[0])
	second := stamps[2].Sub(stamps[1])
	assert.GreaterOrEqual(t, second, first)
}

func TestExecutor_NoRetryOnNonRetryableError(t *testing.T) {
	exec := NewExecutor(5, time.Millisecond, time.Second)

	attempts := 0
	wantErr := errors.New("upstream rejected")
	err := exec.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return wantErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, attempts)
}

func TestExecutor_TimeoutCountsAsFailedAttempt(t *testing.T) {
	exec := NewExecutor(2, time.Millisecond, 10*time.Millisecond)

	attempts := 0
	err := exec.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		select {
		case <-time.After(200 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}

func TestExecutor_RecoversAfterOneFailure(t *testing.T) {
	exec := NewExecutor(3, time.Millisecond, time.Second)

	attempts := 0
	err := exec.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return retry.RetryableError(errors.New("blip"))
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestExecutor_ClampsAttemptBudget(t *testing.T) {
	exec := NewExecutor(0, time.Millisecond, time.Second)

	attempts := 0
	_ = exec.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return retry.RetryableError(errors.New("nope"))
	})

	assert.Equal(t, 1, attempts)
}
