package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestDoRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	p := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond,
		Retryable: func(error) bool { return true }}

	err := Do(context.Background(), p, func(ctx context.Context, attempt int) error {
		attempts++
		if attempts < 3 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	p := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond,
		Retryable: func(err error) bool { return false }}

	err := Do(context.Background(), p, func(ctx context.Context, attempt int) error {
		attempts++
		return errTransient
	})
	require.ErrorIs(t, err, errTransient)
	require.Equal(t, 1, attempts)
}

func TestDoExhaustsAttempts(t *testing.T) {
	attempts := 0
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond,
		Retryable: func(error) bool { return true }}

	err := Do(context.Background(), p, func(ctx context.Context, attempt int) error {
		attempts++
		return errTransient
	})
	require.ErrorIs(t, err, errTransient)
	require.Equal(t, 3, attempts)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Retryable: func(error) bool { return true }}

	err := Do(ctx, p, func(ctx context.Context, attempt int) error {
		t.Fatal("fn should not run with an already-cancelled context")
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}
