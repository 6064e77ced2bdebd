package errors

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(3), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(3), func() error {
		calls++
		if calls < 3 {
			return New(ErrCodeEmbedTimeout, "slow", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	apiErr := New(ErrCodeEmbedAPI, "401 unauthorized", nil)
	err := Retry(context.Background(), fastRetryConfig(3), func() error {
		calls++
		return apiErr
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, stderrors.Is(err, apiErr))
}

func TestRetry_ExhaustsRetries(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(2), func() error {
		calls++
		return New(ErrCodeVaultConnection, "refused", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls) // initial attempt + 2 retries
	assert.Equal(t, ErrCodeVaultConnection, GetCode(err))
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, fastRetryConfig(3), func() error {
		return New(ErrCodeEmbedTimeout, "slow", nil)
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithResult_ReturnsValue(t *testing.T) {
	calls := 0
	got, err := RetryWithResult(context.Background(), fastRetryConfig(3), func() ([]float32, error) {
		calls++
		if calls == 1 {
			return nil, New(ErrCodeEmbedConnection, "refused", nil)
		}
		return []float32{1, 2, 3}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, got)
	assert.Equal(t, 2, calls)
}
