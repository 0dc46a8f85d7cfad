package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		Enabled:      true,
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_EventualSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_BudgetSpentWrapsLastError(t *testing.T) {
	sentinel := errors.New("store down")
	calls := 0
	err := Retry(context.Background(), fastConfig(), func() error {
		calls++
		return sentinel
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 4, calls) // first attempt plus MaxAttempts retries
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	sentinel := errors.New("bad request")
	cfg := fastConfig()
	cfg.NonRetryableErrors = []error{sentinel}

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return sentinel
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestRetry_RetryableListFiltersOtherErrors(t *testing.T) {
	retryable := errors.New("timeout")
	other := errors.New("unrelated")
	cfg := fastConfig()
	cfg.RetryableErrors = []error{retryable}

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return other
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, other)
	assert.Equal(t, 1, calls)
}

func TestRetry_MatchesWrappedErrors(t *testing.T) {
	sentinel := errors.New("conflict")
	cfg := fastConfig()
	cfg.NonRetryableErrors = []error{sentinel}

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return errors.Join(errors.New("context"), sentinel)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_DisabledRunsOnce(t *testing.T) {
	cfg := fastConfig()
	cfg.Enabled = false

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return errors.New("always")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig()
	cfg.InitialDelay = time.Minute
	cfg.MaxDelay = time.Minute

	calls := 0
	err := Retry(ctx, cfg, func() error {
		calls++
		cancel()
		return errors.New("transient")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryWithResult_ReturnsValue(t *testing.T) {
	calls := 0
	got, err := RetryWithResult(context.Background(), fastConfig(), func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestBackoff_CappedAtMaxDelay(t *testing.T) {
	cfg := fastConfig()
	for attempt := 0; attempt < 10; attempt++ {
		assert.LessOrEqual(t, backoff(cfg, attempt), cfg.MaxDelay)
	}
}
