package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDoVal_RecoversFromOverload(t *testing.T) {
	calls := 0
	value, err := DoVal(context.Background(), fastRetry(4), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewTransientError(errors.New("overloaded_error: Overloaded"), 529)
		}
		return "Net 30 days", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "Net 30 days", value)
	assert.Equal(t, 3, calls)
}

func TestDoVal_DoesNotRetryInvalidRequest(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), fastRetry(4), func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("invalid_request_error: prompt is too long")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls, "a malformed extraction request must not be retried")
}

func TestDoVal_ExhaustsAttemptsOnPersistentRateLimit(t *testing.T) {
	rateLimited := errors.New("rate_limit_error: Number of requests has exceeded your rate limit")
	calls := 0
	_, err := DoVal(context.Background(), fastRetry(3), func(ctx context.Context) (string, error) {
		calls++
		return "", rateLimited
	})

	assert.ErrorIs(t, err, rateLimited)
	assert.Equal(t, 3, calls)
}

func TestDoVal_ZeroValueOnFailure(t *testing.T) {
	val, err := DoVal(context.Background(), fastRetry(2), func(ctx context.Context) (int, error) {
		return 42, errors.New("api_error: Internal server error")
	})
	assert.Error(t, err)
	assert.Zero(t, val)
}

func TestDo_DelegatesRetrySemantics(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastRetry(4), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return NewTransientError(errors.New("overloaded_error"), 529)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, fastRetry(5), func(ctx context.Context) error {
		calls++
		cancel()
		return NewTransientError(errors.New("overloaded_error"), 529)
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls, "cancellation must stop the judge mid-retry")
}

func TestDo_OnRetryReportsAttempts(t *testing.T) {
	var attempts []int
	cfg := fastRetry(3)
	cfg.OnRetry = func(attempt int, err error) {
		attempts = append(attempts, attempt)
	}

	_ = Do(context.Background(), cfg, func(ctx context.Context) error {
		return NewTransientError(errors.New("overloaded_error"), 529)
	})

	// Called before each sleep, never after the final attempt.
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_CustomShouldRetry(t *testing.T) {
	sentinel := errors.New("verdict unparseable")
	cfg := fastRetry(3)
	cfg.ShouldRetry = func(err error) bool { return errors.Is(err, sentinel) }

	calls := 0
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestComputeBackoff_GrowsAndCaps(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2.0,
		// no jitter so the progression is exact
	}

	assert.Equal(t, 100*time.Millisecond, computeBackoff(0, cfg))
	assert.Equal(t, 200*time.Millisecond, computeBackoff(1, cfg))
	assert.Equal(t, 400*time.Millisecond, computeBackoff(2, cfg))
	assert.Equal(t, time.Second, computeBackoff(5, cfg))
}

func TestApplyDefaults(t *testing.T) {
	cfg := applyDefaults(RetryConfig{})
	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.InitialBackoff)
	assert.Equal(t, 60*time.Second, cfg.MaxBackoff)
	assert.Equal(t, 2.0, cfg.Multiplier)
}
