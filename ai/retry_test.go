package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	attempts := 0
	v, err := RetryWithBackoff(context.Background(), func() (int, error) {
		attempts++
		return 7, nil
	}, 3, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	v, err := RetryWithBackoff(context.Background(), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("temporary error")
		}
		return "ok", nil
	}, 5, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestRetryWithBackoff_AllAttemptsFail(t *testing.T) {
	attempts := 0
	boom := errors.New("persistent error")
	_, err := RetryWithBackoff(context.Background(), func() (int, error) {
		attempts++
		return 0, boom
	}, 3, time.Millisecond)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_Permanent(t *testing.T) {
	attempts := 0
	boom := errors.New("bad request")
	_, err := RetryWithBackoff(context.Background(), func() (int, error) {
		attempts++
		return 0, Permanent(boom)
	}, 5, time.Millisecond)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
	assert.Nil(t, Permanent(nil))
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	_, err := RetryWithBackoff(ctx, func() (int, error) {
		attempts++
		return 0, nil
	}, 3, time.Millisecond)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, attempts)
}

func TestRetryWithBackoff_InvalidAttempts(t *testing.T) {
	_, err := RetryWithBackoff(context.Background(), func() (int, error) { return 0, nil }, 0, time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}
