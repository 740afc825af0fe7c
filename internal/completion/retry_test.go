package completion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRetrying(inner Client) (*RetryingClient, *[]time.Duration) {
	c := NewRetryingClient(inner, RetryConfig{
		MaxAttempts: 3,
		BaseBackoff: time.Second,
		CallTimeout: 30 * time.Second,
	})
	var slept []time.Duration
	c.sleep = func(d time.Duration) { slept = append(slept, d) }
	return c, &slept
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	inner := &fakeClient{}
	inner.fn = func(system, user string) (string, error) {
		if inner.calls < 3 {
			return "", ErrTimeout
		}
		return "third time lucky", nil
	}
	c, slept := newRetrying(inner)

	out, err := c.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", out)
	assert.Equal(t, 3, inner.calls)
	// Exponential backoff: 1s then 2s.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestRetryExhaustion(t *testing.T) {
	inner := &fakeClient{fn: func(system, user string) (string, error) {
		return "", ErrProvider
	}}
	c, _ := newRetrying(inner)

	_, err := c.Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	sentinel := errors.New("bad request")
	inner := &fakeClient{fn: func(system, user string) (string, error) {
		return "", sentinel
	}}
	c, _ := newRetrying(inner)

	_, err := c.Complete(context.Background(), "hello")
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	inner := &fakeClient{fn: func(system, user string) (string, error) {
		return "", ErrTimeout
	}}
	c, _ := newRetrying(inner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Complete(ctx, "hello")
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryMalformedIsRetryable(t *testing.T) {
	inner := &fakeClient{}
	inner.fn = func(system, user string) (string, error) {
		if inner.calls == 1 {
			return "", ErrMalformed
		}
		return "ok", nil
	}
	c, _ := newRetrying(inner)

	out, err := c.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, inner.calls)
}
