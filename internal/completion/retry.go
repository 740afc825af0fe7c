package completion

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig bounds the retry loop around a provider.
type RetryConfig struct {
	MaxAttempts int           // total attempts, including the first
	BaseBackoff time.Duration // doubled after each failure
	CallTimeout time.Duration // per-attempt deadline
}

// DefaultRetryConfig returns the bounds used throughout the core:
// three attempts with 1s/2s backoff, 30s per call.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseBackoff: time.Second,
		CallTimeout: 30 * time.Second,
	}
}

// RetryingClient wraps a Client with bounded retry and exponential
// backoff. Each attempt gets its own deadline; cancellation of the outer
// context stops the loop immediately.
type RetryingClient struct {
	inner Client
	cfg   RetryConfig
	sleep func(time.Duration) // overridable in tests
}

// NewRetryingClient wraps inner with the given retry bounds.
func NewRetryingClient(inner Client, cfg RetryConfig) *RetryingClient {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryingClient{inner: inner, cfg: cfg, sleep: time.Sleep}
}

// Complete sends a prompt and returns the completion.
func (c *RetryingClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system message, retrying on
// timeout, provider, and malformed-output failures.
func (c *RetryingClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.BaseBackoff << uint(attempt-1)
			c.sleep(backoff)
			if ctx.Err() != nil {
				return "", fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
			}
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if c.cfg.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, c.cfg.CallTimeout)
		}
		result, err := c.inner.CompleteWithSystem(callCtx, systemPrompt, userPrompt)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !Retryable(ctx, err) {
			return "", err
		}
	}
	return "", fmt.Errorf("retries exhausted after %d attempts: %w", c.cfg.MaxAttempts, lastErr)
}
