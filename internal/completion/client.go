// Package completion wraps the language-model providers behind one
// Client interface. Calls are timeout-bounded and cancellable; failures
// map onto a small taxonomy (Timeout, Provider, Malformed) that the
// orchestrator's retry and fallback paths depend on.
package completion

import (
	"context"
	"errors"
)

// Client defines the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Failure taxonomy. Providers wrap their transport errors into one of
// these so callers can branch with errors.Is.
var (
	// ErrTimeout: the call exceeded its deadline or was cancelled.
	ErrTimeout = errors.New("completion: timeout")

	// ErrProvider: the provider returned an error response.
	ErrProvider = errors.New("completion: provider error")

	// ErrMalformed: the provider answered but the payload could not be
	// parsed, or a structured result failed schema validation.
	ErrMalformed = errors.New("completion: malformed output")
)

// Retryable reports whether the error class is worth another attempt.
// Malformed output is retried (the model may produce valid output next
// time); context cancellation is not.
func Retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrProvider) || errors.Is(err, ErrMalformed)
}
