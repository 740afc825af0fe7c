package agents

import (
	"context"

	"agentgm/internal/logging"
)

// FallbackNarration is surfaced when a capability fails even after the
// completion layer's retries. The turn commits nothing and the
// conversation state is preserved so the player can simply try again.
const FallbackNarration = "The moment hangs strangely, as if the world lost its thread. (Try that again.)"

// Dispatch runs one capability and degrades to a safe fallback outcome
// when it fails. Retry and backoff live below this, in the completion
// layer; by the time an error reaches Dispatch it is final for this
// turn. The returned error is the underlying failure, kept for logging;
// the Outcome is always usable.
func Dispatch(ctx context.Context, c Capability, tc *TurnContext) (*Outcome, error) {
	out, err := c.Respond(ctx, tc)
	if err != nil {
		logging.Agents("capability %s failed, degrading turn: %v", c.Kind(), err)
		return &Outcome{
			Narration: FallbackNarration,
			Fallback:  true,
		}, err
	}
	logging.Agents("capability %s proposed %d deltas", c.Kind(), len(out.Deltas))
	return out, nil
}
