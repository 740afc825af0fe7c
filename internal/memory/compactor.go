package memory

import (
	"context"
	"fmt"
	"strings"

	"agentgm/internal/completion"
	"agentgm/internal/logging"
	"agentgm/internal/world"
)

// Compactor folds aged conversation messages into a running summary via
// the completion service.
type Compactor struct {
	client completion.Client
}

// NewCompactor creates a Compactor over the given client.
func NewCompactor(client completion.Client) *Compactor {
	return &Compactor{client: client}
}

// Fold merges the given messages into the existing running summary and
// returns the updated summary. The result together with the remaining
// window must stay informationally equivalent to the full history for
// narrative purposes.
func (c *Compactor) Fold(ctx context.Context, existingSummary string, msgs []world.Message) (string, error) {
	if len(msgs) == 0 {
		return existingSummary, nil
	}

	logging.Memory("folding %d messages into running summary", len(msgs))

	var sb strings.Builder
	for _, m := range msgs {
		role := "NPC"
		if m.Role == "player" {
			role = "Player"
		}
		fmt.Fprintf(&sb, "%s: %s\n", role, m.Content)
	}

	prompt := fmt.Sprintf(`Update the running summary of a conversation between a player and an NPC.
Retain facts learned, promises made, emotional shifts, and anything either side would remember.
Discard small talk.

Current summary:
%s

New exchanges to fold in:
%s

Updated summary:`, orNone(existingSummary), sb.String())

	systemPrompt := "You maintain conversation memory for a text RPG. Produce a concise third-person summary an NPC could act on later."

	summary, err := c.client.CompleteWithSystem(ctx, systemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("summary fold failed: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(no prior summary)"
	}
	return s
}
