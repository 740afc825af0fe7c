package agents

import (
	"context"
	"fmt"
	"strings"

	"agentgm/internal/completion"
	"agentgm/internal/world"
)

var tradeSchema = completion.CompileSchema("trade.json", `{
	"type": "object",
	"required": ["narration", "accepted"],
	"properties": {
		"narration": {"type": "string", "minLength": 1},
		"accepted": {"type": "boolean"},
		"items_gained": {"type": "array", "items": {"type": "string"}},
		"items_lost": {"type": "array", "items": {"type": "string"}},
		"gold_delta": {"type": "integer"}
	}
}`)

type tradeResult struct {
	Narration   string   `json:"narration"`
	Accepted    bool     `json:"accepted"`
	ItemsGained []string `json:"items_gained"`
	ItemsLost   []string `json:"items_lost"`
	GoldDelta   int      `json:"gold_delta"`
}

// EconomyAgent resolves buy, sell, and barter actions against a
// merchant NPC. The model proposes the exchange; hard constraints (the
// player cannot spend gold they lack or sell items they do not carry)
// are enforced here, not trusted to the model.
type EconomyAgent struct {
	client completion.Client
}

func NewEconomyAgent(client completion.Client) *EconomyAgent {
	return &EconomyAgent{client: client}
}

func (a *EconomyAgent) Kind() Kind { return KindEconomy }

func (a *EconomyAgent) Respond(ctx context.Context, tc *TurnContext) (*Outcome, error) {
	player := tc.Player

	var b strings.Builder
	fmt.Fprintf(&b, "The player %s wants to trade", player.Name)
	if tc.NPC != nil {
		fmt.Fprintf(&b, " with %s (%s)", tc.NPC.Name, tc.NPC.Profession)
	}
	fmt.Fprintf(&b, " at %s.\n", tc.Location.Name)
	fmt.Fprintf(&b, "Player gold: %d. Player inventory: %s.\n", player.Gold, inventoryList(player.Inventory))
	fmt.Fprintf(&b, "Player says: %q\n", tc.Input)
	b.WriteString(`
Resolve the trade at plausible fantasy prices. Respond with JSON:
{"narration": "...", "accepted": true/false, "items_gained": [], "items_lost": [], "gold_delta": 0}
gold_delta is the change to the PLAYER's gold (negative for purchases).
Reject trades the player cannot afford.`)

	raw, err := a.client.CompleteWithSystem(ctx,
		"You are the merchant-interaction referee of a text RPG.", b.String())
	if err != nil {
		return nil, fmt.Errorf("economy: %w", err)
	}

	var res tradeResult
	if err := completion.ParseStructured(raw, tradeSchema, &res); err != nil {
		return nil, fmt.Errorf("economy: %w", err)
	}

	if !res.Accepted {
		return &Outcome{Narration: res.Narration}, nil
	}

	if player.Gold+res.GoldDelta < 0 {
		return &Outcome{Narration: "You come up short when you count your coin. The deal is off."}, nil
	}
	inventory := append([]string(nil), player.Inventory...)
	for _, item := range res.ItemsLost {
		var ok bool
		inventory, ok = removeItem(inventory, item)
		if !ok {
			return &Outcome{Narration: fmt.Sprintf("You reach for the %s to trade, but you are not carrying one.", item)}, nil
		}
	}
	inventory = append(inventory, res.ItemsGained...)

	deltas := []world.Delta{
		world.UpdateDelta(world.KindPlayer, player.ID, map[string]any{
			"inventory": inventory,
			"gold":      player.Gold + res.GoldDelta,
		}),
	}
	return &Outcome{Narration: res.Narration, Deltas: deltas}, nil
}

func inventoryList(items []string) string {
	if len(items) == 0 {
		return "(empty)"
	}
	return strings.Join(items, ", ")
}

func removeItem(items []string, item string) ([]string, bool) {
	for i, it := range items {
		if strings.EqualFold(it, item) {
			return append(items[:i:i], items[i+1:]...), true
		}
	}
	return items, false
}
