package agents

import (
	"context"
	"fmt"
	"strings"

	"agentgm/internal/completion"
	"agentgm/internal/world"
)

var combatSchema = completion.CompileSchema("combat.json", `{
	"type": "object",
	"required": ["narration", "resolution"],
	"properties": {
		"narration": {"type": "string", "minLength": 1},
		"resolution": {"type": "string", "enum": ["victory", "defeat", "flee", "ongoing"]},
		"opponent_npc_id": {"type": "string"},
		"loot": {"type": "array", "items": {"type": "string"}}
	}
}`)

type combatResult struct {
	Narration     string   `json:"narration"`
	Resolution    string   `json:"resolution"`
	OpponentNPCID string   `json:"opponent_npc_id"`
	Loot          []string `json:"loot"`
}

// CombatAgent resolves violent actions narratively. Combat here is a
// single resolved beat, not a tracked hit-point exchange; defeat marks
// the player dead, victory against a named NPC marks that NPC dead and
// logs an event.
type CombatAgent struct {
	client completion.Client
}

func NewCombatAgent(client completion.Client) *CombatAgent {
	return &CombatAgent{client: client}
}

func (a *CombatAgent) Kind() Kind { return KindCombat }

func (a *CombatAgent) Respond(ctx context.Context, tc *TurnContext) (*Outcome, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Scene: %s. %s\n", tc.Location.Name, tc.Location.Description)
	if tc.NPC != nil {
		fmt.Fprintf(&b, "Opponent: %s (%s), id %s.\n", tc.NPC.Name, tc.NPC.Profession, tc.NPC.ID)
	}
	fmt.Fprintf(&b, "Player inventory: %s.\n", inventoryList(tc.Player.Inventory))
	fmt.Fprintf(&b, "The player attempts: %q\n", tc.Input)
	b.WriteString(`
Resolve this combat beat decisively. Respond with JSON:
{"narration": "...", "resolution": "victory|defeat|flee|ongoing", "opponent_npc_id": "", "loot": []}
Use the opponent id given above if a known NPC was defeated. Defeat
means the player dies; do not pull that punch if the odds warrant it.`)

	raw, err := a.client.CompleteWithSystem(ctx,
		"You are the combat referee of a text RPG. Fair, grounded, and final.", b.String())
	if err != nil {
		return nil, fmt.Errorf("combat: %w", err)
	}

	var res combatResult
	if err := completion.ParseStructured(raw, combatSchema, &res); err != nil {
		return nil, fmt.Errorf("combat: %w", err)
	}

	var deltas []world.Delta
	switch res.Resolution {
	case "victory":
		if res.OpponentNPCID != "" && tc.NPC != nil && res.OpponentNPCID == tc.NPC.ID {
			deltas = append(deltas, world.UpdateDelta(world.KindNPC, tc.NPC.ID, map[string]any{
				"alive": false,
			}))
		}
		if len(res.Loot) > 0 {
			deltas = append(deltas, world.UpdateDelta(world.KindPlayer, tc.Player.ID, map[string]any{
				"inventory": append(append([]string(nil), tc.Player.Inventory...), res.Loot...),
			}))
		}
		deltas = append(deltas, combatEvent(tc, res, "combat_victory"))
	case "defeat":
		deltas = append(deltas,
			world.UpdateDelta(world.KindPlayer, tc.Player.ID, map[string]any{
				"status": string(world.StatusDead),
			}),
			combatEvent(tc, res, "combat_defeat"),
		)
	}

	return &Outcome{
		Narration: res.Narration,
		Deltas:    deltas,
		Ongoing:   res.Resolution == "ongoing",
	}, nil
}

func combatEvent(tc *TurnContext, res combatResult, name string) world.Delta {
	ev := world.Event{
		ID:          world.NewID(),
		Name:        name,
		Description: res.Narration,
		GameTime:    tc.Clock.Hours,
		LocationIDs: []string{tc.Location.ID},
	}
	if tc.NPC != nil {
		ev.NPCIDs = []string{tc.NPC.ID}
	}
	return world.AppendDelta(ev)
}
