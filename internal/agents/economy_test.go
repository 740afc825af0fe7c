package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentgm/internal/world"
)

func tradeContext() *TurnContext {
	return &TurnContext{
		Input: "buy a rope",
		Player: &world.Player{
			ID: "player_1", Name: "Traveler", Gold: 10,
			Inventory: []string{"travel cloak", "short knife"},
		},
		Location: &world.Location{ID: "market_1", Name: "Market"},
		NPC:      &world.NPC{ID: "npc_m", Name: "Tolla", Profession: "trader", Alive: true},
	}
}

func TestEconomyAcceptedTrade(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return `{"narration": "Tolla coils the rope and takes your coin.", "accepted": true, "items_gained": ["rope"], "items_lost": [], "gold_delta": -3}`, nil
	}}
	agent := NewEconomyAgent(client)

	out, err := agent.Respond(context.Background(), tradeContext())
	require.NoError(t, err)
	require.Len(t, out.Deltas, 1)
	d := out.Deltas[0]
	assert.Equal(t, world.OpUpdate, d.Op)
	assert.Equal(t, world.KindPlayer, d.Kind)
	assert.Equal(t, 7, d.Fields["gold"])
	assert.Equal(t, []string{"travel cloak", "short knife", "rope"}, d.Fields["inventory"])
}

func TestEconomyRejectsUnaffordable(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return `{"narration": "A fine warhorse, only 500 gold.", "accepted": true, "items_gained": ["warhorse"], "items_lost": [], "gold_delta": -500}`, nil
	}}
	agent := NewEconomyAgent(client)

	out, err := agent.Respond(context.Background(), tradeContext())
	require.NoError(t, err)
	// The model accepted, but the hard constraint vetoes: no deltas.
	assert.Empty(t, out.Deltas)
}

func TestEconomyRejectsSellingMissingItem(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return `{"narration": "Deal.", "accepted": true, "items_gained": [], "items_lost": ["lute"], "gold_delta": 5}`, nil
	}}
	agent := NewEconomyAgent(client)

	out, err := agent.Respond(context.Background(), tradeContext())
	require.NoError(t, err)
	assert.Empty(t, out.Deltas)
}

func TestEconomySellRemovesItem(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return `{"narration": "Tolla weighs the knife and nods.", "accepted": true, "items_gained": [], "items_lost": ["short knife"], "gold_delta": 4}`, nil
	}}
	agent := NewEconomyAgent(client)

	out, err := agent.Respond(context.Background(), tradeContext())
	require.NoError(t, err)
	require.Len(t, out.Deltas, 1)
	assert.Equal(t, []string{"travel cloak"}, out.Deltas[0].Fields["inventory"])
	assert.Equal(t, 14, out.Deltas[0].Fields["gold"])
}

func TestEconomyDeclinedTrade(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return `{"narration": "Not for sale.", "accepted": false}`, nil
	}}
	agent := NewEconomyAgent(client)

	out, err := agent.Respond(context.Background(), tradeContext())
	require.NoError(t, err)
	assert.Equal(t, "Not for sale.", out.Narration)
	assert.Empty(t, out.Deltas)
}
