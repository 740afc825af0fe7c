package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentgm/internal/world"
)

func combatContext() *TurnContext {
	return &TurnContext{
		Input:    "attack the bandit",
		Player:   &world.Player{ID: "player_1", Name: "Traveler", Inventory: []string{"short knife"}, Status: world.StatusHealthy},
		Location: &world.Location{ID: "road_1", Name: "Forest Road"},
		Clock:    world.Clock{Hours: 14},
		NPC:      &world.NPC{ID: "npc_bandit", Name: "Bandit", Profession: "bandit", Alive: true},
	}
}

func TestCombatVictory(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return `{"narration": "The bandit falls.", "resolution": "victory", "opponent_npc_id": "npc_bandit", "loot": ["worn coin purse"]}`, nil
	}}
	agent := NewCombatAgent(client)

	out, err := agent.Respond(context.Background(), combatContext())
	require.NoError(t, err)
	require.Len(t, out.Deltas, 3)

	assert.Equal(t, world.OpUpdate, out.Deltas[0].Op)
	assert.Equal(t, world.KindNPC, out.Deltas[0].Kind)
	assert.Equal(t, false, out.Deltas[0].Fields["alive"])

	assert.Equal(t, []string{"short knife", "worn coin purse"}, out.Deltas[1].Fields["inventory"])
	assert.Equal(t, world.OpAppend, out.Deltas[2].Op)
}

func TestCombatDefeatKillsPlayer(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return `{"narration": "Darkness takes you.", "resolution": "defeat"}`, nil
	}}
	agent := NewCombatAgent(client)

	out, err := agent.Respond(context.Background(), combatContext())
	require.NoError(t, err)
	require.Len(t, out.Deltas, 2)
	assert.Equal(t, string(world.StatusDead), out.Deltas[0].Fields["status"])
	assert.Equal(t, world.OpAppend, out.Deltas[1].Op)
}

func TestCombatFleeCommitsNothing(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return `{"narration": "You scramble into the brush.", "resolution": "flee"}`, nil
	}}
	agent := NewCombatAgent(client)

	out, err := agent.Respond(context.Background(), combatContext())
	require.NoError(t, err)
	assert.Empty(t, out.Deltas)
	assert.False(t, out.Ongoing)
}

func TestCombatOngoingBeat(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return `{"narration": "Steel rings on steel.", "resolution": "ongoing"}`, nil
	}}
	agent := NewCombatAgent(client)

	out, err := agent.Respond(context.Background(), combatContext())
	require.NoError(t, err)
	assert.True(t, out.Ongoing)
	assert.Empty(t, out.Deltas)
}

func TestCombatIgnoresForeignOpponentID(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return `{"narration": "Victory.", "resolution": "victory", "opponent_npc_id": "npc_someone_else"}`, nil
	}}
	agent := NewCombatAgent(client)

	out, err := agent.Respond(context.Background(), combatContext())
	require.NoError(t, err)
	// Only the event is logged; no NPC the model invented gets killed.
	require.Len(t, out.Deltas, 1)
	assert.Equal(t, world.OpAppend, out.Deltas[0].Op)
}
