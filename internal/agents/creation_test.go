package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentgm/internal/completion"
	"agentgm/internal/world"
)

var tavern = &world.Location{
	ID: "tavern_1", Name: "The Gilded Tankard",
	Description:    "A low-beamed tavern.",
	AtmosphereTags: []string{"warm", "cooking smells"},
}

func TestCreationExpandPlausible(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return `{"plausible": true, "name": "Tavern Kitchen", "description": "Steam and clatter.", "atmosphere_tags": ["hot"], "travel_type": "door", "cost": "short", "occupant": {"name": "Pell", "profession": "cook", "personality": "harried"}}`, nil
	}}
	agent := NewCreationAgent(client)

	exp, err := agent.ExpandLocation(context.Background(), tavern, "kitchen")
	require.NoError(t, err)
	assert.True(t, exp.Plausible)
	assert.Equal(t, "Tavern Kitchen", exp.Name)
	require.NotNil(t, exp.Occupant)
	assert.Equal(t, "Pell", exp.Occupant.Name)
}

func TestCreationExpandImplausible(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return `{"plausible": false, "reason": "A tavern has no vault."}`, nil
	}}
	agent := NewCreationAgent(client)

	exp, err := agent.ExpandLocation(context.Background(), tavern, "royal vault")
	require.NoError(t, err)
	assert.False(t, exp.Plausible)
	assert.Equal(t, "A tavern has no vault.", exp.Reason)
}

func TestCreationExpandPlausibleWithoutContentIsMalformed(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return `{"plausible": true}`, nil
	}}
	agent := NewCreationAgent(client)

	_, err := agent.ExpandLocation(context.Background(), tavern, "kitchen")
	assert.ErrorIs(t, err, completion.ErrMalformed)
}

func TestCreationMaterializeNPC(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return `{"name": "Garn", "profession": "dockhand", "personality": "slow to anger", "voice": "gravelly", "mood": "tired"}`, nil
	}}
	agent := NewCreationAgent(client)

	npc, err := agent.MaterializeNPC(context.Background(), tavern, "the big man by the door")
	require.NoError(t, err)
	assert.Equal(t, "Garn", npc.Name)
	assert.Equal(t, world.TierAmbient, npc.Tier)
	assert.Equal(t, "tavern_1", npc.LocationID)
	assert.True(t, npc.Alive)
	assert.NotEmpty(t, npc.ID)
}
