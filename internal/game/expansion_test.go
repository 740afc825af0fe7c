package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentgm/internal/agents"
	"agentgm/internal/world"
)

func TestSlug(t *testing.T) {
	assert.Equal(t, "kitchen", slug("kitchen"))
	assert.Equal(t, "old_mill", slug("Old Mill"))
	assert.Equal(t, "smugglers_den", slug("  Smuggler's   Den "))
}

func TestExpansionIDDeterministic(t *testing.T) {
	assert.Equal(t, "tavern_1_kitchen", ExpansionID("tavern_1", "kitchen"))
	assert.Equal(t, "tavern_1_kitchen", ExpansionID("tavern_1", " Kitchen "))
}

func expansionFixture(t *testing.T, client *fakeClient) (*Expander, *world.SQLiteStore, *world.Location) {
	t.Helper()
	store, err := world.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tavern := &world.Location{ID: "tavern_1", Name: "The Gilded Tankard", Description: "A low-beamed tavern."}
	require.NoError(t, store.Apply([]world.Delta{
		world.CreateDelta(world.KindLocation, tavern.ID, tavern),
	}))
	return NewExpander(store, agents.NewCreationAgent(client)), store, tavern
}

func TestExpandGeneratesOnce(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return `{"plausible": true, "name": "Kitchen", "description": "Steam and clatter.", "travel_type": "door", "cost": "short"}`, nil
	}}
	exp, store, tavern := expansionFixture(t, client)
	ctx := context.Background()

	res, err := exp.Expand(ctx, tavern, "kitchen")
	require.NoError(t, err)
	assert.Equal(t, "tavern_1_kitchen", res.Location.ID)
	assert.Equal(t, "tavern_1", res.Location.ParentID)
	assert.Equal(t, 1, res.Location.Depth)
	require.Len(t, res.Deltas, 2)

	// Commit, then ask again: the stored location is reused and the
	// model is not consulted a second time.
	require.NoError(t, store.Apply(res.Deltas))

	again, err := exp.Expand(ctx, tavern, "kitchen")
	require.NoError(t, err)
	assert.Equal(t, "tavern_1_kitchen", again.Location.ID)
	assert.Empty(t, again.Deltas)
	assert.Equal(t, world.CostShort, again.Cost)
	assert.Equal(t, 1, client.calls)
}

func TestExpandImplausible(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return `{"plausible": false, "reason": "No vault in a tavern."}`, nil
	}}
	exp, _, tavern := expansionFixture(t, client)

	_, err := exp.Expand(context.Background(), tavern, "royal vault")
	assert.ErrorIs(t, err, ErrImplausible)
	assert.Contains(t, err.Error(), "No vault in a tavern.")
}

func TestExpandWithOccupant(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return `{"plausible": true, "name": "Kitchen", "description": "Steam.", "travel_type": "door", "cost": "short", "occupant": {"name": "Pell", "profession": "cook"}}`, nil
	}}
	exp, _, tavern := expansionFixture(t, client)

	res, err := exp.Expand(context.Background(), tavern, "kitchen")
	require.NoError(t, err)
	require.NotNil(t, res.Occupant)
	assert.Equal(t, "tavern_1_kitchen", res.Occupant.LocationID)
	assert.Len(t, res.Deltas, 3)
}
