package world

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedLocations(t *testing.T, s *SQLiteStore) {
	t.Helper()
	require.NoError(t, s.Apply([]Delta{
		CreateDelta(KindLocation, "square_1", Location{ID: "square_1", Name: "Square", Visited: true}),
		CreateDelta(KindLocation, "tavern_1", Location{ID: "tavern_1", Name: "Tavern"}),
		CreateDelta(KindConnection, "c1", Connection{
			ID: "c1", FromID: "square_1", ToID: "tavern_1",
			TravelType: "road", Cost: CostShort, Bidirectional: true,
		}),
	}))
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)

	npc := NPC{
		ID: "npc_1", Name: "Maren", Tier: TierMajor, Profession: "innkeeper",
		LocationID: "tavern_1",
		Secrets:    []Secret{{ID: "s1", Text: "hidden cache", Threshold: 60}},
		Goals:      []string{"pay the debt"},
		Alive:      true,
	}
	seedLocations(t, s)
	require.NoError(t, s.Apply([]Delta{CreateDelta(KindNPC, npc.ID, npc)}))

	got, err := s.NPC("npc_1")
	require.NoError(t, err)
	if diff := cmp.Diff(&npc, got); diff != "" {
		t.Errorf("npc round trip mismatch (-want +got):\n%s", diff)
	}

	_, err = s.NPC("nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStoreConnectionsBidirectional(t *testing.T) {
	s := newTestStore(t)
	seedLocations(t, s)

	from, err := s.Connections("square_1")
	require.NoError(t, err)
	require.Len(t, from, 1)

	// The reverse direction is reachable through the same edge.
	back, err := s.Connections("tavern_1")
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, "c1", back[0].ID)
}

func TestSQLiteStoreApplyAtomic(t *testing.T) {
	s := newTestStore(t)
	seedLocations(t, s)

	// Second delta fails (update of a missing entity); the first must
	// not survive.
	err := s.Apply([]Delta{
		CreateDelta(KindNPC, "npc_1", NPC{ID: "npc_1", Name: "Oswin", LocationID: "square_1", Alive: true}),
		UpdateDelta(KindNPC, "ghost", map[string]any{"mood": "sad"}),
	})
	require.Error(t, err)

	_, err = s.NPC("npc_1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStoreUpdateMergesFields(t *testing.T) {
	s := newTestStore(t)
	seedLocations(t, s)
	npc := NPC{ID: "npc_1", Name: "Oswin", Profession: "guard", LocationID: "square_1", Mood: "restless", Alive: true}
	require.NoError(t, s.Apply([]Delta{CreateDelta(KindNPC, npc.ID, npc)}))

	require.NoError(t, s.Apply([]Delta{
		UpdateDelta(KindNPC, "npc_1", map[string]any{"mood": "cheerful"}),
	}))

	got, err := s.NPC("npc_1")
	require.NoError(t, err)
	assert.Equal(t, "cheerful", got.Mood)
	// Untouched fields survive the merge.
	assert.Equal(t, "guard", got.Profession)
	assert.Equal(t, "Oswin", got.Name)
}

func TestSQLiteStoreMove(t *testing.T) {
	s := newTestStore(t)
	seedLocations(t, s)
	require.NoError(t, s.Apply([]Delta{
		CreateDelta(KindNPC, "npc_1", NPC{ID: "npc_1", Name: "Oswin", LocationID: "square_1", Alive: true}),
	}))

	require.NoError(t, s.Apply([]Delta{MoveDelta(KindNPC, "npc_1", "tavern_1")}))

	got, err := s.NPC("npc_1")
	require.NoError(t, err)
	assert.Equal(t, "tavern_1", got.LocationID)

	// The location index column moved too.
	at, err := s.NPCsAt("tavern_1")
	require.NoError(t, err)
	require.Len(t, at, 1)
	assert.Equal(t, "npc_1", at[0].ID)
}

func TestSQLiteStoreClockAccumulates(t *testing.T) {
	s := newTestStore(t)

	clock, err := s.Clock()
	require.NoError(t, err)
	assert.Zero(t, clock.Hours)

	require.NoError(t, s.Apply([]Delta{AdvanceClockDelta(0.5)}))
	require.NoError(t, s.Apply([]Delta{AdvanceClockDelta(4)}))

	clock, err = s.Clock()
	require.NoError(t, err)
	assert.InDelta(t, 4.5, clock.Hours, 1e-9)
}

func TestSQLiteStoreEventLogOrder(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Apply([]Delta{
		AppendDelta(Event{ID: "e1", Name: "first", GameTime: 1}),
		AppendDelta(Event{ID: "e2", Name: "second", GameTime: 2}),
	}))

	events, err := s.Events(10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Newest first.
	assert.Equal(t, "e2", events[0].ID)
	assert.Equal(t, "e1", events[1].ID)
}

func TestSQLiteStoreRelationshipCanonicalID(t *testing.T) {
	s := newTestStore(t)

	rel := Relationship{
		ID: RelationshipID("player_1", "npc_1"), PlayerID: "player_1", NPCID: "npc_1",
		Trust: 50, RecentMessages: []Message{{Role: "player", Content: "hello", GameTime: 0.5}},
	}
	require.NoError(t, s.Apply([]Delta{CreateDelta(KindRelationship, rel.ID, rel)}))

	got, err := s.Relationship("player_1", "npc_1")
	require.NoError(t, err)
	if diff := cmp.Diff(&rel, got); diff != "" {
		t.Errorf("relationship mismatch (-want +got):\n%s", diff)
	}
}
