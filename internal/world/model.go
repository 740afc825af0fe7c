// Package world defines the persistent game-world model, the closed delta
// set used to mutate it, and the Store that owns every entity. The
// orchestrator and all capabilities hold entity ids only; the Store is the
// single owner of persistent state.
package world

import (
	"github.com/google/uuid"
)

// EntityKind identifies a persisted entity table.
type EntityKind string

const (
	KindLocation        EntityKind = "location"
	KindConnection      EntityKind = "connection"
	KindNPC             EntityKind = "npc"
	KindRelationship    EntityKind = "relationship"
	KindFaction         EntityKind = "faction"
	KindFactionRelation EntityKind = "faction_relation"
	KindPlayer          EntityKind = "player"
	KindQuest           EntityKind = "quest"
	KindEvent           EntityKind = "event"
	KindHistoricalEvent EntityKind = "historical_event"
	KindClock           EntityKind = "clock"
)

// NewID returns a fresh entity id.
func NewID() string {
	return uuid.NewString()
}

// Location is a node in the hierarchical location graph.
// Children reference their parent by id; deleting a parent must not
// silently orphan children, so parent references are validated on write.
type Location struct {
	ID             string   `json:"id"`
	ParentID       string   `json:"parent_id,omitempty"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	AtmosphereTags []string `json:"atmosphere_tags,omitempty"`
	Depth          int      `json:"depth"`
	Visited        bool     `json:"visited"`
	Discovered     bool     `json:"discovered"`

	// Normalized 0-100 placement inside the parent, consumed by the
	// renderer (out of scope here, persisted for it).
	PositionX float64 `json:"position_x"`
	PositionY float64 `json:"position_y"`
}

// CostClass is the travel-time class of a connection.
type CostClass string

const (
	CostShort CostClass = "short"
	CostLong  CostClass = "long"
)

// Connection is an edge in the location graph. At most one edge may exist
// per ordered (from, to) pair for the same travel type.
type Connection struct {
	ID            string    `json:"id"`
	FromID        string    `json:"from_id"`
	ToID          string    `json:"to_id"`
	TravelType    string    `json:"travel_type"` // road, stairs, door, ...
	Cost          CostClass `json:"cost"`
	Bidirectional bool      `json:"bidirectional"`
	Description   string    `json:"description,omitempty"`
}

// NPCTier controls how richly an NPC is prompted and persisted.
type NPCTier string

const (
	TierMajor   NPCTier = "major"
	TierMinor   NPCTier = "minor"
	TierAmbient NPCTier = "ambient"
)

// Secret is a piece of hidden NPC knowledge. Threshold is the minimum
// trust at which the secret becomes eligible for disclosure.
type Secret struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Threshold int    `json:"threshold"`
}

// NPC is a non-player character. Ambient NPCs may be materialized lazily
// on first interaction instead of being pre-seeded.
type NPC struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Tier        NPCTier  `json:"tier"`
	Profession  string   `json:"profession,omitempty"`
	FactionID   string   `json:"faction_id,omitempty"`
	LocationID  string   `json:"location_id,omitempty"`
	Personality string   `json:"personality,omitempty"`
	Voice       string   `json:"voice,omitempty"`
	Goals       []string `json:"goals,omitempty"`
	Secrets     []Secret `json:"secrets,omitempty"`
	Mood        string   `json:"mood,omitempty"`
	Alive       bool     `json:"alive"`
}

// SecretByID returns the secret with the given id, if any.
func (n *NPC) SecretByID(id string) (Secret, bool) {
	for _, s := range n.Secrets {
		if s.ID == id {
			return s, true
		}
	}
	return Secret{}, false
}

// Message is one entry in a relationship's recent-message window.
type Message struct {
	Role     string  `json:"role"` // "player" or "npc"
	Content  string  `json:"content"`
	GameTime float64 `json:"game_time"`
}

// Relationship tracks one (player, NPC) pair. Created lazily on first
// conversation; never deleted while the NPC exists. Trust stays in
// [0,100]; RevealedSecrets only ever grows.
type Relationship struct {
	ID              string    `json:"id"`
	PlayerID        string    `json:"player_id"`
	NPCID           string    `json:"npc_id"`
	Trust           int       `json:"trust"`
	Disposition     string    `json:"disposition,omitempty"`
	Summary         string    `json:"summary,omitempty"`
	RecentMessages  []Message `json:"recent_messages,omitempty"`
	RevealedSecrets []string  `json:"revealed_secrets,omitempty"`
	KeyMoments      []string  `json:"key_moments,omitempty"`
	LastInteraction float64   `json:"last_interaction"`
}

// HasRevealed reports whether the secret id is already in the revealed set.
func (r *Relationship) HasRevealed(secretID string) bool {
	for _, id := range r.RevealedSecrets {
		if id == secretID {
			return true
		}
	}
	return false
}

// Stance is the relationship between two factions.
type Stance string

const (
	StanceAlly    Stance = "ally"
	StanceNeutral Stance = "neutral"
	StanceRival   Stance = "rival"
	StanceWar     Stance = "war"
)

// Faction is an organization with goals and resources.
type Faction struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Ideology   string         `json:"ideology,omitempty"`
	PowerLevel int            `json:"power_level"`
	Goals      []string       `json:"goals,omitempty"`
	Resources  map[string]int `json:"resources,omitempty"`
}

// FactionRelation carries the stance between an unordered faction pair.
// The pair is stored canonically (lexicographically ordered ids) so two
// conflicting stance records for the same pair cannot coexist.
type FactionRelation struct {
	ID        string `json:"id"`
	FactionA  string `json:"faction_a"`
	FactionB  string `json:"faction_b"`
	Stance    Stance `json:"stance"`
	Stability int    `json:"stability"`
}

// CanonicalPair returns the unordered pair key for a faction relation.
func CanonicalPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// PlayerStatus is the player's health state.
type PlayerStatus string

const (
	StatusHealthy PlayerStatus = "healthy"
	StatusDead    PlayerStatus = "dead"
)

// Player is the player character.
type Player struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	LocationID  string       `json:"location_id"`
	PositionX   float64      `json:"position_x"`
	PositionY   float64      `json:"position_y"`
	Inventory   []string     `json:"inventory,omitempty"`
	Gold        int          `json:"gold"`
	Status      PlayerStatus `json:"status"`
	Description string       `json:"description,omitempty"`
	Traits      []string     `json:"traits,omitempty"`
}

// QuestStatus is the lifecycle state of a quest.
type QuestStatus string

const (
	QuestOffered   QuestStatus = "offered"
	QuestActive    QuestStatus = "active"
	QuestCompleted QuestStatus = "completed"
	QuestFailed    QuestStatus = "failed"
)

// Quest is a set of objectives offered to the player.
type Quest struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	GiverNPCID string      `json:"giver_npc_id,omitempty"`
	Objectives []string    `json:"objectives"`
	Status     QuestStatus `json:"status"`
	Reward     string      `json:"reward,omitempty"`
}

// Event is a runtime append-only log entry. Immutable once written.
type Event struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	GameTime    float64  `json:"game_time"`
	NPCIDs      []string `json:"npc_ids,omitempty"`
	LocationIDs []string `json:"location_ids,omitempty"`
}

// HistoricalEvent is pre-gameplay lore. Immutable once written.
type HistoricalEvent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Era         string `json:"era,omitempty"`
}
