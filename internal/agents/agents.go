// Package agents implements the specialized capabilities the
// orchestrator dispatches player actions to. Every capability obeys the
// same contract: it receives a read-only turn context, returns a
// narration plus a batch of proposed world deltas, and never touches
// the store itself. Deltas are validated and committed (or rejected
// wholesale) by the orchestrator.
package agents

import (
	"context"

	"agentgm/internal/memory"
	"agentgm/internal/world"
)

// Kind names a capability for routing and logging.
type Kind string

const (
	KindNPC      Kind = "npc"
	KindCreation Kind = "creation"
	KindEconomy  Kind = "economy"
	KindCombat   Kind = "combat"
)

// TurnContext is the read-only bundle a capability receives. It carries
// snapshots, not live references; a capability cannot observe writes
// from a concurrent turn.
type TurnContext struct {
	Input    string
	Player   *world.Player
	Location *world.Location
	Clock    world.Clock

	// Populated for conversation turns.
	NPC          *world.NPC
	Conversation *memory.ConversationContext
	Eligible     []world.Secret

	// Recent runtime events, newest last, for narrative continuity.
	RecentEvents []world.Event
}

// QuestOffer is a quest an NPC extended during conversation. The
// orchestrator turns it into a quest create delta with the NPC as giver.
type QuestOffer struct {
	Name       string   `json:"name"`
	Objectives []string `json:"objectives"`
	Reward     string   `json:"reward"`
}

// Outcome is what a capability proposes for one turn. Deltas are a
// proposal only; nothing is persisted until the orchestrator validates
// and commits them atomically.
type Outcome struct {
	Narration string
	Deltas    []world.Delta

	// Conversation-only fields.
	Sentiment       memory.Sentiment
	SurfacedSecrets []string
	EndConversation bool
	KeyMoment       string
	Mood            string // new NPC mood, empty when unchanged
	Quest           *QuestOffer

	// Ongoing marks a combat beat that did not resolve; the session
	// stays in combat with the same opponent.
	Ongoing bool

	// Fallback marks a degraded outcome produced after the capability
	// failed. The orchestrator commits no deltas for fallback turns.
	Fallback bool
}

// Capability is the contract every sub-agent implements.
type Capability interface {
	Kind() Kind
	Respond(ctx context.Context, tc *TurnContext) (*Outcome, error)
}
