package world

import "errors"

// ErrNotFound is returned by reads when no entity with the id exists.
var ErrNotFound = errors.New("world: entity not found")

// ErrConflict is returned by Apply when a transient write conflict
// occurred. The caller may retry the batch once; the store guarantees the
// failed batch left no partial state behind.
var ErrConflict = errors.New("world: write conflict")

// Store owns all persistent world entities. Writes go through Apply as an
// all-or-nothing batch; reads return copies, never shared pointers into
// store internals.
type Store interface {
	Location(id string) (*Location, error)
	Connections(locationID string) ([]*Connection, error)
	NPC(id string) (*NPC, error)
	NPCsAt(locationID string) ([]*NPC, error)
	Relationship(playerID, npcID string) (*Relationship, error)
	Faction(id string) (*Faction, error)
	FactionRelations() ([]*FactionRelation, error)
	Player(id string) (*Player, error)
	Quest(id string) (*Quest, error)
	QuestsFor(playerID string) ([]*Quest, error)
	Events(limit int) ([]*Event, error)
	HistoricalEvents() ([]*HistoricalEvent, error)
	Clock() (Clock, error)

	// Apply commits the batch atomically. On any error the store is
	// byte-identical to its pre-call state.
	Apply(batch []Delta) error

	Close() error
}
