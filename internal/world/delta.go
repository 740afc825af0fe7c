package world

import "fmt"

// Op is one of the closed set of mutation operations. Capabilities never
// mutate entities directly; they propose deltas and the orchestrator
// validates and commits them as one atomic batch.
type Op string

const (
	// OpCreate inserts a new entity. Entity carries the full value.
	OpCreate Op = "create"

	// OpUpdate sets named fields on an existing entity.
	OpUpdate Op = "update"

	// OpMove changes the location reference of an NPC or the player.
	OpMove Op = "move"

	// OpAppend writes an immutable Event log entry.
	OpAppend Op = "append"

	// OpAdvanceClock advances the world clock. Only the orchestrator may
	// produce this delta, exactly once per committed turn.
	OpAdvanceClock Op = "advance_clock"
)

// Delta is a single validated, atomic proposed mutation.
type Delta struct {
	Op     Op             `json:"op"`
	Kind   EntityKind     `json:"kind"`
	ID     string         `json:"id,omitempty"`
	Entity any            `json:"entity,omitempty"` // OpCreate / OpAppend payload
	Fields map[string]any `json:"fields,omitempty"` // OpUpdate payload
	ToID   string         `json:"to_id,omitempty"`  // OpMove destination location
	Hours  float64        `json:"hours,omitempty"`  // OpAdvanceClock amount
}

func (d Delta) String() string {
	switch d.Op {
	case OpAdvanceClock:
		return fmt.Sprintf("advance_clock(%.2fh)", d.Hours)
	case OpMove:
		return fmt.Sprintf("move(%s %s -> %s)", d.Kind, d.ID, d.ToID)
	default:
		return fmt.Sprintf("%s(%s %s)", d.Op, d.Kind, d.ID)
	}
}

// CreateDelta builds an OpCreate delta for the given entity.
func CreateDelta(kind EntityKind, id string, entity any) Delta {
	return Delta{Op: OpCreate, Kind: kind, ID: id, Entity: entity}
}

// UpdateDelta builds an OpUpdate delta setting the given fields.
func UpdateDelta(kind EntityKind, id string, fields map[string]any) Delta {
	return Delta{Op: OpUpdate, Kind: kind, ID: id, Fields: fields}
}

// MoveDelta builds an OpMove delta relocating an entity.
func MoveDelta(kind EntityKind, id, toLocationID string) Delta {
	return Delta{Op: OpMove, Kind: kind, ID: id, ToID: toLocationID}
}

// AppendDelta builds an OpAppend delta for an Event log entry.
func AppendDelta(ev Event) Delta {
	return Delta{Op: OpAppend, Kind: KindEvent, ID: ev.ID, Entity: ev}
}

// AdvanceClockDelta builds the orchestrator's per-turn clock delta.
func AdvanceClockDelta(hours float64) Delta {
	return Delta{Op: OpAdvanceClock, Kind: KindClock, Hours: hours}
}
