package world

import (
	"errors"
	"fmt"
)

// ErrInvalidDelta is returned when a batch violates a world invariant.
// The orchestrator rejects the whole turn; nothing is committed.
var ErrInvalidDelta = errors.New("world: invalid delta")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDelta, fmt.Sprintf(format, args...))
}

// Validator checks delta batches against the world invariants before they
// reach the store. It reads current state through the Store but never
// writes.
type Validator struct {
	store Store
}

// NewValidator creates a Validator over the given store.
func NewValidator(store Store) *Validator {
	return &Validator{store: store}
}

// ValidateBatch checks every delta in order, treating entities created
// earlier in the batch as existing (the expansion workflow creates a
// Location and its Connection in one batch).
func (v *Validator) ValidateBatch(batch []Delta) error {
	created := make(map[string]bool) // kind/id pairs created within this batch
	key := func(kind EntityKind, id string) string { return string(kind) + "/" + id }
	clockSeen := false

	for _, d := range batch {
		switch d.Op {
		case OpCreate:
			if d.ID == "" {
				return invalid("create %s with empty id", d.Kind)
			}
			if created[key(d.Kind, d.ID)] {
				return invalid("duplicate create of %s %q in batch", d.Kind, d.ID)
			}
			if err := v.validateCreate(d, created, key); err != nil {
				return err
			}
			created[key(d.Kind, d.ID)] = true

		case OpUpdate:
			if d.Kind == KindEvent || d.Kind == KindHistoricalEvent {
				return invalid("%s log entries are immutable", d.Kind)
			}
			if d.Kind == KindClock {
				return invalid("clock is advanced only through advance_clock")
			}
			if err := v.validateUpdate(d, created, key); err != nil {
				return err
			}

		case OpMove:
			if d.Kind != KindNPC && d.Kind != KindPlayer {
				return invalid("move applies to NPCs and players, not %s", d.Kind)
			}
			if err := v.requireLocation(d.ToID, created, key); err != nil {
				return err
			}

		case OpAppend:
			if d.Kind != KindEvent {
				return invalid("append applies to the event log, not %s", d.Kind)
			}

		case OpAdvanceClock:
			if clockSeen {
				return invalid("more than one clock advance in batch")
			}
			if d.Hours < 0 {
				return invalid("clock advance must be non-negative, got %.2f", d.Hours)
			}
			clockSeen = true

		default:
			return invalid("unknown op %q", d.Op)
		}
	}
	return nil
}

func (v *Validator) validateCreate(d Delta, created map[string]bool, key func(EntityKind, string) string) error {
	// Reject creates that collide with stored entities.
	if v.exists(d.Kind, d.ID) {
		return invalid("%s %q already exists", d.Kind, d.ID)
	}

	switch d.Kind {
	case KindLocation:
		loc, ok := asLocation(d.Entity)
		if !ok {
			return invalid("location create carries wrong entity type")
		}
		if loc.Name == "" {
			return invalid("location %q has no name", d.ID)
		}
		if loc.ParentID != "" {
			if err := v.requireLocation(loc.ParentID, created, key); err != nil {
				return err
			}
		}

	case KindConnection:
		conn, ok := asConnection(d.Entity)
		if !ok {
			return invalid("connection create carries wrong entity type")
		}
		if err := v.requireLocation(conn.FromID, created, key); err != nil {
			return err
		}
		if err := v.requireLocation(conn.ToID, created, key); err != nil {
			return err
		}
		if conn.Cost != CostShort && conn.Cost != CostLong {
			return invalid("connection %q has unknown cost class %q", d.ID, conn.Cost)
		}
		dup, err := v.duplicateEdge(conn)
		if err != nil {
			return err
		}
		if dup {
			return invalid("duplicate connection %s -> %s (%s)", conn.FromID, conn.ToID, conn.TravelType)
		}

	case KindRelationship:
		rel, ok := asRelationship(d.Entity)
		if !ok {
			return invalid("relationship create carries wrong entity type")
		}
		if rel.Trust < 0 || rel.Trust > 100 {
			return invalid("relationship trust %d outside [0,100]", rel.Trust)
		}
		if d.ID != RelationshipID(rel.PlayerID, rel.NPCID) {
			return invalid("relationship id %q is not canonical", d.ID)
		}

	case KindFactionRelation:
		fr, ok := asFactionRelation(d.Entity)
		if !ok {
			return invalid("faction relation create carries wrong entity type")
		}
		a, b := CanonicalPair(fr.FactionA, fr.FactionB)
		if fr.FactionA != a || fr.FactionB != b {
			return invalid("faction relation pair %q/%q is not canonical", fr.FactionA, fr.FactionB)
		}
		existing, err := v.store.FactionRelations()
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.FactionA == a && e.FactionB == b {
				return invalid("conflicting stance record for faction pair %q/%q", a, b)
			}
		}
	}
	return nil
}

func (v *Validator) validateUpdate(d Delta, created map[string]bool, key func(EntityKind, string) string) error {
	if !v.exists(d.Kind, d.ID) && !created[key(d.Kind, d.ID)] {
		return invalid("update of missing %s %q", d.Kind, d.ID)
	}

	if d.Kind != KindRelationship {
		return nil
	}

	rel, err := v.relationshipByID(d.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	newTrust := -1
	if raw, ok := d.Fields["trust"]; ok {
		t, ok := asInt(raw)
		if !ok {
			return invalid("relationship trust field is not an integer")
		}
		if t < 0 || t > 100 {
			return invalid("relationship trust %d outside [0,100]", t)
		}
		newTrust = t
	}

	if raw, ok := d.Fields["revealed_secrets"]; ok {
		ids, ok := asStringSlice(raw)
		if !ok {
			return invalid("revealed_secrets field is not a string list")
		}
		// Monotone growth: every previously revealed secret must remain.
		if rel != nil {
			set := make(map[string]bool, len(ids))
			for _, id := range ids {
				set[id] = true
			}
			for _, prev := range rel.RevealedSecrets {
				if !set[prev] {
					return invalid("revealed secret %q retracted", prev)
				}
			}
		}
		// Threshold gate: newly revealed secrets need trust >= threshold.
		if err := v.checkSecretThresholds(rel, d.ID, ids, newTrust); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) checkSecretThresholds(rel *Relationship, relID string, ids []string, newTrust int) error {
	var npcID string
	trust := newTrust
	if rel != nil {
		npcID = rel.NPCID
		if trust < 0 {
			trust = rel.Trust
		}
	} else {
		// Lazily created relationship in the same batch; derive the NPC
		// from the canonical id.
		if _, after, found := cutRelationshipID(relID); found {
			npcID = after
		}
		if trust < 0 {
			trust = 0
		}
	}
	if npcID == "" {
		return nil
	}

	npc, err := v.store.NPC(npcID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, id := range ids {
		if rel != nil && rel.HasRevealed(id) {
			continue
		}
		secret, ok := npc.SecretByID(id)
		if !ok {
			return invalid("unknown secret %q for NPC %q", id, npcID)
		}
		if trust < secret.Threshold {
			return invalid("secret %q requires trust %d, have %d", id, secret.Threshold, trust)
		}
	}
	return nil
}

func (v *Validator) requireLocation(id string, created map[string]bool, key func(EntityKind, string) string) error {
	if id == "" {
		return invalid("empty location reference")
	}
	if created[key(KindLocation, id)] {
		return nil
	}
	if !v.exists(KindLocation, id) {
		return invalid("location %q does not exist", id)
	}
	return nil
}

func (v *Validator) exists(kind EntityKind, id string) bool {
	var err error
	switch kind {
	case KindLocation:
		_, err = v.store.Location(id)
	case KindNPC:
		_, err = v.store.NPC(id)
	case KindPlayer:
		_, err = v.store.Player(id)
	case KindQuest:
		_, err = v.store.Quest(id)
	case KindFaction:
		_, err = v.store.Faction(id)
	case KindRelationship:
		_, err = v.relationshipByID(id)
	default:
		return false
	}
	return err == nil
}

func (v *Validator) relationshipByID(id string) (*Relationship, error) {
	player, npc, ok := cutRelationshipID(id)
	if !ok {
		return nil, fmt.Errorf("relationship id %q: %w", id, ErrNotFound)
	}
	return v.store.Relationship(player, npc)
}

func (v *Validator) duplicateEdge(conn *Connection) (bool, error) {
	existing, err := v.store.Connections(conn.FromID)
	if err != nil {
		return false, err
	}
	for _, e := range existing {
		if e.FromID == conn.FromID && e.ToID == conn.ToID && e.TravelType == conn.TravelType {
			return true, nil
		}
	}
	return false, nil
}

func cutRelationshipID(id string) (player, npc string, ok bool) {
	for i := 0; i < len(id); i++ {
		if id[i] == '|' {
			return id[:i], id[i+1:], true
		}
	}
	return "", "", false
}

func asLocation(e any) (*Location, bool) {
	switch t := e.(type) {
	case Location:
		return &t, true
	case *Location:
		return t, true
	}
	return nil, false
}

func asConnection(e any) (*Connection, bool) {
	switch t := e.(type) {
	case Connection:
		return &t, true
	case *Connection:
		return t, true
	}
	return nil, false
}

func asRelationship(e any) (*Relationship, bool) {
	switch t := e.(type) {
	case Relationship:
		return &t, true
	case *Relationship:
		return t, true
	}
	return nil, false
}

func asFactionRelation(e any) (*FactionRelation, bool) {
	switch t := e.(type) {
	case FactionRelation:
		return &t, true
	case *FactionRelation:
		return t, true
	}
	return nil, false
}

func asInt(raw any) (int, bool) {
	switch t := raw.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	}
	return 0, false
}

func asStringSlice(raw any) ([]string, bool) {
	switch t := raw.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			s, ok := v.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
