package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"agentgm/internal/agents"
	"agentgm/internal/logging"
	"agentgm/internal/world"
)

// ErrImplausible is returned when the creation capability rejects a
// hinted sub-location. The orchestrator narrates the refusal in-fiction
// and commits nothing.
var ErrImplausible = errors.New("game: implausible expansion")

// ExpansionResult is a successfully generated sub-location plus the
// creation deltas that make it (and its connection) real. The deltas
// are committed by the caller together with the move and clock deltas.
type ExpansionResult struct {
	Location *world.Location
	Cost     world.CostClass
	Deltas   []world.Delta
	Occupant *world.NPC
}

// Expander grows the location graph on demand. New location ids are
// derived deterministically from the origin id and the target name, so
// asking for the same unmapped place twice yields the same id and the
// second request resolves against the stored entity instead of
// generating a duplicate. Concurrent identical requests are collapsed
// by singleflight.
type Expander struct {
	store    world.Store
	creation *agents.CreationAgent
	group    singleflight.Group
}

func NewExpander(store world.Store, creation *agents.CreationAgent) *Expander {
	return &Expander{store: store, creation: creation}
}

// ExpansionID is the deterministic id of target expanded from origin.
func ExpansionID(originID, target string) string {
	return originID + "_" + slug(target)
}

// Expand resolves target relative to origin. If the location already
// exists the stored entity is returned with no deltas; otherwise the
// creation capability generates it.
func (e *Expander) Expand(ctx context.Context, origin *world.Location, target string) (*ExpansionResult, error) {
	id := ExpansionID(origin.ID, target)

	v, err, _ := e.group.Do(id, func() (any, error) {
		return e.expand(ctx, origin, target, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ExpansionResult), nil
}

func (e *Expander) expand(ctx context.Context, origin *world.Location, target, id string) (*ExpansionResult, error) {
	if existing, err := e.store.Location(id); err == nil {
		logging.Expansion("reusing existing expansion %s", id)
		conns, err := e.store.Connections(origin.ID)
		if err != nil {
			return nil, err
		}
		cost := world.CostShort
		for _, c := range conns {
			if c.ToID == id {
				cost = c.Cost
				break
			}
		}
		return &ExpansionResult{Location: existing, Cost: cost}, nil
	} else if !errors.Is(err, world.ErrNotFound) {
		return nil, err
	}

	exp, err := e.creation.ExpandLocation(ctx, origin, target)
	if err != nil {
		return nil, err
	}
	if !exp.Plausible {
		logging.Expansion("rejected %q from %s: %s", target, origin.ID, exp.Reason)
		return nil, fmt.Errorf("%w: %s", ErrImplausible, exp.Reason)
	}

	loc := &world.Location{
		ID:             id,
		ParentID:       origin.ID,
		Name:           exp.Name,
		Description:    exp.Description,
		AtmosphereTags: exp.AtmosphereTags,
		Depth:          origin.Depth + 1,
		Discovered:     true,
	}
	cost := world.CostClass(exp.Cost)
	if cost != world.CostLong {
		cost = world.CostShort
	}
	conn := &world.Connection{
		ID:            id + "_way",
		FromID:        origin.ID,
		ToID:          id,
		TravelType:    exp.TravelType,
		Cost:          cost,
		Bidirectional: true,
	}
	if conn.TravelType == "" {
		conn.TravelType = "passage"
	}

	res := &ExpansionResult{
		Location: loc,
		Cost:     cost,
		Deltas: []world.Delta{
			world.CreateDelta(world.KindLocation, loc.ID, loc),
			world.CreateDelta(world.KindConnection, conn.ID, conn),
		},
	}

	if exp.Occupant != nil {
		npc := &world.NPC{
			ID:          world.NewID(),
			Name:        exp.Occupant.Name,
			Tier:        world.TierAmbient,
			Profession:  exp.Occupant.Profession,
			LocationID:  loc.ID,
			Personality: exp.Occupant.Personality,
			Alive:       true,
		}
		res.Occupant = npc
		res.Deltas = append(res.Deltas, world.CreateDelta(world.KindNPC, npc.ID, npc))
	}

	logging.Expansion("generated %s (%q) from %s, %d deltas", loc.ID, loc.Name, origin.ID, len(res.Deltas))
	return res, nil
}

// slug normalizes a free-text place name into an id fragment:
// lowercase, apostrophes dropped, runs of other non-alphanumerics
// collapsed to single underscores.
func slug(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		case r == '\'', r == '’':
		default:
			pending = true
		}
	}
	return b.String()
}
