package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agentgm/internal/agents"
	"agentgm/internal/logging"
	"agentgm/internal/memory"
	"agentgm/internal/world"
)

// TurnResult is the outcome of one processed player input.
type TurnResult struct {
	Narration string
	Intent    Intent
	Committed bool    // true when the turn's delta batch reached the store
	Hours     float64 // game time the committed turn consumed
	Quit      bool
}

// Orchestrator runs the turn pipeline: classify the input, dispatch the
// matching capability, validate the proposed deltas, and commit them
// together with the turn's clock advance as one atomic batch. A turn
// that fails anywhere leaves the world byte-identical to before it.
type Orchestrator struct {
	store      world.Store
	validator  *world.Validator
	sessions   *Sessions
	mem        *memory.Manager
	view       *View
	classifier *Classifier
	expander   *Expander

	npcAgent *agents.NPCAgent
	creation *agents.CreationAgent
	economy  *agents.EconomyAgent
	combat   *agents.CombatAgent
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Store      world.Store
	Memory     *memory.Manager
	Classifier *Classifier
	NPCAgent   *agents.NPCAgent
	Creation   *agents.CreationAgent
	Economy    *agents.EconomyAgent
	Combat     *agents.CombatAgent
}

func NewOrchestrator(d Deps) *Orchestrator {
	return &Orchestrator{
		store:      d.Store,
		validator:  world.NewValidator(d.Store),
		sessions:   NewSessions(),
		mem:        d.Memory,
		view:       NewView(d.Store),
		classifier: d.Classifier,
		expander:   NewExpander(d.Store, d.Creation),
		npcAgent:   d.NPCAgent,
		creation:   d.Creation,
		economy:    d.Economy,
		combat:     d.Combat,
	}
}

// Sessions exposes the session registry.
func (o *Orchestrator) Sessions() *Sessions { return o.sessions }

// SubmitPlayerAction processes one input for the player, opening a
// session on first use. Callers that manage sessions themselves use
// Turn directly.
func (o *Orchestrator) SubmitPlayerAction(ctx context.Context, playerID, input string) (*TurnResult, error) {
	return o.Turn(ctx, o.sessions.ForPlayer(playerID), input)
}

// CurrentView renders the player's surroundings without consuming a
// turn or advancing the clock.
func (o *Orchestrator) CurrentView(playerID string) (string, error) {
	return o.view.Render("look", playerID)
}

// Turn processes one player input for the session. Turns within a
// session are strictly sequential.
func (o *Orchestrator) Turn(ctx context.Context, sess *Session, input string) (*TurnResult, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	player, err := o.store.Player(sess.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("turn: %w", err)
	}

	cl, err := o.classifier.Classify(ctx, input, sess.stickyIntent())
	if err != nil {
		// Routing failed after retries. Nothing was committed; the
		// player just tries again.
		logging.Session("routing failed for %q: %v", input, err)
		return &TurnResult{Narration: agents.FallbackNarration}, nil
	}

	if player.Status == world.StatusDead && cl.Intent != IntentMeta {
		return &TurnResult{Narration: "You are dead. Only look, status, and quit remain to you.", Intent: cl.Intent}, nil
	}

	switch cl.Intent {
	case IntentMeta:
		return o.handleMeta(sess, cl.Target)
	case IntentSay:
		return o.handleSay(ctx, sess, player, input, cl.Target)
	case IntentFarewell:
		return o.handleFarewell(sess)
	case IntentMove:
		return o.handleMove(ctx, sess, player, cl.Target)
	case IntentTrade:
		return o.handleCapability(ctx, sess, player, input, cl, o.economy, CostConversation)
	case IntentAttack:
		return o.handleCapability(ctx, sess, player, input, cl, o.combat, CostCombat)
	case IntentRest:
		return o.handleRest(sess, player)
	default:
		return &TurnResult{Narration: "Nothing comes of that.", Intent: cl.Intent}, nil
	}
}

// commit validates the batch and applies it under the world mutation
// lock. A transient store conflict is retried once; the store
// guarantees a failed batch left no partial state.
func (o *Orchestrator) commit(batch []world.Delta) error {
	o.sessions.worldMu.Lock()
	defer o.sessions.worldMu.Unlock()

	if err := o.validator.ValidateBatch(batch); err != nil {
		return err
	}
	err := o.store.Apply(batch)
	if errors.Is(err, world.ErrConflict) {
		logging.World("write conflict, retrying batch of %d", len(batch))
		err = o.store.Apply(batch)
	}
	return err
}

func (o *Orchestrator) handleMeta(sess *Session, command string) (*TurnResult, error) {
	if command == "quit" {
		return &TurnResult{Narration: "Farewell.", Intent: IntentMeta, Quit: true}, nil
	}
	text, err := o.view.Render(command, sess.PlayerID)
	if err != nil {
		return nil, err
	}
	return &TurnResult{Narration: text, Intent: IntentMeta}, nil
}

func (o *Orchestrator) handleSay(ctx context.Context, sess *Session, player *world.Player, input, target string) (*TurnResult, error) {
	loc, err := o.store.Location(player.LocationID)
	if err != nil {
		return nil, err
	}
	clock, err := o.store.Clock()
	if err != nil {
		return nil, err
	}

	npc, materialize, err := o.resolveNPC(ctx, sess, loc, target, true)
	if err != nil {
		return nil, err
	}
	if npc == nil {
		// A pinned partner that can no longer answer (killed, moved)
		// ends the mode.
		if sess.activeNPCID != "" {
			sess.setIdle()
		}
		return &TurnResult{Narration: "There is no one like that to talk to here.", Intent: IntentSay}, nil
	}

	lock := o.mem.PairLock(player.ID, npc.ID)
	lock.Lock()
	defer lock.Unlock()

	cc, err := o.mem.Context(ctx, player.ID, npc, input)
	if err != nil {
		return nil, err
	}

	tc := &agents.TurnContext{
		Input:        input,
		Player:       player,
		Location:     loc,
		Clock:        clock,
		NPC:          npc,
		Conversation: cc,
		Eligible:     o.mem.EligibleSecrets(cc.Relationship, npc),
	}
	out, dispatchErr := agents.Dispatch(ctx, o.npcAgent, tc)
	if out.Fallback {
		// Degraded turn: narration only, no deltas, no clock movement.
		// The conversation state is preserved so retrying works.
		logging.Session("conversation turn degraded: %v", dispatchErr)
		if sess.state == StateConversing {
			sess.setConversing(npc.ID)
		}
		return &TurnResult{Narration: out.Narration, Intent: IntentSay}, nil
	}

	turn := memory.Turn{
		PlayerMessage:   input,
		NPCMessage:      out.Narration,
		Sentiment:       out.Sentiment,
		SurfacedSecrets: out.SurfacedSecrets,
		GameTime:        clock.Hours + CostConversation,
		KeyMoment:       out.KeyMoment,
	}
	deltas, err := o.mem.ApplyTurn(ctx, cc, npc, turn)
	if err != nil {
		return nil, err
	}

	var batch []world.Delta
	if materialize {
		batch = append(batch, world.CreateDelta(world.KindNPC, npc.ID, npc))
	}
	batch = append(batch, deltas...)
	if out.Mood != "" && out.Mood != npc.Mood {
		batch = append(batch, world.UpdateDelta(world.KindNPC, npc.ID, map[string]any{"mood": out.Mood}))
	}
	if q := out.Quest; q != nil {
		quest := &world.Quest{
			ID:         "quest_" + slug(q.Name),
			Name:       q.Name,
			GiverNPCID: npc.ID,
			Objectives: q.Objectives,
			Status:     world.QuestOffered,
			Reward:     q.Reward,
		}
		if _, err := o.store.Quest(quest.ID); errors.Is(err, world.ErrNotFound) {
			batch = append(batch, world.CreateDelta(world.KindQuest, quest.ID, quest))
		}
	}
	batch = append(batch, world.AdvanceClockDelta(CostConversation))

	if err := o.commit(batch); err != nil {
		logging.Session("conversation commit rejected: %v", err)
		return &TurnResult{Narration: agents.FallbackNarration, Intent: IntentSay}, nil
	}

	if out.EndConversation {
		sess.setIdle()
	} else {
		sess.setConversing(npc.ID)
	}
	return &TurnResult{
		Narration: fmt.Sprintf("%s: %s", npc.Name, out.Narration),
		Intent:    IntentSay,
		Committed: true,
		Hours:     CostConversation,
	}, nil
}

// resolveNPC picks the turn's NPC: the pinned active NPC, a named NPC
// present at the location, or (when materialize is set and the player
// described a stranger) a freshly materialized ambient NPC whose create
// delta joins the turn's batch.
func (o *Orchestrator) resolveNPC(ctx context.Context, sess *Session, loc *world.Location, target string, materialize bool) (npc *world.NPC, materialized bool, err error) {
	if sess.activeNPCID != "" {
		if n, err := o.store.NPC(sess.activeNPCID); err == nil && n.Alive {
			if target == "" || matchesNPC(n, target) {
				return n, false, nil
			}
		}
	}

	present, err := o.store.NPCsAt(loc.ID)
	if err != nil {
		return nil, false, err
	}
	for _, n := range present {
		if n.Alive && matchesNPC(n, target) {
			return n, false, nil
		}
	}

	if target == "" || !materialize {
		return nil, false, nil
	}
	fresh, err := o.creation.MaterializeNPC(ctx, loc, target)
	if err != nil {
		logging.Agents("ambient materialization of %q failed: %v", target, err)
		return nil, false, nil
	}
	return fresh, true, nil
}

func matchesNPC(n *world.NPC, target string) bool {
	if target == "" {
		return false
	}
	t := strings.ToLower(target)
	return strings.Contains(strings.ToLower(n.Name), t) ||
		strings.Contains(strings.ToLower(n.Profession), t)
}

func (o *Orchestrator) handleFarewell(sess *Session) (*TurnResult, error) {
	if sess.state == StateIdle {
		return &TurnResult{Narration: "There is no one to take your leave of.", Intent: IntentFarewell}, nil
	}
	sess.setIdle()
	if err := o.commit([]world.Delta{world.AdvanceClockDelta(CostConversation)}); err != nil {
		return nil, err
	}
	return &TurnResult{
		Narration: "You take your leave.",
		Intent:    IntentFarewell,
		Committed: true,
		Hours:     CostConversation,
	}, nil
}

func (o *Orchestrator) handleMove(ctx context.Context, sess *Session, player *world.Player, target string) (*TurnResult, error) {
	if target == "" {
		return &TurnResult{Narration: "Go where?", Intent: IntentMove}, nil
	}
	loc, err := o.store.Location(player.LocationID)
	if err != nil {
		return nil, err
	}

	// Known exits first.
	conns, err := o.store.Connections(loc.ID)
	if err != nil {
		return nil, err
	}
	for _, c := range conns {
		// Bidirectional edges are stored once; walk to the far side.
		otherID := c.ToID
		if otherID == loc.ID {
			otherID = c.FromID
		}
		dest, err := o.store.Location(otherID)
		if err != nil {
			continue
		}
		if !matchesLocation(dest, target) {
			continue
		}
		return o.travel(sess, player, dest, nil, travelCost(c.Cost))
	}

	// Unmapped place: grow the graph.
	res, err := o.expander.Expand(ctx, loc, target)
	if errors.Is(err, ErrImplausible) {
		reason := strings.TrimPrefix(err.Error(), ErrImplausible.Error()+": ")
		return &TurnResult{
			Narration: fmt.Sprintf("You search for %s, but find nothing of the sort. %s", target, reason),
			Intent:    IntentMove,
		}, nil
	}
	if err != nil {
		logging.Expansion("expansion of %q failed: %v", target, err)
		return &TurnResult{Narration: agents.FallbackNarration, Intent: IntentMove}, nil
	}
	return o.travel(sess, player, res.Location, res.Deltas, travelCost(res.Cost))
}

// travel commits the move, the visited flag, any creation deltas, and
// the clock advance as one batch.
func (o *Orchestrator) travel(sess *Session, player *world.Player, dest *world.Location, creation []world.Delta, hours float64) (*TurnResult, error) {
	// Two sessions expanding the same target share one generation
	// result; whichever commits second finds the destination already
	// stored and just moves there.
	if len(creation) > 0 {
		if stored, err := o.store.Location(dest.ID); err == nil {
			logging.Expansion("destination %s already created, reusing", dest.ID)
			dest = stored
			creation = nil
		}
	}
	batch := append([]world.Delta(nil), creation...)
	batch = append(batch,
		world.MoveDelta(world.KindPlayer, player.ID, dest.ID),
		world.UpdateDelta(world.KindLocation, dest.ID, map[string]any{
			"visited":    true,
			"discovered": true,
		}),
		world.AdvanceClockDelta(hours),
	)
	if err := o.commit(batch); err != nil {
		logging.World("travel commit rejected: %v", err)
		return &TurnResult{Narration: agents.FallbackNarration, Intent: IntentMove}, nil
	}
	sess.setIdle()
	return &TurnResult{
		Narration: fmt.Sprintf("%s\n%s", dest.Name, dest.Description),
		Intent:    IntentMove,
		Committed: true,
		Hours:     hours,
	}, nil
}

func matchesLocation(loc *world.Location, target string) bool {
	t := strings.ToLower(strings.TrimSpace(target))
	return strings.Contains(strings.ToLower(loc.Name), t) ||
		strings.HasSuffix(loc.ID, "_"+slug(target))
}

// handleCapability runs a non-conversational capability (trade, combat)
// and commits its proposal plus the clock advance. The session mode
// follows the outcome: unresolved combat pins the opponent, a trade
// beat with a known NPC keeps the stall sticky, anything else returns
// to idle.
func (o *Orchestrator) handleCapability(ctx context.Context, sess *Session, player *world.Player, input string, cl Classification, capability agents.Capability, hours float64) (*TurnResult, error) {
	loc, err := o.store.Location(player.LocationID)
	if err != nil {
		return nil, err
	}
	clock, err := o.store.Clock()
	if err != nil {
		return nil, err
	}

	tc := &agents.TurnContext{
		Input:    input,
		Player:   player,
		Location: loc,
		Clock:    clock,
	}
	// Trade and attack targets are often items or free text, not NPC
	// names; when no NPC matches, the session's pinned partner is the
	// counterparty.
	if npc, _, err := o.resolveNPC(ctx, sess, loc, cl.Target, false); err == nil && npc != nil {
		tc.NPC = npc
	} else if sess.activeNPCID != "" {
		if n, err := o.store.NPC(sess.activeNPCID); err == nil && n.Alive {
			tc.NPC = n
		}
	}

	out, dispatchErr := agents.Dispatch(ctx, capability, tc)
	if out.Fallback {
		logging.Session("%s turn degraded: %v", capability.Kind(), dispatchErr)
		return &TurnResult{Narration: out.Narration, Intent: cl.Intent}, nil
	}

	batch := append([]world.Delta(nil), out.Deltas...)
	batch = append(batch, world.AdvanceClockDelta(hours))
	if err := o.commit(batch); err != nil {
		logging.Session("%s commit rejected: %v", capability.Kind(), err)
		return &TurnResult{Narration: agents.FallbackNarration, Intent: cl.Intent}, nil
	}

	switch {
	case capability.Kind() == agents.KindCombat && out.Ongoing && tc.NPC != nil:
		sess.setCombat(tc.NPC.ID)
	case capability.Kind() == agents.KindEconomy && tc.NPC != nil && tc.NPC.Alive:
		sess.setTrading(tc.NPC.ID)
	default:
		sess.setIdle()
	}
	return &TurnResult{Narration: out.Narration, Intent: cl.Intent, Committed: true, Hours: hours}, nil
}

func (o *Orchestrator) handleRest(sess *Session, player *world.Player) (*TurnResult, error) {
	batch := []world.Delta{world.AdvanceClockDelta(CostRest)}
	if err := o.commit(batch); err != nil {
		return nil, err
	}
	sess.setIdle()
	return &TurnResult{
		Narration: "You rest. Hours pass, and you rise restored.",
		Intent:    IntentRest,
		Committed: true,
		Hours:     CostRest,
	}, nil
}
