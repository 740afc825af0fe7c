// Package memory implements the per-(player, NPC) conversation memory
// state machine: the bounded recent-message window, summary compaction,
// the trust policy, secret-reveal gating, and semantic recall. All
// mutations are expressed as world deltas; the manager never writes to
// the store directly.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"agentgm/internal/logging"
	"agentgm/internal/world"
)

// Sentiment classifies the outcome of one dialogue exchange. Trust
// deltas are derived from this closed set, never from raw model output.
type Sentiment string

const (
	SentimentHostile  Sentiment = "hostile"
	SentimentRude     Sentiment = "rude"
	SentimentNeutral  Sentiment = "neutral"
	SentimentFriendly Sentiment = "friendly"
	SentimentHelpful  Sentiment = "helpful"
	SentimentGenerous Sentiment = "generous"
)

// Config holds the tunable policy parameters of the memory manager.
type Config struct {
	// WindowCapacity is the number of recent exchanges (one player and
	// one NPC message each) kept after a compaction pass.
	WindowCapacity int `yaml:"window_capacity"`

	// CompactTrigger is the number of exchanges in the window that
	// triggers compaction. Must be > WindowCapacity.
	CompactTrigger int `yaml:"compact_trigger"`

	// TrustPolicy maps exchange sentiment to a bounded trust delta.
	TrustPolicy map[Sentiment]int `yaml:"trust_policy"`

	// InitialTrust seeds lazily created relationships.
	InitialTrust int `yaml:"initial_trust"`

	// RecallThreshold is the minimum cosine similarity for semantic
	// recall; RecallTopK bounds fragments per query.
	RecallThreshold float64 `yaml:"recall_threshold"`
	RecallTopK      int     `yaml:"recall_top_k"`
}

// DefaultConfig returns the documented policy defaults.
func DefaultConfig() Config {
	return Config{
		WindowCapacity: 10,
		CompactTrigger: 20,
		TrustPolicy: map[Sentiment]int{
			SentimentHostile:  -3,
			SentimentRude:     -1,
			SentimentNeutral:  0,
			SentimentFriendly: 1,
			SentimentHelpful:  2,
			SentimentGenerous: 3,
		},
		InitialTrust:    50,
		RecallThreshold: 0.40,
		RecallTopK:      3,
	}
}

// ConversationContext is what the NPC capability receives about a
// relationship before responding.
type ConversationContext struct {
	Relationship *world.Relationship
	Created      bool // true when the relationship was materialized lazily
	Recalled     []string
}

// Manager owns conversation memory for all pairs in one world.
type Manager struct {
	store     world.Store
	compactor *Compactor
	recall    *RecallIndex
	cfg       Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	compactions int // total compaction passes, observable for tests
}

// NewManager creates a Manager. recall may be nil to disable semantic
// recall entirely.
func NewManager(store world.Store, compactor *Compactor, recall *RecallIndex, cfg Config) *Manager {
	if cfg.WindowCapacity <= 0 {
		cfg.WindowCapacity = 10
	}
	if cfg.CompactTrigger <= cfg.WindowCapacity {
		cfg.CompactTrigger = cfg.WindowCapacity * 2
	}
	return &Manager{
		store:     store,
		compactor: compactor,
		recall:    recall,
		cfg:       cfg,
		locks:     make(map[string]*sync.Mutex),
	}
}

// PairLock returns the mutex serializing turns for one (player, NPC)
// pair. A player cannot have two in-flight turns against the same NPC.
func (m *Manager) PairLock(playerID, npcID string) *sync.Mutex {
	key := world.RelationshipID(playerID, npcID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	m.locks[key] = l
	return l
}

// Context loads (or lazily materializes) the relationship and gathers
// semantic recall for the player's input.
func (m *Manager) Context(ctx context.Context, playerID string, npc *world.NPC, input string) (*ConversationContext, error) {
	rel, err := m.store.Relationship(playerID, npc.ID)
	created := false
	if errors.Is(err, world.ErrNotFound) {
		rel = &world.Relationship{
			ID:          world.RelationshipID(playerID, npc.ID),
			PlayerID:    playerID,
			NPCID:       npc.ID,
			Trust:       m.cfg.InitialTrust,
			Disposition: "neutral",
		}
		created = true
	} else if err != nil {
		return nil, fmt.Errorf("load relationship: %w", err)
	}

	var recalled []string
	if m.recall != nil && input != "" {
		recalled = m.recall.Recall(ctx, rel.ID, input)
		if len(recalled) > 0 {
			logging.Memory("recalled %d summary fragments for %s", len(recalled), rel.ID)
		}
	}

	return &ConversationContext{Relationship: rel, Created: created, Recalled: recalled}, nil
}

// Turn captures the outcome of one dialogue exchange as seen by the
// memory manager.
type Turn struct {
	PlayerMessage   string
	NPCMessage      string
	Sentiment       Sentiment
	SurfacedSecrets []string // secret ids the narration actually surfaced
	GameTime        float64
	KeyMoment       string // optional, appended to the key-moment list
}

// ApplyTurn folds one exchange into the relationship and returns the
// deltas that persist it. Trust is clamped to [0,100]; the revealed set
// only grows, and a surfaced secret enters it only when trust meets its
// threshold. When the window exceeds the compaction trigger, the oldest
// portion is folded into the running summary via the completion service
// and evicted. Re-running compaction without new messages is a no-op
// because the post-compaction window is below the trigger.
func (m *Manager) ApplyTurn(ctx context.Context, cc *ConversationContext, npc *world.NPC, turn Turn) ([]world.Delta, error) {
	rel := cc.Relationship

	window := make([]world.Message, 0, len(rel.RecentMessages)+2)
	window = append(window, rel.RecentMessages...)
	window = append(window,
		world.Message{Role: "player", Content: turn.PlayerMessage, GameTime: turn.GameTime},
		world.Message{Role: "npc", Content: turn.NPCMessage, GameTime: turn.GameTime},
	)

	summary := rel.Summary
	// The window is counted in exchanges, two messages each.
	if len(window) > m.cfg.CompactTrigger*2 {
		split := len(window) - m.cfg.WindowCapacity*2
		folded, err := m.compactor.Fold(ctx, summary, window[:split])
		if err != nil {
			// Degrade: keep the oversized window this turn rather than
			// losing history. The next turn retries compaction.
			logging.Memory("compaction failed, keeping oversized window: %v", err)
		} else {
			summary = folded
			if m.recall != nil {
				m.recall.Add(ctx, rel.ID, folded)
			}
			window = window[split:]
			m.mu.Lock()
			m.compactions++
			m.mu.Unlock()
		}
	}

	trust := clampTrust(rel.Trust + m.cfg.TrustPolicy[turn.Sentiment])

	revealed := append([]string(nil), rel.RevealedSecrets...)
	for _, id := range turn.SurfacedSecrets {
		if rel.HasRevealed(id) {
			continue
		}
		secret, ok := npc.SecretByID(id)
		if !ok {
			logging.Memory("agent surfaced unknown secret %q, ignored", id)
			continue
		}
		if trust < secret.Threshold {
			logging.Memory("secret %q gated: trust %d < threshold %d", id, trust, secret.Threshold)
			continue
		}
		revealed = append(revealed, id)
	}

	moments := rel.KeyMoments
	if turn.KeyMoment != "" {
		moments = append(append([]string(nil), moments...), turn.KeyMoment)
	}

	if cc.Created {
		fresh := *rel
		fresh.Trust = trust
		fresh.Summary = summary
		fresh.RecentMessages = window
		fresh.RevealedSecrets = revealed
		fresh.KeyMoments = moments
		fresh.LastInteraction = turn.GameTime
		return []world.Delta{world.CreateDelta(world.KindRelationship, rel.ID, fresh)}, nil
	}

	fields := map[string]any{
		"trust":            trust,
		"summary":          summary,
		"recent_messages":  window,
		"revealed_secrets": revealed,
		"key_moments":      moments,
		"last_interaction": turn.GameTime,
	}
	return []world.Delta{world.UpdateDelta(world.KindRelationship, rel.ID, fields)}, nil
}

// Compactions returns how many compaction passes have run.
func (m *Manager) Compactions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.compactions
}

// EligibleSecrets returns the ids of hidden secrets whose threshold the
// current trust meets. The NPC capability receives only these; gating is
// enforced again by the validator at commit time.
func (m *Manager) EligibleSecrets(rel *world.Relationship, npc *world.NPC) []world.Secret {
	var out []world.Secret
	for _, s := range npc.Secrets {
		if rel.HasRevealed(s.ID) {
			continue
		}
		if rel.Trust >= s.Threshold {
			out = append(out, s)
		}
	}
	return out
}

func clampTrust(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
