package game

import (
	"sync"

	"github.com/google/uuid"

	"agentgm/internal/logging"
)

// State is the session's interaction mode. Every non-idle state pins
// the NPC it concerns and makes the intent router sticky toward that
// mode's default intent.
type State string

const (
	StateIdle       State = "idle"
	StateConversing State = "conversing"
	StateCombat     State = "combat"
	StateTrading    State = "trading"
)

// Session is one player's live connection to a world. Turns within a
// session are strictly sequential; the mutex is held for the whole turn
// pipeline.
type Session struct {
	ID       string
	PlayerID string

	mu          sync.Mutex
	state       State
	activeNPCID string
}

// State returns the current conversational mode. Callers outside the
// turn pipeline get a snapshot, not a lock.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveNPC returns the pinned conversation partner, if any.
func (s *Session) ActiveNPC() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeNPCID
}

func (s *Session) setConversing(npcID string) {
	s.state = StateConversing
	s.activeNPCID = npcID
}

func (s *Session) setCombat(npcID string) {
	s.state = StateCombat
	s.activeNPCID = npcID
}

func (s *Session) setTrading(npcID string) {
	s.state = StateTrading
	s.activeNPCID = npcID
}

func (s *Session) setIdle() {
	s.state = StateIdle
	s.activeNPCID = ""
}

// stickyIntent is the default intent for input the router cannot
// otherwise place, given the session's mode. Callers hold s.mu.
func (s *Session) stickyIntent() Intent {
	switch s.state {
	case StateConversing:
		return IntentSay
	case StateCombat:
		return IntentAttack
	case StateTrading:
		return IntentTrade
	default:
		return ""
	}
}

// Sessions tracks live sessions and serializes world mutation. Multiple
// sessions may read concurrently; commits are funneled through one lock
// so two turns cannot interleave their validate-then-apply windows.
type Sessions struct {
	mu       sync.Mutex
	byID     map[string]*Session
	byPlayer map[string]*Session
	worldMu  sync.Mutex
}

func NewSessions() *Sessions {
	return &Sessions{
		byID:     make(map[string]*Session),
		byPlayer: make(map[string]*Session),
	}
}

// Open creates a session for the player.
func (m *Sessions) Open(playerID string) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		PlayerID: playerID,
		state:    StateIdle,
	}
	m.mu.Lock()
	m.byID[s.ID] = s
	m.byPlayer[playerID] = s
	m.mu.Unlock()
	logging.Session("opened session %s for player %s", s.ID, playerID)
	return s
}

// ForPlayer returns the player's live session, opening one on first use.
func (m *Sessions) ForPlayer(playerID string) *Session {
	m.mu.Lock()
	if s, ok := m.byPlayer[playerID]; ok {
		m.mu.Unlock()
		return s
	}
	m.mu.Unlock()
	return m.Open(playerID)
}

// Get returns the session by id, or nil.
func (m *Sessions) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

// Close removes the session.
func (m *Sessions) Close(id string) {
	m.mu.Lock()
	if s, ok := m.byID[id]; ok {
		delete(m.byPlayer, s.PlayerID)
	}
	delete(m.byID, id)
	m.mu.Unlock()
	logging.Session("closed session %s", id)
}
