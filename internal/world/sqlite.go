package world

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the Store implementation backed by a single SQLite file.
// Entities are stored as JSON documents keyed by (kind, id); the location
// reference is mirrored into an indexed column for the hot "who is here"
// queries. The event log is append-only.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and if needed initializes) the database at path.
// Use ":memory:" for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS entities (
			kind TEXT NOT NULL,
			id TEXT NOT NULL,
			location_id TEXT,
			data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (kind, id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_entities_location ON entities(kind, location_id);`,
		`CREATE TABLE IF NOT EXISTS event_log (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			game_time REAL NOT NULL,
			data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS world_clock (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			hours REAL NOT NULL DEFAULT 0
		);`,
		`INSERT OR IGNORE INTO world_clock (id, hours) VALUES (1, 0);`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RelationshipID is the canonical entity id for a (player, NPC) pair,
// guaranteeing a single row per pair.
func RelationshipID(playerID, npcID string) string {
	return playerID + "|" + npcID
}

func (s *SQLiteStore) readEntity(kind EntityKind, id string, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRow(
		"SELECT data FROM entities WHERE kind = ? AND id = ?", string(kind), id,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read %s %q: %w", kind, id, err)
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("decode %s %q: %w", kind, id, err)
	}
	return nil
}

func (s *SQLiteStore) readByLocation(kind EntityKind, locationID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT data FROM entities WHERE kind = ? AND location_id = ?", string(kind), locationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []string
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		docs = append(docs, data)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) readAll(kind EntityKind) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT data FROM entities WHERE kind = ?", string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []string
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		docs = append(docs, data)
	}
	return docs, rows.Err()
}

// Location returns the location with the given id.
func (s *SQLiteStore) Location(id string) (*Location, error) {
	var loc Location
	if err := s.readEntity(KindLocation, id, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

// Connections returns all connections that depart from the location,
// including bidirectional edges stored in the opposite direction.
func (s *SQLiteStore) Connections(locationID string) ([]*Connection, error) {
	docs, err := s.readAll(KindConnection)
	if err != nil {
		return nil, err
	}
	var conns []*Connection
	for _, doc := range docs {
		var c Connection
		if err := json.Unmarshal([]byte(doc), &c); err != nil {
			return nil, fmt.Errorf("decode connection: %w", err)
		}
		if c.FromID == locationID || (c.Bidirectional && c.ToID == locationID) {
			conns = append(conns, &c)
		}
	}
	return conns, nil
}

// NPC returns the NPC with the given id.
func (s *SQLiteStore) NPC(id string) (*NPC, error) {
	var npc NPC
	if err := s.readEntity(KindNPC, id, &npc); err != nil {
		return nil, err
	}
	return &npc, nil
}

// NPCsAt returns the NPCs currently at the location.
func (s *SQLiteStore) NPCsAt(locationID string) ([]*NPC, error) {
	docs, err := s.readByLocation(KindNPC, locationID)
	if err != nil {
		return nil, err
	}
	var npcs []*NPC
	for _, doc := range docs {
		var n NPC
		if err := json.Unmarshal([]byte(doc), &n); err != nil {
			return nil, fmt.Errorf("decode npc: %w", err)
		}
		npcs = append(npcs, &n)
	}
	return npcs, nil
}

// Relationship returns the stored relationship for the pair, or
// ErrNotFound if the pair has never conversed.
func (s *SQLiteStore) Relationship(playerID, npcID string) (*Relationship, error) {
	var rel Relationship
	if err := s.readEntity(KindRelationship, RelationshipID(playerID, npcID), &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// Faction returns the faction with the given id.
func (s *SQLiteStore) Faction(id string) (*Faction, error) {
	var f Faction
	if err := s.readEntity(KindFaction, id, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FactionRelations returns every stored faction stance record.
func (s *SQLiteStore) FactionRelations() ([]*FactionRelation, error) {
	docs, err := s.readAll(KindFactionRelation)
	if err != nil {
		return nil, err
	}
	var rels []*FactionRelation
	for _, doc := range docs {
		var r FactionRelation
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, fmt.Errorf("decode faction relation: %w", err)
		}
		rels = append(rels, &r)
	}
	return rels, nil
}

// Player returns the player with the given id.
func (s *SQLiteStore) Player(id string) (*Player, error) {
	var p Player
	if err := s.readEntity(KindPlayer, id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Quest returns the quest with the given id.
func (s *SQLiteStore) Quest(id string) (*Quest, error) {
	var q Quest
	if err := s.readEntity(KindQuest, id, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// QuestsFor returns every quest in the world. Quests are few; callers
// filter by status.
func (s *SQLiteStore) QuestsFor(playerID string) ([]*Quest, error) {
	docs, err := s.readAll(KindQuest)
	if err != nil {
		return nil, err
	}
	var quests []*Quest
	for _, doc := range docs {
		var q Quest
		if err := json.Unmarshal([]byte(doc), &q); err != nil {
			return nil, fmt.Errorf("decode quest: %w", err)
		}
		quests = append(quests, &q)
	}
	return quests, nil
}

// Events returns the most recent runtime events, newest first.
func (s *SQLiteStore) Events(limit int) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		"SELECT data FROM event_log ORDER BY seq DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var ev Event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// HistoricalEvents returns all lore events.
func (s *SQLiteStore) HistoricalEvents() ([]*HistoricalEvent, error) {
	docs, err := s.readAll(KindHistoricalEvent)
	if err != nil {
		return nil, err
	}
	var events []*HistoricalEvent
	for _, doc := range docs {
		var ev HistoricalEvent
		if err := json.Unmarshal([]byte(doc), &ev); err != nil {
			return nil, fmt.Errorf("decode historical event: %w", err)
		}
		events = append(events, &ev)
	}
	return events, nil
}

// Clock returns the current world clock.
func (s *SQLiteStore) Clock() (Clock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hours float64
	if err := s.db.QueryRow("SELECT hours FROM world_clock WHERE id = 1").Scan(&hours); err != nil {
		return Clock{}, fmt.Errorf("read clock: %w", err)
	}
	return Clock{Hours: hours}, nil
}

// Apply commits the batch in one transaction. Any failure rolls the whole
// batch back; transient lock contention surfaces as ErrConflict.
func (s *SQLiteStore) Apply(batch []Delta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return wrapConflict(err)
	}
	defer tx.Rollback()

	for _, d := range batch {
		if err := s.applyOne(tx, d); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapConflict(err)
	}
	return nil
}

func (s *SQLiteStore) applyOne(tx *sql.Tx, d Delta) error {
	switch d.Op {
	case OpCreate:
		data, err := json.Marshal(d.Entity)
		if err != nil {
			return fmt.Errorf("encode %s %q: %w", d.Kind, d.ID, err)
		}
		if d.Kind == KindHistoricalEvent {
			// Lore is immutable once written.
			_, err = tx.Exec(
				"INSERT INTO entities (kind, id, data) VALUES (?, ?, ?)",
				string(d.Kind), d.ID, string(data),
			)
			return err
		}
		_, err = tx.Exec(
			"INSERT INTO entities (kind, id, location_id, data) VALUES (?, ?, ?, ?)",
			string(d.Kind), d.ID, locationOf(d.Entity), string(data),
		)
		if err != nil {
			return fmt.Errorf("create %s %q: %w", d.Kind, d.ID, err)
		}
		return nil

	case OpUpdate:
		var data string
		err := tx.QueryRow(
			"SELECT data FROM entities WHERE kind = ? AND id = ?", string(d.Kind), d.ID,
		).Scan(&data)
		if err == sql.ErrNoRows {
			return fmt.Errorf("update %s %q: %w", d.Kind, d.ID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		var doc map[string]any
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return fmt.Errorf("decode %s %q: %w", d.Kind, d.ID, err)
		}
		for k, v := range d.Fields {
			doc[k] = v
		}
		merged, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			"UPDATE entities SET data = ?, updated_at = CURRENT_TIMESTAMP WHERE kind = ? AND id = ?",
			string(merged), string(d.Kind), d.ID,
		)
		return err

	case OpMove:
		var data string
		err := tx.QueryRow(
			"SELECT data FROM entities WHERE kind = ? AND id = ?", string(d.Kind), d.ID,
		).Scan(&data)
		if err == sql.ErrNoRows {
			return fmt.Errorf("move %s %q: %w", d.Kind, d.ID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		var doc map[string]any
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return fmt.Errorf("decode %s %q: %w", d.Kind, d.ID, err)
		}
		doc["location_id"] = d.ToID
		merged, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			"UPDATE entities SET data = ?, location_id = ?, updated_at = CURRENT_TIMESTAMP WHERE kind = ? AND id = ?",
			string(merged), d.ToID, string(d.Kind), d.ID,
		)
		return err

	case OpAppend:
		ev, ok := d.Entity.(Event)
		if !ok {
			if p, isPtr := d.Entity.(*Event); isPtr {
				ev = *p
				ok = true
			}
		}
		if !ok {
			return fmt.Errorf("append delta %q: entity is not an Event", d.ID)
		}
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			"INSERT INTO event_log (id, game_time, data) VALUES (?, ?, ?)",
			ev.ID, ev.GameTime, string(data),
		)
		return err

	case OpAdvanceClock:
		if d.Hours < 0 {
			return fmt.Errorf("advance_clock: negative amount %.2f", d.Hours)
		}
		_, err := tx.Exec("UPDATE world_clock SET hours = hours + ? WHERE id = 1", d.Hours)
		return err

	default:
		return fmt.Errorf("unknown delta op %q", d.Op)
	}
}

// locationOf mirrors an entity's location reference into the indexed
// column, for the kinds that carry one.
func locationOf(entity any) string {
	switch e := entity.(type) {
	case NPC:
		return e.LocationID
	case *NPC:
		return e.LocationID
	case Player:
		return e.LocationID
	case *Player:
		return e.LocationID
	default:
		return ""
	}
}

func wrapConflict(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "locked") || strings.Contains(msg, "busy") {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
