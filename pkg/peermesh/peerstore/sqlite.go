package peerstore

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists peer records to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite peer store.
// The path should be a file path (e.g., "./peers.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS peers (
			identity TEXT NOT NULL PRIMARY KEY,
			last_session_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			last_seen TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_peers_last_seen
		ON peers(last_seen)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(rec PeerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO peers (identity, last_session_id, generation, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			last_session_id = excluded.last_session_id,
			generation = excluded.generation,
			last_seen = excluded.last_seen
	`, rec.Identity, rec.LastSessionID, rec.Generation,
		rec.LastSeen.UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("put peer: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(identity string) (PeerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return PeerRecord{}, ErrStoreClosed
	}

	var rec PeerRecord
	var lastSeen string
	err := s.db.QueryRow(`
		SELECT identity, last_session_id, generation, last_seen
		FROM peers WHERE identity = ?
	`, identity).Scan(&rec.Identity, &rec.LastSessionID, &rec.Generation, &lastSeen)

	if err == sql.ErrNoRows {
		return PeerRecord{}, ErrNotFound
	}
	if err != nil {
		return PeerRecord{}, fmt.Errorf("get peer: %w", err)
	}
	rec.LastSeen, _ = time.Parse(time.RFC3339Nano, lastSeen)
	return rec, nil
}

// List implements Store.
func (s *SQLiteStore) List() ([]PeerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT identity, last_session_id, generation, last_seen
		FROM peers
		ORDER BY last_seen DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list peers: %w", err)
	}
	defer rows.Close()

	var recs []PeerRecord
	for rows.Next() {
		var rec PeerRecord
		var lastSeen string
		if err := rows.Scan(&rec.Identity, &rec.LastSessionID, &rec.Generation, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan peer: %w", err)
		}
		rec.LastSeen, _ = time.Parse(time.RFC3339Nano, lastSeen)
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate peers: %w", err)
	}
	return recs, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`DELETE FROM peers WHERE identity = ?`, identity)
	if err != nil {
		return fmt.Errorf("delete peer: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
