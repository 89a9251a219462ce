package store

import (
	"fmt"
	"time"
)

// SessionRecord is the durable trace of a session that has submitted at
// least one prompt. Live state (queue, waits) is in-memory only.
type SessionRecord struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// SessionStore persists session records.
type SessionStore struct {
	db *DB
}

func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Touch registers the session or refreshes its last-seen timestamp.
func (s *SessionStore) Touch(id string) error {
	now := time.Now().Unix()
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, created_at, last_seen_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_seen_at = ?
	`, id, now, now, now)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// List returns known sessions, most recently seen first.
func (s *SessionStore) List(limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT id, created_at, last_seen_at
		FROM sessions ORDER BY last_seen_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var (
			rec      SessionRecord
			created  int64
			lastSeen int64
		)
		if err := rows.Scan(&rec.ID, &created, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec.CreatedAt = time.Unix(created, 0).UTC()
		rec.LastSeenAt = time.Unix(lastSeen, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
