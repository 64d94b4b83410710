package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// LoadCursor returns the persisted event cursor, or "" when the client
// has never completed a poll.
func (db *DB) LoadCursor() (string, error) {
	var cursor string

	err := db.conn.QueryRow(`SELECT last_event_at FROM sync_cursor WHERE id = 1`).Scan(&cursor)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load cursor: %w", err)
	}

	return cursor, nil
}

// SaveCursor persists the event cursor after a successful poll
func (db *DB) SaveCursor(cursor string) error {
	query := `
		INSERT INTO sync_cursor (id, last_event_at, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_event_at = excluded.last_event_at,
			updated_at = excluded.updated_at
	`

	_, err := db.conn.Exec(query, cursor, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}

	return nil
}
