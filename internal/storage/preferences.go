package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Preference keys shared with the installable client
const (
	PrefInstallPromptDismissed = "install-prompt-dismissed"
	PrefHapticEnabled          = "haptic_enabled"
	PrefStatsPeriod            = "stats-period"
)

// GetPreference returns a stored preference value and whether it was set
func (db *DB) GetPreference(key string) (string, bool, error) {
	var value string

	err := db.conn.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read preference %q: %w", key, err)
	}

	return value, true, nil
}

// SetPreference stores a preference value, replacing any previous one
func (db *DB) SetPreference(key, value string) error {
	query := `
		INSERT INTO preferences (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`

	_, err := db.conn.Exec(query, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set preference %q: %w", key, err)
	}

	return nil
}

// DeletePreference removes a stored preference
func (db *DB) DeletePreference(key string) error {
	_, err := db.conn.Exec(`DELETE FROM preferences WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete preference %q: %w", key, err)
	}

	return nil
}
