package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Tokens returns the stored access and refresh tokens. Both are empty
// strings when no session has been saved.
func (db *DB) Tokens() (accessToken, refreshToken string, err error) {
	query := `SELECT access_token, refresh_token FROM tokens WHERE id = 1`

	err = db.conn.QueryRow(query).Scan(&accessToken, &refreshToken)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to read tokens: %w", err)
	}

	return accessToken, refreshToken, nil
}

// SaveTokens replaces the stored token pair wholesale
func (db *DB) SaveTokens(accessToken, refreshToken string) error {
	query := `
		INSERT INTO tokens (id, access_token, refresh_token, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			updated_at = excluded.updated_at
	`

	_, err := db.conn.Exec(query, accessToken, refreshToken, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}

	return nil
}

// ClearTokens removes the stored session tokens. Called when a token
// refresh fails and the session is over.
func (db *DB) ClearTokens() error {
	_, err := db.conn.Exec(`DELETE FROM tokens WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}

	return nil
}
