package storage

// Schema contains all SQL statements for creating tables and indexes
const Schema = `
-- Tokens table: Single row holding the current session's bearer tokens.
-- Written only by the refresh path and the login/logout paths.
CREATE TABLE IF NOT EXISTS tokens (
    id INTEGER PRIMARY KEY CHECK (id = 1),

    access_token TEXT NOT NULL,
    refresh_token TEXT NOT NULL,

    updated_at INTEGER NOT NULL
);

-- Preferences table: Small key/value flags that share the storage
-- mechanism with the tokens (install-prompt-dismissed, haptic_enabled,
-- stats-period, ...)
CREATE TABLE IF NOT EXISTS preferences (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,

    updated_at INTEGER NOT NULL
);

-- Sync cursor table: Single row with the last event timestamp seen by
-- the poll loop, so a restarted client resumes its window instead of
-- replaying account history.
CREATE TABLE IF NOT EXISTS sync_cursor (
    id INTEGER PRIMARY KEY CHECK (id = 1),

    last_event_at TEXT NOT NULL,

    updated_at INTEGER NOT NULL
);
`
