package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    email      TEXT NOT NULL UNIQUE COLLATE NOCASE,
    image      TEXT NOT NULL DEFAULT '',
    avatar     BLOB,
    avatar_mime TEXT,
    role       TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('owner', 'premium', 'user')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS bouquets (
    id              TEXT PRIMARY KEY,
    kind            TEXT NOT NULL DEFAULT 'bouquet' CHECK (kind IN ('bouquet', 'letter')),
    items           TEXT NOT NULL DEFAULT '[]',
    letter          TEXT NOT NULL DEFAULT '',
    theme           TEXT NOT NULL CHECK (theme IN ('love', 'birthday')),
    gift_type       TEXT NOT NULL CHECK (gift_type IN ('none', 'envelope', 'scratch', 'code', 'surprise')),
    scratch_message TEXT NOT NULL DEFAULT '',
    secret_hash     TEXT NOT NULL DEFAULT '',
    sender_name     TEXT NOT NULL DEFAULT '',
    recipient_name  TEXT NOT NULL DEFAULT '',
    recipient_email TEXT NOT NULL DEFAULT '',
    scheduled_at    DATETIME,
    is_sent         INTEGER NOT NULL DEFAULT 0,
    created_by      INTEGER REFERENCES users(id),
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_bouquets_created_at ON bouquets(created_at DESC);

CREATE TABLE IF NOT EXISTS refresh_sessions (
    token_hash TEXT PRIMARY KEY,
    user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    expires_at DATETIME NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_refresh_sessions_user ON refresh_sessions(user_id);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
