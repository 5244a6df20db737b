package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/foruapp/foru/internal/model"
)

// CreateRefreshSession stores a refresh token hash for a user.
func CreateRefreshSession(ctx context.Context, db *sql.DB, tokenHash string, userID int64, expiresAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO refresh_sessions (token_hash, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		tokenHash, userID, expiresAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating refresh session: %w", err)
	}
	return nil
}

// LookupRefreshSession returns the session for a token hash, or nil when it
// does not exist or has expired.
func LookupRefreshSession(ctx context.Context, db *sql.DB, tokenHash string) (*model.RefreshSession, error) {
	s := &model.RefreshSession{}
	err := db.QueryRowContext(ctx,
		`SELECT token_hash, user_id, expires_at, created_at
		 FROM refresh_sessions WHERE token_hash = ?`, tokenHash,
	).Scan(&s.TokenHash, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up refresh session: %w", err)
	}
	if !s.ExpiresAt.After(time.Now()) {
		return nil, nil
	}
	return s, nil
}

// DeleteRefreshSession removes a refresh session. Deleting an unknown token
// is not an error.
func DeleteRefreshSession(ctx context.Context, db *sql.DB, tokenHash string) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM refresh_sessions WHERE token_hash = ?`, tokenHash,
	)
	if err != nil {
		return fmt.Errorf("deleting refresh session: %w", err)
	}
	return nil
}

// DeleteExpiredRefreshSessions removes expired sessions and returns how many
// were removed.
func DeleteExpiredRefreshSessions(ctx context.Context, db *sql.DB) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM refresh_sessions WHERE expires_at <= ?`, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting expired refresh sessions: %w", err)
	}
	return result.RowsAffected()
}
