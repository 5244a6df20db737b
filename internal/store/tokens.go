package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RevokeAccessToken records an access token's JTI so it is refused until it
// would have expired anyway.
func RevokeAccessToken(ctx context.Context, db *sql.DB, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		jti, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	// Revocations past their expiry no longer matter.
	if err := PurgeRevokedTokens(ctx, db); err != nil {
		return err
	}
	return nil
}

// PurgeRevokedTokens drops revocations whose tokens have expired.
func PurgeRevokedTokens(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("purging revoked tokens: %w", err)
	}
	return nil
}

// IsTokenRevoked checks if a token's JTI has been revoked.
func IsTokenRevoked(ctx context.Context, db *sql.DB, jti string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ?)`, jti,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return exists, nil
}
