package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	domainerrors "github.com/foruapp/foru/internal/errors"
	"github.com/foruapp/foru/internal/model"
)

const userColumns = `id, name, email, image, avatar IS NOT NULL, role, created_at`

// signInQuery creates or refreshes a user in one statement. A new row is the
// owner when it is the first user or matches the master email; an existing
// row is only ever upgraded, never demoted, by the master email.
const signInQuery = `
INSERT INTO users (name, email, image, role)
VALUES (?, ?, ?, CASE WHEN ? OR NOT EXISTS (SELECT 1 FROM users) THEN 'owner' ELSE 'user' END)
ON CONFLICT(email) DO UPDATE SET
    name  = CASE WHEN excluded.name != '' THEN excluded.name ELSE users.name END,
    image = CASE WHEN excluded.image != '' THEN excluded.image ELSE users.image END,
    role  = CASE WHEN ? THEN 'owner' ELSE users.role END
RETURNING id`

// SignInUser records a sign-in and returns the stored user with its current
// role. masterEmail may be empty.
func SignInUser(ctx context.Context, db *sql.DB, in model.SignIn, masterEmail string) (*model.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, domainerrors.Validation("email is required")
	}
	isMaster := masterEmail != "" && email == normalizeEmail(masterEmail)

	var id int64
	err := db.QueryRowContext(ctx, signInQuery,
		strings.TrimSpace(in.Name), email, strings.TrimSpace(in.Image), isMaster, isMaster,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("signing in user: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID, or nil when absent.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns a user by email, or nil when absent.
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// ListUsers returns all users, newest first.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of users.
func CountUsers(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// UpdateUserRole sets a user's role. Owners are never changed through this
// path and ownership is never granted by it; both cases leave the row alone
// and return a validation error. A missing user is a NotFound error.
func UpdateUserRole(ctx context.Context, db *sql.DB, id int64, role model.Role) error {
	if !role.Assignable() {
		return domainerrors.Validationf("role %q cannot be assigned", role)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE users SET role = ? WHERE id = ? AND role != 'owner'`,
		role, id,
	)
	if err != nil {
		return fmt.Errorf("updating user role: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating user role: %w", err)
	}
	if n > 0 {
		return nil
	}

	u, err := GetUser(ctx, db, id)
	if err != nil {
		return err
	}
	if u == nil {
		return domainerrors.NotFound("user not found")
	}
	return domainerrors.Validation("the owner's role cannot be changed")
}

// SetUserAvatar stores the processed avatar image for a user.
func SetUserAvatar(ctx context.Context, db *sql.DB, id int64, data []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET avatar = ?, avatar_mime = ? WHERE id = ?`,
		data, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting user avatar: %w", err)
	}
	return nil
}

// GetUserAvatar returns a user's avatar bytes and MIME type. Returns nil data
// when the user has no avatar.
func GetUserAvatar(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var data []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT avatar, avatar_mime FROM users WHERE id = ?`, id,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting user avatar: %w", err)
	}
	if len(data) == 0 {
		return nil, "", nil
	}
	return data, mime.String, nil
}

func scanUser(s scanner) (*model.User, error) {
	u := &model.User{}
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.Image, &u.HasAvatar, &u.Role, &u.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
