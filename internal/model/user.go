package model

import (
	"fmt"
	"time"
)

// User represents a signed-in account. Accounts are created on first Google
// sign-in; there are no passwords.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Image     string    `json:"image,omitempty"`
	HasAvatar bool      `json:"has_avatar"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Role is an account's permission level.
type Role string

// Roles.
const (
	RoleOwner   Role = "owner"
	RolePremium Role = "premium"
	RoleUser    Role = "user"
)

var roleLevels = map[Role]int{
	RoleOwner:   3,
	RolePremium: 2,
	RoleUser:    1,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// ParseRole converts s to a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum Role) bool {
	have, ok := roleLevels[role]
	if !ok {
		return false
	}
	need, ok := roleLevels[minimum]
	if !ok {
		return false
	}
	return have >= need
}

// AssignableRoles lists the roles an owner may hand out through the admin
// panel. Ownership is never granted this way.
var AssignableRoles = []Role{RoleUser, RolePremium}

// Assignable reports whether r can be set through a role update.
func (r Role) Assignable() bool {
	for _, a := range AssignableRoles {
		if a == r {
			return true
		}
	}
	return false
}

// Session is the validated identity carried by a session token.
type Session struct {
	UserID int64  `json:"id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// IsOwner reports whether the session belongs to an owner.
func (s *Session) IsOwner() bool {
	return s != nil && s.Role == RoleOwner
}

// RefreshSession is a stored refresh token. Only the token's hash is kept.
type RefreshSession struct {
	TokenHash string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SignIn is the profile data presented by the identity provider.
type SignIn struct {
	Name  string
	Email string
	Image string
}
