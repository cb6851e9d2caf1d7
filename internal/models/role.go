package models

import (
	"strings"
	"time"
)

// Role is a capability a user may hold. Roles are additive.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// ParseRole normalises a role name, returning false for unknown roles.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleModerator, RoleUser:
		return r, true
	}
	return "", false
}

// RoleGrant records that UserID holds Role.
type RoleGrant struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Role      Role      `json:"role" db:"role"`
	GrantedBy *string   `json:"granted_by,omitempty" db:"granted_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
