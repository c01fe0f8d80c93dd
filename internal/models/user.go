package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a flat enum consumed by the authorization layer, never computed
type Role string

const (
	RoleUser           Role = "user"
	RoleAdmin          Role = "admin"
	RoleContentManager Role = "content_manager"
)

// IsAdmin reports whether the role grants access to the admin surface
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleContentManager
}

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Role         Role

	EmailVerified            bool
	VerificationToken        *string
	VerificationTokenExpires *time.Time

	ResetPasswordToken   *string
	ResetPasswordExpires *time.Time

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Identity is the per-request resolved caller: who and in what role.
// It is attached to the request context by the authentication gate
type Identity struct {
	UserID uuid.UUID
	Role   Role
}
