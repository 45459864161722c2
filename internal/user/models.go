// Package user implements the administrator directory: account CRUD,
// activation and password-reset tokens, bcrypt credentials with history,
// login sessions, and the wrong-password lockout. Sessions are what the
// auth middleware resolves bearer tokens against.
package user

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusLocked   Status = "locked"
)

// User is one administrator account. Group and Role are joined from the
// group directory on reads; the store persists only GroupID.
type User struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	StaffID           string     `json:"staffId"`
	GroupID           uuid.UUID  `json:"groupId"`
	Group             string     `json:"group,omitempty"`
	Role              string     `json:"role,omitempty"`
	Status            Status     `json:"status"`
	PasswordHash      string     `json:"-"`
	PasswordChangedAt *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Activated reports whether the account has completed activation and can
// hold a password.
func (u *User) Activated() bool { return u.PasswordHash != "" }

type TokenPurpose string

const (
	PurposeActivation TokenPurpose = "activation"
	PurposeReset      TokenPurpose = "reset"
)

// Token is a single-use activation or password-reset token. Email delivery
// is out of scope; the service hands the token back to the caller layer.
type Token struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"userId"`
	Purpose   TokenPurpose `json:"purpose"`
	ExpiresAt time.Time    `json:"expiresAt"`
	UsedAt    *time.Time   `json:"-"`
	CreatedAt time.Time    `json:"createdAt"`
}

func (t Token) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}

type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionExpired SessionStatus = "expired"
)

// Session records one login. The bearer token is the JWT issued at login;
// logout and forced expiry flip Status, after which the token no longer
// authenticates even if its JWT expiry has not passed.
type Session struct {
	ID        uuid.UUID     `json:"id"`
	UserID    uuid.UUID     `json:"userId"`
	Token     string        `json:"-"`
	Role      string        `json:"role"`
	IP        string        `json:"ip"`
	UserAgent string        `json:"userAgent"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}
