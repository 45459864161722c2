package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists accounts. Implementations speak sentinel errors; the
// service classifies them.
type Store interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	// SetPassword writes the hash, stamps the change time, and moves the
	// account to active.
	SetPassword(ctx context.Context, id uuid.UUID, hash string, changedAt time.Time) error
	// PasswordHistory returns the most recent hashes, newest first.
	PasswordHistory(ctx context.Context, id uuid.UUID, limit int) ([]string, error)
	AppendPasswordHistory(ctx context.Context, id uuid.UUID, hash string) error
}

// TokenStore persists activation and reset tokens.
type TokenStore interface {
	Create(ctx context.Context, t Token) error
	Get(ctx context.Context, id uuid.UUID) (Token, error)
	MarkUsed(ctx context.Context, id uuid.UUID) error
}

// SessionStore persists login sessions.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	GetActiveByToken(ctx context.Context, token string) (*Session, error)
	Expire(ctx context.Context, token string) error
	ExpireAllForUser(ctx context.Context, userID uuid.UUID) error
}
