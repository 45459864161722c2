package user

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/manny-e1/user-management-backend-2/pkg/platform/sentinel"
)

// MemoryStore backs unit tests. All three stores share one mutex so a test
// never observes a half-applied login or activation.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*User
	history  map[uuid.UUID][]string
	tokens   map[uuid.UUID]Token
	sessions map[uuid.UUID]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[uuid.UUID]*User),
		history:  make(map[uuid.UUID][]string),
		tokens:   make(map[uuid.UUID]Token),
		sessions: make(map[uuid.UUID]*Session),
	}
}

func cloneUser(u *User) *User {
	out := *u
	if u.PasswordChangedAt != nil {
		t := *u.PasswordChangedAt
		out.PasswordChangedAt = &t
	}
	return &out
}

func (s *MemoryStore) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return sentinel.ErrConflict
		}
	}
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) List(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID]
	if !ok {
		return sentinel.ErrNoRowsAffected
	}
	for id, other := range s.users {
		if id != u.ID && strings.EqualFold(other.Email, u.Email) {
			return sentinel.ErrConflict
		}
	}
	updated := cloneUser(u)
	updated.PasswordHash = existing.PasswordHash
	updated.PasswordChangedAt = existing.PasswordChangedAt
	s.users[u.ID] = updated
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return sentinel.ErrNoRowsAffected
	}
	delete(s.users, id)
	delete(s.history, id)
	return nil
}

func (s *MemoryStore) SetPassword(ctx context.Context, id uuid.UUID, hash string, changedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return sentinel.ErrNoRowsAffected
	}
	u.PasswordHash = hash
	t := changedAt
	u.PasswordChangedAt = &t
	u.Status = StatusActive
	u.UpdatedAt = changedAt
	return nil
}

func (s *MemoryStore) PasswordHistory(ctx context.Context, id uuid.UUID, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.history[id]
	if len(h) > limit {
		h = h[:limit]
	}
	return append([]string(nil), h...), nil
}

func (s *MemoryStore) AppendPasswordHistory(ctx context.Context, id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[id] = append([]string{hash}, s.history[id]...)
	return nil
}

func (s *MemoryStore) CreateToken(ctx context.Context, t Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[t.ID] = t
	return nil
}

func (s *MemoryStore) GetToken(ctx context.Context, id uuid.UUID) (Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[id]
	if !ok {
		return Token{}, sentinel.ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) MarkTokenUsed(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return sentinel.ErrNoRowsAffected
	}
	now := time.Now()
	t.UsedAt = &now
	s.tokens[id] = t
	return nil
}

func (s *MemoryStore) CreateSession(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *sess
	s.sessions[sess.ID] = &copied
	return nil
}

func (s *MemoryStore) GetActiveSessionByToken(ctx context.Context, token string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.Token == token && sess.Status == SessionActive {
			copied := *sess
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ExpireSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.Token == token && sess.Status == SessionActive {
			sess.Status = SessionExpired
			sess.UpdatedAt = time.Now()
			return nil
		}
	}
	return sentinel.ErrNoRowsAffected
}

func (s *MemoryStore) ExpireAllSessionsForUser(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Status == SessionActive {
			sess.Status = SessionExpired
			sess.UpdatedAt = time.Now()
		}
	}
	return nil
}

// Adapters expose the shared memory store under the three store contracts.

type memoryTokenStore struct{ *MemoryStore }

func (s memoryTokenStore) Create(ctx context.Context, t Token) error { return s.CreateToken(ctx, t) }
func (s memoryTokenStore) Get(ctx context.Context, id uuid.UUID) (Token, error) {
	return s.GetToken(ctx, id)
}
func (s memoryTokenStore) MarkUsed(ctx context.Context, id uuid.UUID) error {
	return s.MarkTokenUsed(ctx, id)
}

type memorySessionStore struct{ *MemoryStore }

func (s memorySessionStore) Create(ctx context.Context, sess *Session) error {
	return s.CreateSession(ctx, sess)
}
func (s memorySessionStore) GetActiveByToken(ctx context.Context, token string) (*Session, error) {
	return s.GetActiveSessionByToken(ctx, token)
}
func (s memorySessionStore) Expire(ctx context.Context, token string) error {
	return s.ExpireSession(ctx, token)
}
func (s memorySessionStore) ExpireAllForUser(ctx context.Context, userID uuid.UUID) error {
	return s.ExpireAllSessionsForUser(ctx, userID)
}

// Tokens returns the store viewed through the TokenStore contract.
func (s *MemoryStore) Tokens() TokenStore { return memoryTokenStore{s} }

// Sessions returns the store viewed through the SessionStore contract.
func (s *MemoryStore) Sessions() SessionStore { return memorySessionStore{s} }

var _ Store = (*MemoryStore)(nil)
