package group

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/manny-e1/user-management-backend-2/pkg/platform/sentinel"
)

type MemoryStore struct {
	mu      sync.RWMutex
	groups  map[uuid.UUID]*Group
	roles   []Role
	members map[uuid.UUID]int
}

func NewMemoryStore() *MemoryStore {
	roles := make([]Role, 0, 6)
	for _, name := range []string{RoleAdmin, RoleAdmin2, RoleManager1, RoleManager2, RoleNormalUser, RoleNormal2} {
		roles = append(roles, Role{ID: uuid.New(), Name: name})
	}
	return &MemoryStore{
		groups:  make(map[uuid.UUID]*Group),
		roles:   roles,
		members: make(map[uuid.UUID]int),
	}
}

func (s *MemoryStore) Create(ctx context.Context, g *Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.groups {
		if strings.EqualFold(existing.Name, g.Name) {
			return sentinel.ErrConflict
		}
	}
	copied := *g
	s.groups[g.ID] = &copied
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *g
	copied.MemberCount = s.members[id]
	copied.Role = s.roleName(g.RoleID)
	return &copied, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Group, 0, len(s.groups))
	for id, g := range s.groups {
		copied := *g
		copied.MemberCount = s.members[id]
		copied.Role = s.roleName(g.RoleID)
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, g *Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[g.ID]; !ok {
		return sentinel.ErrNoRowsAffected
	}
	for id, other := range s.groups {
		if id != g.ID && strings.EqualFold(other.Name, g.Name) {
			return sentinel.ErrConflict
		}
	}
	copied := *g
	s.groups[g.ID] = &copied
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return sentinel.ErrNoRowsAffected
	}
	if s.members[id] > 0 {
		return sentinel.ErrConflict
	}
	delete(s.groups, id)
	return nil
}

func (s *MemoryStore) ListRoles(ctx context.Context) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Role(nil), s.roles...), nil
}

// RoleByName is a test helper for looking up seeded role ids.
func (s *MemoryStore) RoleByName(name string) (Role, bool) {
	for _, r := range s.roles {
		if r.Name == name {
			return r, true
		}
	}
	return Role{}, false
}

// SetMemberCount is a test helper standing in for the users table join.
func (s *MemoryStore) SetMemberCount(id uuid.UUID, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[id] = n
}

func (s *MemoryStore) roleName(roleID uuid.UUID) string {
	for _, r := range s.roles {
		if r.ID == roleID {
			return r.Name
		}
	}
	return ""
}

var _ Store = (*MemoryStore)(nil)
