package audit

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/manny-e1/user-management-backend-2/pkg/platform/sentinel"
)

// MemoryStore is the in-memory trail used by unit tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, sentinel.ErrNotFound
}

func (s *MemoryStore) Query(_ context.Context, filter Filter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, e := range s.entries {
		if e.CreatedAt.Before(filter.From) || e.CreatedAt.After(filter.To) {
			continue
		}
		if len(filter.Performers) > 0 && !containsString(filter.Performers, e.PerformedBy) {
			continue
		}
		if len(filter.Modules) > 0 && !containsModule(filter.Modules, e.Module) {
			continue
		}
		if filter.Status == string(StatusSuccess) && e.Status != StatusSuccess {
			continue
		}
		if filter.Status == string(StatusFailure) && e.Status != StatusFailure {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Len reports how many entries landed; test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// All returns a copy of every entry in append order; test helper.
func (s *MemoryStore) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry{}, s.entries...)
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsModule(haystack []Module, needle Module) bool {
	for _, m := range haystack {
		if m == needle {
			return true
		}
	}
	return false
}
