package lockout

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is the single-instance fallback when Redis is not configured.
type MemoryStore struct {
	mu       sync.Mutex
	failures map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{failures: make(map[string]int)}
}

func (s *MemoryStore) RecordFailure(ctx context.Context, identifier string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(identifier)
	s.failures[key]++
	return s.failures[key], nil
}

func (s *MemoryStore) Clear(ctx context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, strings.ToLower(identifier))
	return nil
}

var _ Store = (*MemoryStore)(nil)
