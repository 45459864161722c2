package approval

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/manny-e1/user-management-backend-2/pkg/platform/sentinel"
)

// MemoryStore backs engine unit tests for any kind. It is already atomic
// per call, which is all the NopRunner transaction model needs.
type MemoryStore[P Payload] struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]*Request[P]
}

func NewMemoryStore[P Payload]() *MemoryStore[P] {
	return &MemoryStore[P]{rows: make(map[uuid.UUID]*Request[P])}
}

func (s *MemoryStore[P]) Create(_ context.Context, req *Request[P]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[req.ID]; exists {
		return sentinel.ErrConflict
	}
	s.rows[req.ID] = req.Clone()
	return nil
}

func (s *MemoryStore[P]) Get(_ context.Context, id uuid.UUID) (*Request[P], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return row.Clone(), nil
}

func (s *MemoryStore[P]) Update(_ context.Context, req *Request[P]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[req.ID]; !ok {
		return sentinel.ErrNoRowsAffected
	}
	s.rows[req.ID] = req.Clone()
	return nil
}

func (s *MemoryStore[P]) List(_ context.Context) ([]*Request[P], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Request[P], 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, row.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore[P]) LatestApproved(_ context.Context) (*Request[P], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *Request[P]
	for _, row := range s.rows {
		if row.ApprovalStatus != ApprovalApproved {
			continue
		}
		if latest == nil || row.UpdatedAt.After(latest.UpdatedAt) {
			latest = row
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return latest.Clone(), nil
}

func (s *MemoryStore[P]) Remove(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.rows, id)
	}
	return nil
}

func (s *MemoryStore[P]) PendingCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, row := range s.rows {
		if row.ApprovalStatus == ApprovalPending {
			count++
		}
	}
	return count, nil
}
