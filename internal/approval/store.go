package approval

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence seam per kind. Implementations hold no business
// rules: the engine computes every status transition and the store applies
// the result verbatim. Stores speak sentinel errors (sentinel.ErrNotFound,
// sentinel.ErrInvalidID, sentinel.ErrNoRowsAffected); the engine classifies
// them into domain errors.
type Store[P Payload] interface {
	Create(ctx context.Context, req *Request[P]) error
	Get(ctx context.Context, id uuid.UUID) (*Request[P], error)
	Update(ctx context.Context, req *Request[P]) error
	// List returns every request, newest-created-first.
	List(ctx context.Context) ([]*Request[P], error)
	// LatestApproved returns the most recently updated approved request.
	LatestApproved(ctx context.Context) (*Request[P], error)
	// Remove physically deletes rows; only the engine's approve path calls
	// it, and only for approved delete-requests.
	Remove(ctx context.Context, ids []uuid.UUID) error
	// PendingCount counts requests still awaiting checker review.
	PendingCount(ctx context.Context) (int, error)
}
