package group

import (
	"context"

	"github.com/google/uuid"
)

// Store persists groups and serves the role catalog. Delete returns
// sentinel.ErrConflict while the group still has members.
type Store interface {
	Create(ctx context.Context, g *Group) error
	Get(ctx context.Context, id uuid.UUID) (*Group, error)
	List(ctx context.Context) ([]*Group, error)
	Update(ctx context.Context, g *Group) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListRoles(ctx context.Context) ([]Role, error)
}
