package group

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/manny-e1/user-management-backend-2/internal/audit"
	dErrors "github.com/manny-e1/user-management-backend-2/pkg/domain-errors"
	"github.com/manny-e1/user-management-backend-2/pkg/requestcontext"
)

type Service struct {
	store  Store
	trail  *audit.Service
	logger *slog.Logger
}

func NewService(store Store, trail *audit.Service, logger *slog.Logger) *Service {
	return &Service{store: store, trail: trail, logger: logger}
}

func (s *Service) record(ctx context.Context, desc string, err error) {
	performedBy := ""
	if actor, ok := requestcontext.Actor(ctx); ok {
		performedBy = actor.Email
	}
	status := audit.StatusSuccess
	if err != nil {
		status = audit.StatusFailure
		desc = fmt.Sprintf("%s: %s", desc, dErrors.MessageOf(err))
	}
	s.trail.Record(ctx, audit.Entry{
		PerformedBy: performedBy,
		Module:      audit.ModuleGroupMaintenance,
		Description: desc,
		Status:      status,
		CreatedAt:   requestcontext.Now(ctx),
	})
}

type Input struct {
	Name   string
	RoleID uuid.UUID
}

func (s *Service) Create(ctx context.Context, in Input) (*Group, error) {
	if _, ok := requestcontext.Actor(ctx); !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	now := requestcontext.Now(ctx)
	g := &Group{
		ID:        uuid.New(),
		Name:      in.Name,
		RoleID:    in.RoleID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.store.Create(ctx, g)
	if err != nil {
		err = dErrors.FromStore(err, "user group")
	}
	s.record(ctx, "created group "+in.Name, err)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Group, error) {
	g, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, dErrors.FromStore(err, "user group")
	}
	return g, nil
}

func (s *Service) List(ctx context.Context) ([]*Group, error) {
	groups, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.FromStore(err, "user group")
	}
	return groups, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*Group, error) {
	if _, ok := requestcontext.Actor(ctx); !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	g, err := s.store.Get(ctx, id)
	if err != nil {
		err = dErrors.FromStore(err, "user group")
		s.record(ctx, "updated group", err)
		return nil, err
	}
	g.Name = in.Name
	g.RoleID = in.RoleID
	g.UpdatedAt = requestcontext.Now(ctx)

	updateErr := s.store.Update(ctx, g)
	if updateErr != nil {
		updateErr = dErrors.FromStore(updateErr, "user group")
	}
	s.record(ctx, "updated group "+in.Name, updateErr)
	if updateErr != nil {
		return nil, updateErr
	}
	return g, nil
}

// Delete removes an empty group. A group that still has members answers
// conflict; move or delete the accounts first.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := requestcontext.Actor(ctx); !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	err := s.store.Delete(ctx, id)
	if err != nil {
		if dErrors.HasCode(dErrors.FromStore(err, "user group"), dErrors.CodeConflict) {
			err = dErrors.New(dErrors.CodeConflict, "group still has members")
		} else {
			err = dErrors.FromStore(err, "user group")
		}
	}
	s.record(ctx, "deleted group", err)
	return err
}

func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return nil, dErrors.FromStore(err, "role")
	}
	return roles, nil
}
