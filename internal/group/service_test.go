package group

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manny-e1/user-management-backend-2/internal/audit"
	"github.com/manny-e1/user-management-backend-2/internal/platform/logger"
	dErrors "github.com/manny-e1/user-management-backend-2/pkg/domain-errors"
	"github.com/manny-e1/user-management-backend-2/pkg/testutil"
)

func newService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewService(store, audit.NewService(audit.NewMemoryStore(), logger.NewNop()), logger.NewNop()), store
}

func TestCreateGroup(t *testing.T) {
	svc, store := newService(t)
	role, ok := store.RoleByName(RoleManager1)
	require.True(t, ok)

	g, err := svc.Create(testutil.CheckerCtx("admin@bank.test"), Input{Name: "Branch Checkers", RoleID: role.ID})
	require.NoError(t, err)
	assert.Equal(t, "Branch Checkers", g.Name)

	got, err := svc.Get(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleManager1, got.Role)
	assert.Zero(t, got.MemberCount)

	_, err = svc.Create(testutil.CheckerCtx("admin@bank.test"), Input{Name: "branch checkers", RoleID: role.ID})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict), "group names are unique, case-insensitively")
}

func TestCreateGroupRequiresActor(t *testing.T) {
	svc, store := newService(t)
	role, _ := store.RoleByName(RoleAdmin)

	_, err := svc.Create(context.Background(), Input{Name: "Ops", RoleID: role.ID})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestDeleteGroupWithMembersConflicts(t *testing.T) {
	svc, store := newService(t)
	role, _ := store.RoleByName(RoleNormalUser)
	g, err := svc.Create(testutil.CheckerCtx("admin@bank.test"), Input{Name: "Branch Makers", RoleID: role.ID})
	require.NoError(t, err)

	store.SetMemberCount(g.ID, 2)
	err = svc.Delete(testutil.CheckerCtx("admin@bank.test"), g.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	store.SetMemberCount(g.ID, 0)
	require.NoError(t, svc.Delete(testutil.CheckerCtx("admin@bank.test"), g.ID))

	_, err = svc.Get(context.Background(), g.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestListRolesReturnsCatalog(t *testing.T) {
	svc, _ := newService(t)

	roles, err := svc.ListRoles(context.Background())
	require.NoError(t, err)
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.Name
	}
	assert.Contains(t, names, RoleAdmin)
	assert.Contains(t, names, RoleManager1)
	assert.Contains(t, names, RoleNormalUser)
}
