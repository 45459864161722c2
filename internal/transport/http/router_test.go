package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/manny-e1/user-management-backend-2/internal/approval"
	"github.com/manny-e1/user-management-backend-2/internal/audit"
	"github.com/manny-e1/user-management-backend-2/internal/group"
	"github.com/manny-e1/user-management-backend-2/internal/maintenance"
	"github.com/manny-e1/user-management-backend-2/internal/mfaconfig"
	"github.com/manny-e1/user-management-backend-2/internal/platform/logger"
	"github.com/manny-e1/user-management-backend-2/internal/platform/middleware"
	"github.com/manny-e1/user-management-backend-2/internal/rejection"
	"github.com/manny-e1/user-management-backend-2/internal/securenote"
	"github.com/manny-e1/user-management-backend-2/internal/txnlimit"
	"github.com/manny-e1/user-management-backend-2/internal/user"
	"github.com/manny-e1/user-management-backend-2/internal/user/lockout"
	"github.com/manny-e1/user-management-backend-2/pkg/platform/tx"
	"github.com/manny-e1/user-management-backend-2/pkg/requestcontext"
)

type stubSessions struct {
	actors map[string]requestcontext.ActorInfo
}

func (s *stubSessions) ResolveSession(_ context.Context, token string) (requestcontext.ActorInfo, error) {
	if actor, ok := s.actors[token]; ok {
		return actor, nil
	}
	return requestcontext.ActorInfo{}, errors.New("unknown token")
}

// newTestRouter assembles the full middleware and route tree over in-memory
// stores, with two canned sessions: a maker and an admin.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := logger.NewNop()
	runner := tx.NopRunner{}
	trail := audit.NewService(audit.NewMemoryStore(), log)
	rejections := rejection.NewMemoryStore()

	jwtSvc := user.NewJWTService("router-test-key", time.Hour)
	userStore := user.NewMemoryStore()
	userService := user.NewService(
		userStore, userStore.Tokens(), userStore.Sessions(),
		lockout.NewMemoryStore(), trail, runner, jwtSvc, bcrypt.MinCost, log)

	makerGate := middleware.RequireRole(group.RoleAdmin, group.RoleManager1, group.RoleNormalUser)
	checkerGate := middleware.RequireRole(group.RoleAdmin2, group.RoleManager2, group.RoleNormal2)

	maintEngine := approval.NewEngine(maintenance.Kind, maintenance.NewMemoryStore(), trail, rejections, runner, log)
	limitEngine := approval.NewEngine(txnlimit.Kind, txnlimit.NewMemoryStore(), trail, rejections, runner, log)
	mfaEngine := approval.NewEngine(mfaconfig.Kind, mfaconfig.NewMemoryStore(), trail, rejections, runner, log)
	noteEngine := approval.NewEngine(securenote.Kind, securenote.NewMemoryStore(), trail, rejections, runner, log)

	deps := Deps{
		Logger: log,
		Sessions: &stubSessions{actors: map[string]requestcontext.ActorInfo{
			"maker-token": {Email: "maker@bank.test", Role: group.RoleNormalUser},
			"admin-token": {Email: "admin@bank.test", Role: group.RoleAdmin},
		}},
		Users:  user.NewHandler(userService, log),
		Groups: group.NewHandler(group.NewService(group.NewMemoryStore(), trail, log), log),
		Audit:  audit.NewHandler(trail, log),
		Kinds: []Registrar{
			maintenance.NewHandler(maintEngine, log, maintenance.WithGates(makerGate, checkerGate)),
			txnlimit.NewHandler(limitEngine, log, txnlimit.WithGates(makerGate, checkerGate)),
			mfaconfig.NewHandler(mfaEngine, log, mfaconfig.WithGates(makerGate, checkerGate)),
			securenote.NewHandler(noteEngine, log, securenote.WithGates(makerGate, checkerGate)),
		},
		PendingCounts: map[string]PendingCounter{
			string(audit.ModuleSystemMaintenance): maintEngine,
			string(audit.ModuleTransactionLimit):  limitEngine,
			string(audit.ModuleMFAConfiguration):  mfaEngine,
			string(audit.ModuleISecureNote):       noteEngine,
		},
		HealthChecks: map[string]func(ctx context.Context) error{
			"store": func(context.Context) error { return nil },
		},
	}
	return NewRouter(deps)
}

func do(t *testing.T, handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/healthz", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHealthReportsDegradedDependency(t *testing.T) {
	deps := Deps{
		Logger: logger.NewNop(),
		HealthChecks: map[string]func(ctx context.Context) error{
			"store": func(context.Context) error { return errors.New("connection refused") },
		},
		Users:  user.NewHandler(nil, logger.NewNop()),
		Groups: group.NewHandler(nil, logger.NewNop()),
		Audit:  audit.NewHandler(nil, logger.NewNop()),
	}
	router := NewRouter(deps)

	rec := do(t, router, http.MethodGet, "/healthz", "", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestAnonymousLastUpdatedIsPublic(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/maintenance/last-updated", "", "")

	assert.NotEqual(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{
		"/api/maintenance",
		"/api/transaction-limits",
		"/api/mfa-configs",
		"/api/isecure-notes",
		"/api/pending-count",
		"/api/users",
	} {
		rec := do(t, router, http.MethodGet, path, "", "")
		assert.Equalf(t, http.StatusUnauthorized, rec.Code, "path %s", path)
	}
}

func TestMakerCannotApprove(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/transaction-limits/approve", "maker-token", `{"ids":[]}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDirectoryRoutesAreAdminOnly(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/users", "maker-token", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/users", "admin-token", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPendingCountAggregatesAllModules(t *testing.T) {
	router := newTestRouter(t)

	submit := do(t, router, http.MethodPost, "/api/transaction-limits", "maker-token",
		`{"cRIB":1000,"cRMB":1000,"cCIB":1000,"cCMB":1000,"nRIB":2000,"nRMB":2000,"nCIB":2000,"nCMB":2000}`)
	require.Equal(t, http.StatusCreated, submit.Code, submit.Body.String())

	rec := do(t, router, http.MethodGet, "/api/pending-count", "maker-token", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var counts map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	assert.Equal(t, 1, counts[string(audit.ModuleTransactionLimit)])
	assert.Equal(t, 0, counts[string(audit.ModuleSystemMaintenance)])
	assert.Equal(t, 1, counts["total"])
}
