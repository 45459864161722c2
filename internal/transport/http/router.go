// Package httptransport assembles the HTTP surface: middleware chain, route
// registration for every feature handler, and the small cross-cutting
// endpoints (health, metrics, pending-count) that belong to no single
// feature.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/manny-e1/user-management-backend-2/internal/audit"
	"github.com/manny-e1/user-management-backend-2/internal/group"
	"github.com/manny-e1/user-management-backend-2/internal/platform/metrics"
	"github.com/manny-e1/user-management-backend-2/internal/platform/middleware"
	"github.com/manny-e1/user-management-backend-2/internal/user"
	"github.com/manny-e1/user-management-backend-2/pkg/platform/httputil"
)

const requestTimeout = 30 * time.Second

// Registrar is satisfied by every feature handler that mounts its own route
// subtree.
type Registrar interface {
	Register(r chi.Router)
}

// PendingCounter reports how many change requests await checker review.
// Each approval engine satisfies it.
type PendingCounter interface {
	PendingCount(ctx context.Context) (int, error)
}

// Deps collects everything the router needs. Handlers arrive fully
// constructed (including their role gates); the router only decides where
// subtrees mount and which middleware wraps them.
type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Sessions middleware.SessionResolver

	Users  *user.Handler
	Groups *group.Handler
	Audit  *audit.Handler
	Kinds  []Registrar

	// PendingCounts is keyed by module display name.
	PendingCounts map[string]PendingCounter

	// HealthChecks run on /healthz, keyed by dependency name.
	HealthChecks map[string]func(ctx context.Context) error
}

// NewRouter wires the full API under /api plus the operational endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recovery(deps.Logger),
		middleware.RequestID,
		middleware.Logger(deps.Logger),
		middleware.Timeout(requestTimeout),
		middleware.Metrics(deps.Metrics),
	)

	r.Get("/healthz", handleHealth(deps.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Login, activation and password recovery carry no session yet.
		deps.Users.RegisterAuth(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(deps.Sessions, deps.Logger))

			for _, kind := range deps.Kinds {
				kind.Register(r)
			}
			r.Get("/pending-count", handlePendingCount(deps.PendingCounts))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(group.RoleAdmin, group.RoleAdmin2))
				deps.Users.RegisterUsers(r)
				deps.Groups.Register(r)
				deps.Audit.Register(r)
			})
		})
	})

	return r
}

// handlePendingCount aggregates the review backlog across every governed
// kind so the console can badge its navigation in one round trip.
func handlePendingCount(counters map[string]PendingCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts := make(map[string]int, len(counters)+1)
		total := 0
		for module, counter := range counters {
			n, err := counter.PendingCount(r.Context())
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			counts[module] = n
			total += n
		}
		counts["total"] = total
		httputil.WriteJSON(w, http.StatusOK, counts)
	}
}

func handleHealth(checks map[string]func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := make(map[string]string, len(checks)+1)
		body["status"] = "ok"
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		httputil.WriteJSON(w, status, body)
	}
}
