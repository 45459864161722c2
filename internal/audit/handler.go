package audit

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	dErrors "github.com/manny-e1/user-management-backend-2/pkg/domain-errors"
	"github.com/manny-e1/user-management-backend-2/pkg/platform/httputil"
)

// Handler exposes the trail to the operations UI. The trail is read-only
// over HTTP; entries are only ever written by the services that perform the
// audited mutations.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/audit-logs", func(r chi.Router) {
		r.Get("/", h.HandleQuery)
		r.Get("/{id}", h.HandleGet)
	})
}

// HandleQuery filters the trail by a mandatory date range plus optional
// performer, module and status filters. Performers and modules arrive
// comma-separated; "All" (or absence) disables that filter. A date-only "to"
// bound is widened to the end of that day.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := parseDate(q.Get("from"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "from must be an RFC 3339 timestamp or YYYY-MM-DD date"))
		return
	}
	to, err := parseDate(q.Get("to"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "to must be an RFC 3339 timestamp or YYYY-MM-DD date"))
		return
	}
	if len(q.Get("to")) == len(time.DateOnly) {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	filter := Filter{
		From:       from,
		To:         to,
		Performers: splitFilter(q.Get("performers")),
		Status:     q.Get("status"),
	}
	for _, m := range splitFilter(q.Get("modules")) {
		filter.Modules = append(filter.Modules, Module(m))
	}

	views, err := h.service.Query(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if views == nil {
		views = []View{}
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidID, "invalid id"))
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// splitFilter turns "a@x,b@y" into a slice, treating "" and "All" as no
// filter.
func splitFilter(raw string) []string {
	if raw == "" || raw == "All" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
