package maintenance

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/manny-e1/user-management-backend-2/internal/approval"
	dErrors "github.com/manny-e1/user-management-backend-2/pkg/domain-errors"
	"github.com/manny-e1/user-management-backend-2/pkg/platform/httputil"
	"github.com/manny-e1/user-management-backend-2/pkg/requestcontext"
)

// Handler wires maintenance-window endpoints to the approval engine.
type Handler struct {
	engine  *Engine
	logger  *slog.Logger
	maker   []func(http.Handler) http.Handler
	checker []func(http.Handler) http.Handler
}

// Option configures a Handler.
type Option func(*Handler)

// WithGates installs access gates on the maker and checker route groups.
// The composition root wires role middleware here; tests leave routes open.
func WithGates(maker, checker func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.maker = append(h.maker, maker)
		h.checker = append(h.checker, checker)
	}
}

func NewHandler(engine *Engine, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{engine: engine, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts maintenance endpoints on the router. The list and
// last-updated reads also serve unauthenticated callers, who get the
// identity-stripped projection.
func (h *Handler) Register(r chi.Router) {
	r.Route("/maintenance", func(r chi.Router) {
		r.With(h.maker...).Post("/", h.HandleSubmit)
		r.Get("/", h.HandleList)
		r.Get("/last-updated", h.HandleLastUpdated)
		r.With(h.checker...).Post("/approve", h.HandleApprove)
		r.With(h.checker...).Post("/reject", h.HandleReject)
		r.Get("/{id}", h.HandleGet)
		r.With(h.maker...).Put("/{id}", h.HandleEdit)
		r.With(h.maker...).Delete("/{id}", h.HandleRequestDelete)
		r.With(h.maker...).Patch("/{id}/complete", h.HandleReportComplete)
		r.Get("/{id}/rejections", h.HandleRejections)
	})
}

type submitRequest struct {
	StartDate        time.Time `json:"startDate" validate:"required"`
	EndDate          time.Time `json:"endDate" validate:"required"`
	RakyatEnabled    bool      `json:"iRakyatYN"`
	BizRakyatEnabled bool      `json:"iBizRakyatYN"`
}

func (req submitRequest) submission() approval.Submission[Payload] {
	return approval.Submission[Payload]{
		Payload: Payload{},
		Window:  &approval.Window{Start: req.StartDate, End: req.EndDate},
		EnabledChannels: map[string]bool{
			ChannelRakyat:    req.RakyatEnabled,
			ChannelBizRakyat: req.BizRakyatEnabled,
		},
	}
}

type idsRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

type rejectRequest struct {
	IDs    []uuid.UUID `json:"ids" validate:"required,min=1"`
	Reason string      `json:"reason" validate:"required"`
}

type reportCompleteRequest struct {
	Channel string `json:"channel" validate:"required"`
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[submitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	created, err := h.engine.Submit(ctx, req.submission())
	if err != nil {
		h.logger.ErrorContext(ctx, "maintenance window submission failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, internal := requestcontext.Actor(ctx)

	views, err := h.engine.List(ctx, internal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) HandleLastUpdated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, internal := requestcontext.Actor(ctx)

	view, err := h.engine.LatestApproved(ctx, internal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidID, "invalid maintenance window id"))
		return
	}
	_, internal := requestcontext.Actor(ctx)

	view, err := h.engine.Get(ctx, id, internal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidID, "invalid maintenance window id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[submitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	updated, err := h.engine.Edit(ctx, id, req.submission())
	if err != nil {
		h.logger.ErrorContext(ctx, "maintenance window edit failed",
			"request_id", requestID,
			"id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) HandleRequestDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidID, "invalid maintenance window id"))
		return
	}

	flagged, err := h.engine.RequestDelete(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, flagged)
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[idsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.engine.Approve(ctx, req.IDs); err != nil {
		h.logger.ErrorContext(ctx, "maintenance window approval failed",
			"request_id", requestID,
			"ids", req.IDs,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "success"})
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[rejectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.engine.Reject(ctx, req.IDs, req.Reason); err != nil {
		h.logger.ErrorContext(ctx, "maintenance window rejection failed",
			"request_id", requestID,
			"ids", req.IDs,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "success"})
}

func (h *Handler) HandleReportComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidID, "invalid maintenance window id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[reportCompleteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	updated, err := h.engine.ReportChannelComplete(ctx, id, req.Channel)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) HandleRejections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidID, "invalid maintenance window id"))
		return
	}

	entries, err := h.engine.RejectionHistory(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}
