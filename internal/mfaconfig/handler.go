package mfaconfig

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/manny-e1/user-management-backend-2/internal/approval"
	dErrors "github.com/manny-e1/user-management-backend-2/pkg/domain-errors"
	"github.com/manny-e1/user-management-backend-2/pkg/platform/httputil"
	"github.com/manny-e1/user-management-backend-2/pkg/requestcontext"
)

type Handler struct {
	engine  *Engine
	logger  *slog.Logger
	maker   []func(http.Handler) http.Handler
	checker []func(http.Handler) http.Handler
}

// Option configures a Handler.
type Option func(*Handler)

// WithGates installs access gates on the maker and checker route groups.
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

func (h *Handler) Register(r chi.Router) {
	r.Route("/mfa-configs", func(r chi.Router) {
		r.With(h.maker...).Post("/", h.HandleSubmit)
		r.Get("/", h.HandleList)
		r.With(h.checker...).Post("/approve", h.HandleApprove)
		r.With(h.checker...).Post("/reject", h.HandleReject)
		r.Get("/{id}", h.HandleGet)
		r.With(h.maker...).Put("/{id}", h.HandleEdit)
		r.Get("/{id}/rejections", h.HandleRejections)
	})
}

type configRequest struct {
	CurrentSMS       int `json:"cSMS"`
	CurrentMoneyOrd  int `json:"cMO"`
	CurrentMobileApp int `json:"cMA"`
	NewSMS           int `json:"nSMS" validate:"gte=0"`
	NewMoneyOrd      int `json:"nMO" validate:"gte=0"`
	NewMobileApp     int `json:"nMA" validate:"gte=0"`
}

func (req configRequest) submission() approval.Submission[Payload] {
	return approval.Submission[Payload]{
		Payload: Payload{
			CurrentSMS: req.CurrentSMS, CurrentMoneyOrd: req.CurrentMoneyOrd,
			CurrentMobileApp: req.CurrentMobileApp,
			NewSMS:           req.NewSMS, NewMoneyOrd: req.NewMoneyOrd,
			NewMobileApp: req.NewMobileApp,
		},
	}
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[configRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	created, err := h.engine.Submit(ctx, req.submission())
	if err != nil {
		h.logger.ErrorContext(ctx, "mfa config submission failed",
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

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidID, "invalid mfa config id"))
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
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidID, "invalid mfa config id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[configRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	updated, err := h.engine.Edit(ctx, id, req.submission())
	if err != nil {
		h.logger.ErrorContext(ctx, "mfa config edit failed",
			"request_id", requestID,
			"id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[idsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.engine.Approve(ctx, req.IDs); err != nil {
		h.logger.ErrorContext(ctx, "mfa config approval failed",
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
		h.logger.ErrorContext(ctx, "mfa config rejection failed",
			"request_id", requestID,
			"ids", req.IDs,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "success"})
}

func (h *Handler) HandleRejections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidID, "invalid mfa config id"))
		return
	}

	entries, err := h.engine.RejectionHistory(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

type idsRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

type rejectRequest struct {
	IDs    []uuid.UUID `json:"ids" validate:"required,min=1"`
	Reason string      `json:"reason" validate:"required"`
}
