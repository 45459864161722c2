package user

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	dErrors "github.com/manny-e1/user-management-backend-2/pkg/domain-errors"
	"github.com/manny-e1/user-management-backend-2/pkg/platform/httputil"
	"github.com/manny-e1/user-management-backend-2/pkg/requestcontext"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterUsers mounts the account CRUD endpoints.
func (h *Handler) RegisterUsers(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
}

// RegisterAuth mounts the credential endpoints. Login, activation and reset
// are reachable without a session; logout and change-password require one.
func (h *Handler) RegisterAuth(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Post("/logout", h.HandleLogout)
		r.Post("/activate", h.HandleActivate)
		r.Post("/forgot-password", h.HandleForgotPassword)
		r.Post("/reset-password", h.HandleResetPassword)
		r.Post("/change-password", h.HandleChangePassword)
	})
}

type createRequest struct {
	Name    string    `json:"name" validate:"required"`
	Email   string    `json:"email" validate:"required,email"`
	StaffID string    `json:"staffId" validate:"required"`
	GroupID uuid.UUID `json:"groupId" validate:"required"`
}

type createResponse struct {
	User            *User     `json:"user"`
	ActivationToken uuid.UUID `json:"activationToken"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[createRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	u, token, err := h.service.Create(ctx, CreateInput{
		Name:    req.Name,
		Email:   req.Email,
		StaffID: req.StaffID,
		GroupID: req.GroupID,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "user creation failed",
			"request_id", requestID,
			"email", req.Email,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, createResponse{User: u, ActivationToken: token.ID})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidID, "invalid user id"))
		return
	}
	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

type updateRequest struct {
	Name    string    `json:"name" validate:"required"`
	Email   string    `json:"email" validate:"required,email"`
	StaffID string    `json:"staffId" validate:"required"`
	GroupID uuid.UUID `json:"groupId" validate:"required"`
	Status  Status    `json:"status" validate:"required,oneof=active inactive locked"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidID, "invalid user id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[updateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	u, err := h.service.Update(ctx, id, UpdateInput{
		Name:    req.Name,
		Email:   req.Email,
		StaffID: req.StaffID,
		GroupID: req.GroupID,
		Status:  req.Status,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "user update failed",
			"request_id", requestID,
			"id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidID, "invalid user id"))
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "success"})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[loginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Login(ctx, LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"request_id", requestID,
			"email", req.Email,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
		return
	}
	if err := h.service.Logout(r.Context(), token); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "success"})
}

type tokenPasswordRequest struct {
	TokenID  uuid.UUID `json:"tokenId" validate:"required"`
	Password string    `json:"password" validate:"required,min=8"`
}

func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[tokenPasswordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.Activate(ctx, req.TokenID, req.Password); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "success"})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[forgotPasswordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	token, err := h.service.RequestPasswordReset(ctx, req.Email)
	if err != nil {
		// Do not reveal whether the account exists.
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "success"})
			return
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"message": "success", "resetToken": token.ID})
}

func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[tokenPasswordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.ResetPassword(ctx, req.TokenID, req.Password); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "success"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	token := bearerToken(r)
	if token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
		return
	}
	actor, err := h.service.ResolveSession(ctx, token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ctx = requestcontext.WithActor(ctx, actor)

	req, ok := httputil.DecodeAndPrepare[changePasswordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.ChangePassword(ctx, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "success"})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
