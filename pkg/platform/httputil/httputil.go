// Package httputil holds the JSON helpers shared by every HTTP handler:
// response writing, coded-error serialization, and request decoding with
// struct-tag validation.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	dErrors "github.com/manny-e1/user-management-backend-2/pkg/domain-errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError serializes a coded domain error. Internal errors answer with an
// opaque body so store and infrastructure details never reach clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: string(code)}
	if code == dErrors.CodeInternal {
		body.Error = "internal_error"
	} else {
		body.Description = dErrors.MessageOf(err)
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

// DecodeAndPrepare decodes the request body into T and runs struct-tag
// validation. On failure it writes the error response and returns ok=false;
// callers just return.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return req, false
	}
	if err := validate.Struct(req); err != nil {
		WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, validationMessage(err)))
		return req, false
	}
	return req, true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "field " + fe.Field() + " failed on " + fe.Tag()
	}
	return "request validation failed"
}
