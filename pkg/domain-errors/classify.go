package domainerrors

import (
	"errors"

	"github.com/manny-e1/user-management-backend-2/pkg/platform/sentinel"
)

// FromStore folds a store failure into a coded error. The noun names the
// resource for the client-facing message ("maintenance window", "user", ...).
func FromStore(err error, noun string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return Wrap(err, CodeNotFound, noun+" not found, make sure the id is valid")
	case errors.Is(err, sentinel.ErrInvalidID):
		return Wrap(err, CodeInvalidID, "invalid id")
	case errors.Is(err, sentinel.ErrConflict):
		return Wrap(err, CodeConflict, noun+" already exists")
	case errors.Is(err, sentinel.ErrNoRowsAffected):
		return Wrap(err, CodeUpdateFailed, "updating "+noun+" failed, make sure the id is valid")
	default:
		return Wrap(err, CodeInternal, "failed to access "+noun)
	}
}
