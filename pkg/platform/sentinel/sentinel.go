package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: row does not exist in the store
// - ErrInvalidID: the identifier fails the store's id syntax (not a missing row)
// - ErrConflict: uniqueness constraint violated
// - ErrNoRowsAffected: an update or delete matched nothing
// - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidID      = errors.New("invalid id")
	ErrConflict       = errors.New("conflict")
	ErrNoRowsAffected = errors.New("no rows affected")
	ErrUnavailable    = errors.New("unavailable")
)
