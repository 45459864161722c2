// Package rejection keeps the append-only log of checker rejections. One
// entry is written per rejected id per rejection event, capturing the
// submission status as it stood before the rejection; entries are never
// updated or deleted.
package rejection

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Entry struct {
	ID               uuid.UUID
	TargetID         uuid.UUID
	RejectedBy       string
	Reason           string
	SubmissionStatus string
	RejectedDate     time.Time
}

type Store interface {
	Append(ctx context.Context, entry Entry) error
	// ListByTarget returns entries for one target id, newest first.
	ListByTarget(ctx context.Context, targetID uuid.UUID) ([]Entry, error)
}
