// Package audit is the append-only trail of every attempted mutation in the
// console. Recording is fire-and-forget: a failure to persist an entry is an
// operational problem, never a business one.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/manny-e1/user-management-backend-2/internal/platform/metrics"
	dErrors "github.com/manny-e1/user-management-backend-2/pkg/domain-errors"
)

// Store persists entries. Append must be usable inside or outside a business
// transaction; the trail never requires one.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	Query(ctx context.Context, filter Filter) ([]Entry, error)
	Get(ctx context.Context, id uuid.UUID) (Entry, error)
}

// Sink mirrors recorded entries to an external system (Kafka). Optional.
type Sink interface {
	Publish(ctx context.Context, entry Entry) error
}

type Service struct {
	store   Store
	sink    Sink
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithSink(sink Sink) Option {
	return func(s *Service) { s.sink = sink }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: store, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends one entry. It never returns an error: persistence failures
// are logged and counted so the triggering business operation's outcome is
// reported independently of whether its audit record landed.
func (s *Service) Record(ctx context.Context, entry Entry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := s.store.Append(ctx, entry); err != nil {
		s.metrics.IncAuditDropped()
		s.logger.ErrorContext(ctx, "audit entry dropped",
			"module", entry.Module,
			"performed_by", entry.PerformedBy,
			"description", entry.Description,
			"error", err,
		)
		return
	}
	if s.sink != nil {
		if err := s.sink.Publish(ctx, entry); err != nil {
			s.logger.WarnContext(ctx, "audit mirror publish failed", "error", err)
		}
	}
}

// Query returns matching entries newest-first, each annotated with a 1-based
// display sequence.
func (s *Service) Query(ctx context.Context, filter Filter) ([]View, error) {
	if filter.From.IsZero() || filter.To.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "date range is required")
	}
	switch filter.Status {
	case "", "All", string(StatusSuccess), string(StatusFailure):
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "status must be All, S or F")
	}
	entries, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query audit logs")
	}
	views := make([]View, len(entries))
	for i, entry := range entries {
		views[i] = View{Entry: entry, Seq: i + 1}
	}
	return views, nil
}

// Get fetches one entry by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Entry, error) {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return Entry{}, dErrors.FromStore(err, "audit log")
	}
	return entry, nil
}
