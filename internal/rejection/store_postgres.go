package rejection

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/manny-e1/user-management-backend-2/internal/platform/postgres"
	txcontext "github.com/manny-e1/user-management-backend-2/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	const query = `
		INSERT INTO rejection_logs (id, target_id, rejected_by, reason, submission_status, rejected_date)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		entry.ID, entry.TargetID, entry.RejectedBy, entry.Reason, entry.SubmissionStatus, entry.RejectedDate,
	)
	if err != nil {
		return fmt.Errorf("insert rejection log: %w", postgres.ClassifyError(err))
	}
	return nil
}

func (s *PostgresStore) ListByTarget(ctx context.Context, targetID uuid.UUID) ([]Entry, error) {
	const query = `
		SELECT id, target_id, rejected_by, reason, submission_status, rejected_date
		FROM rejection_logs WHERE target_id = $1 ORDER BY rejected_date DESC`
	rows, err := s.execer(ctx).QueryContext(ctx, query, targetID)
	if err != nil {
		return nil, fmt.Errorf("query rejection logs: %w", postgres.ClassifyError(err))
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TargetID, &e.RejectedBy, &e.Reason, &e.SubmissionStatus, &e.RejectedDate); err != nil {
			return nil, fmt.Errorf("scan rejection log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
