package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/manny-e1/user-management-backend-2/internal/platform/postgres"
	txcontext "github.com/manny-e1/user-management-backend-2/pkg/platform/tx"
)

// PostgresStore persists the trail in the audit_logs table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	const query = `
		INSERT INTO audit_logs (id, performed_by, module, description, status, previous_value, new_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		entry.ID, entry.PerformedBy, string(entry.Module), entry.Description,
		string(entry.Status), entry.PreviousValue, entry.NewValue, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", postgres.ClassifyError(err))
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (Entry, error) {
	const query = `
		SELECT id, performed_by, module, description, status, previous_value, new_value, created_at
		FROM audit_logs WHERE id = $1`
	entry, err := scanEntry(s.execer(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return Entry{}, postgres.ClassifyError(err)
	}
	return entry, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry           Entry
		prevVal, newVal sql.NullString
	)
	err := row.Scan(
		&entry.ID, &entry.PerformedBy, &entry.Module, &entry.Description,
		&entry.Status, &prevVal, &newVal, &entry.CreatedAt,
	)
	if err != nil {
		return Entry{}, err
	}
	if prevVal.Valid {
		v := prevVal.String
		entry.PreviousValue = &v
	}
	if newVal.Valid {
		v := newVal.String
		entry.NewValue = &v
	}
	return entry, nil
}

func (s *PostgresStore) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `
		SELECT id, performed_by, module, description, status, previous_value, new_value, created_at
		FROM audit_logs
		WHERE created_at BETWEEN $1 AND $2`
	args := []any{filter.From, filter.To}

	if len(filter.Performers) > 0 {
		// pgx maps []string to text[].
		args = append(args, filter.Performers)
		query += fmt.Sprintf(" AND performed_by = ANY($%d)", len(args))
	}
	if len(filter.Modules) > 0 {
		modules := make([]string, len(filter.Modules))
		for i, m := range filter.Modules {
			modules[i] = string(m)
		}
		args = append(args, modules)
		query += fmt.Sprintf(" AND module = ANY($%d)", len(args))
	}
	if filter.Status == string(StatusSuccess) || filter.Status == string(StatusFailure) {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", postgres.ClassifyError(err))
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
