package txnlimit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/manny-e1/user-management-backend-2/internal/approval"
	"github.com/manny-e1/user-management-backend-2/internal/platform/postgres"
	"github.com/manny-e1/user-management-backend-2/pkg/platform/sentinel"
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
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const columns = `
	id, c_rib, c_rmb, c_cib, c_cmb, n_rib, n_rmb, n_cib, n_cmb,
	submission_status, approval_status, maker, checker, reject_reason,
	created_at, submitted_at, updated_at, action_taken_time`

func (s *PostgresStore) Create(ctx context.Context, req *approval.Request[Payload]) error {
	const query = `
		INSERT INTO transaction_limits (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	p := req.Payload
	_, err := s.execer(ctx).ExecContext(ctx, query,
		req.ID, p.CurrentRIB, p.CurrentRMB, p.CurrentCIB, p.CurrentCMB,
		p.NewRIB, p.NewRMB, p.NewCIB, p.NewCMB,
		req.SubmissionStatus, req.ApprovalStatus,
		nullString(req.Maker), nullString(req.Checker), nullString(req.RejectReason),
		req.CreatedAt, req.SubmittedAt, req.UpdatedAt, req.ActionTakenTime,
	)
	if err != nil {
		return fmt.Errorf("insert transaction limit: %w", postgres.ClassifyError(err))
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*approval.Request[Payload], error) {
	const query = `SELECT ` + columns + ` FROM transaction_limits WHERE id = $1`
	req, err := scanRow(s.execer(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get transaction limit: %w", postgres.ClassifyError(err))
	}
	return req, nil
}

func (s *PostgresStore) Update(ctx context.Context, req *approval.Request[Payload]) error {
	const query = `
		UPDATE transaction_limits SET
			c_rib = $2, c_rmb = $3, c_cib = $4, c_cmb = $5,
			n_rib = $6, n_rmb = $7, n_cib = $8, n_cmb = $9,
			submission_status = $10, approval_status = $11,
			maker = $12, checker = $13, reject_reason = $14,
			submitted_at = $15, updated_at = $16, action_taken_time = $17
		WHERE id = $1`
	p := req.Payload
	res, err := s.execer(ctx).ExecContext(ctx, query,
		req.ID, p.CurrentRIB, p.CurrentRMB, p.CurrentCIB, p.CurrentCMB,
		p.NewRIB, p.NewRMB, p.NewCIB, p.NewCMB,
		req.SubmissionStatus, req.ApprovalStatus,
		nullString(req.Maker), nullString(req.Checker), nullString(req.RejectReason),
		req.SubmittedAt, req.UpdatedAt, req.ActionTakenTime,
	)
	if err != nil {
		return fmt.Errorf("update transaction limit: %w", postgres.ClassifyError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNoRowsAffected
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*approval.Request[Payload], error) {
	const query = `SELECT ` + columns + ` FROM transaction_limits ORDER BY created_at DESC`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list transaction limits: %w", postgres.ClassifyError(err))
	}
	defer rows.Close()

	var out []*approval.Request[Payload]
	for rows.Next() {
		req, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction limit: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LatestApproved(ctx context.Context) (*approval.Request[Payload], error) {
	const query = `
		SELECT ` + columns + ` FROM transaction_limits
		WHERE approval_status = $1 ORDER BY updated_at DESC LIMIT 1`
	req, err := scanRow(s.execer(ctx).QueryRowContext(ctx, query, approval.ApprovalApproved))
	if err != nil {
		return nil, fmt.Errorf("latest approved transaction limit: %w", postgres.ClassifyError(err))
	}
	return req, nil
}

// Remove exists to satisfy the store contract; the engine never calls it for
// a kind without a delete concept.
func (s *PostgresStore) Remove(ctx context.Context, ids []uuid.UUID) error {
	return sentinel.ErrNoRowsAffected
}

func (s *PostgresStore) PendingCount(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM transaction_limits WHERE approval_status = $1`
	var count int
	if err := s.execer(ctx).QueryRowContext(ctx, query, approval.ApprovalPending).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending transaction limits: %w", postgres.ClassifyError(err))
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*approval.Request[Payload], error) {
	var (
		req                    approval.Request[Payload]
		maker, checker, reason sql.NullString
		actionTaken            sql.NullTime
	)
	p := &req.Payload
	err := row.Scan(
		&req.ID, &p.CurrentRIB, &p.CurrentRMB, &p.CurrentCIB, &p.CurrentCMB,
		&p.NewRIB, &p.NewRMB, &p.NewCIB, &p.NewCMB,
		&req.SubmissionStatus, &req.ApprovalStatus, &maker, &checker, &reason,
		&req.CreatedAt, &req.SubmittedAt, &req.UpdatedAt, &actionTaken,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	req.Maker = maker.String
	req.Checker = checker.String
	req.RejectReason = reason.String
	if actionTaken.Valid {
		t := actionTaken.Time
		req.ActionTakenTime = &t
	}
	return &req, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ approval.Store[Payload] = (*PostgresStore)(nil)
