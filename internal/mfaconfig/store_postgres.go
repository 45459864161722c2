package mfaconfig

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
	id, c_sms, c_mo, c_ma, n_sms, n_mo, n_ma,
	submission_status, approval_status, maker, checker, reject_reason,
	created_at, submitted_at, updated_at, action_taken_time`

func (s *PostgresStore) Create(ctx context.Context, req *approval.Request[Payload]) error {
	const query = `
		INSERT INTO mfa_configs (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	p := req.Payload
	_, err := s.execer(ctx).ExecContext(ctx, query,
		req.ID, p.CurrentSMS, p.CurrentMoneyOrd, p.CurrentMobileApp,
		p.NewSMS, p.NewMoneyOrd, p.NewMobileApp,
		req.SubmissionStatus, req.ApprovalStatus,
		nullString(req.Maker), nullString(req.Checker), nullString(req.RejectReason),
		req.CreatedAt, req.SubmittedAt, req.UpdatedAt, req.ActionTakenTime,
	)
	if err != nil {
		return fmt.Errorf("insert mfa config: %w", postgres.ClassifyError(err))
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*approval.Request[Payload], error) {
	const query = `SELECT ` + columns + ` FROM mfa_configs WHERE id = $1`
	req, err := scanRow(s.execer(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get mfa config: %w", postgres.ClassifyError(err))
	}
	return req, nil
}

func (s *PostgresStore) Update(ctx context.Context, req *approval.Request[Payload]) error {
	const query = `
		UPDATE mfa_configs SET
			c_sms = $2, c_mo = $3, c_ma = $4, n_sms = $5, n_mo = $6, n_ma = $7,
			submission_status = $8, approval_status = $9,
			maker = $10, checker = $11, reject_reason = $12,
			submitted_at = $13, updated_at = $14, action_taken_time = $15
		WHERE id = $1`
	p := req.Payload
	res, err := s.execer(ctx).ExecContext(ctx, query,
		req.ID, p.CurrentSMS, p.CurrentMoneyOrd, p.CurrentMobileApp,
		p.NewSMS, p.NewMoneyOrd, p.NewMobileApp,
		req.SubmissionStatus, req.ApprovalStatus,
		nullString(req.Maker), nullString(req.Checker), nullString(req.RejectReason),
		req.SubmittedAt, req.UpdatedAt, req.ActionTakenTime,
	)
	if err != nil {
		return fmt.Errorf("update mfa config: %w", postgres.ClassifyError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNoRowsAffected
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*approval.Request[Payload], error) {
	const query = `SELECT ` + columns + ` FROM mfa_configs ORDER BY created_at DESC`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list mfa configs: %w", postgres.ClassifyError(err))
	}
	defer rows.Close()

	var out []*approval.Request[Payload]
	for rows.Next() {
		req, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mfa config: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LatestApproved(ctx context.Context) (*approval.Request[Payload], error) {
	const query = `
		SELECT ` + columns + ` FROM mfa_configs
		WHERE approval_status = $1 ORDER BY updated_at DESC LIMIT 1`
	req, err := scanRow(s.execer(ctx).QueryRowContext(ctx, query, approval.ApprovalApproved))
	if err != nil {
		return nil, fmt.Errorf("latest approved mfa config: %w", postgres.ClassifyError(err))
	}
	return req, nil
}

// Remove exists to satisfy the store contract; the engine never calls it for
// a kind without a delete concept.
func (s *PostgresStore) Remove(ctx context.Context, ids []uuid.UUID) error {
	return sentinel.ErrNoRowsAffected
}

func (s *PostgresStore) PendingCount(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM mfa_configs WHERE approval_status = $1`
	var count int
	if err := s.execer(ctx).QueryRowContext(ctx, query, approval.ApprovalPending).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending mfa configs: %w", postgres.ClassifyError(err))
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
		&req.ID, &p.CurrentSMS, &p.CurrentMoneyOrd, &p.CurrentMobileApp,
		&p.NewSMS, &p.NewMoneyOrd, &p.NewMobileApp,
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
