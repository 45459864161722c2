package maintenance

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

// PostgresStore persists maintenance windows. One row per logical window;
// lifecycle and channel columns are written verbatim as computed by the
// engine.
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
	id, submission_status, approval_status, maker, checker, reject_reason,
	start_date, end_date, extended_start_date, extended_end_date,
	rakyat_enabled, rakyat_status, bizrakyat_enabled, bizrakyat_status,
	created_at, submitted_at, updated_at, action_taken_time`

func (s *PostgresStore) Create(ctx context.Context, req *approval.Request[Payload]) error {
	const query = `
		INSERT INTO maintenance_windows (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	rakyat, bizrakyat := channelColumns(req)
	_, err := s.execer(ctx).ExecContext(ctx, query,
		req.ID, req.SubmissionStatus, req.ApprovalStatus,
		nullString(req.Maker), nullString(req.Checker), nullString(req.RejectReason),
		req.Window.Start, req.Window.End, req.Window.ExtendedStart, req.Window.ExtendedEnd,
		rakyat.Enabled, string(rakyat.Status), bizrakyat.Enabled, string(bizrakyat.Status),
		req.CreatedAt, req.SubmittedAt, req.UpdatedAt, req.ActionTakenTime,
	)
	if err != nil {
		return fmt.Errorf("insert maintenance window: %w", postgres.ClassifyError(err))
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*approval.Request[Payload], error) {
	const query = `SELECT ` + columns + ` FROM maintenance_windows WHERE id = $1`
	req, err := scanRow(s.execer(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get maintenance window: %w", postgres.ClassifyError(err))
	}
	return req, nil
}

func (s *PostgresStore) Update(ctx context.Context, req *approval.Request[Payload]) error {
	const query = `
		UPDATE maintenance_windows SET
			submission_status = $2, approval_status = $3, maker = $4, checker = $5,
			reject_reason = $6, start_date = $7, end_date = $8,
			extended_start_date = $9, extended_end_date = $10,
			rakyat_enabled = $11, rakyat_status = $12,
			bizrakyat_enabled = $13, bizrakyat_status = $14,
			submitted_at = $15, updated_at = $16, action_taken_time = $17
		WHERE id = $1`
	rakyat, bizrakyat := channelColumns(req)
	res, err := s.execer(ctx).ExecContext(ctx, query,
		req.ID, req.SubmissionStatus, req.ApprovalStatus,
		nullString(req.Maker), nullString(req.Checker), nullString(req.RejectReason),
		req.Window.Start, req.Window.End, req.Window.ExtendedStart, req.Window.ExtendedEnd,
		rakyat.Enabled, string(rakyat.Status), bizrakyat.Enabled, string(bizrakyat.Status),
		req.SubmittedAt, req.UpdatedAt, req.ActionTakenTime,
	)
	if err != nil {
		return fmt.Errorf("update maintenance window: %w", postgres.ClassifyError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNoRowsAffected
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*approval.Request[Payload], error) {
	const query = `SELECT ` + columns + ` FROM maintenance_windows ORDER BY created_at DESC`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list maintenance windows: %w", postgres.ClassifyError(err))
	}
	defer rows.Close()

	var out []*approval.Request[Payload]
	for rows.Next() {
		req, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan maintenance window: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LatestApproved(ctx context.Context) (*approval.Request[Payload], error) {
	const query = `
		SELECT ` + columns + ` FROM maintenance_windows
		WHERE approval_status = $1 ORDER BY updated_at DESC LIMIT 1`
	req, err := scanRow(s.execer(ctx).QueryRowContext(ctx, query, approval.ApprovalApproved))
	if err != nil {
		return nil, fmt.Errorf("latest approved maintenance window: %w", postgres.ClassifyError(err))
	}
	return req, nil
}

func (s *PostgresStore) Remove(ctx context.Context, ids []uuid.UUID) error {
	const query = `DELETE FROM maintenance_windows WHERE id = ANY($1)`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuidStrings(ids))
	if err != nil {
		return fmt.Errorf("delete maintenance windows: %w", postgres.ClassifyError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNoRowsAffected
	}
	return nil
}

func (s *PostgresStore) PendingCount(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM maintenance_windows WHERE approval_status = $1`
	var count int
	if err := s.execer(ctx).QueryRowContext(ctx, query, approval.ApprovalPending).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending maintenance windows: %w", postgres.ClassifyError(err))
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*approval.Request[Payload], error) {
	var (
		req                    approval.Request[Payload]
		window                 approval.Window
		maker, checker, reason sql.NullString
		extStart, extEnd       sql.NullTime
		rakyatEnabled          bool
		rakyatStatus           string
		bizrakyatEnabled       bool
		bizrakyatStatus        string
		actionTaken            sql.NullTime
	)
	err := row.Scan(
		&req.ID, &req.SubmissionStatus, &req.ApprovalStatus, &maker, &checker, &reason,
		&window.Start, &window.End, &extStart, &extEnd,
		&rakyatEnabled, &rakyatStatus, &bizrakyatEnabled, &bizrakyatStatus,
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
	if extStart.Valid {
		t := extStart.Time
		window.ExtendedStart = &t
	}
	if extEnd.Valid {
		t := extEnd.Time
		window.ExtendedEnd = &t
	}
	req.Window = &window
	req.Channels = []approval.Channel{
		{Name: ChannelRakyat, Enabled: rakyatEnabled, Status: approval.ChannelStatus(rakyatStatus)},
		{Name: ChannelBizRakyat, Enabled: bizrakyatEnabled, Status: approval.ChannelStatus(bizrakyatStatus)},
	}
	if actionTaken.Valid {
		t := actionTaken.Time
		req.ActionTakenTime = &t
	}
	return &req, nil
}

func channelColumns(req *approval.Request[Payload]) (rakyat, bizrakyat approval.Channel) {
	for _, ch := range req.Channels {
		switch ch.Name {
		case ChannelRakyat:
			rakyat = ch
		case ChannelBizRakyat:
			bizrakyat = ch
		}
	}
	return rakyat, bizrakyat
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

var _ approval.Store[Payload] = (*PostgresStore)(nil)
