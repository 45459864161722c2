package group

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

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

const groupColumns = `
	g.id, g.name, g.role_id, COALESCE(r.name, ''),
	(SELECT COUNT(*) FROM users u WHERE u.group_id = g.id),
	g.created_at, g.updated_at`

func (s *PostgresStore) Create(ctx context.Context, g *Group) error {
	const query = `
		INSERT INTO user_groups (id, name, role_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := s.execer(ctx).ExecContext(ctx, query, g.ID, g.Name, g.RoleID, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert group: %w", postgres.ClassifyError(err))
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Group, error) {
	query := `SELECT ` + groupColumns + ` FROM user_groups g
		LEFT JOIN roles r ON r.id = g.role_id WHERE g.id = $1`
	g, err := scanGroup(s.execer(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get group: %w", postgres.ClassifyError(err))
	}
	return g, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Group, error) {
	query := `SELECT ` + groupColumns + ` FROM user_groups g
		LEFT JOIN roles r ON r.id = g.role_id ORDER BY g.created_at DESC`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", postgres.ClassifyError(err))
	}
	defer rows.Close()

	var out []*Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, g *Group) error {
	const query = `
		UPDATE user_groups SET name = $2, role_id = $3, updated_at = $4 WHERE id = $1`
	res, err := s.execer(ctx).ExecContext(ctx, query, g.ID, g.Name, g.RoleID, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update group: %w", postgres.ClassifyError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNoRowsAffected
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	// The delete is conditional on emptiness so the member check and the
	// removal are one statement.
	const query = `
		DELETE FROM user_groups g WHERE g.id = $1
		AND NOT EXISTS (SELECT 1 FROM users u WHERE u.group_id = $1)`
	res, err := s.execer(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", postgres.ClassifyError(err))
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// Zero rows: either the group is missing or it still has members.
	var exists bool
	const existsQuery = `SELECT EXISTS (SELECT 1 FROM user_groups WHERE id = $1)`
	if err := s.execer(ctx).QueryRowContext(ctx, existsQuery, id).Scan(&exists); err != nil {
		return fmt.Errorf("check group: %w", postgres.ClassifyError(err))
	}
	if exists {
		return sentinel.ErrConflict
	}
	return sentinel.ErrNoRowsAffected
}

func (s *PostgresStore) ListRoles(ctx context.Context) ([]Role, error) {
	const query = `SELECT id, name FROM roles ORDER BY name`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", postgres.ClassifyError(err))
	}
	defer rows.Close()

	var out []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanGroup(row interface{ Scan(dest ...any) error }) (*Group, error) {
	var g Group
	err := row.Scan(&g.ID, &g.Name, &g.RoleID, &g.Role, &g.MemberCount, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

var _ Store = (*PostgresStore)(nil)
