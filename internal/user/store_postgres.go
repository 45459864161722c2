package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/manny-e1/user-management-backend-2/internal/platform/postgres"
	"github.com/manny-e1/user-management-backend-2/pkg/platform/sentinel"
	txcontext "github.com/manny-e1/user-management-backend-2/pkg/platform/tx"
)

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func execer(ctx context.Context, db *sql.DB) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return db
}

// PostgresStore persists accounts and their password history. Reads join the
// group directory for the group and role names.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `
	u.id, u.name, u.email, u.staff_id, u.group_id,
	COALESCE(g.name, ''), COALESCE(r.name, ''),
	u.status, COALESCE(u.password_hash, ''), u.password_changed_at,
	u.created_at, u.updated_at`

const userJoins = `
	FROM users u
	LEFT JOIN user_groups g ON g.id = u.group_id
	LEFT JOIN roles r ON r.id = g.role_id`

func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	const query = `
		INSERT INTO users (id, name, email, staff_id, group_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := execer(ctx, s.db).ExecContext(ctx, query,
		u.ID, u.Name, u.Email, u.StaffID, u.GroupID, u.Status, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", postgres.ClassifyError(err))
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + userJoins + ` WHERE u.id = $1`
	u, err := scanUser(execer(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", postgres.ClassifyError(err))
	}
	return u, nil
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + userJoins + ` WHERE LOWER(u.email) = LOWER($1)`
	u, err := scanUser(execer(ctx, s.db).QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", postgres.ClassifyError(err))
	}
	return u, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*User, error) {
	query := `SELECT ` + userColumns + userJoins + ` ORDER BY u.created_at DESC`
	rows, err := execer(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", postgres.ClassifyError(err))
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, u *User) error {
	const query = `
		UPDATE users SET name = $2, email = $3, staff_id = $4, group_id = $5,
			status = $6, updated_at = $7
		WHERE id = $1`
	res, err := execer(ctx, s.db).ExecContext(ctx, query,
		u.ID, u.Name, u.Email, u.StaffID, u.GroupID, u.Status, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", postgres.ClassifyError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNoRowsAffected
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM users WHERE id = $1`
	res, err := execer(ctx, s.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", postgres.ClassifyError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNoRowsAffected
	}
	return nil
}

func (s *PostgresStore) SetPassword(ctx context.Context, id uuid.UUID, hash string, changedAt time.Time) error {
	const query = `
		UPDATE users SET password_hash = $2, password_changed_at = $3,
			status = $4, updated_at = $3
		WHERE id = $1`
	res, err := execer(ctx, s.db).ExecContext(ctx, query, id, hash, changedAt, StatusActive)
	if err != nil {
		return fmt.Errorf("set password: %w", postgres.ClassifyError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNoRowsAffected
	}
	return nil
}

func (s *PostgresStore) PasswordHistory(ctx context.Context, id uuid.UUID, limit int) ([]string, error) {
	const query = `
		SELECT password_hash FROM password_history
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := execer(ctx, s.db).QueryContext(ctx, query, id, limit)
	if err != nil {
		return nil, fmt.Errorf("query password history: %w", postgres.ClassifyError(err))
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan password history: %w", err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

func (s *PostgresStore) AppendPasswordHistory(ctx context.Context, id uuid.UUID, hash string) error {
	const query = `
		INSERT INTO password_history (id, user_id, password_hash, created_at)
		VALUES ($1, $2, $3, NOW())`
	_, err := execer(ctx, s.db).ExecContext(ctx, query, uuid.New(), id, hash)
	if err != nil {
		return fmt.Errorf("insert password history: %w", postgres.ClassifyError(err))
	}
	return nil
}

func scanUser(row interface{ Scan(dest ...any) error }) (*User, error) {
	var (
		u         User
		changedAt sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.StaffID, &u.GroupID,
		&u.Group, &u.Role, &u.Status, &u.PasswordHash, &changedAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	if changedAt.Valid {
		t := changedAt.Time
		u.PasswordChangedAt = &t
	}
	return &u, nil
}

// PostgresTokenStore persists activation and reset tokens.
type PostgresTokenStore struct {
	db *sql.DB
}

func NewPostgresTokenStore(db *sql.DB) *PostgresTokenStore {
	return &PostgresTokenStore{db: db}
}

func (s *PostgresTokenStore) Create(ctx context.Context, t Token) error {
	const query = `
		INSERT INTO user_tokens (id, user_id, purpose, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := execer(ctx, s.db).ExecContext(ctx, query, t.ID, t.UserID, t.Purpose, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert token: %w", postgres.ClassifyError(err))
	}
	return nil
}

func (s *PostgresTokenStore) Get(ctx context.Context, id uuid.UUID) (Token, error) {
	const query = `
		SELECT id, user_id, purpose, expires_at, used_at, created_at
		FROM user_tokens WHERE id = $1`
	var (
		t      Token
		usedAt sql.NullTime
	)
	err := execer(ctx, s.db).QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.UserID, &t.Purpose, &t.ExpiresAt, &usedAt, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Token{}, fmt.Errorf("get token: %w", sentinel.ErrNotFound)
		}
		return Token{}, fmt.Errorf("get token: %w", postgres.ClassifyError(err))
	}
	if usedAt.Valid {
		u := usedAt.Time
		t.UsedAt = &u
	}
	return t, nil
}

func (s *PostgresTokenStore) MarkUsed(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE user_tokens SET used_at = NOW() WHERE id = $1 AND used_at IS NULL`
	res, err := execer(ctx, s.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark token used: %w", postgres.ClassifyError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNoRowsAffected
	}
	return nil
}

// PostgresSessionStore persists login sessions.
type PostgresSessionStore struct {
	db *sql.DB
}

func NewPostgresSessionStore(db *sql.DB) *PostgresSessionStore {
	return &PostgresSessionStore{db: db}
}

func (s *PostgresSessionStore) Create(ctx context.Context, sess *Session) error {
	const query = `
		INSERT INTO login_sessions (id, user_id, token, role, ip, user_agent, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := execer(ctx, s.db).ExecContext(ctx, query,
		sess.ID, sess.UserID, sess.Token, sess.Role, sess.IP, sess.UserAgent,
		sess.Status, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", postgres.ClassifyError(err))
	}
	return nil
}

func (s *PostgresSessionStore) GetActiveByToken(ctx context.Context, token string) (*Session, error) {
	const query = `
		SELECT id, user_id, token, role, ip, user_agent, status, created_at, updated_at
		FROM login_sessions WHERE token = $1 AND status = $2`
	var sess Session
	err := execer(ctx, s.db).QueryRowContext(ctx, query, token, SessionActive).Scan(
		&sess.ID, &sess.UserID, &sess.Token, &sess.Role, &sess.IP, &sess.UserAgent,
		&sess.Status, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get session: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get session: %w", postgres.ClassifyError(err))
	}
	return &sess, nil
}

func (s *PostgresSessionStore) Expire(ctx context.Context, token string) error {
	const query = `
		UPDATE login_sessions SET status = $2, updated_at = NOW()
		WHERE token = $1 AND status = $3`
	res, err := execer(ctx, s.db).ExecContext(ctx, query, token, SessionExpired, SessionActive)
	if err != nil {
		return fmt.Errorf("expire session: %w", postgres.ClassifyError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNoRowsAffected
	}
	return nil
}

func (s *PostgresSessionStore) ExpireAllForUser(ctx context.Context, userID uuid.UUID) error {
	const query = `
		UPDATE login_sessions SET status = $2, updated_at = NOW()
		WHERE user_id = $1 AND status = $3`
	_, err := execer(ctx, s.db).ExecContext(ctx, query, userID, SessionExpired, SessionActive)
	if err != nil {
		return fmt.Errorf("expire sessions: %w", postgres.ClassifyError(err))
	}
	return nil
}

var (
	_ Store        = (*PostgresStore)(nil)
	_ TokenStore   = (*PostgresTokenStore)(nil)
	_ SessionStore = (*PostgresSessionStore)(nil)
)
