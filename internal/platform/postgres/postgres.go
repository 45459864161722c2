// Package postgres opens the shared database handle. Stores receive *sql.DB
// and speak plain SQL through the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/manny-e1/user-management-backend-2/pkg/platform/sentinel"
)

// Open connects and verifies connectivity within a short deadline.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Postgres error classes we translate into sentinel errors.
const (
	codeInvalidTextRepresentation = "22P02"
	codeUniqueViolation           = "23505"
)

// ClassifyError folds driver-level failures into the sentinel vocabulary so
// stores stay free of pgconn imports. Unrecognized errors pass through.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeInvalidTextRepresentation:
			return fmt.Errorf("%w: %s", sentinel.ErrInvalidID, pgErr.Message)
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", sentinel.ErrConflict, pgErr.ConstraintName)
		}
	}
	return err
}
