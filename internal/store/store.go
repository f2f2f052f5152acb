// Package store implements PostgreSQL persistence for the imported Star Wars
// entities. All lookups are keyed by database identifiers; uniqueness is
// enforced by the schema and surfaced as apperr.DatabaseError.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/holocron-dev/holocron/internal/apperr"
)

// uniqueViolationCode is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolationCode = "23505"

// Store provides database operations backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store using the provided connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the underlying connection pool, mainly for health checks.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// translateCreateErr maps driver errors on insert paths to the service error
// taxonomy. Unique violations become DatabaseError; anything else is wrapped
// with context.
func translateCreateErr(entity string, err error) error {
	if isUniqueViolation(err) {
		return apperr.NewDatabaseError(
			fmt.Sprintf("integrity violation while creating %s", entity), err)
	}
	return fmt.Errorf("failed to create %s: %w", entity, err)
}

// existsByColumn runs an EXISTS check against a single column value.
func (s *Store) existsByColumn(ctx context.Context, table, column, value string) (bool, error) {
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)", table, column)

	var exists bool
	if err := s.pool.QueryRow(ctx, query, value).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check %s existence: %w", table, err)
	}
	return exists, nil
}
