package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/narvanalabs/persistent-params/internal/store"
)

// Common store errors.
var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = store.ErrNotFound

	// ErrDuplicateName is returned when attempting to create a job with a duplicate name.
	ErrDuplicateName = store.ErrDuplicateName

	// ErrDuplicateToken is returned when a parameter token is already in use.
	ErrDuplicateToken = store.ErrDuplicateToken
)

// parameterTokenConstraint is the unique constraint on job_parameters.token.
const parameterTokenConstraint = "job_parameters_token_key"

// isTokenViolation checks if the error violates the parameter token constraint.
func isTokenViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == parameterTokenConstraint
	}
	return err != nil && strings.Contains(err.Error(), parameterTokenConstraint)
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// PostgreSQL error code 23505 is unique_violation
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "unique constraint") ||
		strings.Contains(err.Error(), "duplicate key")
}

// isForeignKeyViolation checks if the error is a PostgreSQL foreign key violation.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	// PostgreSQL error code 23503 is foreign_key_violation
	return strings.Contains(err.Error(), "23503") ||
		strings.Contains(err.Error(), "foreign key constraint")
}
