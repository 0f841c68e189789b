package postgres

import (
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"stocktrail/internal/core/apperror"
)

// Builder returns a statement builder with PostgreSQL placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// IsUniqueViolation reports whether err is a unique-constraint violation,
// optionally on a specific constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// TranslateNotFound maps pgx.ErrNoRows to the domain not-found error.
func TranslateNotFound(err error, entity, key string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NewNotFound(entity, key)
	}
	return err
}
