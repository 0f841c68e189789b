package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"stocktrail/internal/core/apperror"
)

func TestIsUniqueViolation(t *testing.T) {
	uniqueErr := &pgconn.PgError{Code: "23505", ConstraintName: "locations_code_key"}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"nil error", nil, "", false},
		{"plain error", errors.New("boom"), "", false},
		{"any constraint", uniqueErr, "", true},
		{"matching constraint", uniqueErr, "locations_code_key", true},
		{"other constraint", uniqueErr, "locations_area_name_key", false},
		{"wrapped", fmt.Errorf("insert: %w", uniqueErr), "locations_code_key", true},
		{"other sqlstate", &pgconn.PgError{Code: "23503"}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err, tt.constraint); got != tt.want {
				t.Errorf("IsUniqueViolation = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTranslateNotFound(t *testing.T) {
	err := TranslateNotFound(pgx.ErrNoRows, "product", "42")
	if !apperror.IsNotFound(err) {
		t.Errorf("pgx.ErrNoRows must translate to not found, got %v", err)
	}

	wrapped := fmt.Errorf("scan: %w", pgx.ErrNoRows)
	if !apperror.IsNotFound(TranslateNotFound(wrapped, "product", "42")) {
		t.Error("wrapped pgx.ErrNoRows must translate to not found")
	}

	other := errors.New("connection reset")
	if got := TranslateNotFound(other, "product", "42"); got != other {
		t.Errorf("unrelated errors must pass through, got %v", got)
	}
}

func TestBuilderPlaceholders(t *testing.T) {
	sql, args, err := Builder().
		Select("id").
		From("products").
		Where("id = ?", "abc").
		ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}
	if sql != "SELECT id FROM products WHERE id = $1" {
		t.Errorf("sql = %q", sql)
	}
	if len(args) != 1 || args[0] != "abc" {
		t.Errorf("args = %v", args)
	}
}
