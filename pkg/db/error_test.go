package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ReasonUnknown},
		{name: "deadline", err: fmt.Errorf("insert: %w", context.DeadlineExceeded), want: ReasonDeadline},
		{name: "gorm_duplicate", err: gorm.ErrDuplicatedKey, want: ReasonUniqueViolation},
		{name: "pg_unique", err: &pgconn.PgError{Code: "23505"}, want: ReasonUniqueViolation},
		{name: "pg_undefined_column", err: &pgconn.PgError{Code: "42703"}, want: ReasonUndefinedColumn},
		{name: "pg_undefined_table", err: fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "42P01"}), want: ReasonUndefinedTable},
		{name: "pg_invalid_text", err: &pgconn.PgError{Code: "22P02"}, want: ReasonInvalidInput},
		{name: "sqlite_table", err: errors.New("no such table: hub_customers"), want: ReasonUndefinedTable},
		{name: "sqlite_column", err: errors.New("table hub_customers has no column named foo"), want: ReasonUndefinedColumn},
		{name: "other", err: errors.New("boom"), want: ReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyError(tc.err))
		})
	}
}

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: hub_customers.customerid")))
	assert.True(t, IsDuplicateKeyErr(errors.New("Error 1062: Duplicate entry")))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))
}

func TestDialect(t *testing.T) {
	for _, typ := range []string{"postgres", "mysql", "sqlite", "sqlite3"} {
		d, err := Dialect(Config{Type: typ, SQLitePath: "file::memory:"})
		assert.NoError(t, err, typ)
		assert.NotNil(t, d, typ)
	}

	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}
