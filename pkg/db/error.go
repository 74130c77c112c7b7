package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	ReasonUniqueViolation = "unique_violation"
	ReasonUndefinedColumn = "undefined_column"
	ReasonUndefinedTable  = "undefined_table"
	ReasonInvalidInput    = "invalid_input"
	ReasonDeadline        = "deadline_exceeded"
	ReasonUnknown         = "unknown"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if hasPGCode(err, "23505") {
		return true
	}

	msg := err.Error()
	// MySQL 1062, SQLite 2067
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "Error 1062") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// ClassifyError maps a store error to a short reason label.
func ClassifyError(err error) string {
	if err == nil {
		return ReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReasonDeadline
	}
	if IsDuplicateKeyErr(err) {
		return ReasonUniqueViolation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42703":
			return ReasonUndefinedColumn
		case pgErr.Code == "42P01":
			return ReasonUndefinedTable
		case strings.HasPrefix(pgErr.Code, "22"):
			return ReasonInvalidInput
		}
		return ReasonUnknown
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such table"):
		return ReasonUndefinedTable
	case strings.Contains(msg, "no such column"), strings.Contains(msg, "has no column named"):
		return ReasonUndefinedColumn
	}
	return ReasonUnknown
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
