package gormstore

import (
	"strings"

	"accounts/internal/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// pgUniqueViolation is the PostgreSQL unique_violation SQLSTATE.
const pgUniqueViolation = "23505"

func isUniqueConstraintViolation(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	// SQLite reports unique violations only through the message when the
	// dialector does not translate them.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
