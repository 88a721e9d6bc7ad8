package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// IsIntegrityViolation reports whether err is a constraint failure
// (unique, foreign key, not null or check) raised by either driver.
func IsIntegrityViolation(err error) bool {
	if err == nil {
		return false
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrConstraint
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// SQLSTATE class 23: integrity constraint violation.
		return strings.HasPrefix(pgErr.Code, "23")
	}
	return false
}
