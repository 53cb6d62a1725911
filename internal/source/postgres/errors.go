package postgres

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// sqlState extracts the SQLSTATE from either driver's error type.
func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isConnectionError reports whether err means the session itself is gone or
// was never authorised, as opposed to a rejected catalog query.
func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	state := sqlState(err)
	switch {
	case strings.HasPrefix(state, "08"): // connection_exception
		return true
	case strings.HasPrefix(state, "28"): // invalid_authorization_specification
		return true
	case state == "57P01", state == "57P02", state == "57P03": // admin/crash shutdown, cannot connect now
		return true
	}
	return false
}
