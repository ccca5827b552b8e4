package sqlgraph

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// sqlStateError is implemented by drivers that expose SQLSTATE codes, such
// as pgx.
type sqlStateError interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes.
const (
	pgUndefinedTable        = "42P01"
	pgUndefinedColumn       = "42703"
	pgInsufficientPrivilege = "42501"
	pgInvalidSchemaName     = "3F000"
)

// MySQL error numbers.
const (
	mysqlNoSuchTable      = 1146
	mysqlBadField         = 1054
	mysqlTableAccessDeny  = 1142
	mysqlColumnAccessDeny = 1143
	mysqlDBAccessDenied   = 1044
)

// IsUndefinedTableError reports whether err resulted from a query against a
// table or schema that does not exist.
func IsUndefinedTableError(err error) bool {
	if err == nil {
		return false
	}
	if hasSQLState(err, pgUndefinedTable, pgInvalidSchemaName) || hasMySQLNumber(err, mysqlNoSuchTable) {
		return true
	}
	return containsAny(err.Error(),
		"Error 1146",
		"does not exist (42P01)",
		"no such table", // SQLite
	)
}

// IsUndefinedColumnError reports whether err resulted from a query against a
// column that does not exist.
func IsUndefinedColumnError(err error) bool {
	if err == nil {
		return false
	}
	if hasSQLState(err, pgUndefinedColumn) || hasMySQLNumber(err, mysqlBadField) {
		return true
	}
	return containsAny(err.Error(),
		"Error 1054",
		"no such column", // SQLite
	)
}

// IsPermissionError reports whether err resulted from missing privileges.
func IsPermissionError(err error) bool {
	if err == nil {
		return false
	}
	if hasSQLState(err, pgInsufficientPrivilege) || hasMySQLNumber(err, mysqlTableAccessDeny, mysqlColumnAccessDeny, mysqlDBAccessDenied) {
		return true
	}
	return containsAny(strings.ToLower(err.Error()),
		"permission denied",
		"access denied",
	)
}

// Classify returns a short reason for a scan failure, used as a log attribute.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case IsUndefinedTableError(err):
		return "undefined_table"
	case IsUndefinedColumnError(err):
		return "undefined_column"
	case IsPermissionError(err):
		return "permission"
	default:
		return "other"
	}
}

func hasSQLState(err error, codes ...string) bool {
	var state string
	if pe, ok := asError[*pq.Error](err); ok {
		state = string(pe.Code)
	} else if se, ok := asError[sqlStateError](err); ok {
		state = se.SQLState()
	}
	for _, c := range codes {
		if state == c {
			return true
		}
	}
	return false
}

func hasMySQLNumber(err error, nums ...uint16) bool {
	me, ok := asError[*mysql.MySQLError](err)
	if !ok {
		return false
	}
	for _, n := range nums {
		if me.Number == n {
			return true
		}
	}
	return false
}

// asError attempts to extract an error implementing T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	if errors.As(err, &target) {
		return target, true
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
