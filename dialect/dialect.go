package dialect

import (
	"context"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// Dialect names for external usage.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite3"
	Postgres = "postgres"
)

// ExecQuerier wraps the two database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for catalog
// queries. Catalog and integrity queries only read, so it has no
// transactions.
type Driver interface {
	ExecQuerier
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Normalize maps driver names and aliases to a dialect name.
func Normalize(name string) string {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx", "pq":
		return Postgres
	case "mysql", "mariadb":
		return MySQL
	case "sqlite", "sqlite3":
		return SQLite
	default:
		return name
	}
}

// DriverName returns the database/sql driver name registered for a dialect.
// SQLite is served by modernc.org/sqlite, which registers itself as "sqlite".
func DriverName(dialect string) string {
	switch Normalize(dialect) {
	case SQLite:
		return "sqlite"
	default:
		return Normalize(dialect)
	}
}

// QuoteIdent quotes a possibly schema-qualified identifier ("schema.table")
// for the given dialect.
func QuoteIdent(dialect, ident string) string {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = quote(dialect, p)
	}
	return strings.Join(parts, ".")
}

func quote(dialect, ident string) string {
	switch Normalize(dialect) {
	case MySQL:
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	default:
		return pq.QuoteIdentifier(ident)
	}
}

// Placeholder returns the n-th (1-based) bind parameter marker.
func Placeholder(dialect string, n int) string {
	if Normalize(dialect) == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}
