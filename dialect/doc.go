// Package dialect provides database dialect abstraction for catalog and
// integrity queries.
//
// # Supported Dialects
//
//   - Postgres: PostgreSQL database
//   - MySQL: MySQL/MariaDB database
//   - SQLite: SQLite database
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite3"
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Close() error
//	    Dialect() string
//	}
//
// # Identifiers and Parameters
//
// QuoteIdent quotes each part of a dotted name, and Placeholder returns the
// bind marker of the n-th parameter:
//
//	dialect.QuoteIdent(dialect.Postgres, "sales.orders") // "sales"."orders"
//	dialect.QuoteIdent(dialect.MySQL, "orders")          // `orders`
//	dialect.Placeholder(dialect.Postgres, 2)             // $2
//
// # Sub-packages
//
//   - dialect/sql: driver implementation over database/sql
//   - dialect/sql/sqlgraph: join compilation over a relationship graph
package dialect
