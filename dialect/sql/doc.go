// Package sql implements dialect.Driver over database/sql.
//
// A Driver wraps a *sql.DB and adds session variables that are set on a
// pinned connection before each statement and reset before the connection
// goes back to the pool:
//
//	drv, err := sql.Open("postgresql", dsn)
//	ctx = sql.WithSearchPath(ctx, "sales")
//	rows, err := drv.QueryRows(ctx, "SELECT id FROM orders")
//
// QueryRows reads the whole result into memory and turns []byte values into
// strings, which is what the orphan scanner consumes.
//
// # Statistics
//
// StatsDriver counts statements, rows, errors and slow queries:
//
//	stats := sql.NewStatsDriver(drv, sql.WithSlowQueryLog(logger))
//	...
//	logger.Info("scan finished", stats.QueryStats().Stats().LogAttrs()...)
package sql
