package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/relgraph/catalog"
	"github.com/syssam/relgraph/config"
	dsql "github.com/syssam/relgraph/dialect/sql"
	"github.com/syssam/relgraph/graph"
	"github.com/syssam/relgraph/introspect"
)

var errNoDatabase = errors.New("no database configured: set database.url, RELGRAPH_DATABASE_URL or --database-url")

// env is the state shared by the commands of one invocation.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	drv    *dsql.StatsDriver
}

// loadConfig reads the config file and applies the flags over it.
// Precedence: CLI flags > env vars > config file > defaults
func (g *globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.configFile)
	if err != nil {
		return nil, err
	}
	if g.databaseURL != "" {
		cfg.Database.URL = g.databaseURL
	}
	if g.driver != "" {
		cfg.Database.Driver = g.driver
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (g *globals) newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if g.verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if g.logFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newEnv loads the configuration and sets up logging for cmd.
func (g *globals) newEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: g.newLogger(cmd.ErrOrStderr())}, nil
}

// open connects to the configured database, counting statements and logging
// slow ones.
func (e *env) open() (*dsql.StatsDriver, error) {
	if e.drv != nil {
		return e.drv, nil
	}
	if e.cfg.Database.URL == "" {
		return nil, errNoDatabase
	}
	drv, err := dsql.OpenWithStats(e.cfg.Database.Dialect(), e.cfg.Database.DSN(),
		dsql.WithSlowThreshold(e.cfg.Orphans.SlowQuery),
		dsql.WithSlowQueryLog(e.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	e.drv = drv
	return drv, nil
}

func (e *env) close() {
	if e.drv == nil {
		return
	}
	e.logger.Debug("database statistics", e.drv.QueryStats().Stats().LogAttrs()...)
	if err := e.drv.Close(); err != nil {
		e.logger.Warn("close database", "error", err)
	}
	e.drv = nil
}

// inspector returns an introspection source over the configured database.
func (e *env) inspector() (*introspect.Inspector, error) {
	drv, err := e.open()
	if err != nil {
		return nil, err
	}
	return introspect.New(drv.DB(), drv.Dialect(),
		introspect.WithSchemas(e.cfg.Database.CatalogSchemas()...),
		introspect.WithExcludeTables(e.cfg.ExcludeTables...),
	)
}

// source returns the catalog source of the invocation: the snapshot file
// when one is given, the live database otherwise.
func (e *env) source(ctx context.Context, snapshot string) (catalog.Source, string, error) {
	if snapshot != "" {
		f, err := os.Open(snapshot)
		if err != nil {
			return nil, "", fmt.Errorf("open snapshot: %w", err)
		}
		defer f.Close()
		snap, err := catalog.DecodeSnapshot(f)
		if err != nil {
			return nil, "", err
		}
		return snap, e.cfg.Schema(), nil
	}
	insp, err := e.inspector()
	if err != nil {
		return nil, "", err
	}
	schema := e.cfg.DefaultSchema
	if schema == "" {
		if schema, err = insp.DefaultSchema(ctx); err != nil {
			return nil, "", err
		}
	}
	return insp, schema, nil
}

// buildGraph loads the catalog and the configured references into a new
// graph.
func (e *env) buildGraph(ctx context.Context, snapshot string) (*graph.Graph, error) {
	src, schema, err := e.source(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	opts := append(e.cfg.GraphOptions(), graph.WithDefaultSchema(schema), graph.WithLogger(e.logger))
	g := graph.New(opts...)
	if err := g.Load(ctx, src); err != nil {
		return nil, err
	}
	for _, fk := range e.cfg.ForeignKeys() {
		g.AddForeignKey(fk)
	}
	e.logger.Debug("graph built", "relations", len(g.TableNames()), "default_schema", schema)
	return g, nil
}
