// Package orphan finds foreign-key values that reference no existing row.
//
// A Scanner turns every belongs-to association of a graph.Graph into one
// read-only query and runs the queries through an Executor:
//
//	drv, _ := sql.Open("postgres", dsn)
//	s := orphan.New(g, drv, orphan.WithWorkers(4))
//	report, err := s.Scan(ctx)
//	for _, o := range report.Orphans {
//	    fmt.Println(o)
//	}
//
// A failing query is recorded on its Result and never stops the scan of the
// other associations.
package orphan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/graph"
)

// Executor runs a read-only query and returns its rows as ordered values.
type Executor interface {
	QueryRows(ctx context.Context, query string, args ...any) ([][]any, error)
}

// Orphan is a row whose foreign key points at a missing row.
type Orphan struct {
	ForeignTable string `json:"foreign_table" yaml:"foreign_table"`
	// ForeignID is the primary key of the orphaned row, a []any for
	// composite keys.
	ForeignID any `json:"foreign_id" yaml:"foreign_id"`
	// Referenced is the relation the row should point into.
	Referenced string `json:"referenced" yaml:"referenced"`
	// ReferencedID is the dangling value, a []any for composite keys.
	ReferencedID any    `json:"referenced_id" yaml:"referenced_id"`
	FKColumn     string `json:"fk_column" yaml:"fk_column"`
	// Override is the stored discriminator of a polymorphic reference when
	// it names a subtype rather than the base type of Referenced.
	Override string `json:"override,omitempty" yaml:"override,omitempty"`
}

func (o Orphan) String() string {
	s := fmt.Sprintf("%s[%v].%s -> %s[%v]", o.ForeignTable, o.ForeignID, o.FKColumn, o.Referenced, o.ReferencedID)
	if o.Override != "" {
		s += " as " + o.Override
	}
	return s
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithDialect sets the SQL dialect of generated queries. It defaults to the
// dialect of the executor when it reports one, and Postgres otherwise.
func WithDialect(name string) Option {
	return func(s *Scanner) {
		s.dialect = dialect.Normalize(name)
	}
}

// WithSchema scopes the scan to a tenant schema. On Postgres the search
// path of every query is set to it, and relations of the default schema are
// referenced by their qualified name.
func WithSchema(schema string) Option {
	return func(s *Scanner) {
		s.scope = schema
	}
}

// WithWorkers bounds the number of concurrent queries. Values below 1 mean
// one query at a time.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		s.workers = n
	}
}

// WithExcludedTables skips associations owned by the given relations.
func WithExcludedTables(tables ...string) Option {
	return func(s *Scanner) {
		for _, t := range tables {
			s.excluded[t] = struct{}{}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// Scanner checks the referential integrity of the associations of a graph.
type Scanner struct {
	g        *graph.Graph
	exec     Executor
	dialect  string
	scope    string
	workers  int
	excluded map[string]struct{}
	logger   *slog.Logger
}

// New returns a Scanner over g that runs its queries through exec.
func New(g *graph.Graph, exec Executor, opts ...Option) *Scanner {
	s := &Scanner{
		g:        g,
		exec:     exec,
		dialect:  dialect.Postgres,
		workers:  1,
		excluded: make(map[string]struct{}),
		logger:   slog.Default(),
	}
	if d, ok := exec.(interface{ Dialect() string }); ok {
		s.dialect = dialect.Normalize(d.Dialect())
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

// Dialect returns the dialect of generated queries.
func (s *Scanner) Dialect() string { return s.dialect }
