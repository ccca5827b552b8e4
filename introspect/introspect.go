// Package introspect reads the catalog of a live database through atlas and
// exposes it as a catalog.Source.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	"github.com/syssam/relgraph/catalog"
	"github.com/syssam/relgraph/dialect"
)

// internalTables are bookkeeping tables that never take part in the graph.
var internalTables = map[string]bool{
	"atlas_schema_revisions": true,
	"schema_migrations":      true,
	"ar_internal_metadata":   true,
	"sqlite_sequence":        true,
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithSchemas limits inspection to the given schemas. By default only the
// schema of the connection is inspected.
func WithSchemas(schemas ...string) Option {
	return func(i *Inspector) {
		i.schemas = append(i.schemas, schemas...)
	}
}

// WithExcludeTables skips tables by name or by "schema.name".
func WithExcludeTables(tables ...string) Option {
	return func(i *Inspector) {
		for _, t := range tables {
			i.exclude[t] = struct{}{}
		}
	}
}

// Inspector is a catalog.Source over a live database. The realm is
// inspected once and cached; call Refresh to inspect again.
type Inspector struct {
	db      *sql.DB
	dialect string
	drv     migrate.Driver
	schemas []string
	exclude map[string]struct{}

	mu    sync.Mutex
	realm *schema.Realm
}

// New returns an Inspector for db. dialect accepts the same names and
// aliases as dialect.Normalize.
func New(db *sql.DB, name string, opts ...Option) (*Inspector, error) {
	i := &Inspector{db: db, dialect: dialect.Normalize(name), exclude: make(map[string]struct{})}
	for _, opt := range opts {
		opt(i)
	}
	var err error
	switch i.dialect {
	case dialect.SQLite:
		i.drv, err = sqlite.Open(db)
	case dialect.Postgres:
		i.drv, err = postgres.Open(db)
	case dialect.MySQL:
		i.drv, err = mysql.Open(db)
	default:
		return nil, fmt.Errorf("introspect: unsupported dialect %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("introspect: open %s driver: %w", i.dialect, err)
	}
	return i, nil
}

// Dialect returns the normalized dialect name.
func (i *Inspector) Dialect() string { return i.dialect }

// DefaultSchema returns the schema unqualified names resolve to on this
// connection.
func (i *Inspector) DefaultSchema(ctx context.Context) (string, error) {
	switch i.dialect {
	case dialect.SQLite:
		return "main", nil
	case dialect.Postgres:
		return i.queryString(ctx, "SELECT current_schema()")
	default:
		return i.queryString(ctx, "SELECT DATABASE()")
	}
}

func (i *Inspector) queryString(ctx context.Context, query string) (string, error) {
	var s sql.NullString
	if err := i.db.QueryRowContext(ctx, query).Scan(&s); err != nil {
		return "", fmt.Errorf("introspect: default schema: %w", err)
	}
	return s.String, nil
}

// Refresh drops the cached realm.
func (i *Inspector) Refresh() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.realm = nil
}

// Realm returns the inspected realm, inspecting it on first use.
func (i *Inspector) Realm(ctx context.Context) (*schema.Realm, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.realm != nil {
		return i.realm, nil
	}
	opts := &schema.InspectRealmOption{Schemas: i.schemas}
	if len(opts.Schemas) == 0 {
		// The schema of the connection only.
		s, err := i.drv.InspectSchema(ctx, "", &schema.InspectOptions{})
		if err != nil {
			return nil, fmt.Errorf("introspect: inspect schema: %w", err)
		}
		i.realm = schema.NewRealm(s)
		return i.realm, nil
	}
	realm, err := i.drv.InspectRealm(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("introspect: inspect realm: %w", err)
	}
	i.realm = realm
	return realm, nil
}

// Relations implements catalog.Source.
func (i *Inspector) Relations(ctx context.Context) ([]catalog.Relation, error) {
	realm, err := i.Realm(ctx)
	if err != nil {
		return nil, err
	}
	var rels []catalog.Relation
	for _, s := range realm.Schemas {
		for _, t := range s.Tables {
			if i.skip(s.Name, t.Name) {
				continue
			}
			rels = append(rels, relation(s.Name, t))
		}
		for _, v := range s.Views {
			if i.skip(s.Name, v.Name) {
				continue
			}
			rel := catalog.Relation{Schema: s.Name, Name: v.Name, IsView: true}
			for _, c := range v.Columns {
				rel.Columns = append(rel.Columns, column(c, false))
			}
			rels = append(rels, rel)
		}
	}
	sort.SliceStable(rels, func(a, b int) bool {
		if rels[a].Schema != rels[b].Schema {
			return rels[a].Schema < rels[b].Schema
		}
		return rels[a].Name < rels[b].Name
	})
	return rels, nil
}

// ForeignKeys implements catalog.Source. Each constraint yields one tuple per
// column in declaration order. Constraints without a name get
// "<table>_<columns>_fkey".
func (i *Inspector) ForeignKeys(ctx context.Context) ([]catalog.ForeignKey, error) {
	realm, err := i.Realm(ctx)
	if err != nil {
		return nil, err
	}
	var fks []catalog.ForeignKey
	for _, s := range realm.Schemas {
		for _, t := range s.Tables {
			if i.skip(s.Name, t.Name) {
				continue
			}
			for _, fk := range t.ForeignKeys {
				if fk.RefTable == nil {
					continue
				}
				refSchema := s.Name
				if fk.RefTable.Schema != nil {
					refSchema = fk.RefTable.Schema.Name
				}
				name := fk.Symbol
				if name == "" {
					cols := make([]string, 0, len(fk.Columns))
					for _, c := range fk.Columns {
						cols = append(cols, c.Name)
					}
					name = t.Name + "_" + strings.Join(cols, "_") + "_fkey"
				}
				for n, c := range fk.Columns {
					tuple := catalog.ForeignKey{
						Schema:     s.Name,
						Table:      t.Name,
						Column:     c.Name,
						RefSchema:  refSchema,
						RefTable:   fk.RefTable.Name,
						Constraint: name,
					}
					if n < len(fk.RefColumns) {
						tuple.RefColumn = fk.RefColumns[n].Name
					}
					fks = append(fks, tuple)
				}
			}
		}
	}
	return fks, nil
}

func (i *Inspector) skip(schemaName, table string) bool {
	if internalTables[table] {
		return true
	}
	if _, ok := i.exclude[table]; ok {
		return true
	}
	_, ok := i.exclude[schemaName+"."+table]
	return ok
}

func relation(schemaName string, t *schema.Table) catalog.Relation {
	rel := catalog.Relation{Schema: schemaName, Name: t.Name}
	keyed := make(map[string]bool)
	if pk := t.PrimaryKey; pk != nil {
		key := &catalog.Key{Name: pk.Name, Kind: catalog.PrimaryKey, Columns: indexColumns(pk)}
		for _, c := range key.Columns {
			keyed[c] = true
		}
		rel.PrimaryKey = key
	}
	for _, idx := range t.Indexes {
		if !idx.Unique {
			continue
		}
		cols := indexColumns(idx)
		if len(cols) == 0 {
			continue
		}
		for _, c := range cols {
			keyed[c] = true
		}
		rel.UniqueKeys = append(rel.UniqueKeys, catalog.Key{Name: idx.Name, Kind: catalog.UniqueKey, Columns: cols})
	}
	for _, fk := range t.ForeignKeys {
		for _, c := range fk.Columns {
			keyed[c.Name] = true
		}
	}
	for _, c := range t.Columns {
		rel.Columns = append(rel.Columns, column(c, keyed[c.Name]))
	}
	return rel
}

// indexColumns returns the column parts of idx. Expression parts are skipped.
func indexColumns(idx *schema.Index) []string {
	cols := make([]string, 0, len(idx.Parts))
	for _, p := range idx.Parts {
		if p.C != nil {
			cols = append(cols, p.C.Name)
		}
	}
	return cols
}

func column(c *schema.Column, key bool) catalog.Column {
	col := catalog.Column{Name: c.Name}
	if c.Type == nil {
		return col
	}
	col.Nullable = c.Type.Null
	col.DataType = strings.ToLower(c.Type.Raw)
	switch t := c.Type.Type.(type) {
	case *schema.StringType:
		col.DataType = strings.ToLower(t.T)
		col.MaxLength = t.Size
	case *schema.BinaryType:
		col.DataType = strings.ToLower(t.T)
		if t.Size != nil {
			col.MaxLength = *t.Size
		}
	case *schema.DecimalType:
		col.DataType = strings.ToLower(t.T)
		col.Precision, col.Scale = t.Precision, t.Scale
	case *schema.FloatType:
		col.DataType = strings.ToLower(t.T)
		col.Precision = t.Precision
	case *schema.IntegerType:
		col.DataType = strings.ToLower(t.T)
	case *schema.TimeType:
		col.DataType = strings.ToLower(t.T)
		if t.Precision != nil {
			col.Precision = *t.Precision
		}
	case *schema.BoolType:
		col.DataType = strings.ToLower(t.T)
	}
	if col.DataType == "" {
		col.DataType = strings.ToLower(c.Type.Raw)
	}
	col.Measure = catalog.MeasureHint(col.DataType, key)
	return col
}

var _ catalog.Source = (*Inspector)(nil)
