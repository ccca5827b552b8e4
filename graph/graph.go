package graph

import (
	"log/slog"
	"sort"

	"github.com/syssam/relgraph/catalog"
	"github.com/syssam/relgraph/naming"
)

// Option configures a Graph.
type Option func(*config)

type config struct {
	logger        *slog.Logger
	inflector     naming.Inflector
	defaultSchema string
	excluded      map[string]struct{}
	excludedHM    map[string]struct{}
	typeTables    map[string]string
	subtypes      map[string]struct{}
}

// WithLogger sets the logger used for ingestion diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithInflector sets the morphology used for names. Defaults to
// naming.DefaultInflector.
func WithInflector(inf naming.Inflector) Option {
	return func(c *config) {
		if inf != nil {
			c.inflector = inf
		}
	}
}

// WithDefaultSchema sets the schema whose relations are keyed by their bare
// name ("public" on Postgres).
func WithDefaultSchema(schema string) Option {
	return func(c *config) {
		c.defaultSchema = schema
	}
}

// WithExcludedTables excludes relations, by qualified name, from foreign-key
// ingestion.
func WithExcludedTables(tables ...string) Option {
	return func(c *config) {
		for _, t := range tables {
			c.excluded[t] = struct{}{}
		}
	}
}

// WithExcludedHasMany suppresses the has-many side of references given as
// "table.column".
func WithExcludedHasMany(refs ...string) Option {
	return func(c *config) {
		for _, r := range refs {
			c.excludedHM[r] = struct{}{}
		}
	}
}

// WithTypeTable maps a model type to the table that stores it, as with
// single-table inheritance where "Car" and "Bicycle" live in "vehicles".
func WithTypeTable(typeName, table string) Option {
	return func(c *config) {
		c.typeTables[typeName] = table
	}
}

// WithSubtype marks a type as a single-table-inheritance subtype. References
// to subtypes get no has-many association.
func WithSubtype(typeNames ...string) Option {
	return func(c *config) {
		for _, t := range typeNames {
			c.subtypes[t] = struct{}{}
		}
	}
}

// Graph is the registry of relations and their associations. It is not safe
// for concurrent writes; ingestion must be serialized by the caller.
type Graph struct {
	config
	relations map[string]*Relation
	// hmCounts counts has-many associations per primary and foreign
	// relation.
	hmCounts map[string]map[string]int
	// seen holds the tuples of each named constraint in declaration order.
	seen map[tupleKey][]catalog.ForeignKey
	// absorbed holds the references merged into another association.
	absorbed map[tupleKey]*absorption
	report   *Report
}

// New returns an empty Graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		config: config{
			logger:     slog.Default(),
			inflector:  naming.DefaultInflector(),
			excluded:   make(map[string]struct{}),
			excludedHM: make(map[string]struct{}),
			typeTables: make(map[string]string),
			subtypes:   make(map[string]struct{}),
		},
	}
	for _, opt := range opts {
		opt(&g.config)
	}
	g.Reset()
	return g
}

// Reset drops every relation, association and diagnostic. Options are kept.
func (g *Graph) Reset() {
	g.relations = make(map[string]*Relation)
	g.hmCounts = make(map[string]map[string]int)
	g.seen = make(map[tupleKey][]catalog.ForeignKey)
	g.absorbed = make(map[tupleKey]*absorption)
	g.report = &Report{}
}

// Inflector returns the morphology in use.
func (g *Graph) Inflector() naming.Inflector { return g.inflector }

// DefaultSchema returns the configured default schema.
func (g *Graph) DefaultSchema() string { return g.defaultSchema }

// Logger returns the graph logger.
func (g *Graph) Logger() *slog.Logger { return g.logger }

// Key returns the registry key of a relation.
func (g *Graph) Key(schema, name string) string {
	return naming.QualifiedName(schema, name, g.defaultSchema)
}

// Excluded reports whether the relation with the given key is excluded.
func (g *Graph) Excluded(key string) bool {
	_, ok := g.excluded[key]
	return ok
}

// RegisterRelation returns the relation with the given name, creating it on
// first use.
func (g *Graph) RegisterRelation(schema, name string, isView bool) *Relation {
	key := g.Key(schema, name)
	if r, ok := g.relations[key]; ok {
		return r
	}
	r := &Relation{
		Schema:     schema,
		Name:       name,
		IsView:     isView,
		key:        key,
		columns:    make(map[string]catalog.Column),
		UniqueKeys: make(map[string][]string),
		BelongsTo:  make(map[string]*Association),
		HasMany:    make(map[string]*Association),
	}
	g.relations[key] = r
	return r
}

// RegisterColumn adds or replaces a column of r.
func (g *Graph) RegisterColumn(r *Relation, c catalog.Column) {
	if _, ok := r.columns[c.Name]; !ok {
		r.order = append(r.order, c.Name)
	}
	r.columns[c.Name] = c
}

// RegisterPrimaryKey appends column to the primary key of r. An empty key
// name is recorded as the relation's own name.
func (g *Graph) RegisterPrimaryKey(r *Relation, keyName, column string) {
	if keyName == "" {
		keyName = r.Name
	}
	if r.PrimaryKeyName == "" {
		r.PrimaryKeyName = keyName
	}
	if !contains(r.PrimaryKey, column) {
		r.PrimaryKey = append(r.PrimaryKey, column)
	}
}

// RegisterUniqueKey appends column to the unique key keyName of r.
func (g *Graph) RegisterUniqueKey(r *Relation, keyName, column string) {
	if keyName == "" {
		keyName = r.Name
	}
	if !contains(r.UniqueKeys[keyName], column) {
		r.UniqueKeys[keyName] = append(r.UniqueKeys[keyName], column)
	}
}

// Relation returns the relation registered under key.
func (g *Graph) Relation(key string) (*Relation, bool) {
	r, ok := g.relations[key]
	return r, ok
}

// Relations returns all relations sorted by key.
func (g *Graph) Relations() []*Relation {
	rs := make([]*Relation, 0, len(g.relations))
	for _, r := range g.relations {
		rs = append(rs, r)
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].key < rs[j].key })
	return rs
}

// TableNames returns the sorted keys of all relations.
func (g *Graph) TableNames() []string {
	names := make([]string, 0, len(g.relations))
	for k := range g.relations {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Report returns the diagnostics collected so far.
func (g *Graph) Report() *Report { return g.report }

// ResolveType returns the relation key that stores typeName and the canonical
// base type of that relation. Types without an explicit mapping resolve
// through the inflector ("Car" to "cars").
func (g *Graph) ResolveType(typeName string) (table, base string) {
	if t, ok := g.typeTables[typeName]; ok {
		table = t
	} else {
		table = naming.TableName(g.inflector, typeName)
	}
	schema, name := naming.SplitQualified(table)
	if schema == g.defaultSchema {
		schema = ""
	}
	return table, naming.TypeName(g.inflector, schema, name)
}

// Subtype reports whether typeName is a single-table-inheritance subtype.
func (g *Graph) Subtype(typeName string) bool {
	_, ok := g.subtypes[typeName]
	return ok
}

// HasManyName returns the name of a has-many association. It is the plural of
// the foreign table, with the belongs-to name folded in when the foreign
// table references the primary table more than once.
func (g *Graph) HasManyName(hm *Association) string {
	if hm == nil || hm.Kind != HasMany {
		return ""
	}
	btName := hm.AltName
	if hm.Inverse != nil {
		btName = hm.Inverse.Name
	}
	return naming.HasManyName(g.inflector, hm.InverseTable, btName, hm.Relation, g.hmCounts[hm.Relation][hm.InverseTable] > 1)
}

// Association resolves an association of r by name: a belongs-to name or a
// has-many name as returned by HasManyName.
func (g *Graph) Association(r *Relation, name string) (*Association, bool) {
	for _, k := range r.BelongsToNames() {
		if a := r.BelongsTo[k]; a.Name == name {
			return a, true
		}
	}
	for _, k := range r.HasManyNames() {
		if a := r.HasMany[k]; g.HasManyName(a) == name {
			return a, true
		}
	}
	return nil, false
}

// AssociationNames returns the resolved names of all associations of r,
// belongs-to first.
func (g *Graph) AssociationNames(r *Relation) []string {
	names := make([]string, 0, len(r.BelongsTo)+len(r.HasMany))
	for _, k := range r.BelongsToNames() {
		names = append(names, r.BelongsTo[k].Name)
	}
	for _, k := range r.HasManyNames() {
		names = append(names, g.HasManyName(r.HasMany[k]))
	}
	return names
}

func (g *Graph) knownColumns(r *Relation) []string {
	return append([]string(nil), r.order...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func refKey(table, column string) string {
	return table + "." + column
}
