package graph

import (
	"fmt"
	"sort"

	"github.com/syssam/relgraph/catalog"
)

// Relation is a table or view of the catalog.
type Relation struct {
	Schema string
	Name   string
	IsView bool

	// PrimaryKey holds the primary-key columns in key order.
	PrimaryKey     []string
	PrimaryKeyName string
	// UniqueKeys maps a unique key name to its ordered columns.
	UniqueKeys map[string][]string

	// BelongsTo is keyed by constraint name.
	BelongsTo map[string]*Association
	// HasMany is keyed by "hm_" + constraint name, suffixed with "_<n>" when
	// another relation references this one through a constraint of the same
	// name.
	HasMany map[string]*Association

	key     string
	columns map[string]catalog.Column
	order   []string
}

// Key returns the registry key of the relation: its name, qualified by the
// schema unless that is the default schema.
func (r *Relation) Key() string { return r.key }

// Column returns the named column.
func (r *Relation) Column(name string) (catalog.Column, bool) {
	c, ok := r.columns[name]
	return c, ok
}

// HasColumn reports whether the relation has the named column.
func (r *Relation) HasColumn(name string) bool {
	_, ok := r.columns[name]
	return ok
}

// Columns returns the columns in registration order.
func (r *Relation) Columns() []catalog.Column {
	cs := make([]catalog.Column, 0, len(r.order))
	for _, n := range r.order {
		cs = append(cs, r.columns[n])
	}
	return cs
}

// BelongsToNames returns the sorted constraint keys of the belongs-to map.
func (r *Relation) BelongsToNames() []string { return sortedKeys(r.BelongsTo) }

// HasManyNames returns the sorted keys of the has-many map.
func (r *Relation) HasManyNames() []string { return sortedKeys(r.HasMany) }

func (r *Relation) String() string {
	kind := "table"
	if r.IsView {
		kind = "view"
	}
	return fmt.Sprintf("%s %s", kind, r.key)
}

// Kind is the direction of an association.
type Kind uint8

// Association kinds.
const (
	BelongsTo Kind = iota + 1
	HasMany
)

// String returns the association kind name.
func (k Kind) String() string {
	switch k {
	case BelongsTo:
		return "belongs_to"
	case HasMany:
		return "has_many"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Candidate is one possible target of a polymorphic reference.
type Candidate struct {
	Type  string // discriminator value
	Table string // relation key backing Type
}

// Association is one side of a foreign-key reference.
type Association struct {
	Kind Kind
	// Constraint is the constraint name. Has-many associations are stored
	// under "hm_" + Constraint, see Relation.HasMany.
	Constraint string
	// Name is the belongs-to name derived from the column, or the plural of
	// the foreign table for has-many.
	Name string
	// AltName joins the belongs-to names sharing this has-many.
	AltName string
	// FK holds the foreign-key columns in declaration order. For polymorphic
	// references it holds the base column name.
	FK []string
	// References holds the referenced column of each FK column. It is empty
	// for polymorphic references, whose candidates are keyed by "id".
	References []string
	// Relation is the key of the relation that owns the association.
	Relation string
	// InverseTable is the key of the relation on the other side. It is empty
	// for polymorphic belongs-to associations, see Candidates.
	InverseTable string
	Candidates   []Candidate
	Optional     bool
	Polymorphic  bool
	// Subtypes records single-table-inheritance types that were merged
	// into this association.
	Subtypes []string
	Inverse  *Association
}

// Column returns the first foreign-key column.
func (a *Association) Column() string {
	if len(a.FK) == 0 {
		return ""
	}
	return a.FK[0]
}

// Composite reports whether the association spans several columns.
func (a *Association) Composite() bool { return len(a.FK) > 1 }

// IDColumn returns the column holding referenced ids: the FK column itself,
// or "<fk>_id" for polymorphic references.
func (a *Association) IDColumn() string {
	if a.Polymorphic {
		return a.Column() + "_id"
	}
	return a.Column()
}

// TypeColumn returns the discriminator column of a polymorphic reference.
func (a *Association) TypeColumn() string {
	if !a.Polymorphic {
		return ""
	}
	return a.Column() + "_type"
}

// CandidateTable returns the relation backing the discriminator typ.
func (a *Association) CandidateTable(typ string) (string, bool) {
	for _, c := range a.Candidates {
		if c.Type == typ {
			return c.Table, true
		}
	}
	return "", false
}

func (a *Association) String() string {
	target := a.InverseTable
	if a.Polymorphic {
		target = fmt.Sprint(a.Candidates)
	}
	return fmt.Sprintf("%s %s %s(%v) -> %s", a.Kind, a.Name, a.Relation, a.FK, target)
}

func sortedKeys(m map[string]*Association) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
