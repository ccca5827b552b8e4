// Package catalog defines the plain records a catalog source yields: relations
// with their columns and keys, and foreign-key tuples.
//
// The types carry no behavior beyond a few accessors. A graph.Graph consumes
// them through graph.Load or the individual Register calls.
//
// # Sources
//
// A Source is anything that can list relations and foreign keys. The
// introspect package reads a live database through atlas; a Snapshot replays
// a previously captured catalog from a msgpack file:
//
//	snap, err := catalog.Capture(ctx, inspector)
//	if err != nil {
//	    return err
//	}
//	f, _ := os.Create("catalog.msgpack")
//	defer f.Close()
//	return snap.Encode(f)
package catalog

import (
	"context"
	"fmt"
	"strings"
)

// KeyKind distinguishes primary keys from unique keys.
type KeyKind uint8

// Key kinds.
const (
	PrimaryKey KeyKind = iota + 1
	UniqueKey
)

// String returns the SQL keyword of the key kind.
func (k KeyKind) String() string {
	switch k {
	case PrimaryKey:
		return "PRIMARY KEY"
	case UniqueKey:
		return "UNIQUE"
	default:
		return fmt.Sprintf("KeyKind(%d)", uint8(k))
	}
}

// Column describes a single column of a relation.
type Column struct {
	Name      string `msgpack:"name" json:"name" yaml:"name"`
	DataType  string `msgpack:"type" json:"type" yaml:"type"`
	MaxLength int    `msgpack:"max_length,omitempty" json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Precision int    `msgpack:"precision,omitempty" json:"precision,omitempty" yaml:"precision,omitempty"`
	Scale     int    `msgpack:"scale,omitempty" json:"scale,omitempty" yaml:"scale,omitempty"`
	Nullable  bool   `msgpack:"nullable" json:"nullable" yaml:"nullable"`
	// Measure hints that the column holds a quantity that can be summed or
	// averaged (a numeric column that is not part of any key).
	Measure bool `msgpack:"measure,omitempty" json:"measure,omitempty" yaml:"measure,omitempty"`
}

// Key is a named, ordered list of columns.
type Key struct {
	Name    string   `msgpack:"name" json:"name" yaml:"name"`
	Kind    KeyKind  `msgpack:"kind" json:"kind" yaml:"kind"`
	Columns []string `msgpack:"columns" json:"columns" yaml:"columns"`
}

// Relation is a table or a view.
type Relation struct {
	Schema     string   `msgpack:"schema,omitempty" json:"schema,omitempty" yaml:"schema,omitempty"`
	Name       string   `msgpack:"name" json:"name" yaml:"name"`
	IsView     bool     `msgpack:"view,omitempty" json:"view,omitempty" yaml:"view,omitempty"`
	Columns    []Column `msgpack:"columns" json:"columns" yaml:"columns"`
	PrimaryKey *Key     `msgpack:"primary_key,omitempty" json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	UniqueKeys []Key    `msgpack:"unique_keys,omitempty" json:"unique_keys,omitempty" yaml:"unique_keys,omitempty"`
}

// Column returns the column with the given name.
func (r *Relation) Column(name string) (Column, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ForeignKey is one column of a foreign-key constraint. Composite
// constraints are delivered as one tuple per column, in declaration order,
// sharing the same Constraint name.
type ForeignKey struct {
	Schema    string `msgpack:"schema,omitempty" json:"schema,omitempty" yaml:"schema,omitempty"`
	Table     string `msgpack:"table" json:"table" yaml:"table"`
	Column    string `msgpack:"column" json:"column" yaml:"column"`
	RefSchema string `msgpack:"ref_schema,omitempty" json:"ref_schema,omitempty" yaml:"ref_schema,omitempty"`
	RefTable  string `msgpack:"ref_table" json:"ref_table" yaml:"ref_table"`
	// RefColumn is the referenced column. When empty, the primary-key column
	// of RefTable at the same position is assumed.
	RefColumn string `msgpack:"ref_column,omitempty" json:"ref_column,omitempty" yaml:"ref_column,omitempty"`
	// Constraint is empty for references that have no database constraint.
	Constraint string `msgpack:"constraint,omitempty" json:"constraint,omitempty" yaml:"constraint,omitempty"`
	// RefType is the model type the reference targets. It is set for
	// polymorphic candidates and for references to single-table-inheritance
	// subtypes.
	RefType string `msgpack:"ref_type,omitempty" json:"ref_type,omitempty" yaml:"ref_type,omitempty"`
	// Polymorphic marks Column as the base name of a <column>_id and
	// <column>_type pair.
	Polymorphic bool `msgpack:"polymorphic,omitempty" json:"polymorphic,omitempty" yaml:"polymorphic,omitempty"`
}

// String returns a readable form of the tuple.
func (fk ForeignKey) String() string {
	var b strings.Builder
	if fk.Constraint != "" {
		fmt.Fprintf(&b, "%s: ", fk.Constraint)
	}
	b.WriteString(qualify(fk.Schema, fk.Table))
	b.WriteByte('.')
	b.WriteString(fk.Column)
	b.WriteString(" -> ")
	if fk.RefTable != "" {
		b.WriteString(qualify(fk.RefSchema, fk.RefTable))
	} else {
		b.WriteString(fk.RefType)
	}
	return b.String()
}

func qualify(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}

// Source yields the relations and foreign keys of a catalog.
type Source interface {
	Relations(ctx context.Context) ([]Relation, error)
	ForeignKeys(ctx context.Context) ([]ForeignKey, error)
}

// MeasureHint reports whether a column of the given data type looks like a
// measure. Key columns are never measures.
func MeasureHint(dataType string, key bool) bool {
	if key {
		return false
	}
	t := strings.ToLower(dataType)
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	switch strings.TrimSpace(t) {
	case "int", "integer", "smallint", "bigint", "tinyint", "mediumint",
		"decimal", "numeric", "real", "float", "double", "double precision",
		"float4", "float8", "int2", "int4", "int8", "money":
		return true
	default:
		return false
	}
}
