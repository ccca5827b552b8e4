// Package naming derives association, type and table names from catalog
// names and resolves collisions between them deterministically.
package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ReservedWord is the one name an association may never take. Names that
// would collide with it get a trailing underscore.
const ReservedWord = "attribute"

// Inflector provides the English morphology primitives the resolver needs.
// Implementations must be deterministic for a fixed input.
type Inflector interface {
	Pluralize(string) string
	Singularize(string) string
	Camelize(string) string
	Underscore(string) string
}

type defaultInflector struct{}

func (defaultInflector) Pluralize(s string) string   { return inflect.Pluralize(s) }
func (defaultInflector) Singularize(s string) string { return inflect.Singularize(s) }
func (defaultInflector) Camelize(s string) string    { return inflect.Camelize(s) }
func (defaultInflector) Underscore(s string) string  { return inflect.Underscore(s) }

// DefaultInflector returns an Inflector backed by github.com/go-openapi/inflect.
func DefaultInflector() Inflector { return defaultInflector{} }

// BelongsToName derives the name of a belongs-to association from its
// foreign-key column. A trailing "_id" or "id" is stripped. Columns without
// an id suffix get "_bt" appended so the association never shadows the
// column itself. Polymorphic columns are already base names and are kept.
func BelongsToName(column string, polymorphic bool) string {
	name := column
	if !polymorphic {
		lower := strings.ToLower(column)
		switch {
		case len(column) > 3 && strings.HasSuffix(lower, "_id"):
			name = column[:len(column)-3]
		case len(column) > 2 && strings.HasSuffix(lower, "id"):
			name = strings.TrimSuffix(column[:len(column)-2], "_")
		default:
			name = column + "_bt"
		}
	}
	if name == ReservedWord {
		name += "_"
	}
	return name
}

// Set reports whether a name is already taken.
type Set interface {
	Has(name string) bool
}

// NameSet is a Set backed by a map.
type NameSet map[string]struct{}

// NewNameSet returns a NameSet holding names.
func NewNameSet(names ...string) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has implements Set.
func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Add adds name to the set.
func (s NameSet) Add(name string) { s[name] = struct{}{} }

// SetFunc adapts a function to a Set.
type SetFunc func(string) bool

// Has implements Set.
func (f SetFunc) Has(name string) bool { return f(name) }

var numericSuffix = regexp.MustCompile(`^(.+)_(\d+)$`)

// EnsureUniqueName returns the first "<stem>_<n>" not held by any of the
// given sets. When base already ends in "_<N>", the suffix is stripped and
// probing starts at N+1; otherwise it starts at 2.
//
//	EnsureUniqueName("foo", NewNameSet("foo_2")) // "foo_3"
//	EnsureUniqueName("foo_5")                    // "foo_6"
func EnsureUniqueName(base string, existing ...Set) string {
	stem, n := base, 1
	if m := numericSuffix.FindStringSubmatch(base); m != nil {
		if v, err := strconv.Atoi(m[2]); err == nil {
			stem, n = m[1], v
		}
	}
	for {
		n++
		name := stem + "_" + strconv.Itoa(n)
		if !taken(name, existing) {
			return name
		}
	}
}

// UniqueName returns base when no set holds it, and EnsureUniqueName(base)
// otherwise.
func UniqueName(base string, existing ...Set) string {
	if !taken(base, existing) {
		return base
	}
	return EnsureUniqueName(base, existing...)
}

func taken(name string, sets []Set) bool {
	for _, s := range sets {
		if s != nil && s.Has(name) {
			return true
		}
	}
	return false
}

// HasManyName returns the name of the has-many association from the primary
// table back to foreignTable. When disambiguate is set, the belongs-to name
// is folded in so that several references from the same table stay apart:
// a "shipping_customer" belongs-to on orders yields "shipping_orders".
func HasManyName(inf Inflector, foreignTable, btName, primaryTable string, disambiguate bool) string {
	_, table := SplitQualified(foreignTable)
	plural := inf.Pluralize(inf.Singularize(table))
	if !disambiguate {
		return plural
	}
	_, primary := SplitQualified(primaryTable)
	singular := inf.Singularize(primary)
	switch {
	case btName == singular:
		return plural
	case strings.HasSuffix(btName, "_"+singular):
		return strings.TrimSuffix(btName, "_"+singular) + "_" + plural
	default:
		return btName + "_" + plural
	}
}

// TypeName returns the model-style type name of a table: the singular,
// camelized table name, prefixed by the title-cased schema when one is given.
//
//	TypeName(inf, "", "order_details")   // "OrderDetail"
//	TypeName(inf, "sales", "customers")   // "Sales.Customer"
func TypeName(inf Inflector, schema, table string) string {
	name := inf.Camelize(inf.Singularize(table))
	if schema == "" {
		return name
	}
	return cases.Title(language.English).String(schema) + "." + name
}

// TableName is the inverse of TypeName.
//
//	TableName(inf, "Car")            // "cars"
//	TableName(inf, "Sales.Customer") // "sales.customers"
func TableName(inf Inflector, typeName string) string {
	schema, name := SplitQualified(typeName)
	table := inf.Pluralize(inf.Underscore(name))
	if schema == "" {
		return table
	}
	return strings.ToLower(schema) + "." + table
}

// QualifiedName returns "schema.table", or just the table name when schema
// is empty or equals the default schema.
func QualifiedName(schema, table, defaultSchema string) string {
	if schema == "" || schema == defaultSchema {
		return table
	}
	return schema + "." + table
}

// SplitQualified splits "schema.table" at the last dot.
func SplitQualified(name string) (schema, table string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// GeneratedConstraint returns the base constraint name synthesized for a
// reference that carries no database constraint.
func GeneratedConstraint(foreignTable, primaryTable string) string {
	return fmt.Sprintf("(generated) %s_%s", foreignTable, primaryTable)
}

// PolymorphicConstraint returns the constraint name shared by all candidate
// tuples of one polymorphic column.
func PolymorphicConstraint(table, column string) string {
	return fmt.Sprintf("(polymorphic) %s_%s", table, column)
}
