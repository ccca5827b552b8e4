package sqlgraph

import (
	"fmt"
	"strings"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/graph"
	"github.com/syssam/relgraph/joinpath"
	"github.com/syssam/relgraph/naming"
)

// Condition is one column equality of a join: Alias.Column = ParentAlias.ParentColumn.
type Condition struct {
	Alias        string
	Column       string
	ParentAlias  string
	ParentColumn string
}

// Join is one compiled traversal step.
type Join struct {
	Path        []string
	Association *graph.Association
	// Table is the relation key of the joined table.
	Table       string
	Alias       string
	ParentAlias string
	On          []Condition
}

// Plan is the result of compiling a join-path tree against a graph.
type Plan struct {
	Root      string
	RootAlias string
	Joins     []Join
	Aliases   *AliasRegistry
}

// CompileOption configures Compile.
type CompileOption func(*compiler)

// WithObserver registers observers notified at each join step, in addition
// to the plan's own AliasRegistry.
func WithObserver(obs ...JoinObserver) CompileOption {
	return func(c *compiler) {
		c.observers = append(c.observers, obs...)
	}
}

// WithRootAlias overrides the correlation name of the root relation.
func WithRootAlias(alias string) CompileOption {
	return func(c *compiler) {
		c.rootAlias = alias
	}
}

type compiler struct {
	g         *graph.Graph
	observers []JoinObserver
	rootAlias string
	taken     naming.NameSet
	plan      *Plan
}

// Compile resolves every key of tree to an association, starting at the
// relation root, and assigns a correlation name to each joined table.
//
// The first occurrence of a table is named after the table. Later
// occurrences are named "<association>_<parent table>", with a numeric
// suffix when that name is taken too.
func Compile(g *graph.Graph, root string, tree *joinpath.Tree, opts ...CompileOption) (*Plan, error) {
	r, ok := g.Relation(root)
	if !ok {
		return nil, relgraph.NewReferenceError(root, "", "", "table "+root, g.TableNames())
	}
	c := &compiler{g: g, taken: naming.NewNameSet()}
	for _, opt := range opts {
		opt(c)
	}
	if c.rootAlias == "" {
		c.rootAlias = bareName(r.Key())
	}
	c.taken.Add(c.rootAlias)
	c.plan = &Plan{Root: r.Key(), RootAlias: c.rootAlias, Aliases: NewAliasRegistry()}
	c.observers = append([]JoinObserver{c.plan.Aliases}, c.observers...)
	if tree == nil {
		return c.plan, nil
	}
	if err := c.walk(tree.Root(), r, c.rootAlias, nil); err != nil {
		return nil, err
	}
	return c.plan, nil
}

func (c *compiler) walk(n joinpath.Node, parent *graph.Relation, parentAlias string, prefix []string) error {
	for _, child := range n.Children() {
		a, ok := c.g.Association(parent, child.Key)
		if !ok {
			return relgraph.NewReferenceError(parent.Key(), child.Key, "", "association "+child.Key, c.g.AssociationNames(parent))
		}
		if a.Polymorphic {
			return relgraph.NewUnsupportedShapeError(parent.Key(), a.Constraint, a.FK, "polymorphic associations cannot be joined")
		}
		target, ok := c.g.Relation(a.InverseTable)
		if !ok {
			return relgraph.NewReferenceError(parent.Key(), child.Key, a.Constraint, "table "+a.InverseTable, c.g.TableNames())
		}
		path := append(append([]string(nil), prefix...), child.Key)
		alias := c.alias(a, target, parent)
		j := Join{
			Path:        path,
			Association: a,
			Table:       target.Key(),
			Alias:       alias,
			ParentAlias: parentAlias,
			On:          conditions(a, alias, parentAlias),
		}
		c.plan.Joins = append(c.plan.Joins, j)
		for _, o := range c.observers {
			o.OnJoinResolved(path, alias)
		}
		if child.Leaf {
			continue
		}
		if err := c.walk(child.Node, target, alias, path); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) alias(a *graph.Association, target, parent *graph.Relation) string {
	name := bareName(target.Key())
	if c.taken.Has(name) {
		name = naming.UniqueName(c.associationName(a)+"_"+bareName(parent.Key()), c.taken)
	}
	c.taken.Add(name)
	return name
}

func (c *compiler) associationName(a *graph.Association) string {
	if a.Kind == graph.HasMany {
		return c.g.HasManyName(a)
	}
	return a.Name
}

// conditions returns the ON equalities of a join. Belongs-to joins match the
// referenced columns of the target against the FK columns of the parent;
// has-many joins the other way around.
func conditions(a *graph.Association, alias, parentAlias string) []Condition {
	on := make([]Condition, 0, len(a.FK))
	for i, fk := range a.FK {
		ref := "id"
		if i < len(a.References) {
			ref = a.References[i]
		}
		if a.Kind == graph.BelongsTo {
			on = append(on, Condition{Alias: alias, Column: ref, ParentAlias: parentAlias, ParentColumn: fk})
		} else {
			on = append(on, Condition{Alias: alias, Column: fk, ParentAlias: parentAlias, ParentColumn: ref})
		}
	}
	return on
}

// Alias returns the correlation name of a dotted path, or the root alias for
// the empty path.
func (p *Plan) Alias(path string) (string, bool) {
	if path == "" {
		return p.RootAlias, true
	}
	return p.Aliases.Lookup(path)
}

// SQL renders the FROM clause of the plan with one LEFT OUTER JOIN per join.
func (p *Plan) SQL(d string) string {
	var b strings.Builder
	b.WriteString("FROM ")
	writeTable(&b, d, p.Root, p.RootAlias)
	for _, j := range p.Joins {
		b.WriteString(" LEFT OUTER JOIN ")
		writeTable(&b, d, j.Table, j.Alias)
		b.WriteString(" ON ")
		for i, on := range j.On {
			if i > 0 {
				b.WriteString(" AND ")
			}
			fmt.Fprintf(&b, "%s.%s = %s.%s",
				dialect.QuoteIdent(d, on.Alias), dialect.QuoteIdent(d, on.Column),
				dialect.QuoteIdent(d, on.ParentAlias), dialect.QuoteIdent(d, on.ParentColumn))
		}
	}
	return b.String()
}

func writeTable(b *strings.Builder, d, table, alias string) {
	b.WriteString(dialect.QuoteIdent(d, table))
	if alias != table {
		b.WriteString(" ")
		b.WriteString(dialect.QuoteIdent(d, alias))
	}
}

func bareName(key string) string {
	_, name := naming.SplitQualified(key)
	return name
}
