package graph

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/catalog"
	"github.com/syssam/relgraph/naming"
)

func newTestGraph(opts ...Option) *Graph {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(append([]Option{WithLogger(logger)}, opts...)...)
}

// addTable registers a table with an integer "id" primary key and nullable
// integer columns.
func addTable(g *Graph, name string, cols ...string) *Relation {
	schema, table := naming.SplitQualified(name)
	r := g.RegisterRelation(schema, table, false)
	g.RegisterColumn(r, catalog.Column{Name: "id", DataType: "integer"})
	g.RegisterPrimaryKey(r, "", "id")
	for _, c := range cols {
		g.RegisterColumn(r, catalog.Column{Name: c, DataType: "integer", Nullable: true})
	}
	return r
}

func TestAddForeignKey(t *testing.T) {
	g := newTestGraph()
	customers := addTable(g, "customers")
	orders := addTable(g, "orders", "customer_id")

	bt := g.AddForeignKey(catalog.ForeignKey{Table: "orders", Column: "customer_id", RefTable: "customers", Constraint: "fk_orders_customer"})
	require.NotNil(t, bt)
	assert.Equal(t, BelongsTo, bt.Kind)
	assert.Equal(t, "customer", bt.Name)
	assert.Equal(t, []string{"customer_id"}, bt.FK)
	assert.Equal(t, []string{"id"}, bt.References)
	assert.Equal(t, "orders", bt.Relation)
	assert.Equal(t, "customers", bt.InverseTable)
	assert.True(t, bt.Optional)
	assert.Same(t, bt, orders.BelongsTo["fk_orders_customer"])

	hm := customers.HasMany["hm_fk_orders_customer"]
	require.NotNil(t, hm)
	assert.Equal(t, HasMany, hm.Kind)
	assert.Equal(t, "orders", hm.Name)
	assert.Equal(t, "customer", hm.AltName)
	assert.Equal(t, "orders", hm.InverseTable)
	assert.Same(t, hm, bt.Inverse)
	assert.Same(t, bt, hm.Inverse)
	assert.Equal(t, "orders", g.HasManyName(hm))
	assert.False(t, g.Report().HasErrors())
	assert.False(t, g.Report().HasWarnings())
}

func TestAddForeignKeyIdempotent(t *testing.T) {
	t.Run("constraint", func(t *testing.T) {
		g := newTestGraph()
		customers := addTable(g, "customers")
		orders := addTable(g, "orders", "customer_id")
		fk := catalog.ForeignKey{Table: "orders", Column: "customer_id", RefTable: "customers", Constraint: "fk_orders_customer"}

		first := g.AddForeignKey(fk)
		second := g.AddForeignKey(fk)
		assert.Same(t, first, second)
		assert.Len(t, orders.BelongsTo, 1)
		assert.Len(t, customers.HasMany, 1)
		assert.Equal(t, []string{"customer_id"}, first.FK)
		assert.False(t, g.Report().HasWarnings())
	})

	t.Run("generated", func(t *testing.T) {
		g := newTestGraph()
		customers := addTable(g, "customers")
		orders := addTable(g, "orders", "customer_id")
		fk := catalog.ForeignKey{Table: "orders", Column: "customer_id", RefTable: "customers"}

		first := g.AddForeignKey(fk)
		require.NotNil(t, first)
		assert.Equal(t, "(generated) orders_customers", first.Constraint)
		second := g.AddForeignKey(fk)
		assert.Same(t, first, second)
		assert.Len(t, orders.BelongsTo, 1)
		assert.Len(t, customers.HasMany, 1)

		require.True(t, g.Report().HasWarnings())
		assert.True(t, errors.Is(g.Report().Warnings[0], relgraph.ErrRedundant))
	})
}

func TestAddForeignKeyRedundant(t *testing.T) {
	t.Run("subtype merge", func(t *testing.T) {
		g := newTestGraph()
		addTable(g, "vehicles")
		trips := addTable(g, "trips", "vehicle_id")
		bt := g.AddForeignKey(catalog.ForeignKey{Table: "trips", Column: "vehicle_id", RefTable: "vehicles", Constraint: "fk_vehicle"})
		again := g.AddForeignKey(catalog.ForeignKey{Table: "trips", Column: "vehicle_id", RefTable: "vehicles", Constraint: "fk_vehicle_car", RefType: "Car"})
		assert.Same(t, bt, again)
		assert.Equal(t, []string{"Car"}, bt.Subtypes)
		assert.Len(t, trips.BelongsTo, 1)

		var rerr *relgraph.RedundancyError
		require.True(t, errors.As(g.Report().Warnings[0], &rerr))
		assert.Equal(t, "fk_vehicle_car", rerr.Constraint)
		assert.Equal(t, "fk_vehicle", rerr.Existing)
	})

	t.Run("order independent", func(t *testing.T) {
		tuples := []catalog.ForeignKey{
			{Table: "orders", Column: "customer_id", RefTable: "customers", Constraint: "fk_b"},
			{Table: "orders", Column: "customer_id", RefTable: "customers", Constraint: "fk_a"},
			{Table: "orders", Column: "customer_id", RefTable: "customers"},
			{Table: "orders", Column: "shipping_customer_id", RefTable: "customers"},
		}
		keys := func(fks []catalog.ForeignKey) ([]string, []string) {
			g := newTestGraph()
			customers := addTable(g, "customers")
			orders := addTable(g, "orders", "customer_id", "shipping_customer_id")
			for _, fk := range fks {
				g.AddForeignKey(fk)
			}
			return orders.BelongsToNames(), customers.HasManyNames()
		}
		reversed := make([]catalog.ForeignKey, len(tuples))
		for i, fk := range tuples {
			reversed[len(tuples)-1-i] = fk
		}
		bt1, hm1 := keys(tuples)
		bt2, hm2 := keys(reversed)
		assert.Equal(t, bt1, bt2)
		assert.Equal(t, hm1, hm2)
		assert.Contains(t, bt1, "fk_a")
		assert.NotContains(t, bt1, "fk_b")
		assert.Len(t, bt1, 2)
		assert.Len(t, hm1, 2)
	})
}

func TestAddForeignKeyDisambiguation(t *testing.T) {
	g := newTestGraph()
	customers := addTable(g, "customers")
	orders := addTable(g, "orders", "customer_id", "shipping_customer_id")

	a := g.AddForeignKey(catalog.ForeignKey{Table: "orders", Column: "customer_id", RefTable: "customers"})
	b := g.AddForeignKey(catalog.ForeignKey{Table: "orders", Column: "shipping_customer_id", RefTable: "customers"})
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, "(generated) orders_customers", a.Constraint)
	assert.Equal(t, "(generated) orders_customers_2", b.Constraint)
	assert.Equal(t, []string{"(generated) orders_customers", "(generated) orders_customers_2"}, orders.BelongsToNames())
	assert.Equal(t, "shipping_customer", b.Name)

	assert.Equal(t, "orders", g.HasManyName(a.Inverse))
	assert.Equal(t, "shipping_orders", g.HasManyName(b.Inverse))

	found, ok := g.Association(customers, "shipping_orders")
	require.True(t, ok)
	assert.Same(t, b.Inverse, found)
	assert.Equal(t, []string{"orders", "shipping_orders"}, g.AssociationNames(customers))
	assert.Equal(t, []string{"customer", "shipping_customer"}, g.AssociationNames(orders))
}

func TestAddForeignKeyMissing(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		g := newTestGraph()
		addTable(g, "orders", "customer_id")
		bt := g.AddForeignKey(catalog.ForeignKey{Table: "orders", Column: "customer_id", RefTable: "customers", Constraint: "fk"})
		assert.Nil(t, bt)
		require.True(t, g.Report().HasErrors())

		var rerr *relgraph.ReferenceError
		require.True(t, errors.As(g.Report().Errors[0], &rerr))
		assert.Equal(t, []string{"orders"}, rerr.Known)
		assert.Equal(t, "table customers", rerr.Missing)
		assert.True(t, errors.Is(g.Report().Err(), relgraph.ErrReference))
	})

	t.Run("foreign table", func(t *testing.T) {
		g := newTestGraph()
		addTable(g, "customers")
		assert.Nil(t, g.AddForeignKey(catalog.ForeignKey{Table: "orders", Column: "customer_id", RefTable: "customers"}))
		assert.True(t, relgraph.IsReferenceError(g.Report().Errors[0]))
	})

	t.Run("column", func(t *testing.T) {
		g := newTestGraph()
		addTable(g, "customers")
		addTable(g, "orders")
		assert.Nil(t, g.AddForeignKey(catalog.ForeignKey{Table: "orders", Column: "customer_id", RefTable: "customers"}))
		var rerr *relgraph.ReferenceError
		require.True(t, errors.As(g.Report().Errors[0], &rerr))
		assert.Equal(t, "column customer_id", rerr.Missing)
		assert.Equal(t, []string{"id"}, rerr.Known)
	})

	t.Run("excluded", func(t *testing.T) {
		g := newTestGraph(WithExcludedTables("customers"))
		addTable(g, "customers")
		addTable(g, "orders", "customer_id")
		assert.Nil(t, g.AddForeignKey(catalog.ForeignKey{Table: "orders", Column: "customer_id", RefTable: "customers"}))
		assert.False(t, g.Report().HasErrors())
		assert.True(t, g.Excluded("customers"))
	})
}

func TestAddForeignKeyComposite(t *testing.T) {
	g := newTestGraph()
	lines := g.RegisterRelation("", "order_lines", false)
	for _, c := range []string{"order_id", "line_no"} {
		g.RegisterColumn(lines, catalog.Column{Name: c, DataType: "integer"})
		g.RegisterPrimaryKey(lines, "order_lines_pkey", c)
	}
	shipments := addTable(g, "shipments", "order_id", "line_no")

	g.AddForeignKey(catalog.ForeignKey{Table: "shipments", Column: "order_id", RefTable: "order_lines", Constraint: "fk_line"})
	bt := g.AddForeignKey(catalog.ForeignKey{Table: "shipments", Column: "line_no", RefTable: "order_lines", Constraint: "fk_line"})
	require.NotNil(t, bt)
	assert.Len(t, shipments.BelongsTo, 1)
	assert.True(t, bt.Composite())
	assert.Equal(t, []string{"order_id", "line_no"}, bt.FK)
	assert.Equal(t, "order", bt.Name)

	hm := lines.HasMany["hm_fk_line"]
	require.NotNil(t, hm)
	assert.Equal(t, []string{"order_id", "line_no"}, hm.FK)
	assert.Equal(t, []string{"order_id", "line_no"}, bt.References)
	assert.Equal(t, bt.References, hm.References)
	assert.Equal(t, "order_line_no_bt", hm.AltName)
	assert.Equal(t, []string{"order_id", "line_no"}, lines.PrimaryKey)
	assert.Equal(t, "order_lines_pkey", lines.PrimaryKeyName)

	t.Run("conflicting target", func(t *testing.T) {
		addTable(g, "orders")
		assert.Nil(t, g.AddForeignKey(catalog.ForeignKey{Table: "shipments", Column: "line_no", RefTable: "orders", Constraint: "fk_line"}))
		assert.True(t, relgraph.IsUnsupportedShapeError(g.Report().Errors[0]))
	})
}

func TestAddForeignKeyCompositeOverlap(t *testing.T) {
	single := catalog.ForeignKey{Table: "children", Column: "x", RefTable: "parents", RefColumn: "id", Constraint: "c0"}
	first := catalog.ForeignKey{Table: "children", Column: "x", RefTable: "parents", RefColumn: "id", Constraint: "c1"}
	second := catalog.ForeignKey{Table: "children", Column: "y", RefTable: "parents", RefColumn: "code", Constraint: "c1"}
	generated := catalog.ForeignKey{Table: "children", Column: "x", RefTable: "parents"}

	type shape struct {
		FK, References []string
	}
	build := func(fks []catalog.ForeignKey) (*Graph, map[string]shape, []string) {
		g := newTestGraph()
		parents := addTable(g, "parents", "code")
		children := addTable(g, "children", "x", "y")
		for _, fk := range fks {
			require.NotNil(t, g.AddForeignKey(fk))
		}
		got := make(map[string]shape)
		for k, a := range children.BelongsTo {
			got[k] = shape{FK: a.FK, References: a.References}
			require.NotNil(t, a.Inverse, k)
			assert.Equal(t, a.FK, a.Inverse.FK, k)
		}
		return g, got, parents.HasManyNames()
	}

	tests := []struct {
		name string
		fks  []catalog.ForeignKey
	}{
		{"single first", []catalog.ForeignKey{single, first, second}},
		{"single between", []catalog.ForeignKey{first, single, second}},
		{"single last", []catalog.ForeignKey{first, second, single}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, got, hms := build(tt.fks)
			assert.Equal(t, map[string]shape{
				"c0": {FK: []string{"x"}, References: []string{"id"}},
				"c1": {FK: []string{"x", "y"}, References: []string{"id", "code"}},
			}, got)
			assert.Equal(t, []string{"hm_c0", "hm_c1"}, hms)
			assert.False(t, g.Report().HasWarnings())
		})
	}

	t.Run("generated", func(t *testing.T) {
		for _, fks := range [][]catalog.ForeignKey{
			{generated, first, second},
			{first, generated, second},
			{first, second, generated},
		} {
			g, got, hms := build(fks)
			assert.Len(t, got, 2)
			assert.Equal(t, shape{FK: []string{"x", "y"}, References: []string{"id", "code"}}, got["c1"])
			assert.Equal(t, shape{FK: []string{"x"}, References: []string{"id"}}, got["(generated) children_parents"])
			assert.Len(t, hms, 2)
			assert.False(t, g.Report().HasWarnings())
		}
	})

	t.Run("duplicate single", func(t *testing.T) {
		other := catalog.ForeignKey{Table: "children", Column: "x", RefTable: "parents", RefColumn: "id", Constraint: "c2"}
		for _, fks := range [][]catalog.ForeignKey{{single, other}, {other, single}} {
			g, got, hms := build(fks)
			assert.Equal(t, map[string]shape{"c0": {FK: []string{"x"}, References: []string{"id"}}}, got)
			assert.Equal(t, []string{"hm_c0"}, hms)
			require.Len(t, g.Report().Warnings, 1)
			assert.True(t, relgraph.IsRedundancyError(g.Report().Warnings[0]))
		}
	})

	t.Run("different referenced column", func(t *testing.T) {
		byCode := catalog.ForeignKey{Table: "children", Column: "x", RefTable: "parents", RefColumn: "code", Constraint: "c2"}
		_, got, _ := build([]catalog.ForeignKey{single, byCode})
		assert.Len(t, got, 2)
	})
}

func TestAddForeignKeySharedConstraintName(t *testing.T) {
	g := newTestGraph()
	users := addTable(g, "users")
	orders := addTable(g, "orders", "user_id")
	comments := addTable(g, "comments", "author_id")

	ordered := g.AddForeignKey(catalog.ForeignKey{Table: "orders", Column: "user_id", RefTable: "users", Constraint: "fk_user"})
	authored := g.AddForeignKey(catalog.ForeignKey{Table: "comments", Column: "author_id", RefTable: "users", Constraint: "fk_user"})
	require.NotNil(t, ordered)
	require.NotNil(t, authored)
	assert.Same(t, ordered, orders.BelongsTo["fk_user"])
	assert.Same(t, authored, comments.BelongsTo["fk_user"])

	assert.Equal(t, []string{"hm_fk_user", "hm_fk_user_2"}, users.HasManyNames())
	require.NotNil(t, ordered.Inverse)
	require.NotNil(t, authored.Inverse)
	assert.NotSame(t, ordered.Inverse, authored.Inverse)
	assert.Equal(t, "orders", ordered.Inverse.InverseTable)
	assert.Equal(t, []string{"user_id"}, ordered.Inverse.FK)
	assert.Equal(t, "comments", authored.Inverse.InverseTable)
	assert.Equal(t, []string{"author_id"}, authored.Inverse.FK)
	assert.Same(t, authored, users.HasMany["hm_fk_user_2"].Inverse)
	assert.ElementsMatch(t, []string{"orders", "comments"}, g.AssociationNames(users))
	assert.False(t, g.Report().HasErrors())

	t.Run("rekey", func(t *testing.T) {
		g.AddForeignKey(catalog.ForeignKey{Table: "comments", Column: "author_id", RefTable: "users", Constraint: "fk_a"})
		assert.Same(t, authored, comments.BelongsTo["fk_a"])
		assert.Same(t, authored.Inverse, users.HasMany["hm_fk_a"])
		assert.Equal(t, []string{"hm_fk_a", "hm_fk_user"}, users.HasManyNames())
		assert.Same(t, ordered.Inverse, users.HasMany["hm_fk_user"])
	})
}

func TestAddForeignKeySelfReference(t *testing.T) {
	g := newTestGraph()
	employees := addTable(g, "employees", "manager_id")
	bt := g.AddForeignKey(catalog.ForeignKey{Table: "employees", Column: "manager_id", RefTable: "employees", Constraint: "fk_manager"})
	require.NotNil(t, bt)
	assert.Equal(t, "manager", bt.Name)
	assert.Equal(t, "employees", bt.InverseTable)
	hm := employees.HasMany["hm_fk_manager"]
	require.NotNil(t, hm)
	assert.Equal(t, "employees", g.HasManyName(hm))
}

func TestAddForeignKeyPolymorphic(t *testing.T) {
	newGraph := func() (*Graph, *Relation, *Relation) {
		g := newTestGraph(WithTypeTable("Car", "vehicles"), WithTypeTable("Bicycle", "vehicles"))
		vehicles := addTable(g, "vehicles")
		jigs := addTable(g, "whatchamajiggers", "jig_id")
		g.RegisterColumn(jigs, catalog.Column{Name: "jig_type", DataType: "varchar"})
		return g, vehicles, jigs
	}

	t.Run("candidates", func(t *testing.T) {
		g, vehicles, jigs := newGraph()
		car := catalog.ForeignKey{Table: "whatchamajiggers", Column: "jig", RefType: "Car", Polymorphic: true}
		bike := catalog.ForeignKey{Table: "whatchamajiggers", Column: "jig", RefType: "Bicycle", Polymorphic: true}

		bt := g.AddForeignKey(car)
		require.NotNil(t, bt)
		assert.Same(t, bt, g.AddForeignKey(bike))
		assert.Same(t, bt, g.AddForeignKey(car))

		assert.True(t, bt.Polymorphic)
		assert.Equal(t, "jig", bt.Name)
		assert.Equal(t, "jig_id", bt.IDColumn())
		assert.Equal(t, "jig_type", bt.TypeColumn())
		assert.Equal(t, []Candidate{{Type: "Car", Table: "vehicles"}, {Type: "Bicycle", Table: "vehicles"}}, bt.Candidates)
		assert.Len(t, jigs.BelongsTo, 1)
		assert.Contains(t, jigs.BelongsTo, "(polymorphic) whatchamajiggers_jig")
		assert.Len(t, vehicles.HasMany, 1)

		table, ok := bt.CandidateTable("Bicycle")
		require.True(t, ok)
		assert.Equal(t, "vehicles", table)
		assert.False(t, g.Report().HasErrors())
	})

	t.Run("missing type column", func(t *testing.T) {
		g := newTestGraph()
		addTable(g, "posts")
		addTable(g, "comments", "commentable_id")
		assert.Nil(t, g.AddForeignKey(catalog.ForeignKey{Table: "comments", Column: "commentable", RefType: "Post", Polymorphic: true}))
		var rerr *relgraph.ReferenceError
		require.True(t, errors.As(g.Report().Errors[0], &rerr))
		assert.Equal(t, "column commentable_type", rerr.Missing)
	})

	t.Run("composite", func(t *testing.T) {
		g, _, jigs := newGraph()
		g.RegisterColumn(jigs, catalog.Column{Name: "gadget_id"})
		g.RegisterColumn(jigs, catalog.Column{Name: "gadget_type"})
		bt := g.AddForeignKey(catalog.ForeignKey{Table: "whatchamajiggers", Column: "jig", RefType: "Car", Polymorphic: true, Constraint: "poly"})
		again := g.AddForeignKey(catalog.ForeignKey{Table: "whatchamajiggers", Column: "gadget", RefType: "Car", Polymorphic: true, Constraint: "poly"})
		assert.Same(t, bt, again)
		assert.Equal(t, []string{"jig"}, bt.FK)
		require.True(t, g.Report().HasErrors())
		assert.True(t, errors.Is(g.Report().Errors[0], relgraph.ErrUnsupportedShape))
	})
}

func TestAddForeignKeySubtype(t *testing.T) {
	g := newTestGraph(WithSubtype("Manager"), WithTypeTable("Manager", "employees"))
	employees := addTable(g, "employees")
	addTable(g, "projects", "lead_id")
	bt := g.AddForeignKey(catalog.ForeignKey{Table: "projects", Column: "lead_id", RefTable: "employees", RefType: "Manager", Constraint: "fk_lead"})
	require.NotNil(t, bt)
	assert.Equal(t, []string{"Manager"}, bt.Subtypes)
	assert.Nil(t, bt.Inverse)
	assert.Empty(t, employees.HasMany)
	assert.True(t, g.Subtype("Manager"))
}

func TestAddForeignKeyExcludedHasMany(t *testing.T) {
	g := newTestGraph(WithExcludedHasMany("orders.customer_id"))
	customers := addTable(g, "customers")
	addTable(g, "orders", "customer_id")
	bt := g.AddForeignKey(catalog.ForeignKey{Table: "orders", Column: "customer_id", RefTable: "customers"})
	require.NotNil(t, bt)
	assert.Nil(t, bt.Inverse)
	assert.Empty(t, customers.HasMany)
}

func TestAddForeignKeyNaming(t *testing.T) {
	t.Run("reserved word", func(t *testing.T) {
		g := newTestGraph()
		addTable(g, "attributes")
		addTable(g, "values", "attribute_id")
		bt := g.AddForeignKey(catalog.ForeignKey{Table: "values", Column: "attribute_id", RefTable: "attributes"})
		require.NotNil(t, bt)
		assert.Equal(t, "attribute_", bt.Name)
	})

	t.Run("column collision", func(t *testing.T) {
		g := newTestGraph()
		addTable(g, "customers")
		addTable(g, "orders", "customer_id", "customer")
		bt := g.AddForeignKey(catalog.ForeignKey{Table: "orders", Column: "customer_id", RefTable: "customers"})
		require.NotNil(t, bt)
		assert.Equal(t, "customer_2", bt.Name)
	})

	t.Run("no id suffix", func(t *testing.T) {
		g := newTestGraph()
		addTable(g, "users")
		addTable(g, "posts", "author")
		bt := g.AddForeignKey(catalog.ForeignKey{Table: "posts", Column: "author", RefTable: "users"})
		require.NotNil(t, bt)
		assert.Equal(t, "author_bt", bt.Name)
	})
}

func TestMultiSchema(t *testing.T) {
	g := newTestGraph(WithDefaultSchema("public"))
	users := g.RegisterRelation("public", "users", false)
	tenantUsers := g.RegisterRelation("tenant", "users", false)
	assert.Equal(t, "users", users.Key())
	assert.Equal(t, "tenant.users", tenantUsers.Key())
	assert.NotSame(t, users, tenantUsers)
	assert.Same(t, users, g.RegisterRelation("", "users", false))

	posts := addTable(g, "tenant.posts", "user_id")
	g.RegisterColumn(users, catalog.Column{Name: "id"})
	bt := g.AddForeignKey(catalog.ForeignKey{Schema: "tenant", Table: "posts", Column: "user_id", RefSchema: "public", RefTable: "users"})
	require.NotNil(t, bt)
	assert.Equal(t, "tenant.posts", bt.Relation)
	assert.Equal(t, "users", bt.InverseTable)
	assert.Equal(t, "tenant.posts", posts.Key())
	assert.Equal(t, "posts", g.HasManyName(bt.Inverse))
	assert.Equal(t, []string{"tenant.posts", "tenant.users", "users"}, g.TableNames())
}

func TestRegister(t *testing.T) {
	g := newTestGraph()
	r := g.RegisterRelation("", "line_items", false)
	assert.Same(t, r, g.RegisterRelation("", "line_items", true))
	assert.False(t, r.IsView)

	g.RegisterColumn(r, catalog.Column{Name: "order_id", DataType: "integer"})
	g.RegisterColumn(r, catalog.Column{Name: "position", DataType: "integer"})
	g.RegisterColumn(r, catalog.Column{Name: "order_id", DataType: "bigint"})
	cols := r.Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, "bigint", cols[0].DataType)

	g.RegisterPrimaryKey(r, "", "order_id")
	g.RegisterPrimaryKey(r, "", "position")
	g.RegisterPrimaryKey(r, "", "order_id")
	assert.Equal(t, "line_items", r.PrimaryKeyName)
	assert.Equal(t, []string{"order_id", "position"}, r.PrimaryKey)

	g.RegisterUniqueKey(r, "uq_position", "position")
	g.RegisterUniqueKey(r, "uq_position", "position")
	assert.Equal(t, map[string][]string{"uq_position": {"position"}}, r.UniqueKeys)
	assert.Equal(t, "table line_items", r.String())

	g.Reset()
	assert.Empty(t, g.TableNames())
	_, ok := g.Relation("line_items")
	assert.False(t, ok)
}

func TestResolveType(t *testing.T) {
	g := newTestGraph(WithTypeTable("Car", "vehicles"))
	table, base := g.ResolveType("Car")
	assert.Equal(t, "vehicles", table)
	assert.Equal(t, "Vehicle", base)

	table, base = g.ResolveType("Bicycle")
	assert.Equal(t, "bicycles", table)
	assert.Equal(t, "Bicycle", base)
}

func TestLoad(t *testing.T) {
	src := &catalog.Snapshot{
		Tables: []catalog.Relation{
			{
				Name:       "parents",
				Columns:    []catalog.Column{{Name: "id", DataType: "integer"}},
				PrimaryKey: &catalog.Key{Kind: catalog.PrimaryKey, Columns: []string{"id"}},
			},
			{
				Name: "children",
				Columns: []catalog.Column{
					{Name: "id", DataType: "integer"},
					{Name: "parent_id", DataType: "integer", Nullable: true},
					{Name: "code", DataType: "varchar"},
				},
				PrimaryKey: &catalog.Key{Name: "children_pkey", Kind: catalog.PrimaryKey, Columns: []string{"id"}},
				UniqueKeys: []catalog.Key{{Name: "uq_code", Kind: catalog.UniqueKey, Columns: []string{"code"}}},
			},
			{Name: "child_report", IsView: true, Columns: []catalog.Column{{Name: "parent_id"}}},
		},
		References: []catalog.ForeignKey{
			{Table: "children", Column: "parent_id", RefTable: "parents", Constraint: "fk_parent"},
			{Table: "children", Column: "uncle_id", RefTable: "parents", Constraint: "fk_uncle"},
		},
	}
	g := newTestGraph()
	require.NoError(t, g.Load(context.Background(), src))

	parents, ok := g.Relation("parents")
	require.True(t, ok)
	assert.Equal(t, "parents", parents.PrimaryKeyName)
	children, _ := g.Relation("children")
	assert.Equal(t, []string{"fk_parent"}, children.BelongsToNames())
	assert.Equal(t, []string{"code"}, children.UniqueKeys["uq_code"])
	view, _ := g.Relation("child_report")
	assert.True(t, view.IsView)
	assert.Len(t, g.Relations(), 3)
	assert.Len(t, g.Report().Errors, 1)

	t.Run("source error", func(t *testing.T) {
		boom := errors.New("boom")
		err := newTestGraph().Load(context.Background(), failingSource{boom})
		require.ErrorIs(t, err, boom)
	})
}

type failingSource struct{ err error }

func (f failingSource) Relations(context.Context) ([]catalog.Relation, error) { return nil, f.err }
func (f failingSource) ForeignKeys(context.Context) ([]catalog.ForeignKey, error) {
	return nil, f.err
}

func TestReport(t *testing.T) {
	r := &Report{}
	assert.Equal(t, "No issues found", r.String())
	assert.NoError(t, r.Err())

	r.add(relgraph.NewReferenceError("orders", "customer_id", "fk", "table customers", nil))
	r.add(relgraph.NewRedundancyError("orders", "customer_id", "fk_b", "fk_a"))
	assert.True(t, r.HasErrors())
	assert.True(t, r.HasWarnings())
	assert.Contains(t, r.String(), "Errors:\n  - relgraph: unresolved reference \"fk\" on orders.customer_id: table customers not found\n")
	assert.Contains(t, r.String(), "Warnings:\n  - relgraph: reference \"fk_b\" on orders.customer_id is redundant with \"fk_a\"\n")
}
