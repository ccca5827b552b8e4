// Package graph builds the relationship graph of a relational catalog.
//
// A Graph holds every relation (table or view) of a catalog together with the
// associations inferred from its foreign keys. Each foreign key yields a
// belongs-to association on the referencing relation and, unless excluded, a
// paired has-many association on the referenced relation.
//
// # Graph Structure
//
//	type Relation struct {
//	    Schema    string
//	    Name      string
//	    IsView    bool
//	    BelongsTo map[string]*Association // keyed by constraint name
//	    HasMany   map[string]*Association // keyed by "hm_" + constraint name
//	}
//
// # Building
//
// A Graph is created once per catalog connection and fed by a single
// goroutine. Load reads a catalog.Source and registers relations, columns,
// keys and then foreign keys:
//
//	g := graph.New(
//	    graph.WithDefaultSchema("public"),
//	    graph.WithExcludedTables("schema_migrations"),
//	)
//	if err := g.Load(ctx, src); err != nil {
//	    log.Fatal(err)
//	}
//
// # Diagnostics
//
// Ingestion never fails on an unexpected schema shape. A foreign key whose
// table or column is unknown is logged and skipped, and a foreign key that
// duplicates an existing association is merged into it. Both end up in the
// Report:
//
//	if r := g.Report(); r.HasErrors() || r.HasWarnings() {
//	    fmt.Println(r)
//	}
//
// # Associations
//
// Composite keys keep their declaration order. Polymorphic references hold a
// list of candidate tables, one per discriminator type. When several foreign
// keys from one table target the same primary table, HasManyName folds the
// belongs-to name into the has-many name:
//
//	g.HasManyName(byCustomer)         // "orders"
//	g.HasManyName(byShippingCustomer) // "shipping_orders"
//
// Call Reset to drop everything when the catalog changes.
package graph
