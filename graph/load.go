package graph

import (
	"context"
	"fmt"

	"github.com/syssam/relgraph/catalog"
)

// Load ingests the catalog of src: relations with their columns and keys
// first, then every foreign key. Only errors of src itself are returned;
// problems with individual references end up in the Report.
func (g *Graph) Load(ctx context.Context, src catalog.Source) error {
	rels, err := src.Relations(ctx)
	if err != nil {
		return fmt.Errorf("graph: load relations: %w", err)
	}
	for _, rel := range rels {
		g.AddRelation(rel)
	}
	fks, err := src.ForeignKeys(ctx)
	if err != nil {
		return fmt.Errorf("graph: load foreign keys: %w", err)
	}
	var added int
	for _, fk := range fks {
		if g.AddForeignKey(fk) != nil {
			added++
		}
	}
	g.logger.Debug("graph: catalog loaded",
		"relations", len(rels),
		"foreign_keys", len(fks),
		"accepted", added,
		"errors", len(g.report.Errors),
		"warnings", len(g.report.Warnings),
	)
	return nil
}

// AddRelation registers rel with its columns, primary key and unique keys.
func (g *Graph) AddRelation(rel catalog.Relation) *Relation {
	r := g.RegisterRelation(rel.Schema, rel.Name, rel.IsView)
	for _, c := range rel.Columns {
		g.RegisterColumn(r, c)
	}
	if pk := rel.PrimaryKey; pk != nil {
		for _, c := range pk.Columns {
			g.RegisterPrimaryKey(r, pk.Name, c)
		}
	}
	for _, uk := range rel.UniqueKeys {
		for _, c := range uk.Columns {
			g.RegisterUniqueKey(r, uk.Name, c)
		}
	}
	return r
}
