package orphan

import (
	"fmt"
	"strings"

	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/graph"
	"github.com/syssam/relgraph/naming"
)

// Query is the orphan check of one belongs-to association.
type Query struct {
	Association *graph.Association
	// Table is the key of the relation owning the foreign key.
	Table string
	SQL   string
	Args  []any

	idLen  int
	refLen int
	// targets maps the discriminator of each polymorphic candidate to its
	// relation key and the base type name of that relation.
	targets map[string]target
}

type target struct {
	table string
	base  string
}

// Skip records an association left out of the scan.
type Skip struct {
	Table       string
	Association string
	Reason      string
}

func (s Skip) String() string {
	return fmt.Sprintf("%s.%s: %s", s.Table, s.Association, s.Reason)
}

// Plan returns the queries of a scan, one per association, ordered by
// relation and constraint name. Associations that cannot or need not be
// checked are listed as skips.
func (s *Scanner) Plan() ([]Query, []Skip) {
	var (
		queries []Query
		skips   []Skip
	)
	for _, r := range s.g.Relations() {
		if s.excludedRelation(r.Key()) {
			continue
		}
		for _, k := range r.BelongsToNames() {
			a := r.BelongsTo[k]
			skip := func(reason string) {
				skips = append(skips, Skip{Table: r.Key(), Association: a.Name, Reason: reason})
				s.logger.Debug("orphan: skipping association", "table", r.Key(), "association", a.Name, "reason", reason)
			}
			if len(r.PrimaryKey) == 0 {
				skip("no primary key")
				continue
			}
			var (
				q      Query
				reason string
			)
			if a.Polymorphic {
				q, reason = s.polymorphic(r, a)
			} else {
				q, reason = s.direct(r, a)
			}
			if reason != "" {
				skip(reason)
				continue
			}
			queries = append(queries, q)
		}
	}
	return queries, skips
}

// direct builds the check of a plain or composite reference:
//
//	SELECT frn.id, frn.parent_id FROM children frn
//	LEFT OUTER JOIN parents pri ON pri.id = frn.parent_id
//	WHERE frn.parent_id IS NOT NULL AND pri.id IS NULL
func (s *Scanner) direct(foreign *graph.Relation, a *graph.Association) (Query, string) {
	primary, ok := s.g.Relation(a.InverseTable)
	if !ok {
		return Query{}, "unknown table " + a.InverseTable
	}
	if s.excludedRelation(primary.Key()) {
		return Query{}, "excluded table " + primary.Key()
	}
	if s.coveredByDefaultScan(foreign, primary) {
		return Query{}, "shared table " + primary.Key() + " is checked by the default schema scan"
	}
	refs := a.References
	if len(refs) != len(a.FK) {
		refs = primary.PrimaryKey
	}
	if len(refs) != len(a.FK) {
		return Query{}, "referenced key does not match foreign key"
	}
	var (
		b    strings.Builder
		on   = make([]string, len(a.FK))
		cond = make([]string, 0, len(a.FK)+1)
	)
	b.WriteString("SELECT ")
	b.WriteString(s.columns("frn", foreign.PrimaryKey, a.FK))
	for i, fk := range a.FK {
		on[i] = s.col("pri", refs[i]) + " = " + s.col("frn", fk)
		cond = append(cond, s.col("frn", fk)+" IS NOT NULL")
	}
	cond = append(cond, s.col("pri", refs[0])+" IS NULL")
	fmt.Fprintf(&b, " FROM %s frn LEFT OUTER JOIN %s pri ON %s WHERE %s",
		s.table(foreign), s.table(primary), strings.Join(on, " AND "), strings.Join(cond, " AND "))
	return Query{
		Association: a,
		Table:       foreign.Key(),
		SQL:         b.String(),
		idLen:       len(foreign.PrimaryKey),
		refLen:      len(a.FK),
	}, ""
}

// polymorphic builds one UNION ALL part per candidate type, each filtered
// by the discriminator column.
func (s *Scanner) polymorphic(foreign *graph.Relation, a *graph.Association) (Query, string) {
	q := Query{
		Association: a,
		Table:       foreign.Key(),
		idLen:       len(foreign.PrimaryKey),
		refLen:      1,
		targets:     make(map[string]target),
	}
	var parts []string
	for _, c := range a.Candidates {
		primary, ok := s.g.Relation(c.Table)
		if !ok || s.excludedRelation(primary.Key()) || s.coveredByDefaultScan(foreign, primary) {
			continue
		}
		pk := "id"
		if len(primary.PrimaryKey) > 0 {
			pk = primary.PrimaryKey[0]
		}
		q.Args = append(q.Args, c.Type)
		parts = append(parts, fmt.Sprintf("SELECT %s, %s FROM %s frn LEFT OUTER JOIN %s pri ON %s = %s WHERE %s = %s AND %s IS NOT NULL AND %s IS NULL",
			s.columns("frn", foreign.PrimaryKey, []string{a.IDColumn()}), s.col("frn", a.TypeColumn()),
			s.table(foreign), s.table(primary),
			s.col("pri", pk), s.col("frn", a.IDColumn()),
			s.col("frn", a.TypeColumn()), dialect.Placeholder(s.dialect, len(q.Args)),
			s.col("frn", a.IDColumn()), s.col("pri", pk)))
		schema, name := naming.SplitQualified(primary.Key())
		q.targets[c.Type] = target{table: primary.Key(), base: naming.TypeName(s.g.Inflector(), schema, name)}
	}
	if len(parts) == 0 {
		return Query{}, "no candidate table to check"
	}
	q.SQL = strings.Join(parts, " UNION ALL ")
	return q, ""
}

// coveredByDefaultScan reports whether a tenant-scoped scan can skip a
// reference from a tenant table into a shared table of the default schema.
func (s *Scanner) coveredByDefaultScan(foreign, primary *graph.Relation) bool {
	if s.isDefault(s.scope) {
		return false
	}
	return !s.isDefault(foreign.Schema) && s.isDefault(primary.Schema)
}

func (s *Scanner) isDefault(schema string) bool {
	return schema == "" || schema == s.g.DefaultSchema()
}

func (s *Scanner) excludedRelation(key string) bool {
	if s.g.Excluded(key) {
		return true
	}
	_, ok := s.excluded[key]
	return ok
}

// table returns the quoted name of r. Relations of the default schema are
// qualified in tenant-scoped scans, whose search path holds the tenant schema
// only.
func (s *Scanner) table(r *graph.Relation) string {
	schema := r.Schema
	if s.isDefault(schema) {
		schema = ""
		if !s.isDefault(s.scope) {
			schema = s.g.DefaultSchema()
		}
	}
	if schema == "" {
		return dialect.QuoteIdent(s.dialect, r.Name)
	}
	return dialect.QuoteIdent(s.dialect, schema+"."+r.Name)
}

func (s *Scanner) col(alias, column string) string {
	return alias + "." + dialect.QuoteIdent(s.dialect, column)
}

func (s *Scanner) columns(alias string, groups ...[]string) string {
	var cols []string
	for _, g := range groups {
		for _, c := range g {
			cols = append(cols, s.col(alias, c))
		}
	}
	return strings.Join(cols, ", ")
}
