package graph

import (
	"sort"
	"strings"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/catalog"
	"github.com/syssam/relgraph/naming"
)

const (
	// hasManyPrefix prefixes the constraint name of has-many keys.
	hasManyPrefix = "hm_"
	// generatedPrefix starts every synthesized constraint name.
	generatedPrefix = "(generated) "
)

// AddForeignKey registers one foreign-key tuple and returns the belongs-to
// association it created, extended or merged into. It returns nil when the
// tuple was skipped; the reason is logged and recorded in the Report.
//
// Tuples sharing a constraint name extend the same association in the order
// they are added, which must be the declaration order of the key.
func (g *Graph) AddForeignKey(fk catalog.ForeignKey) *Association {
	forKey := g.Key(fk.Schema, fk.Table)
	priKey := g.Key(fk.RefSchema, fk.RefTable)
	if fk.Polymorphic && fk.RefTable == "" {
		priKey, _ = g.ResolveType(fk.RefType)
	}
	if g.Excluded(forKey) || g.Excluded(priKey) {
		g.logger.Debug("graph: skipping excluded reference", "table", forKey, "ref_table", priKey, "column", fk.Column)
		return nil
	}
	foreign, ok := g.relations[forKey]
	if !ok {
		g.fail(relgraph.NewReferenceError(forKey, fk.Column, fk.Constraint, "table "+forKey, g.TableNames()), "known_tables", g.TableNames())
		return nil
	}
	primary, ok := g.relations[priKey]
	if !ok {
		g.fail(relgraph.NewReferenceError(forKey, fk.Column, fk.Constraint, "table "+priKey, g.TableNames()), "known_tables", g.TableNames())
		return nil
	}
	columns := []string{fk.Column}
	if fk.Polymorphic {
		columns = []string{fk.Column + "_id", fk.Column + "_type"}
	}
	for _, c := range columns {
		if !foreign.HasColumn(c) {
			g.fail(relgraph.NewReferenceError(forKey, fk.Column, fk.Constraint, "column "+c, g.knownColumns(foreign)), "known_columns", g.knownColumns(foreign))
			return nil
		}
	}
	if fk.Polymorphic {
		return g.addPolymorphic(fk, foreign, primary)
	}
	key := g.keyOf(forKey, fk)
	spans := fk.Constraint != "" && g.remember(key, fk)
	if ab, ok := g.absorbed[key]; ok {
		if !spans {
			g.mergeSubtype(ab.into, fk.RefType)
			return ab.into
		}
		// A constraint taken for a duplicate of a single-column key turned
		// out to be composite.
		return g.release(key, foreign, primary)
	}
	return g.link(fk, foreign, primary, true)
}

// link creates or extends the belongs-to association of fk and its has-many.
// Duplicates of other constraints are merged only when merge is set.
func (g *Graph) link(fk catalog.ForeignKey, foreign, primary *Relation, merge bool) *Association {
	forKey, priKey := foreign.key, primary.key
	if a := g.redundant(fk, foreign, primary, merge); a != nil {
		return a
	}

	cnstr := fk.Constraint
	if cnstr == "" {
		cnstr = naming.UniqueName(naming.GeneratedConstraint(forKey, priKey), constraintSets(foreign, primary)...)
	}
	col, _ := foreign.Column(fk.Column)
	bt, ok := foreign.BelongsTo[cnstr]
	extended := false
	switch {
	case !ok:
		bt = &Association{
			Kind:         BelongsTo,
			Constraint:   cnstr,
			Name:         g.belongsToName(foreign, fk.Column, false),
			FK:           []string{fk.Column},
			References:   []string{referencedColumn(fk, primary, 0)},
			Relation:     forKey,
			InverseTable: priKey,
			Optional:     col.Nullable,
		}
		if fk.RefType != "" && g.Subtype(fk.RefType) {
			bt.Subtypes = []string{fk.RefType}
		}
		foreign.BelongsTo[cnstr] = bt
	case bt.Polymorphic || bt.InverseTable != priKey:
		g.fail(relgraph.NewUnsupportedShapeError(forKey, cnstr, append(append([]string(nil), bt.FK...), fk.Column),
			"constraint already references "+bt.String()), "ref_table", priKey)
		return nil
	case !contains(bt.FK, fk.Column):
		bt.References = append(bt.References, referencedColumn(fk, primary, len(bt.FK)))
		bt.FK = append(bt.FK, fk.Column)
		bt.Optional = bt.Optional || col.Nullable
		extended = true
	}
	if extended {
		defer g.releaseInto(bt, foreign, primary)
	}

	if fk.RefType != "" && g.Subtype(fk.RefType) {
		g.logger.Debug("graph: no has-many for subtype reference", "table", forKey, "column", fk.Column, "type", fk.RefType)
		return bt
	}
	if _, ok := g.excludedHM[refKey(forKey, fk.Column)]; ok {
		g.logger.Debug("graph: has-many excluded", "table", forKey, "column", fk.Column)
		return bt
	}
	hm := bt.Inverse
	if hm == nil {
		hm = &Association{
			Kind:         HasMany,
			Constraint:   cnstr,
			Name:         naming.HasManyName(g.inflector, forKey, bt.Name, priKey, false),
			AltName:      bt.Name,
			FK:           []string{fk.Column},
			References:   []string{bt.References[0]},
			Relation:     priKey,
			InverseTable: forKey,
			Optional:     true,
		}
		primary.HasMany[naming.UniqueName(hasManyPrefix+cnstr, hasManySet(primary))] = hm
		g.countHasMany(priKey, forKey)
	} else {
		if !contains(hm.FK, fk.Column) {
			hm.FK = append(hm.FK, fk.Column)
			hm.References = append([]string(nil), bt.References...)
		}
		if name := naming.BelongsToName(fk.Column, false); hm.AltName != name {
			hm.AltName += "_" + name
		}
	}
	bt.Inverse, hm.Inverse = hm, bt
	return bt
}

// referencedColumn returns the primary column the i-th column of fk points
// at, falling back to the primary key of the referenced relation.
func referencedColumn(fk catalog.ForeignKey, primary *Relation, i int) string {
	switch {
	case fk.RefColumn != "":
		return fk.RefColumn
	case i < len(primary.PrimaryKey):
		return primary.PrimaryKey[i]
	default:
		return "id"
	}
}

// redundant returns the association fk duplicates, if any, after merging the
// subtype fk targets into it. A tuple of a constraint that is already
// registered only matches that constraint. Otherwise, with merge set, it
// matches a single-column association of another constraint on the same
// column and referenced column.
func (g *Graph) redundant(fk catalog.ForeignKey, foreign, primary *Relation, merge bool) *Association {
	if a, ok := foreign.BelongsTo[fk.Constraint]; ok && fk.Constraint != "" {
		if a.Polymorphic || a.InverseTable != primary.key || !contains(a.FK, fk.Column) {
			return nil
		}
		g.mergeSubtype(a, fk.RefType)
		return a
	}
	if !merge {
		return nil
	}
	ref := referencedColumn(fk, primary, 0)
	for _, k := range foreign.BelongsToNames() {
		a := foreign.BelongsTo[k]
		if a.Polymorphic || a.InverseTable != primary.key || len(a.FK) != 1 || a.FK[0] != fk.Column || a.References[0] != ref {
			continue
		}
		g.mergeSubtype(a, fk.RefType)
		skipped, dropped := fk.Constraint, fk
		if skipped == "" {
			skipped = naming.GeneratedConstraint(foreign.key, primary.key)
		}
		if preferConstraint(fk.Constraint, k) {
			dropped = catalog.ForeignKey{
				Schema:    fk.Schema,
				Table:     fk.Table,
				Column:    fk.Column,
				RefSchema: fk.RefSchema,
				RefTable:  fk.RefTable,
				RefColumn: ref,
			}
			if !strings.HasPrefix(k, generatedPrefix) {
				dropped.Constraint = k
			}
			rekey(a, foreign, primary, fk.Constraint)
			skipped = k
		}
		err := relgraph.NewRedundancyError(foreign.key, fk.Column, skipped, a.Constraint)
		g.report.add(err)
		g.absorbed[g.keyOf(foreign.key, dropped)] = &absorption{into: a, fk: dropped, err: err}
		g.logger.Info("graph: redundant reference", "error", err, "table", foreign.key, "constraint", a.Constraint)
		return a
	}
	return nil
}

// tupleKey identifies a named constraint of a table, or an unnamed reference
// by its column and referenced table.
type tupleKey struct {
	table      string
	constraint string
	column     string
	refTable   string
}

func (g *Graph) keyOf(table string, fk catalog.ForeignKey) tupleKey {
	if fk.Constraint != "" {
		return tupleKey{table: table, constraint: fk.Constraint}
	}
	return tupleKey{table: table, column: fk.Column, refTable: g.Key(fk.RefSchema, fk.RefTable)}
}

// absorption is a reference merged into an existing association.
type absorption struct {
	into *Association
	fk   catalog.ForeignKey
	err  error
}

// remember records the tuple of a named constraint and reports whether the
// constraint spans several columns.
func (g *Graph) remember(key tupleKey, fk catalog.ForeignKey) bool {
	tuples := g.seen[key]
	for _, t := range tuples {
		if t.Column == fk.Column {
			return len(tuples) > 1
		}
	}
	g.seen[key] = append(tuples, fk)
	return len(g.seen[key]) > 1
}

// release undoes the merge of an absorbed reference and registers it as an
// association of its own.
func (g *Graph) release(key tupleKey, foreign, primary *Relation) *Association {
	ab := g.absorbed[key]
	delete(g.absorbed, key)
	g.report.remove(ab.err)
	g.logger.Debug("graph: reference is no longer redundant", "table", foreign.key, "constraint", ab.fk.Constraint, "column", ab.fk.Column, "merged_into", ab.into.Constraint)
	tuples := g.seen[key]
	if len(tuples) == 0 {
		tuples = []catalog.ForeignKey{ab.fk}
	}
	var a *Association
	for _, fk := range tuples {
		if r := g.link(fk, foreign, primary, false); r != nil {
			a = r
		}
	}
	return a
}

// releaseInto releases every reference merged into a, which no longer
// duplicates them once it spans several columns.
func (g *Graph) releaseInto(a *Association, foreign, primary *Relation) {
	var keys []tupleKey
	for k, ab := range g.absorbed {
		if ab.into == a {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].constraint != keys[j].constraint {
			return keys[i].constraint < keys[j].constraint
		}
		return keys[i].column < keys[j].column
	})
	for _, k := range keys {
		g.release(k, foreign, primary)
	}
}

// preferConstraint reports whether a duplicate reference named cnstr should
// replace the key of the one named existing. Database constraints win over
// generated names and the smaller name wins among equals, so the result does
// not depend on ingestion order.
func preferConstraint(cnstr, existing string) bool {
	switch {
	case cnstr == "":
		return false
	case strings.HasPrefix(existing, generatedPrefix):
		return true
	default:
		return cnstr < existing
	}
}

// rekey moves a belongs-to association and its has-many to a new constraint
// name.
func rekey(a *Association, foreign, primary *Relation, cnstr string) {
	delete(foreign.BelongsTo, a.Constraint)
	if hm := a.Inverse; hm != nil {
		if k, ok := hasManyKey(primary, hm); ok {
			delete(primary.HasMany, k)
		}
		hm.Constraint = cnstr
		primary.HasMany[naming.UniqueName(hasManyPrefix+cnstr, hasManySet(primary))] = hm
	}
	a.Constraint = cnstr
	foreign.BelongsTo[cnstr] = a
}

func (g *Graph) mergeSubtype(a *Association, typ string) {
	if typ == "" || contains(a.Subtypes, typ) {
		return
	}
	a.Subtypes = append(a.Subtypes, typ)
}

// addPolymorphic registers one candidate of a polymorphic reference. All
// candidates of a column share one belongs-to association.
func (g *Graph) addPolymorphic(fk catalog.ForeignKey, foreign, primary *Relation) *Association {
	cnstr := fk.Constraint
	if cnstr == "" {
		cnstr = naming.PolymorphicConstraint(foreign.key, fk.Column)
	}
	bt, ok := foreign.BelongsTo[cnstr]
	switch {
	case ok && !bt.Polymorphic:
		g.fail(relgraph.NewUnsupportedShapeError(foreign.key, cnstr, []string{bt.Column(), fk.Column},
			"constraint is not polymorphic"))
		return nil
	case ok && bt.Column() != fk.Column:
		g.fail(relgraph.NewUnsupportedShapeError(foreign.key, cnstr, []string{bt.Column(), fk.Column},
			"polymorphic references support a single column, keeping "+bt.Column()))
		return bt
	case !ok:
		id, _ := foreign.Column(fk.Column + "_id")
		bt = &Association{
			Kind:        BelongsTo,
			Constraint:  cnstr,
			Name:        g.belongsToName(foreign, fk.Column, true),
			FK:          []string{fk.Column},
			Relation:    foreign.key,
			Optional:    id.Nullable,
			Polymorphic: true,
		}
		foreign.BelongsTo[cnstr] = bt
	}
	typ := fk.RefType
	if typ == "" {
		schema, name := naming.SplitQualified(primary.key)
		typ = naming.TypeName(g.inflector, schema, name)
	}
	if _, ok := bt.CandidateTable(typ); ok {
		return bt
	}
	bt.Candidates = append(bt.Candidates, Candidate{Type: typ, Table: primary.key})
	if g.Subtype(typ) {
		return bt
	}
	if _, ok := g.excludedHM[refKey(foreign.key, fk.Column)]; ok {
		return bt
	}
	if _, ok := hasManyOf(primary, bt); ok {
		return bt
	}
	hm := &Association{
		Kind:         HasMany,
		Constraint:   cnstr,
		Name:         naming.HasManyName(g.inflector, foreign.key, bt.Name, primary.key, false),
		AltName:      bt.Name,
		FK:           []string{fk.Column},
		Relation:     primary.key,
		InverseTable: foreign.key,
		Optional:     true,
		Polymorphic:  true,
		Inverse:      bt,
	}
	primary.HasMany[naming.UniqueName(hasManyPrefix+cnstr, hasManySet(primary))] = hm
	g.countHasMany(primary.key, foreign.key)
	if bt.Inverse == nil {
		bt.Inverse = hm
	}
	return bt
}

// belongsToName derives the association name for column and resolves
// collisions with the columns and belongs-to names of r.
func (g *Graph) belongsToName(r *Relation, column string, polymorphic bool) string {
	taken := naming.SetFunc(func(n string) bool {
		if r.HasColumn(n) {
			return true
		}
		for _, a := range r.BelongsTo {
			if a.Name == n {
				return true
			}
		}
		return false
	})
	return naming.UniqueName(naming.BelongsToName(column, polymorphic), taken)
}

func (g *Graph) countHasMany(primary, foreign string) {
	counts, ok := g.hmCounts[primary]
	if !ok {
		counts = make(map[string]int)
		g.hmCounts[primary] = counts
	}
	counts[foreign]++
}

// fail records a skipped reference.
func (g *Graph) fail(err error, attrs ...any) {
	g.report.add(err)
	g.logger.Warn("graph: skipping reference", append([]any{"error", err}, attrs...)...)
}

// hasManySet holds the has-many keys of primary. Constraint names are only
// unique per table, so two relations may reference primary through
// constraints of the same name.
func hasManySet(primary *Relation) naming.Set {
	return naming.SetFunc(func(n string) bool {
		_, ok := primary.HasMany[n]
		return ok
	})
}

func hasManyKey(primary *Relation, hm *Association) (string, bool) {
	for k, a := range primary.HasMany {
		if a == hm {
			return k, true
		}
	}
	return "", false
}

// hasManyOf returns the has-many of primary paired with bt.
func hasManyOf(primary *Relation, bt *Association) (*Association, bool) {
	for _, a := range primary.HasMany {
		if a.Inverse == bt {
			return a, true
		}
	}
	return nil, false
}

// constraintSets returns the names a generated constraint must not take.
func constraintSets(foreign, primary *Relation) []naming.Set {
	return []naming.Set{
		naming.SetFunc(func(n string) bool {
			_, ok := foreign.BelongsTo[n]
			return ok
		}),
		naming.SetFunc(func(n string) bool {
			_, ok := primary.HasMany[hasManyPrefix+n]
			return ok
		}),
	}
}
