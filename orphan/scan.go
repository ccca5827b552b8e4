package orphan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect"
	dsql "github.com/syssam/relgraph/dialect/sql"
	"github.com/syssam/relgraph/dialect/sql/sqlgraph"
)

// Result is the outcome of one association check.
type Result struct {
	Table       string
	Association string
	Orphans     []Orphan
	Err         error
	Duration    time.Duration
}

// Report is the outcome of a scan.
type Report struct {
	ID        uuid.UUID
	Schema    string
	StartedAt time.Time
	Duration  time.Duration
	// Orphans of all associations, in Results order.
	Orphans []Orphan
	Results []Result
	Skipped []Skip
}

// Failures returns the results whose query failed.
func (r *Report) Failures() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err returns the failures joined into one error, or nil.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Failures() {
		errs = append(errs, res.Err)
	}
	return relgraph.NewAggregateError(errs...)
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "scan %s: %d associations, %d orphans, %d failures, %d skipped\n",
		r.ID, len(r.Results), len(r.Orphans), len(r.Failures()), len(r.Skipped))
	for _, o := range r.Orphans {
		b.WriteString("  - ")
		b.WriteString(o.String())
		b.WriteByte('\n')
	}
	for _, f := range r.Failures() {
		fmt.Fprintf(&b, "  ! %v\n", f.Err)
	}
	return b.String()
}

// Scan runs the planned queries, at most WithWorkers at a time, and collects
// their results in plan order. Query failures are recorded per association.
// Scan only returns an error when ctx is done.
func (s *Scanner) Scan(ctx context.Context) (*Report, error) {
	queries, skips := s.Plan()
	report := &Report{
		ID:        uuid.New(),
		Schema:    s.scope,
		StartedAt: time.Now(),
		Results:   make([]Result, len(queries)),
		Skipped:   skips,
	}
	if s.scope != "" && s.dialect == dialect.Postgres {
		ctx = dsql.WithSearchPath(ctx, s.scope)
	}
	logger := s.logger.With("scan", report.ID.String())
	logger.Info("orphan: scan started", "associations", len(queries), "skipped", len(skips), "workers", s.workers)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers)
	for i, q := range queries {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			report.Results[i] = s.run(egCtx, q)
			if err := report.Results[i].Err; err != nil {
				logger.Error("orphan: association scan failed",
					"table", q.Table, "association", q.Association.Name,
					"reason", sqlgraph.Classify(err), "error", err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("orphan: scan: %w", err)
	}
	for _, res := range report.Results {
		report.Orphans = append(report.Orphans, res.Orphans...)
	}
	report.Duration = time.Since(report.StartedAt)
	logger.Info("orphan: scan finished",
		"orphans", len(report.Orphans), "failures", len(report.Failures()), "duration", report.Duration)
	return report, nil
}

func (s *Scanner) run(ctx context.Context, q Query) Result {
	res := Result{Table: q.Table, Association: q.Association.Name}
	start := time.Now()
	rows, err := s.exec.QueryRows(ctx, q.SQL, q.Args...)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = relgraph.NewScanError(q.Table, q.Association.Name, q.SQL, err)
		return res
	}
	for _, row := range rows {
		o, err := q.orphan(row)
		if err != nil {
			res.Err = relgraph.NewScanError(q.Table, q.Association.Name, q.SQL, err)
			return res
		}
		res.Orphans = append(res.Orphans, o)
	}
	return res
}

// orphan decodes one result row: the primary key of the foreign row, the
// dangling reference and, for polymorphic checks, the discriminator.
func (q Query) orphan(row []any) (Orphan, error) {
	want := q.idLen + q.refLen
	if q.targets != nil {
		want++
	}
	if len(row) != want {
		return Orphan{}, fmt.Errorf("expected %d columns, got %d", want, len(row))
	}
	o := Orphan{
		ForeignTable: q.Table,
		ForeignID:    pick(row[:q.idLen]),
		Referenced:   q.Association.InverseTable,
		ReferencedID: pick(row[q.idLen : q.idLen+q.refLen]),
		FKColumn:     strings.Join(q.Association.FK, ","),
	}
	if q.targets == nil {
		return o, nil
	}
	o.FKColumn = q.Association.IDColumn()
	typ := fmt.Sprint(row[want-1])
	t, ok := q.targets[typ]
	if !ok {
		return Orphan{}, fmt.Errorf("unexpected discriminator %q", typ)
	}
	o.Referenced = t.table
	if typ != t.base {
		o.Override = typ
	}
	return o, nil
}

// pick returns the single value of a one-column key and the values of a
// composite key.
func pick(vs []any) any {
	if len(vs) == 1 {
		return vs[0]
	}
	return append([]any(nil), vs...)
}
