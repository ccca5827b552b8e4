package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/relgraph/orphan"
)

// orphansCmd scans every belongs-to association for dangling references.
// It fails when any association could not be scanned.
func orphansCmd(g *globals) *cobra.Command {
	var (
		format  string
		schema  string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "Report rows whose foreign keys reference missing rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.newEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()
			if cmd.Flags().Changed("schema") {
				e.cfg.Orphans.Schema = schema
			}
			if cmd.Flags().Changed("workers") {
				e.cfg.Orphans.Workers = workers
			}

			ctx := cmd.Context()
			gr, err := e.buildGraph(ctx, g.snapshot)
			if err != nil {
				return err
			}
			drv, err := e.open()
			if err != nil {
				return err
			}
			opts := append(e.cfg.ScannerOptions(), orphan.WithLogger(e.logger))
			report, err := orphan.New(gr, drv, opts...).Scan(ctx)
			if err != nil {
				return err
			}
			e.logger.Info("orphan scan statistics", drv.QueryStats().Stats().LogAttrs()...)

			out := cmd.OutOrStdout()
			switch format {
			case formatText:
				fmt.Fprint(out, report.String())
				for _, s := range report.Skipped {
					fmt.Fprintf(out, "  ~ %s\n", s)
				}
			default:
				if err := encode(out, format, newReportView(report)); err != nil {
					return err
				}
			}
			return report.Err()
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format (text, yaml, json)")
	cmd.Flags().StringVar(&schema, "schema", "", "Scope the scan to a tenant schema")
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of concurrent queries")
	return cmd
}

type reportView struct {
	ID       string          `json:"id" yaml:"id"`
	Schema   string          `json:"schema,omitempty" yaml:"schema,omitempty"`
	Duration string          `json:"duration" yaml:"duration"`
	Orphans  []orphan.Orphan `json:"orphans" yaml:"orphans"`
	Failures []string        `json:"failures,omitempty" yaml:"failures,omitempty"`
	Skipped  []string        `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

func newReportView(r *orphan.Report) reportView {
	v := reportView{
		ID:       r.ID.String(),
		Schema:   r.Schema,
		Duration: r.Duration.String(),
		Orphans:  r.Orphans,
	}
	if v.Orphans == nil {
		v.Orphans = []orphan.Orphan{}
	}
	for _, f := range r.Failures() {
		v.Failures = append(v.Failures, f.Err.Error())
	}
	for _, s := range r.Skipped {
		v.Skipped = append(v.Skipped, s.String())
	}
	return v
}
