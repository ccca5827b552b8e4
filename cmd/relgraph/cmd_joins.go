package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/dialect/sql/sqlgraph"
	"github.com/syssam/relgraph/joinpath"
)

// joinsCmd compiles an include expression against the graph and prints the
// correlation name of every path with the resulting FROM clause.
func joinsCmd(g *globals) *cobra.Command {
	var alias string

	cmd := &cobra.Command{
		Use:   "joins <root> <includes>",
		Short: "Compile an include expression into aliased joins",
		Example: `  relgraph joins orders customer,order_details.product
  relgraph joins employees manager.manager --alias e`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.newEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			tree, err := joinpath.Parse(args[1])
			if err != nil {
				return err
			}
			gr, err := e.buildGraph(cmd.Context(), g.snapshot)
			if err != nil {
				return err
			}
			var opts []sqlgraph.CompileOption
			if alias != "" {
				opts = append(opts, sqlgraph.WithRootAlias(alias))
			}
			plan, err := sqlgraph.Compile(gr, args[0], tree, opts...)
			if err != nil {
				return err
			}

			d := e.cfg.Database.Dialect()
			if d == "" {
				d = dialect.Postgres
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-32s %s\n", "(root)", plan.RootAlias)
			for _, p := range plan.Aliases.Paths() {
				name, _ := plan.Aliases.Lookup(p)
				fmt.Fprintf(out, "%-32s %s\n", p, name)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, plan.SQL(d))
			return nil
		},
	}

	cmd.Flags().StringVar(&alias, "alias", "", "Correlation name of the root table")
	return cmd
}
