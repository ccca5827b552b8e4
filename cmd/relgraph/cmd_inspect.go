package main

import (
	"github.com/spf13/cobra"
)

// inspectCmd prints the relations of the catalog with their associations.
func inspectCmd(g *globals) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print relations, associations and ingestion diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.newEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			gr, err := e.buildGraph(cmd.Context(), g.snapshot)
			if err != nil {
				return err
			}
			v := newGraphView(gr)
			if format == formatText {
				writeGraphText(cmd.OutOrStdout(), v)
				return nil
			}
			return encode(cmd.OutOrStdout(), format, v)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format (text, yaml, json)")
	return cmd
}
