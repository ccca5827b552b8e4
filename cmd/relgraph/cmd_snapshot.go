package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/relgraph/catalog"
)

// snapshotCmd captures the live catalog into a file that --snapshot can read
// back without a database.
func snapshotCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <file>",
		Short: "Capture the database catalog to a msgpack file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (rerr error) {
			e, err := g.newEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			insp, err := e.inspector()
			if err != nil {
				return err
			}
			snap, err := catalog.Capture(cmd.Context(), insp)
			if err != nil {
				return err
			}
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create snapshot: %w", err)
			}
			defer func() {
				if err := f.Close(); err != nil && rerr == nil {
					rerr = err
				}
			}()
			if err := snap.Encode(f); err != nil {
				return err
			}
			e.logger.Info("snapshot written", "file", args[0], "relations", len(snap.Tables), "foreign_keys", len(snap.References))
			return nil
		},
	}
}
