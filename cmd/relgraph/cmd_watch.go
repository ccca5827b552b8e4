package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/syssam/relgraph/config"
)

// watchCmd prints the graph, then rebuilds and prints it again every time
// the config file changes.
func watchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the graph whenever the config file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := g.newLogger(cmd.ErrOrStderr())
			if err := g.printGraph(ctx, cmd); err != nil {
				return err
			}
			logger.Info("watching config", "file", g.configFile)
			return config.Watch(ctx, g.configFile, func(_ *config.Config, err error) {
				if err == nil {
					err = g.printGraph(ctx, cmd)
				}
				if err != nil {
					logger.Error("reload failed", "error", err)
				}
			})
		},
	}
}

// printGraph reloads the configuration, rebuilds the graph and prints it.
func (g *globals) printGraph(ctx context.Context, cmd *cobra.Command) error {
	e, err := g.newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()
	gr, err := e.buildGraph(ctx, g.snapshot)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "--- %d relations\n", len(gr.TableNames()))
	writeGraphText(out, newGraphView(gr))
	return nil
}
