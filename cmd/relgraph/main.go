// Command relgraph inspects the foreign keys of a database as a graph of
// named associations.
//
// Usage:
//
//	relgraph inspect                       # Print relations, associations and diagnostics
//	relgraph orphans [--schema tenant_a]   # Report rows whose references dangle
//	relgraph joins orders customer,order_details.product
//	relgraph snapshot catalog.msgpack      # Capture the catalog for offline use
//	relgraph watch                         # Re-print the graph when the config changes
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Database drivers
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// version is set via ldflags during build: -ldflags="-X main.version=v1.0.0"
var version = "dev"

// globals holds the persistent flags of the root command.
type globals struct {
	configFile  string
	databaseURL string
	driver      string
	snapshot    string
	verbose     bool
	logFormat   string
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "relgraph",
		Short:         "Foreign keys as a graph of named associations",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configFile, "config", "c", "relgraph.yaml", "Path to config file")
	root.PersistentFlags().StringVarP(&g.databaseURL, "database-url", "d", "", "Database connection URL")
	root.PersistentFlags().StringVar(&g.driver, "driver", "", "Database driver (postgres, mysql, sqlite3); inferred from the URL when empty")
	root.PersistentFlags().StringVar(&g.snapshot, "snapshot", "", "Read the catalog from a snapshot file instead of the database")
	root.PersistentFlags().BoolVar(&g.verbose, "verbose", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		inspectCmd(g),
		orphansCmd(g),
		joinsCmd(g),
		snapshotCmd(g),
		watchCmd(g),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
