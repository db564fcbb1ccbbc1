// Package cli implements the dota command-line interface. Commands run
// the lineage engine directly against a local catalog mirror; no server
// round-trip is involved.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"dota/internal/config"
	"dota/internal/depindex"
	"dota/internal/service/lineage"
	"dota/internal/snapshot"
	"dota/internal/source/sqlitesrc"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// NewRootCmd builds the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	var (
		dbPath        string
		defaultSchema string
		maxDepth      int
		maxScan       int
	)

	rootCmd := &cobra.Command{
		Use:           "dota",
		Short:         "Column population lineage engine",
		Long:          "dota discovers which stored routines, triggers, and constraints write a database column, and renders the result as a lineage graph.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dbPath, "catalog-db", "", "path to the SQLite catalog mirror (default $CATALOG_DB_PATH)")
	pf.StringVar(&defaultSchema, "default-schema", "", "schema preferred during disambiguation (default $DEFAULT_SCHEMA or dbo)")
	pf.IntVar(&maxDepth, "max-depth", -1, "upstream topology expansion depth")
	pf.IntVar(&maxScan, "max-scan", 0, "fallback routine scan cap")

	newService := func() (*lineage.Service, func(), error) {
		if err := config.LoadDotEnv(".env"); err != nil {
			return nil, nil, err
		}
		cfg, err := config.LoadFromEnv()
		if err != nil {
			return nil, nil, err
		}
		if dbPath != "" {
			cfg.CatalogDBPath = dbPath
		}
		if defaultSchema != "" {
			cfg.DefaultSchema = defaultSchema
		}
		if maxDepth >= 0 {
			cfg.LineageMaxDepth = maxDepth
		}
		if maxScan > 0 {
			cfg.MaxRoutineScan = maxScan
		}

		source, err := sqlitesrc.Open(cfg.CatalogDBPath)
		if err != nil {
			return nil, nil, err
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		store := snapshot.NewStore(source, logger)
		svc := lineage.NewService(store, depindex.New(cfg.MaxRoutineScan), cfg.DefaultSchema, cfg.LineageMaxDepth, logger)
		return svc, func() { _ = source.Close() }, nil
	}

	rootCmd.AddCommand(
		newRefreshCmd(newService),
		newFindCmd(newService),
		newResolveCmd(newService),
		newEntryCmd(newService),
		newAskCmd(newService),
		newInitCmd(&dbPath),
	)
	return rootCmd
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
