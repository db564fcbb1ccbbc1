package cli

import (
	"database/sql"

	"github.com/spf13/cobra"

	"dota/internal/service/lineage"
	"dota/internal/source/sqlitesrc"
)

type serviceFactory func() (*lineage.Service, func(), error)

func newRefreshCmd(newService serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Pull a fresh catalog snapshot and print its counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := newService()
			if err != nil {
				return err
			}
			defer closeFn()
			counts, err := svc.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), counts)
		},
	}
}

func newFindCmd(newService serviceFactory) *cobra.Command {
	var allTables bool
	cmd := &cobra.Command{
		Use:   "find <column>",
		Short: "List tables containing a column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := newService()
			if err != nil {
				return err
			}
			defer closeFn()
			tables, err := svc.FindTablesWithColumn(cmd.Context(), args[0], !allTables)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tables)
		},
	}
	cmd.Flags().BoolVar(&allTables, "all", false, "include views and other non-base tables")
	return cmd
}

func newResolveCmd(newService serviceFactory) *cobra.Command {
	var (
		hint  string
		table string
		depth int
	)
	cmd := &cobra.Command{
		Use:   "resolve <column>",
		Short: "Resolve where a column gets populated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := newService()
			if err != nil {
				return err
			}
			defer closeFn()
			res, err := svc.ResolvePopulation(cmd.Context(), lineage.PopulationRequest{
				Column:   args[0],
				Hint:     hint,
				Table:    table,
				MaxDepth: depth,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&hint, "hint", "", "disambiguation hint text")
	cmd.Flags().StringVar(&table, "table", "", "pin the target table, skipping disambiguation")
	cmd.Flags().IntVar(&depth, "depth", 0, "override upstream expansion depth for this query")
	return cmd
}

func newEntryCmd(newService serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "entry <table> <column>",
		Short: "Print the raw dependency index entry for a table column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := newService()
			if err != nil {
				return err
			}
			defer closeFn()
			entry, err := svc.DependencyEntry(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entry)
		},
	}
}

func newAskCmd(newService serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a free-text lineage question",
		Long:  "Answer a fixed-phrase lineage question, e.g. \"how is Salary populated in dbo.Employees\".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := newService()
			if err != nil {
				return err
			}
			defer closeFn()
			res, err := svc.Ask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newInitCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the catalog mirror schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := *dbPath
			if path == "" {
				path = "dota_catalog.sqlite"
			}
			db, err := sql.Open("sqlite3", path)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := sqlitesrc.EnsureSchema(cmd.Context(), db); err != nil {
				return err
			}
			cmd.Printf("catalog mirror ready at %s\n", path)
			return nil
		},
	}
}
