package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/playsearch/internal/domain/catalog"
	catalogrepo "github.com/kailas-cloud/playsearch/internal/repository/catalog"
)

func newCatalogCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the SQLite content catalog",
	}
	cmd.AddCommand(newCatalogImportCmd(g))
	return cmd
}

func newCatalogImportCmd(g *globals) *cobra.Command {
	var dir, dbPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the catalog with a platform export",
		Long: `Replace the catalog with a platform export (CSV files plus the company JSON).

A running server with catalog.watch enabled picks up the new data without a restart.

Examples:
  playsearch catalog import --dir ./export
  playsearch catalog import --dir ./export --db /var/lib/playsearch/catalog.db`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if dbPath == "" {
				dbPath = cfg.Catalog.Path
			}

			data, err := catalogrepo.ReadExport(dir)
			if err != nil {
				return err
			}

			snap, issues := catalog.New(data)
			for _, is := range issues {
				logger.Warn("Catalog integrity issue", zap.String("issue", is.String()))
			}

			store, err := catalogrepo.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Replace(cmd.Context(), data); err != nil {
				return err
			}

			st := snap.Stats()
			fmt.Fprintf(cmd.OutOrStdout(),
				"imported %d companies, %d users, %d plays, %d reps, %d assets, %d assignments, %d submissions into %s (%d integrity issues)\n",
				st.Companies, st.Users, st.Plays, st.Reps, st.Assets, st.Assignments, st.Submissions, dbPath, len(issues),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "export directory")
	cmd.Flags().StringVar(&dbPath, "db", "", "catalog database path (default: catalog.path from config)")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}
