package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/playsearch/internal/domain"
	chunkrepo "github.com/kailas-cloud/playsearch/internal/repository/chunk"
)

func newIndexCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the chunk vector index",
	}
	cmd.AddCommand(newIndexCreateCmd(g))
	return cmd
}

func newIndexCreateCmd(g *globals) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the HNSW chunk index if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			vi := cfg.VectorIndex
			if vi.Backend != "redis" {
				return errors.New("index create manages the redis backend only; weaviate classes are created by the ingestion job")
			}

			vc := domain.DefaultVectorConfig()
			vc.Model = cfg.Embedding.Model
			vc.Dimensions = cfg.Embedding.Dimensions
			vc.DistanceMetric = vi.Distance

			def, err := chunkrepo.IndexDefinition(vi.Name, vi.Prefix, vc, chunkrepo.HNSWConfig{
				M:           vi.HNSWM,
				EFConstruct: vi.HNSWEFConstruct,
			})
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), def.String())
				return nil
			}

			store, err := openStore(cmd.Context(), cfg.Database, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			created, err := chunkrepo.EnsureIndex(cmd.Context(), store, def)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created index %s (%d dims, %s)\n", vi.Name, vc.Dimensions, vc.DistanceMetric)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "index %s already exists\n", vi.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the FT.CREATE command without connecting")
	return cmd
}
