package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hoanghai1803/pulse/internal/ingest"
	"github.com/hoanghai1803/pulse/internal/storage"
)

func (c *cli) ingestCmd() *cobra.Command {
	var opts ingest.Options

	cmd := &cobra.Command{
		Use:       "ingest <family>",
		Short:     "Run one feed family once and print the number of saved records",
		Long:      "Run one feed family once. Families: " + strings.Join(ingest.FamilyNames(), ", ") + ".",
		Args:      cobra.ExactArgs(1),
		ValidArgs: ingest.FamilyNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			backend, err := storage.Open(ctx, c.cfg.StoreOptions())
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer backend.Close()

			n, err := c.newOrchestrator(backend, nil).RunFamily(ctx, args[0], opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records saved\n", args[0], n)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.DaysBack, "days-back", 0, "skip entries older than this many days (0 keeps the family default)")
	cmd.Flags().IntVar(&opts.MaxItemsPerSource, "items", 0, "keep only the first N entries of each feed (0 keeps all)")
	return cmd
}

func (c *cli) warmupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warmup",
		Short: "Run every family once, reaching further back when the store is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			backend, err := storage.Open(ctx, c.cfg.StoreOptions())
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer backend.Close()

			orch := c.newOrchestrator(backend, nil)
			ingest.NewWarmup(orch, backend, c.cfg.Feeds.WarmupDaysBack).Run(ctx)
			return nil
		},
	}
}
