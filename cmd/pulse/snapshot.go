package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/hoanghai1803/pulse/internal/ingest"
	"github.com/hoanghai1803/pulse/internal/storage"
)

func (c *cli) snapshotCmd() *cobra.Command {
	var (
		out  string
		opts = ingest.Options{MaxItemsPerSource: 10, DaysBack: 90}
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture live feed data into the JSON file served by snapshot mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if out == "" {
				out = c.cfg.Store.SnapshotPath
			}
			if out == "" {
				return errors.New("no output path: pass --out or set store.snapshot_path")
			}

			store := storage.NewMemoryStore()
			orch := c.newOrchestrator(store, nil)
			for _, fam := range orch.Families() {
				n := orch.Run(ctx, fam, opts)
				slog.Info("captured family", "family", fam.Name, "count", n)
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			snap := storage.Snapshot{GeneratedAt: time.Now().UTC(), Records: store.Records()}
			if err := storage.WriteSnapshot(out, snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", len(snap.Records), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "snapshot file to write (default store.snapshot_path)")
	cmd.Flags().IntVar(&opts.MaxItemsPerSource, "items", opts.MaxItemsPerSource, "entries kept per feed")
	cmd.Flags().IntVar(&opts.DaysBack, "days-back", opts.DaysBack, "skip entries older than this many days")
	return cmd
}
