// Pulse ingests product update, blog and video feeds into a record store and
// serves them through a small read API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hoanghai1803/pulse/internal/config"
	"github.com/hoanghai1803/pulse/internal/feeds"
	"github.com/hoanghai1803/pulse/internal/ingest"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		slog.Error("pulse failed", "error", err)
		os.Exit(1)
	}
}

// cli carries the state shared by every subcommand.
type cli struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "pulse",
		Short: "Feed ingestion and read API for product updates, blog posts and videos",
		Long: `Pulse fetches RSS and Atom feeds on a schedule, normalizes every entry
into a common record and serves the records through a read API that can be
filtered by category.

The store is selected with store.mode or DATA_MODE: "mock" serves built-in
sample records, "snapshot" serves a captured JSON snapshot and "live" persists
to SQLite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", config.DefaultPath, "path to config file")

	root.AddCommand(
		c.serveCmd(),
		c.ingestCmd(),
		c.warmupCmd(),
		c.snapshotCmd(),
	)
	return root
}

// load reads the config file and installs the configured slog handler.
func (c *cli) load() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	c.cfg = cfg

	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// newOrchestrator wires the fetcher, parser and enricher from config around
// store.
func (c *cli) newOrchestrator(store ingest.Store, metrics *ingest.Metrics) *ingest.Orchestrator {
	var enricher ingest.Enricher
	if c.cfg.Feeds.EnrichBlogs {
		enricher = feeds.NewExtractor(c.cfg.FetchTimeout())
	}

	return ingest.NewOrchestrator(ingest.Config{
		Fetcher:           feeds.NewFetcher(c.cfg.FetcherOptions()),
		Parser:            feeds.NewParser(c.cfg.Feeds.Parser),
		Store:             store,
		Enricher:          enricher,
		Metrics:           metrics,
		Families:          ingest.DefaultFamilies(c.cfg.AdapterConfig(), c.cfg.SourcesByFamily()),
		MaxConcurrent:     c.cfg.Feeds.MaxConcurrent,
		DescriptionLength: c.cfg.Feeds.DescriptionLength,
	})
}
