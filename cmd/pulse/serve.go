package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hoanghai1803/pulse/internal/api"
	"github.com/hoanghai1803/pulse/internal/ingest"
	"github.com/hoanghai1803/pulse/internal/storage"
)

func (c *cli) serveCmd() *cobra.Command {
	var noIngest bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read API and run scheduled ingestion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context(), !noIngest)
		},
	}
	cmd.Flags().BoolVar(&noIngest, "no-ingest", false, "serve the API without warmup or scheduled ingestion")
	return cmd
}

func (c *cli) serve(ctx context.Context, withIngest bool) error {
	backend, err := storage.Open(ctx, c.cfg.StoreOptions())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer backend.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := ingest.NewMetrics(reg)
	orch := c.newOrchestrator(backend, metrics)

	var sched *ingest.Scheduler
	if withIngest {
		sched, err = ingest.NewScheduler(ctx, orch, c.cfg.Schedules())
		if err != nil {
			return err
		}
	}

	router := api.NewRouter(api.Deps{
		Store:          backend,
		Mode:           backend.Mode,
		Health:         backend.Health,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		AllowedOrigins: c.cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr, "mode", backend.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listening: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Block from shutting down until the group is canceled.
		<-gCtx.Done()

		downCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.ShutdownTimeout())
		defer cancel()

		if err := srv.Shutdown(downCtx); err != nil {
			slog.Error("error shutting down server", "error", err)
		}
		if sched != nil {
			if err := sched.Stop(downCtx); err != nil {
				slog.Error("error stopping scheduler", "error", err)
			}
		}
		slog.Info("server stopped")
		return nil
	})

	if withIngest {
		g.Go(func() error {
			ingest.NewWarmup(orch, backend, c.cfg.Feeds.WarmupDaysBack).Run(gCtx)
			return nil
		})
		sched.Start()
	}

	return g.Wait()
}
