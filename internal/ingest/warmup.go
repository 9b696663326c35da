package ingest

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultWarmupDaysBack is the history window used to seed an empty store.
const DefaultWarmupDaysBack = 180

// FirstRunChecker reports whether the store holds no records yet.
type FirstRunChecker interface {
	IsFirstRun(ctx context.Context) bool
}

// Warmup runs every family once at startup. On an empty store it reaches
// further back so the first listing is not sparse.
type Warmup struct {
	orch     *Orchestrator
	store    FirstRunChecker
	daysBack int
}

// NewWarmup creates a Warmup. A non-positive daysBack selects
// DefaultWarmupDaysBack.
func NewWarmup(orch *Orchestrator, store FirstRunChecker, daysBack int) *Warmup {
	if daysBack <= 0 {
		daysBack = DefaultWarmupDaysBack
	}
	return &Warmup{orch: orch, store: store, daysBack: daysBack}
}

// Run ingests all families concurrently and waits for them. It never fails:
// errors and panics are logged and swallowed.
func (w *Warmup) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("warmup panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	opts := Options{}
	firstRun := w.store.IsFirstRun(ctx)
	if firstRun {
		opts.DaysBack = w.daysBack
	}
	slog.Info("starting warmup", "first_run", firstRun, "days_back", opts.DaysBack)

	start := time.Now()
	var g errgroup.Group
	for _, fam := range w.orch.Families() {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("family warmup panicked",
						"family", fam.Name,
						"panic", r,
						"stack", string(debug.Stack()),
					)
				}
			}()
			w.orch.Run(ctx, fam, opts)
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("warmup finished", "duration", time.Since(start).Round(time.Millisecond))
}
