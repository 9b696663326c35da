package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedules are the seconds-precision cron specs of the built-in
// families.
var DefaultSchedules = map[string]string{
	FamilyUpdates: "0 0 */6 * * *",
	FamilyBlogs:   "0 0 */12 * * *",
	FamilyVideos:  "0 0 */12 * * *",
}

// cronLogger forwards robfig/cron log lines to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// Scheduler triggers family runs on cron schedules. A run that is still in
// progress when its next tick fires causes that tick to be skipped.
type Scheduler struct {
	cron    *cron.Cron
	entries map[string]cron.EntryID
}

// NewScheduler registers one cron entry per family that has a spec. Families
// missing from specs fall back to DefaultSchedules; an empty spec disables
// the family.
func NewScheduler(ctx context.Context, orch *Orchestrator, specs map[string]string) (*Scheduler, error) {
	logger := cronLogger{}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger)),
	)
	s := &Scheduler{cron: c, entries: make(map[string]cron.EntryID)}

	for _, fam := range orch.Families() {
		spec, ok := specs[fam.Name]
		if !ok {
			spec = DefaultSchedules[fam.Name]
		}
		if spec == "" {
			slog.Info("family has no schedule", "family", fam.Name)
			continue
		}

		job := cron.NewChain(cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(func() {
			slog.Info("scheduled ingestion triggered", "family", fam.Name)
			orch.Run(ctx, fam, Options{})
		}))

		id, err := c.AddJob(spec, job)
		if err != nil {
			return nil, fmt.Errorf("scheduling family %q with %q: %w", fam.Name, spec, err)
		}
		s.entries[fam.Name] = id
		slog.Info("scheduled family", "family", fam.Name, "schedule", spec)
	}

	return s, nil
}

// Start begins running the schedules in the background and logs when each
// family runs next.
func (s *Scheduler) Start() {
	s.cron.Start()

	slog.Info("scheduler started", "families", s.Scheduled())
	for _, family := range slices.Sorted(maps.Keys(s.entries)) {
		slog.Info("next scheduled ingestion", "family", family, "at", s.Next(family))
	}
}

// Stop prevents new runs and waits for running ones to finish or for ctx to
// be done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for scheduled runs: %w", ctx.Err())
	}
}

// Next returns the next run time of a started scheduler's family, or the
// zero time if the family is not scheduled.
func (s *Scheduler) Next(family string) time.Time {
	id, ok := s.entries[family]
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// Scheduled returns the number of scheduled families.
func (s *Scheduler) Scheduled() int {
	return len(s.entries)
}
