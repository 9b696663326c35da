package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Mode selects the backend behind a Store.
type Mode string

const (
	// ModeMock serves the built-in sample records.
	ModeMock Mode = "mock"
	// ModeSnapshot serves records captured in a snapshot file.
	ModeSnapshot Mode = "snapshot"
	// ModeLive persists to SQLite and falls back to fixture data on failure.
	ModeLive Mode = "live"
)

// ParseMode parses a mode name case-insensitively. An empty name selects
// ModeMock.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeMock, nil
	case ModeMock, ModeSnapshot, ModeLive:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown store mode %q", ErrConfiguration, s)
}

// Options configures Open.
type Options struct {
	Mode         string
	DSN          string // SQLite path for live mode
	SnapshotPath string
	CacheSize    int
	CacheTTL     time.Duration
	Cooldown     time.Duration
	// Now anchors the mock records; defaults to time.Now.
	Now func() time.Time
}

// Backend is the Store selected by Open. It carries the mode and, in live
// mode, the breaker state for health reporting.
type Backend struct {
	Store

	Mode    Mode
	breaker *Breaker
	closers []func() error
}

// Health reports StateDegraded, with the failure that caused it, while a
// live backend is serving fallback data and StateLive otherwise.
func (b *Backend) Health() Health {
	if b.breaker == nil {
		return Health{State: StateLive}
	}
	return b.breaker.Health()
}

// Close releases the underlying resources.
func (b *Backend) Close() error {
	var errs []error
	for _, closeFn := range b.closers {
		errs = append(errs, closeFn())
	}
	return errors.Join(errs...)
}

// Open builds the Store for opts.Mode. Every failure to honour the requested
// mode wraps ErrConfiguration; Open never silently picks another mode.
func Open(ctx context.Context, opts Options) (*Backend, error) {
	mode, err := ParseMode(opts.Mode)
	if err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	backend := &Backend{Mode: mode}
	var inner Store

	switch mode {
	case ModeMock:
		inner = NewMemoryStore(MockRecords(opts.Now())...)

	case ModeSnapshot:
		if opts.SnapshotPath == "" {
			return nil, fmt.Errorf("%w: snapshot mode requires a snapshot path", ErrConfiguration)
		}
		snap, err := LoadSnapshot(opts.SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		slog.Info("snapshot loaded", "path", opts.SnapshotPath, "records", snap.Len())
		inner = snap

	case ModeLive:
		if strings.TrimSpace(opts.DSN) == "" {
			return nil, fmt.Errorf("%w: live mode requires a database path", ErrConfiguration)
		}
		db, err := OpenDatabase(opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		if err := RunMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		live := NewSQLiteStore(db)
		if err := live.Ping(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: live store unreachable: %w", ErrConfiguration, err)
		}

		backend.breaker = NewBreaker(live, fallbackStore(opts), opts.Cooldown)
		backend.closers = append(backend.closers, live.Close)
		inner = backend.breaker
	}

	backend.Store = NewCached(inner, opts.CacheSize, opts.CacheTTL)
	slog.Info("store opened", "mode", mode)
	return backend, nil
}

// fallbackStore returns the data a degraded live store serves: the snapshot
// when one is readable, the mock records otherwise.
func fallbackStore(opts Options) Store {
	if opts.SnapshotPath != "" {
		snap, err := LoadSnapshot(opts.SnapshotPath)
		if err == nil {
			return snap
		}
		slog.Warn("snapshot unavailable, degraded reads will use mock data", "path", opts.SnapshotPath, "error", err)
	}
	return NewMemoryStore(MockRecords(opts.Now())...)
}
