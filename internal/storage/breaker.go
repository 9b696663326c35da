package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hoanghai1803/pulse/internal/models"
)

// State is the health of a Breaker's live backend.
type State string

const (
	// StateLive serves reads from the live backend.
	StateLive State = "live"
	// StateDegraded serves reads from the fallback until the live backend
	// answers again.
	StateDegraded State = "degraded"
)

// Health is where reads are currently served from and, while degraded, why.
type Health struct {
	State  State  `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// DefaultCooldown is how long a Breaker stays degraded before probing the
// live backend again.
const DefaultCooldown = 30 * time.Second

// Breaker routes reads to a live Store and switches them to a fallback Store
// when the live one fails. Writes always go to the live Store, degraded or
// not.
//
// A degraded Breaker retries the live Store on the first read after the
// cool-down; success returns it to StateLive.
type Breaker struct {
	live     Store
	fallback Store
	cooldown time.Duration
	now      func() time.Time

	mu     sync.Mutex
	state  State
	reason string
	since  time.Time
}

// NewBreaker returns a Breaker in StateLive.
func NewBreaker(live, fallback Store, cooldown time.Duration) *Breaker {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Breaker{
		live:     live,
		fallback: fallback,
		cooldown: cooldown,
		now:      time.Now,
		state:    StateLive,
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Health returns the current state and, while degraded, the failure that
// caused it.
func (b *Breaker) Health() Health {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Health{State: b.state, Reason: b.reason}
}

// tryLive reports whether the next read should go to the live backend.
func (b *Breaker) tryLive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateLive || b.now().Sub(b.since) >= b.cooldown
}

func (b *Breaker) trip(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasLive := b.state == StateLive
	b.state = StateDegraded
	b.reason = op + ": " + err.Error()
	b.since = b.now()

	if wasLive {
		slog.Warn("live store failed, serving fallback data", "operation", op, "error", err)
	} else {
		slog.Debug("live store still failing", "operation", op, "error", err)
	}
}

func (b *Breaker) markLive() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateDegraded {
		slog.Info("live store recovered", "degraded_for", b.now().Sub(b.since).Round(time.Second))
	}
	b.state = StateLive
	b.reason = ""
}

// read runs fn against the live backend when allowed and falls back on
// failure. Caller cancellation and ErrNotFound are returned as is and never
// trip the Breaker.
func read[T any](ctx context.Context, b *Breaker, op string, fn func(Store) (T, error)) (T, error) {
	if b.tryLive() {
		v, err := fn(b.live)
		switch {
		case err == nil:
			b.markLive()
			return v, nil
		case errors.Is(err, ErrNotFound), ctx.Err() != nil:
			return v, err
		}
		b.trip(op, err)
	}
	return fn(b.fallback)
}

// Upsert implements Store. It always targets the live backend.
func (b *Breaker) Upsert(ctx context.Context, rec models.Record) (models.Record, error) {
	return b.live.Upsert(ctx, rec)
}

// Get implements Store.
func (b *Breaker) Get(ctx context.Context, id string) (models.Record, error) {
	return read(ctx, b, "get", func(s Store) (models.Record, error) {
		return s.Get(ctx, id)
	})
}

// Query implements Store.
func (b *Breaker) Query(ctx context.Context, q Query, maxItems int) ([]models.Record, error) {
	return read(ctx, b, "query", func(s Store) ([]models.Record, error) {
		return s.Query(ctx, q, maxItems)
	})
}

// Categories implements Store.
func (b *Breaker) Categories(ctx context.Context, maxItems int) ([]string, error) {
	return read(ctx, b, "categories", func(s Store) ([]string, error) {
		return s.Categories(ctx, maxItems)
	})
}

// IsFirstRun implements Store. Emptiness is a property of the live backend,
// so the fallback is never consulted.
func (b *Breaker) IsFirstRun(ctx context.Context) bool {
	return b.live.IsFirstRun(ctx)
}

// RecordFetch implements Store. It always targets the live backend.
func (b *Breaker) RecordFetch(ctx context.Context, status models.SourceStatus) error {
	return b.live.RecordFetch(ctx, status)
}

// SourceStatuses implements Store.
func (b *Breaker) SourceStatuses(ctx context.Context) ([]models.SourceStatus, error) {
	return read(ctx, b, "source statuses", func(s Store) ([]models.SourceStatus, error) {
		return s.SourceStatuses(ctx)
	})
}
