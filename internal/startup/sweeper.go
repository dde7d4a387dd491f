// ABOUTME: Retention sweeper deleting aged-out terminal startup sessions
// ABOUTME: Runs on a ticker until its context is cancelled; failures are logged and retried next tick

package startup

import (
	"context"
	"log/slog"
	"time"
)

// SweeperStore is the persistence surface the sweeper needs.
type SweeperStore interface {
	DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper periodically removes terminal sessions older than the retention
// window. OPEN sessions are never touched.
type Sweeper struct {
	store     SweeperStore
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewSweeper creates a retention sweeper.
func NewSweeper(st SweeperStore, retention, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:     st,
		retention: retention,
		interval:  interval,
		logger:    slog.Default().With("component", "sweeper"),
		now:       time.Now,
	}
}

// Run sweeps immediately, then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("retention sweeper started",
		"retention", s.retention,
		"interval", s.interval,
	)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := s.now().UTC().Add(-s.retention)

	deleted, err := s.store.DeleteExpiredSessions(ctx, cutoff)
	if err != nil {
		s.logger.Error("retention sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("retention sweep removed sessions", "count", deleted, "cutoff", cutoff)
	}
}
