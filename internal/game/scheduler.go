package game

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler periodically recomputes and persists the scoreboard of every
// active game, giving read-only clients live scores without touching the
// event log themselves.
type Scheduler struct {
	engine   *Engine
	store    Store
	logger   *slog.Logger
	interval time.Duration

	// OnRefresh, when set, is called after each successful per-game refresh.
	// The server wires it to the SSE broker.
	OnRefresh func(gameID string, sb Scoreboard)
}

func NewScheduler(engine *Engine, store Store, logger *slog.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Scheduler{
		engine:   engine,
		store:    store,
		logger:   logger,
		interval: interval,
	}
}

// Run ticks until ctx is cancelled. One game's failure is logged and skipped,
// never aborting the rest of the tick; cancellation stops between games so no
// partial-game write is left behind.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	games, err := s.store.ListActiveGames(ctx)
	if err != nil {
		s.logger.Error("listing active games", "error", err)
		return
	}

	for _, g := range games {
		if ctx.Err() != nil {
			return
		}
		sb, err := s.engine.ComputeAndSave(ctx, g.ID)
		if err != nil {
			s.logger.Error("scoreboard refresh failed", "game", g.ID, "error", err)
			continue
		}
		if s.OnRefresh != nil {
			s.OnRefresh(g.ID, sb)
		}
	}
}
