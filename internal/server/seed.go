package server

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/fieldworks/pointcap/internal/game"
)

// SeedDemo creates a demo game with two teams, four players, and three
// control points, and starts it. Idempotent: does nothing if any game exists.
func SeedDemo(ctx context.Context, logger *slog.Logger, store Store) error {
	existing, err := store.ListGames(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	players := []struct {
		id, name, color, code string
	}{
		{"alice", "Alice", "#ff0000", "4821"},
		{"bob", "Bob", "#ff0000", "7365"},
		{"carol", "Carol", "#0000ff", "1904"},
		{"dave", "Dave", "#0000ff", "5577"},
	}
	for _, p := range players {
		hash, err := bcrypt.GenerateFromPassword([]byte(p.code), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		u := game.User{ID: p.id, Name: p.name, ColorHex: p.color, CodeHash: hash}
		if err := store.UpsertUser(ctx, u); err != nil {
			return err
		}
	}

	g, err := store.CreateGame(ctx, "Demo Match")
	if err != nil {
		return err
	}

	for _, cell := range [][2]int{{2, 3}, {5, 5}, {8, 1}} {
		if err := store.ToggleMarker(ctx, g.ID, cell[0], cell[1], true); err != nil {
			return err
		}
	}
	for _, p := range players {
		if err := store.AddParticipant(ctx, g.ID, p.id); err != nil {
			return err
		}
	}

	if err := store.StartGame(ctx, g.ID, g.CreatedAt); err != nil {
		return err
	}

	logger.Info("demo game created and started", "game_id", g.ID)
	return nil
}
