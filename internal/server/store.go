package server

import (
	"context"

	"github.com/fieldworks/pointcap/internal/game"
)

// Store is the server's view of the entity store: the engine's Store plus the
// admin operations the HTTP surface needs. SQLiteStore implements it.
type Store interface {
	game.Store

	CreateGame(ctx context.Context, name string) (game.Game, error)
	ListGames(ctx context.Context) ([]game.Game, error)
	DeleteGame(ctx context.Context, id string) error
	// ResetGame clears all derived state (events, scores, ownership) and
	// returns the game to scheduled.
	ResetGame(ctx context.Context, id string) error

	AddParticipant(ctx context.Context, gameID, userID string) error
	RemoveParticipant(ctx context.Context, gameID, userID string) error
	ListParticipants(ctx context.Context, gameID string) ([]game.User, error)
	UpsertUser(ctx context.Context, u game.User) error

	// ToggleMarker idempotently creates or deletes a control point at a grid
	// cell; creating an occupied cell and deleting an empty one are no-ops.
	ToggleMarker(ctx context.Context, gameID string, x, y int, isControlPoint bool) error
	DeleteControlPoint(ctx context.Context, id string) error

	DeleteScores(ctx context.Context, gameID string) error

	ListAnnotations(ctx context.Context, gameID string) ([]game.MapAnnotation, error)
	CreateAnnotation(ctx context.Context, gameID string, x, y int, label string) (game.MapAnnotation, error)
	DeleteAnnotation(ctx context.Context, id string) error
}
