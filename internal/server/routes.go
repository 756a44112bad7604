package server

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/fieldworks/pointcap/internal/game"
)

func addRoutes(r chi.Router, logger *slog.Logger, db *sql.DB, store Store, engine *game.Engine, broker *Broker) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("PointCap API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db))

	r.Route("/api", func(r chi.Router) {
		// Capture path: the only write entry point for control-point
		// ownership and game events.
		r.Post("/points/{pointID}/capture", handleCapture(engine, broker))
		r.Delete("/points/{pointID}", handleDeletePoint(store))
		r.Delete("/annotations/{id}", handleDeleteAnnotation(store))

		r.Route("/games", func(r chi.Router) {
			r.Get("/", handleListGames(store))
			r.Post("/", handleCreateGame(store))

			r.Route("/{gameID}", func(r chi.Router) {
				r.Get("/", handleGetGame(store))
				r.Delete("/", handleDeleteGame(store))
				r.Post("/start", handleStartGame(engine, broker))
				r.Post("/finish", handleFinishGame(engine, broker))
				r.Post("/reset", handleResetGame(store))

				r.Get("/scoreboard", handleScoreboard(engine))
				r.Get("/scoreboard/saved", handleSavedScoreboard(engine))
				r.Get("/events", handleEvents(store, broker))

				r.Get("/points", handleListPoints(store))
				r.Post("/points/toggle", handleToggleMarker(store))

				r.Get("/participants", handleListParticipants(store))
				r.Post("/participants", handleAddParticipant(store))
				r.Delete("/participants/{userID}", handleRemoveParticipant(store))

				r.Get("/annotations", handleListAnnotations(store))
				r.Post("/annotations", handleCreateAnnotation(store))
			})
		})
	})
}
