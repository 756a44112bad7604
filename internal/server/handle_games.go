package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fieldworks/pointcap/internal/game"
)

type GameRequest struct {
	Name string `json:"name"`
}

type GameResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"createdAt"`
	StartedAt *string `json:"startedAt"`
	EndedAt   *string `json:"endedAt"`
}

// GameDetail is the full game with points and roster.
type GameDetail struct {
	GameResponse
	Points       []PointResponse       `json:"points"`
	Participants []ParticipantResponse `json:"participants"`
}

func gameResponse(g game.Game) GameResponse {
	fmtPtr := func(t *time.Time) *string {
		if t == nil {
			return nil
		}
		s := t.Format(timeLayout)
		return &s
	}
	return GameResponse{
		ID:        g.ID,
		Name:      g.Name,
		Status:    string(g.Status),
		CreatedAt: g.CreatedAt.Format(timeLayout),
		StartedAt: fmtPtr(g.StartedAt),
		EndedAt:   fmtPtr(g.EndedAt),
	}
}

func handleListGames(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		games, err := store.ListGames(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		out := make([]GameResponse, 0, len(games))
		for _, g := range games {
			out = append(out, gameResponse(g))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleCreateGame(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		g, err := store.CreateGame(r.Context(), req.Name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, gameResponse(g))
	}
}

func handleGetGame(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")

		g, err := store.Game(r.Context(), gameID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		points, err := store.ListControlPoints(r.Context(), gameID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		roster, err := store.ListParticipants(r.Context(), gameID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, GameDetail{
			GameResponse: gameResponse(g),
			Points:       pointResponses(points),
			Participants: participantResponses(roster),
		})
	}
}

func handleDeleteGame(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteGame(r.Context(), chi.URLParam(r, "gameID")); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}

func handleStartGame(engine *game.Engine, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		if err := engine.Start(r.Context(), gameID); err != nil {
			writeDomainError(w, err)
			return
		}
		broker.Publish(gameID, SSEEvent{Type: "game_started"})
		writeJSON(w, http.StatusOK, map[string]string{"status": string(game.StatusActive)})
	}
}

func handleFinishGame(engine *game.Engine, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		if err := engine.Finish(r.Context(), gameID); err != nil {
			writeDomainError(w, err)
			return
		}
		broker.Publish(gameID, SSEEvent{Type: "game_finished"})
		writeJSON(w, http.StatusOK, map[string]string{"status": string(game.StatusFinished)})
	}
}

func handleResetGame(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.ResetGame(r.Context(), chi.URLParam(r, "gameID")); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": string(game.StatusScheduled)})
	}
}
