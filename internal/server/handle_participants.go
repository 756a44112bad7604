package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fieldworks/pointcap/internal/game"
)

type ParticipantResponse struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	ColorHex string `json:"colorHex"`
}

type AddParticipantRequest struct {
	UserID string `json:"userId"`
}

func participantResponses(users []game.User) []ParticipantResponse {
	out := make([]ParticipantResponse, 0, len(users))
	for _, u := range users {
		out = append(out, ParticipantResponse{
			UserID:   u.ID,
			Name:     u.Name,
			ColorHex: u.ColorHex,
		})
	}
	return out
}

func handleListParticipants(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		if _, err := store.Game(r.Context(), gameID); err != nil {
			writeDomainError(w, err)
			return
		}
		roster, err := store.ListParticipants(r.Context(), gameID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, participantResponses(roster))
	}
}

func handleAddParticipant(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")

		var req AddParticipantRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.UserID = strings.TrimSpace(req.UserID)
		if req.UserID == "" {
			writeError(w, http.StatusBadRequest, "userId is required")
			return
		}

		if err := store.AddParticipant(r.Context(), gameID, req.UserID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]bool{"joined": true})
	}
}

func handleRemoveParticipant(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		userID := chi.URLParam(r, "userID")
		if err := store.RemoveParticipant(r.Context(), gameID, userID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
	}
}
