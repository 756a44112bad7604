package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fieldworks/pointcap/internal/game"
)

type AnnotationRequest struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Label string `json:"label"`
}

type AnnotationResponse struct {
	ID    string `json:"id"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Label string `json:"label"`
}

func annotationResponses(notes []game.MapAnnotation) []AnnotationResponse {
	out := make([]AnnotationResponse, 0, len(notes))
	for _, a := range notes {
		out = append(out, AnnotationResponse{ID: a.ID, X: a.X, Y: a.Y, Label: a.Label})
	}
	return out
}

func handleListAnnotations(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		if _, err := store.Game(r.Context(), gameID); err != nil {
			writeDomainError(w, err)
			return
		}
		notes, err := store.ListAnnotations(r.Context(), gameID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, annotationResponses(notes))
	}
}

func handleCreateAnnotation(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")

		var req AnnotationRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Label = strings.TrimSpace(req.Label)
		if req.Label == "" {
			writeError(w, http.StatusBadRequest, "label is required")
			return
		}

		a, err := store.CreateAnnotation(r.Context(), gameID, req.X, req.Y, req.Label)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, AnnotationResponse{ID: a.ID, X: a.X, Y: a.Y, Label: a.Label})
	}
}

func handleDeleteAnnotation(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteAnnotation(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}
