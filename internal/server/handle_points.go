package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fieldworks/pointcap/internal/game"
)

type PointResponse struct {
	ID      string  `json:"id"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Status  string  `json:"status"`
	OwnerID *string `json:"ownerId"`
}

// ToggleRequest asks for a grid cell to become (or stop being) a control
// point. Both directions are idempotent.
type ToggleRequest struct {
	X              int  `json:"x"`
	Y              int  `json:"y"`
	IsControlPoint bool `json:"isControlPoint"`
}

func pointResponses(points []game.ControlPoint) []PointResponse {
	out := make([]PointResponse, 0, len(points))
	for _, cp := range points {
		out = append(out, PointResponse{
			ID:      cp.ID,
			X:       cp.X,
			Y:       cp.Y,
			Status:  string(cp.Status),
			OwnerID: cp.OwnerID,
		})
	}
	return out
}

func handleListPoints(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		if _, err := store.Game(r.Context(), gameID); err != nil {
			writeDomainError(w, err)
			return
		}
		points, err := store.ListControlPoints(r.Context(), gameID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, pointResponses(points))
	}
}

func handleToggleMarker(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")
		if _, err := store.Game(r.Context(), gameID); err != nil {
			writeDomainError(w, err)
			return
		}

		var req ToggleRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := store.ToggleMarker(r.Context(), gameID, req.X, req.Y, req.IsControlPoint); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		points, err := store.ListControlPoints(r.Context(), gameID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, pointResponses(points))
	}
}

func handleDeletePoint(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteControlPoint(r.Context(), chi.URLParam(r, "pointID")); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}
