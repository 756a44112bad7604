package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fieldworks/pointcap/internal/game"
)

type CaptureRequest struct {
	UserID string `json:"userId"`
	Code   string `json:"code"`
}

type CaptureResponse struct {
	Success       bool    `json:"success"`
	Message       string  `json:"message"`
	PointID       string  `json:"pointId,omitempty"`
	PreviousOwner *string `json:"previousOwner,omitempty"`
	CapturedAt    string  `json:"capturedAt,omitempty"`
}

func handleCapture(engine *game.Engine, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pointID := chi.URLParam(r, "pointID")

		var req CaptureRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.UserID = strings.TrimSpace(req.UserID)
		req.Code = strings.TrimSpace(req.Code)
		if req.UserID == "" || req.Code == "" {
			writeError(w, http.StatusBadRequest, "userId and code are required")
			return
		}

		res, err := engine.Capture(r.Context(), pointID, req.UserID, req.Code)
		if err != nil {
			status, msg := captureFailure(err)
			writeJSON(w, status, CaptureResponse{Success: false, Message: msg})
			return
		}

		broker.Publish(res.GameID, SSEEvent{
			Type:    "capture",
			PointID: res.PointID,
			UserID:  res.UserID,
		})

		writeJSON(w, http.StatusOK, CaptureResponse{
			Success:       true,
			Message:       "control point captured",
			PointID:       res.PointID,
			PreviousOwner: res.PreviousOwner,
			CapturedAt:    res.OccurredAt.Format(timeLayout),
		})
	}
}

// captureFailure picks the status and the user-facing message for a failed
// capture, so clients can render targeted feedback.
func captureFailure(err error) (int, string) {
	switch {
	case errors.Is(err, game.ErrNotFound):
		return http.StatusNotFound, "control point not found"
	case errors.Is(err, game.ErrNotParticipant):
		return http.StatusForbidden, "not yours to capture"
	case errors.Is(err, game.ErrGameNotActive):
		return http.StatusForbidden, "game is not active"
	case errors.Is(err, game.ErrWrongCode):
		return http.StatusBadRequest, "wrong code"
	case errors.Is(err, game.ErrAlreadyOwner):
		return http.StatusConflict, "already yours"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
