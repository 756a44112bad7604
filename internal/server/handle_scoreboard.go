package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fieldworks/pointcap/internal/game"
)

type ScoreRow struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	ColorHex string `json:"colorHex"`
	Holding  int    `json:"holding"`
	Bonus    int    `json:"bonus"`
	Total    int    `json:"total"`
}

type TeamRow struct {
	Team     string     `json:"team"`
	ColorHex string     `json:"colorHex"`
	Holding  int        `json:"holding"`
	Bonus    int        `json:"bonus"`
	Total    int        `json:"total"`
	Members  []ScoreRow `json:"members"`
}

type ScoreboardResponse struct {
	GameID     string     `json:"gameId"`
	Status     string     `json:"status"`
	ComputedAt string     `json:"computedAt"`
	Teams      []TeamRow  `json:"teams"`
	Users      []ScoreRow `json:"users"`
}

func scoreRows(scores []game.UserScore) []ScoreRow {
	rows := make([]ScoreRow, 0, len(scores))
	for _, s := range scores {
		rows = append(rows, ScoreRow{
			UserID:   s.UserID,
			Name:     s.Name,
			ColorHex: s.ColorHex,
			Holding:  s.Holding,
			Bonus:    s.Bonus,
			Total:    s.Total,
		})
	}
	return rows
}

func teamRows(teams []game.TeamScore) []TeamRow {
	rows := make([]TeamRow, 0, len(teams))
	for _, t := range teams {
		rows = append(rows, TeamRow{
			Team:     t.Color,
			ColorHex: t.ColorHex,
			Holding:  t.Holding,
			Bonus:    t.Bonus,
			Total:    t.Total,
			Members:  scoreRows(t.Members),
		})
	}
	return rows
}

func scoreboardResponse(sb game.Scoreboard) ScoreboardResponse {
	return ScoreboardResponse{
		GameID:     sb.GameID,
		Status:     string(sb.Status),
		ComputedAt: sb.ComputedAt.Format(timeLayout),
		Teams:      teamRows(sb.Teams),
		Users:      scoreRows(sb.Users),
	}
}

func handleScoreboardWith(fn func(context.Context, string) (game.Scoreboard, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")

		sb, err := fn(r.Context(), gameID)
		if errors.Is(err, game.ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "scoreboard unavailable")
			return
		}

		writeJSON(w, http.StatusOK, scoreboardResponse(sb))
	}
}

// handleScoreboard computes a fresh scoreboard from the event log.
func handleScoreboard(engine *game.Engine) http.HandlerFunc {
	return handleScoreboardWith(engine.Compute)
}

// handleSavedScoreboard serves the last persisted snapshot, falling back to a
// live computation for users without a positive saved total.
func handleSavedScoreboard(engine *game.Engine) http.HandlerFunc {
	return handleScoreboardWith(engine.Saved)
}
