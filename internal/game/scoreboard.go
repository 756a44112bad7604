package game

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Compute folds the full ordered event log of a game into per-user and
// per-team scores. For a finished game the result is a pure function of the
// log; for an active game the open holding intervals extend to the engine
// clock, so totals grow monotonically between calls.
func (e *Engine) Compute(ctx context.Context, gameID string) (Scoreboard, error) {
	g, err := e.store.Game(ctx, gameID)
	if err != nil {
		return Scoreboard{}, fmt.Errorf("loading game: %w", err)
	}

	events, err := e.store.ListEvents(ctx, gameID)
	if err != nil {
		return Scoreboard{}, fmt.Errorf("loading event log: %w", err)
	}

	type holdState struct {
		owner string
		since time.Time
	}
	open := make(map[string]holdState) // by point ID
	holding := make(map[string]time.Duration)
	bonus := make(map[string]int)

	for _, ev := range events {
		if st, ok := open[ev.PointID]; ok {
			holding[st.owner] += ev.OccurredAt.Sub(st.since)
		}
		switch ev.Type {
		case EventCapture:
			if ev.UserID == nil {
				continue
			}
			bonus[*ev.UserID] += e.bonus
			open[ev.PointID] = holdState{owner: *ev.UserID, since: ev.OccurredAt}
		case EventGameEnd:
			delete(open, ev.PointID)
		}
	}

	now := e.now().UTC()
	if g.Status == StatusActive {
		for _, st := range open {
			holding[st.owner] += now.Sub(st.since)
		}
	}

	ids := make([]string, 0, len(holding)+len(bonus))
	for id := range holding {
		ids = append(ids, id)
	}
	for id := range bonus {
		if _, ok := holding[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	users, err := e.store.UsersByID(ctx, ids)
	if err != nil {
		return Scoreboard{}, fmt.Errorf("loading users: %w", err)
	}

	scores := make([]UserScore, 0, len(ids))
	for _, id := range ids {
		u := users[id]
		s := UserScore{
			UserID:   id,
			Name:     u.Name,
			ColorHex: u.ColorHex,
			Holding:  int(holding[id] / e.holdUnit),
			Bonus:    bonus[id],
		}
		s.Total = s.Holding + s.Bonus
		scores = append(scores, s)
	}

	return Scoreboard{
		GameID:     gameID,
		Status:     g.Status,
		ComputedAt: now,
		Teams:      aggregateTeams(scores),
		Users:      scores,
	}, nil
}

// ComputeAndSave computes the scoreboard and upserts one score row per
// (game, user) in a single transaction. This is the scheduler's path and the
// only writer of score snapshots.
func (e *Engine) ComputeAndSave(ctx context.Context, gameID string) (Scoreboard, error) {
	sb, err := e.Compute(ctx, gameID)
	if err != nil {
		return Scoreboard{}, err
	}
	if err := e.store.SaveScores(ctx, gameID, sb.Users, sb.ComputedAt); err != nil {
		return Scoreboard{}, fmt.Errorf("saving scores: %w", err)
	}
	return sb, nil
}

// Saved answers a "last computed" read from the persisted snapshot. Per user
// it prefers a positive persisted total and falls back to the live
// holding-plus-bonus value, so a zero or missing snapshot is transparently
// replaced by a fresh computation.
func (e *Engine) Saved(ctx context.Context, gameID string) (Scoreboard, error) {
	live, err := e.Compute(ctx, gameID)
	if err != nil {
		return Scoreboard{}, err
	}

	saved, err := e.store.SavedScores(ctx, gameID)
	if err != nil {
		return Scoreboard{}, fmt.Errorf("loading saved scores: %w", err)
	}
	persisted := make(map[string]UserScore, len(saved))
	for _, s := range saved {
		persisted[s.UserID] = s
	}

	scores := make([]UserScore, 0, len(live.Users))
	for _, s := range live.Users {
		if p, ok := persisted[s.UserID]; ok && p.Total > 0 {
			p.Name = s.Name
			p.ColorHex = s.ColorHex
			scores = append(scores, p)
			continue
		}
		scores = append(scores, s)
	}

	live.Users = scores
	live.Teams = aggregateTeams(scores)
	return live, nil
}

// aggregateTeams groups per-user rows by color. Teams are not stored; a team
// is whoever shares a color at read time.
func aggregateTeams(scores []UserScore) []TeamScore {
	byColor := make(map[string]*TeamScore)
	for _, s := range scores {
		hex := strings.ToLower(s.ColorHex)
		t, ok := byColor[hex]
		if !ok {
			t = &TeamScore{Color: colorName(hex), ColorHex: hex}
			byColor[hex] = t
		}
		t.Holding += s.Holding
		t.Bonus += s.Bonus
		t.Total += s.Total
		t.Members = append(t.Members, s)
	}

	teams := make([]TeamScore, 0, len(byColor))
	for _, t := range byColor {
		teams = append(teams, *t)
	}
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].Total != teams[j].Total {
			return teams[i].Total > teams[j].Total
		}
		return teams[i].ColorHex < teams[j].ColorHex
	})
	return teams
}

var colorNames = map[string]string{
	"#ff0000": "Red",
	"#0000ff": "Blue",
	"#00ff00": "Green",
	"#ffff00": "Yellow",
	"#ffa500": "Orange",
	"#800080": "Purple",
	"#00ffff": "Cyan",
	"#ff00ff": "Magenta",
	"#000000": "Black",
	"#ffffff": "White",
}

func colorName(hex string) string {
	if name, ok := colorNames[hex]; ok {
		return name
	}
	return hex
}
