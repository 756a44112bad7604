package server

import (
	"context"
	"net/http"
	"testing"
	"time"
)

// Walks the whole lifecycle of a match through the HTTP surface.
func TestGameLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, u := range []struct{ id, color, code string }{
		{"alice", "#ff0000", "1111"},
		{"bob", "#0000ff", "2222"},
	} {
		if err := env.store.UpsertUser(ctx, userFixture(u.id, u.color, hashCode(t, u.code))); err != nil {
			t.Fatalf("upsert %s: %v", u.id, err)
		}
	}

	// Create.
	rec := env.do(t, http.MethodPost, "/api/games", GameRequest{Name: "Friday Match"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d: %s", rec.Code, rec.Body.String())
	}
	g := decodeBody[GameResponse](t, rec)
	if g.Status != "scheduled" {
		t.Fatalf("new game status = %q, want scheduled", g.Status)
	}

	// Place two control points; toggling an occupied cell off removes it.
	for _, cell := range [][2]int{{0, 0}, {3, 3}, {7, 7}} {
		rec = env.do(t, http.MethodPost, "/api/games/"+g.ID+"/points/toggle",
			ToggleRequest{X: cell[0], Y: cell[1], IsControlPoint: true})
		if rec.Code != http.StatusOK {
			t.Fatalf("toggle on: status = %d", rec.Code)
		}
	}
	rec = env.do(t, http.MethodPost, "/api/games/"+g.ID+"/points/toggle",
		ToggleRequest{X: 7, Y: 7, IsControlPoint: false})
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle off: status = %d", rec.Code)
	}
	points := decodeBody[[]PointResponse](t, rec)
	if len(points) != 2 {
		t.Fatalf("got %d points after toggle off, want 2", len(points))
	}

	// Roster.
	for _, id := range []string{"alice", "bob"} {
		rec = env.do(t, http.MethodPost, "/api/games/"+g.ID+"/participants",
			AddParticipantRequest{UserID: id})
		if rec.Code != http.StatusCreated {
			t.Fatalf("add participant %s: status = %d: %s", id, rec.Code, rec.Body.String())
		}
	}
	rec = env.do(t, http.MethodGet, "/api/games/"+g.ID+"/participants", nil)
	if got := decodeBody[[]ParticipantResponse](t, rec); len(got) != 2 {
		t.Fatalf("got %d participants, want 2", len(got))
	}

	// Start; starting twice is rejected.
	if rec = env.do(t, http.MethodPost, "/api/games/"+g.ID+"/start", nil); rec.Code != http.StatusOK {
		t.Fatalf("start: status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec = env.do(t, http.MethodPost, "/api/games/"+g.ID+"/start", nil); rec.Code != http.StatusConflict {
		t.Fatalf("second start: status = %d, want %d", rec.Code, http.StatusConflict)
	}

	// Play a bit.
	rec = env.do(t, http.MethodPost, "/api/points/"+points[0].ID+"/capture",
		CaptureRequest{UserID: "alice", Code: "1111"})
	if rec.Code != http.StatusOK {
		t.Fatalf("capture: status = %d: %s", rec.Code, rec.Body.String())
	}
	env.clock.Advance(12 * time.Second)

	// Finish freezes the scoreboard.
	if rec = env.do(t, http.MethodPost, "/api/games/"+g.ID+"/finish", nil); rec.Code != http.StatusOK {
		t.Fatalf("finish: status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodGet, "/api/games/"+g.ID+"/scoreboard", nil)
	frozen := decodeBody[ScoreboardResponse](t, rec)
	if frozen.Status != "finished" {
		t.Fatalf("scoreboard status = %q, want finished", frozen.Status)
	}
	env.clock.Advance(time.Hour)
	rec = env.do(t, http.MethodGet, "/api/games/"+g.ID+"/scoreboard", nil)
	later := decodeBody[ScoreboardResponse](t, rec)
	if len(frozen.Users) != len(later.Users) {
		t.Fatalf("user count changed after finish")
	}
	for i := range frozen.Users {
		if frozen.Users[i].Total != later.Users[i].Total {
			t.Errorf("user %s total drifted after finish: %d -> %d",
				frozen.Users[i].UserID, frozen.Users[i].Total, later.Users[i].Total)
		}
	}

	// Reset returns the game to scheduled with a clean slate.
	if rec = env.do(t, http.MethodPost, "/api/games/"+g.ID+"/reset", nil); rec.Code != http.StatusOK {
		t.Fatalf("reset: status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodGet, "/api/games/"+g.ID, nil)
	detail := decodeBody[GameDetail](t, rec)
	if detail.Status != "scheduled" {
		t.Errorf("status after reset = %q, want scheduled", detail.Status)
	}
	for _, p := range detail.Points {
		if p.OwnerID != nil {
			t.Errorf("point %s still owned after reset", p.ID)
		}
	}
	events, err := env.store.ListEvents(ctx, g.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events after reset, want 0", len(events))
	}

	// Delete.
	if rec = env.do(t, http.MethodDelete, "/api/games/"+g.ID, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", rec.Code)
	}
	if rec = env.do(t, http.MethodGet, "/api/games/"+g.ID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCreateGameValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/games", GameRequest{Name: "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAddParticipantUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	g, _ := seedMatch(t, env)

	rec := env.do(t, http.MethodPost, "/api/games/"+g.ID+"/participants",
		AddParticipantRequest{UserID: "ghost"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusNotFound, rec.Body.String())
	}
}

func TestDeletePointEndpoint(t *testing.T) {
	env := newTestEnv(t)
	g, points := seedMatch(t, env)

	rec := env.do(t, http.MethodDelete, "/api/points/"+points[0].ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/games/"+g.ID+"/points", nil)
	if got := decodeBody[[]PointResponse](t, rec); len(got) != 1 {
		t.Fatalf("got %d points after delete, want 1", len(got))
	}

	rec = env.do(t, http.MethodDelete, "/api/points/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete unknown: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
