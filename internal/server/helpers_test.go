package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldworks/pointcap/internal/database"
	"github.com/fieldworks/pointcap/internal/game"
	"github.com/fieldworks/pointcap/internal/migrations"
)

// fakeClock is an engine clock that only moves when a test advances it.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	store  *SQLiteStore
	engine *game.Engine
	broker *Broker
	router *chi.Mux
	clock  *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	// A second connection would get its own empty in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	logger := slog.New(slog.DiscardHandler)
	store := NewSQLiteStore(db)
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	engine := game.NewEngine(store, logger, game.Options{
		CaptureBonus: 5,
		HoldUnit:     time.Second,
		Now:          clock.Now,
	})
	broker := NewBroker()

	r := chi.NewRouter()
	addRoutes(r, logger, db, store, engine, broker)

	return &testEnv{store: store, engine: engine, broker: broker, router: r, clock: clock}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// seedMatch creates two players per team, a game with two control points, and
// starts it. Returns the game and its points in creation order.
func seedMatch(t *testing.T, e *testEnv) (game.Game, []game.ControlPoint) {
	t.Helper()
	ctx := context.Background()

	players := []game.User{
		{ID: "alice", Name: "Alice", ColorHex: "#ff0000", CodeHash: hashCode(t, "1111")},
		{ID: "bob", Name: "Bob", ColorHex: "#0000ff", CodeHash: hashCode(t, "2222")},
	}
	for _, u := range players {
		if err := e.store.UpsertUser(ctx, u); err != nil {
			t.Fatalf("upsert user %s: %v", u.ID, err)
		}
	}

	g, err := e.store.CreateGame(ctx, "Test Match")
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	for _, cell := range [][2]int{{1, 1}, {4, 2}} {
		if err := e.store.ToggleMarker(ctx, g.ID, cell[0], cell[1], true); err != nil {
			t.Fatalf("toggle marker: %v", err)
		}
	}
	for _, u := range players {
		if err := e.store.AddParticipant(ctx, g.ID, u.ID); err != nil {
			t.Fatalf("add participant %s: %v", u.ID, err)
		}
	}

	if err := e.engine.Start(ctx, g.ID); err != nil {
		t.Fatalf("start game: %v", err)
	}

	points, err := e.store.ListControlPoints(ctx, g.ID)
	if err != nil {
		t.Fatalf("list points: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}

	g2, err := e.store.Game(ctx, g.ID)
	if err != nil {
		t.Fatalf("reload game: %v", err)
	}
	return g2, points
}

func userFixture(id, color string, hash []byte) game.User {
	return game.User{ID: id, Name: id, ColorHex: color, CodeHash: hash}
}

func hashCode(t *testing.T, code string) []byte {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing code: %v", err)
	}
	return h
}
