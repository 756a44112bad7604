package game

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// fakeStore is an in-memory Store for deterministic engine tests. The real
// SQLite store is exercised by the server package tests.
type fakeStore struct {
	mu     sync.Mutex
	games  map[string]Game
	points map[string]ControlPoint
	roster map[string]map[string]bool
	users  map[string]User
	events []Event
	nextID int64
	saved  map[string]map[string]UserScore

	// failEvents makes ListEvents fail for the given game IDs;
	// failCapture makes RecordCapture fail without mutating anything.
	failEvents  map[string]bool
	failCapture bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		games:      make(map[string]Game),
		points:     make(map[string]ControlPoint),
		roster:     make(map[string]map[string]bool),
		users:      make(map[string]User),
		saved:      make(map[string]map[string]UserScore),
		failEvents: make(map[string]bool),
	}
}

var errStorage = &storageErr{}

type storageErr struct{}

func (*storageErr) Error() string { return "storage failure" }

func (f *fakeStore) Game(_ context.Context, id string) (Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[id]
	if !ok {
		return Game{}, ErrNotFound
	}
	return g, nil
}

func (f *fakeStore) ListActiveGames(context.Context) ([]Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Game
	for _, g := range f.games {
		if g.Status == StatusActive {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) StartGame(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[id]
	if !ok {
		return ErrNotFound
	}
	if g.Status != StatusScheduled {
		return ErrInvalidStatus
	}
	g.Status = StatusActive
	g.StartedAt = &at
	f.games[id] = g
	return nil
}

func (f *fakeStore) FinishGame(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[id]
	if !ok {
		return ErrNotFound
	}
	if g.Status != StatusActive {
		return ErrInvalidStatus
	}
	g.Status = StatusFinished
	g.EndedAt = &at
	f.games[id] = g
	for _, cp := range f.points {
		if cp.GameID != id || cp.OwnerID == nil {
			continue
		}
		f.nextID++
		f.events = append(f.events, Event{
			ID:         f.nextID,
			GameID:     id,
			PointID:    cp.ID,
			Type:       EventGameEnd,
			UserID:     cp.OwnerID,
			OccurredAt: at,
		})
	}
	return nil
}

func (f *fakeStore) ControlPoint(_ context.Context, id string) (ControlPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp, ok := f.points[id]
	if !ok {
		return ControlPoint{}, ErrNotFound
	}
	return cp, nil
}

func (f *fakeStore) ListControlPoints(_ context.Context, gameID string) ([]ControlPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ControlPoint
	for _, cp := range f.points {
		if cp.GameID == gameID {
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) RecordCapture(_ context.Context, pointID string, ev Event) (Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp, ok := f.points[pointID]
	if !ok {
		return Event{}, ErrNotFound
	}
	if f.failCapture {
		return Event{}, errStorage
	}
	cp.OwnerID = ev.UserID
	cp.Status = PointControlled
	f.points[pointID] = cp
	f.nextID++
	ev.ID = f.nextID
	f.events = append(f.events, ev)
	return ev, nil
}

func (f *fakeStore) IsParticipant(_ context.Context, gameID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roster[gameID][userID], nil
}

func (f *fakeStore) User(_ context.Context, id string) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) UsersByID(_ context.Context, ids []string) (map[string]User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]User, len(ids))
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (f *fakeStore) ListEvents(_ context.Context, gameID string) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEvents[gameID] {
		return nil, errStorage
	}
	var out []Event
	for _, ev := range f.events {
		if ev.GameID == gameID {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStore) SaveScores(_ context.Context, gameID string, scores []UserScore, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := make(map[string]UserScore, len(scores))
	for _, s := range scores {
		rows[s.UserID] = s
	}
	f.saved[gameID] = rows
	return nil
}

func (f *fakeStore) SavedScores(_ context.Context, gameID string) ([]UserScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []UserScore
	for _, s := range f.saved[gameID] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func mustHash(t *testing.T, code string) []byte {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing code: %v", err)
	}
	return h
}

func strptr(s string) *string { return &s }

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fixture builds an active game with one control point and two rostered users.
func fixture(t *testing.T) *fakeStore {
	t.Helper()
	f := newFakeStore()
	f.games["g1"] = Game{ID: "g1", Name: "Skirmish", Status: StatusActive}
	f.points["p1"] = ControlPoint{ID: "p1", GameID: "g1", X: 3, Y: 4, Status: PointInactive}
	f.roster["g1"] = map[string]bool{"alice": true, "bob": true}
	f.users["alice"] = User{ID: "alice", Name: "Alice", ColorHex: "#ff0000", CodeHash: mustHash(t, "1111")}
	f.users["bob"] = User{ID: "bob", Name: "Bob", ColorHex: "#0000ff", CodeHash: mustHash(t, "2222")}
	return f
}
