// Package game implements the capture-the-control-point engine: the capture
// state machine, the scoreboard fold over the game event log, and the
// background scoreboard refresher. Storage and transport live elsewhere; the
// engine only sees the Store interface.
package game

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Sentinel errors returned by engine operations. Callers translate these to
// transport-level responses with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrNotParticipant = errors.New("user is not on the game roster")
	ErrGameNotActive  = errors.New("game is not active")
	ErrWrongCode      = errors.New("presence code does not match")
	ErrAlreadyOwner   = errors.New("control point already owned by this user")
	ErrInvalidStatus  = errors.New("operation not allowed in current game status")
)

type GameStatus string

const (
	StatusScheduled GameStatus = "scheduled"
	StatusActive    GameStatus = "active"
	StatusFinished  GameStatus = "finished"
)

type Game struct {
	ID        string
	Name      string
	Status    GameStatus
	CreatedAt time.Time
	StartedAt *time.Time
	EndedAt   *time.Time
}

type PointStatus string

const (
	PointInactive   PointStatus = "inactive"
	PointControlled PointStatus = "controlled"
)

// ControlPoint is a capturable grid cell. Status is controlled iff OwnerID is
// set; the store enforces that pair in a single statement.
type ControlPoint struct {
	ID      string
	GameID  string
	X       int
	Y       int
	Status  PointStatus
	OwnerID *string
}

type EventType string

const (
	EventCapture EventType = "capture"
	EventGameEnd EventType = "game_end"
)

// Event is one row of the append-only game ledger. Events are never mutated
// once recorded; scoring is derived from them alone.
type Event struct {
	ID              int64
	GameID          string
	PointID         string
	Type            EventType
	UserID          *string
	PreviousOwnerID *string
	OccurredAt      time.Time
}

// User is the read model of the external identity provider: display name,
// team color, and the bcrypt hash of the numeric presence code.
type User struct {
	ID       string
	Name     string
	ColorHex string
	CodeHash []byte
}

// UserScore is one per-user scoreboard row, both the live computation result
// and the persisted snapshot shape.
type UserScore struct {
	UserID   string
	Name     string
	ColorHex string
	Holding  int
	Bonus    int
	Total    int
}

// TeamScore aggregates the users sharing one color. Aggregation happens at
// read time so team composition can change without rewriting history.
type TeamScore struct {
	Color    string
	ColorHex string
	Holding  int
	Bonus    int
	Total    int
	Members  []UserScore
}

type Scoreboard struct {
	GameID     string
	Status     GameStatus
	ComputedAt time.Time
	Teams      []TeamScore
	Users      []UserScore
}

// MapAnnotation is a free-text overlay on the game map. Cosmetic only; never
// consumed by scoring.
type MapAnnotation struct {
	ID        string
	GameID    string
	X         int
	Y         int
	Label     string
	CreatedAt time.Time
}

// CaptureResult reports a successful capture.
type CaptureResult struct {
	PointID       string
	GameID        string
	UserID        string
	PreviousOwner *string
	OccurredAt    time.Time
}

// Store is the engine's view of the entity store. Reads during scoring see a
// consistent per-game snapshot; SaveScores is one transaction per game.
type Store interface {
	Game(ctx context.Context, id string) (Game, error)
	ListActiveGames(ctx context.Context) ([]Game, error)
	StartGame(ctx context.Context, id string, at time.Time) error
	FinishGame(ctx context.Context, id string, at time.Time) error

	ControlPoint(ctx context.Context, id string) (ControlPoint, error)
	ListControlPoints(ctx context.Context, gameID string) ([]ControlPoint, error)

	IsParticipant(ctx context.Context, gameID, userID string) (bool, error)
	User(ctx context.Context, id string) (User, error)
	UsersByID(ctx context.Context, ids []string) (map[string]User, error)

	// RecordCapture flips the point's ownership to ev.UserID and appends the
	// capture event in one transaction: on error neither write is visible.
	RecordCapture(ctx context.Context, pointID string, ev Event) (Event, error)
	ListEvents(ctx context.Context, gameID string) ([]Event, error)

	SaveScores(ctx context.Context, gameID string, scores []UserScore, at time.Time) error
	SavedScores(ctx context.Context, gameID string) ([]UserScore, error)
}

// Options tune scoring. Zero values fall back to defaults.
type Options struct {
	// CaptureBonus is the fixed score for the act of capturing.
	CaptureBonus int
	// HoldUnit is the holding-time unit worth one point.
	HoldUnit time.Duration
	// Now overrides the engine clock, for deterministic tests.
	Now func() time.Time
}

const (
	defaultCaptureBonus = 5
	defaultHoldUnit     = time.Second
)

type Engine struct {
	store    Store
	logger   *slog.Logger
	now      func() time.Time
	bonus    int
	holdUnit time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(store Store, logger *slog.Logger, opts Options) *Engine {
	if opts.CaptureBonus <= 0 {
		opts.CaptureBonus = defaultCaptureBonus
	}
	if opts.HoldUnit <= 0 {
		opts.HoldUnit = defaultHoldUnit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		store:    store,
		logger:   logger,
		now:      opts.Now,
		bonus:    opts.CaptureBonus,
		holdUnit: opts.HoldUnit,
		locks:    make(map[string]*sync.Mutex),
	}
}

// pointLock returns the mutex serializing captures of one control point.
func (e *Engine) pointLock(pointID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[pointID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[pointID] = l
	}
	return l
}

// Start moves a scheduled game to active.
func (e *Engine) Start(ctx context.Context, gameID string) error {
	return e.store.StartGame(ctx, gameID, e.now().UTC())
}

// Finish moves an active game to finished. The store appends one game_end
// event per still-controlled point in the same transaction, closing every
// open holding interval.
func (e *Engine) Finish(ctx context.Context, gameID string) error {
	return e.store.FinishGame(ctx, gameID, e.now().UTC())
}
