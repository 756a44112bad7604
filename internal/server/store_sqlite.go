package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fieldworks/pointcap/internal/game"
)

// SQLiteStore is the libSQL-backed entity store. Timestamps are stored as
// RFC 3339 UTC strings; event order is (occurred_at, id).
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Fixed-width fractional seconds so the TEXT column sorts bytewise in
// chronological order under SQLite's BINARY collation.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func newID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func nullStr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func (s *SQLiteStore) Game(ctx context.Context, id string) (game.Game, error) {
	var g game.Game
	var createdAt string
	var startedAt, endedAt sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, status, created_at, started_at, ended_at
		FROM games WHERE id = ?
	`, id).Scan(&g.ID, &g.Name, &g.Status, &createdAt, &startedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Game{}, game.ErrNotFound
	}
	if err != nil {
		return game.Game{}, err
	}
	g.CreatedAt = parseTime(createdAt)
	g.StartedAt = parseNullTime(startedAt)
	g.EndedAt = parseNullTime(endedAt)
	return g, nil
}

func (s *SQLiteStore) listGames(ctx context.Context, query string, args ...any) ([]game.Game, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []game.Game
	for rows.Next() {
		var g game.Game
		var createdAt string
		var startedAt, endedAt sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &g.Status, &createdAt, &startedAt, &endedAt); err != nil {
			return nil, err
		}
		g.CreatedAt = parseTime(createdAt)
		g.StartedAt = parseNullTime(startedAt)
		g.EndedAt = parseNullTime(endedAt)
		games = append(games, g)
	}
	return games, rows.Err()
}

func (s *SQLiteStore) ListGames(ctx context.Context) ([]game.Game, error) {
	return s.listGames(ctx, `
		SELECT id, name, status, created_at, started_at, ended_at
		FROM games ORDER BY created_at DESC, id
	`)
}

func (s *SQLiteStore) ListActiveGames(ctx context.Context) ([]game.Game, error) {
	return s.listGames(ctx, `
		SELECT id, name, status, created_at, started_at, ended_at
		FROM games WHERE status = 'active' ORDER BY created_at, id
	`)
}

func (s *SQLiteStore) CreateGame(ctx context.Context, name string) (game.Game, error) {
	g := game.Game{
		ID:        newID(),
		Name:      name,
		Status:    game.StatusScheduled,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games (id, name, status, created_at) VALUES (?, ?, ?, ?)
	`, g.ID, g.Name, g.Status, fmtTime(g.CreatedAt))
	if err != nil {
		return game.Game{}, err
	}
	return g, nil
}

func (s *SQLiteStore) DeleteGame(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return game.ErrNotFound
	}
	return nil
}

// statusTransition runs a conditional status update and maps a zero-row
// result to not-found or invalid-status.
func (s *SQLiteStore) statusTransition(ctx context.Context, tx *sql.Tx, id, query string, args ...any) error {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM games WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return game.ErrNotFound
		}
		if err != nil {
			return err
		}
		return game.ErrInvalidStatus
	}
	return nil
}

func (s *SQLiteStore) StartGame(ctx context.Context, id string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = s.statusTransition(ctx, tx, id, `
		UPDATE games SET status = 'active', started_at = ?
		WHERE id = ? AND status = 'scheduled'
	`, fmtTime(at), id)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// FinishGame flips the game to finished and, in the same transaction, appends
// one game_end event per still-controlled point carrying the final owner as
// acting user. Ownership rows are left in place as the final standing.
func (s *SQLiteStore) FinishGame(ctx context.Context, id string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = s.statusTransition(ctx, tx, id, `
		UPDATE games SET status = 'finished', ended_at = ?
		WHERE id = ? AND status = 'active'
	`, fmtTime(at), id)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO game_events (game_id, point_id, type, user_id, previous_owner_id, occurred_at)
		SELECT game_id, id, 'game_end', owner_id, NULL, ?
		FROM control_points
		WHERE game_id = ? AND owner_id IS NOT NULL
		ORDER BY created_at, id
	`, fmtTime(at), id)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) ResetGame(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE games SET status = 'scheduled', started_at = NULL, ended_at = NULL
		WHERE id = ?
	`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return game.ErrNotFound
	}

	for _, q := range []string{
		`DELETE FROM game_events WHERE game_id = ?`,
		`DELETE FROM game_scores WHERE game_id = ?`,
		`UPDATE control_points SET owner_id = NULL, status = 'inactive' WHERE game_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ControlPoint(ctx context.Context, id string) (game.ControlPoint, error) {
	var cp game.ControlPoint
	var owner sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, game_id, x, y, status, owner_id
		FROM control_points WHERE id = ?
	`, id).Scan(&cp.ID, &cp.GameID, &cp.X, &cp.Y, &cp.Status, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return game.ControlPoint{}, game.ErrNotFound
	}
	if err != nil {
		return game.ControlPoint{}, err
	}
	cp.OwnerID = nullStr(owner)
	return cp, nil
}

func (s *SQLiteStore) ListControlPoints(ctx context.Context, gameID string) ([]game.ControlPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, x, y, status, owner_id
		FROM control_points WHERE game_id = ?
		ORDER BY created_at, id
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []game.ControlPoint
	for rows.Next() {
		var cp game.ControlPoint
		var owner sql.NullString
		if err := rows.Scan(&cp.ID, &cp.GameID, &cp.X, &cp.Y, &cp.Status, &owner); err != nil {
			return nil, err
		}
		cp.OwnerID = nullStr(owner)
		points = append(points, cp)
	}
	return points, rows.Err()
}

// RecordCapture flips ownership and appends the capture event in one
// transaction. The status/owner pair is written in a single statement so the
// controlled-iff-owned invariant can never be observed broken, and a failed
// event insert rolls the ownership change back.
func (s *SQLiteStore) RecordCapture(ctx context.Context, pointID string, ev game.Event) (game.Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return game.Event{}, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE control_points
		SET owner_id = ?, status = CASE WHEN ? IS NULL THEN 'inactive' ELSE 'controlled' END
		WHERE id = ?
	`, ev.UserID, ev.UserID, pointID)
	if err != nil {
		return game.Event{}, err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return game.Event{}, game.ErrNotFound
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO game_events (game_id, point_id, type, user_id, previous_owner_id, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, ev.GameID, ev.PointID, ev.Type, ev.UserID, ev.PreviousOwnerID, fmtTime(ev.OccurredAt)).Scan(&ev.ID)
	if err != nil {
		return game.Event{}, err
	}
	if err := tx.Commit(); err != nil {
		return game.Event{}, err
	}
	return ev, nil
}

func (s *SQLiteStore) ToggleMarker(ctx context.Context, gameID string, x, y int, isControlPoint bool) error {
	if isControlPoint {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO control_points (id, game_id, x, y, status, created_at)
			VALUES (?, ?, ?, ?, 'inactive', ?)
			ON CONFLICT (game_id, x, y) DO NOTHING
		`, newID(), gameID, x, y, fmtTime(time.Now()))
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM control_points WHERE game_id = ? AND x = ? AND y = ?
	`, gameID, x, y)
	return err
}

func (s *SQLiteStore) DeleteControlPoint(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM control_points WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return game.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) IsParticipant(ctx context.Context, gameID, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM participants WHERE game_id = ? AND user_id = ?
	`, gameID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteStore) AddParticipant(ctx context.Context, gameID, userID string) error {
	if _, err := s.Game(ctx, gameID); err != nil {
		return err
	}
	if _, err := s.User(ctx, userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO participants (game_id, user_id, joined_at)
		VALUES (?, ?, ?)
	`, gameID, userID, fmtTime(time.Now()))
	return err
}

func (s *SQLiteStore) RemoveParticipant(ctx context.Context, gameID, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM participants WHERE game_id = ? AND user_id = ?
	`, gameID, userID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return game.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListParticipants(ctx context.Context, gameID string) ([]game.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.color_hex, u.code_hash
		FROM participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.game_id = ?
		ORDER BY p.joined_at, u.id
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []game.User
	for rows.Next() {
		var u game.User
		var hash string
		if err := rows.Scan(&u.ID, &u.Name, &u.ColorHex, &hash); err != nil {
			return nil, err
		}
		u.CodeHash = []byte(hash)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) User(ctx context.Context, id string) (game.User, error) {
	var u game.User
	var hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, color_hex, code_hash FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Name, &u.ColorHex, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return game.User{}, game.ErrNotFound
	}
	if err != nil {
		return game.User{}, err
	}
	u.CodeHash = []byte(hash)
	return u, nil
}

func (s *SQLiteStore) UsersByID(ctx context.Context, ids []string) (map[string]game.User, error) {
	out := make(map[string]game.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, name, color_hex, code_hash FROM users WHERE id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u game.User
		var hash string
		if err := rows.Scan(&u.ID, &u.Name, &u.ColorHex, &hash); err != nil {
			return nil, err
		}
		u.CodeHash = []byte(hash)
		out[u.ID] = u
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertUser(ctx context.Context, u game.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, color_hex, code_hash)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			color_hex = excluded.color_hex,
			code_hash = excluded.code_hash
	`, u.ID, u.Name, u.ColorHex, string(u.CodeHash))
	return err
}

func (s *SQLiteStore) ListEvents(ctx context.Context, gameID string) ([]game.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, point_id, type, user_id, previous_owner_id, occurred_at
		FROM game_events WHERE game_id = ?
		ORDER BY occurred_at, id
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []game.Event
	for rows.Next() {
		var ev game.Event
		var user, prev sql.NullString
		var occurredAt string
		if err := rows.Scan(&ev.ID, &ev.GameID, &ev.PointID, &ev.Type, &user, &prev, &occurredAt); err != nil {
			return nil, err
		}
		ev.UserID = nullStr(user)
		ev.PreviousOwnerID = nullStr(prev)
		ev.OccurredAt = parseTime(occurredAt)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// SaveScores upserts all of a game's score rows in one transaction, so a
// half-written snapshot is never observable.
func (s *SQLiteStore) SaveScores(ctx context.Context, gameID string, scores []game.UserScore, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, sc := range scores {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO game_scores (game_id, user_id, holding, bonus, total, computed_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (game_id, user_id) DO UPDATE SET
				holding = excluded.holding,
				bonus = excluded.bonus,
				total = excluded.total,
				computed_at = excluded.computed_at
		`, gameID, sc.UserID, sc.Holding, sc.Bonus, sc.Total, fmtTime(at))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) SavedScores(ctx context.Context, gameID string) ([]game.UserScore, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.user_id, COALESCE(u.name, ''), COALESCE(u.color_hex, ''), s.holding, s.bonus, s.total
		FROM game_scores s
		LEFT JOIN users u ON u.id = s.user_id
		WHERE s.game_id = ?
		ORDER BY s.user_id
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []game.UserScore
	for rows.Next() {
		var sc game.UserScore
		if err := rows.Scan(&sc.UserID, &sc.Name, &sc.ColorHex, &sc.Holding, &sc.Bonus, &sc.Total); err != nil {
			return nil, err
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

func (s *SQLiteStore) DeleteScores(ctx context.Context, gameID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM game_scores WHERE game_id = ?`, gameID)
	return err
}

func (s *SQLiteStore) ListAnnotations(ctx context.Context, gameID string) ([]game.MapAnnotation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, x, y, label, created_at
		FROM map_annotations WHERE game_id = ?
		ORDER BY created_at, id
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []game.MapAnnotation
	for rows.Next() {
		var a game.MapAnnotation
		var createdAt string
		if err := rows.Scan(&a.ID, &a.GameID, &a.X, &a.Y, &a.Label, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt = parseTime(createdAt)
		notes = append(notes, a)
	}
	return notes, rows.Err()
}

func (s *SQLiteStore) CreateAnnotation(ctx context.Context, gameID string, x, y int, label string) (game.MapAnnotation, error) {
	if _, err := s.Game(ctx, gameID); err != nil {
		return game.MapAnnotation{}, err
	}
	a := game.MapAnnotation{
		ID:        newID(),
		GameID:    gameID,
		X:         x,
		Y:         y,
		Label:     label,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO map_annotations (id, game_id, x, y, label, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.GameID, a.X, a.Y, a.Label, fmtTime(a.CreatedAt))
	if err != nil {
		return game.MapAnnotation{}, err
	}
	return a, nil
}

func (s *SQLiteStore) DeleteAnnotation(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM map_annotations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return game.ErrNotFound
	}
	return nil
}
