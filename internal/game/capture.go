package game

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Capture runs one capture attempt against a control point. Checks run in
// order: point exists, actor is on the roster and the game is active, the
// numeric presence code matches, and the point is not already the actor's.
// On success exactly one capture event is appended; on failure none.
//
// Captures of the same point are serialized through a per-point mutex, so a
// concurrent second attempt is evaluated against the first one's ownership.
func (e *Engine) Capture(ctx context.Context, pointID, userID, code string) (CaptureResult, error) {
	lock := e.pointLock(pointID)
	lock.Lock()
	defer lock.Unlock()

	cp, err := e.store.ControlPoint(ctx, pointID)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("loading control point: %w", err)
	}

	g, err := e.store.Game(ctx, cp.GameID)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("loading game: %w", err)
	}
	if g.Status != StatusActive {
		return CaptureResult{}, ErrGameNotActive
	}

	ok, err := e.store.IsParticipant(ctx, cp.GameID, userID)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("checking roster: %w", err)
	}
	if !ok {
		return CaptureResult{}, ErrNotParticipant
	}

	u, err := e.store.User(ctx, userID)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("loading user: %w", err)
	}
	if bcrypt.CompareHashAndPassword(u.CodeHash, []byte(code)) != nil {
		return CaptureResult{}, ErrWrongCode
	}

	if cp.OwnerID != nil && *cp.OwnerID == userID {
		return CaptureResult{}, ErrAlreadyOwner
	}

	prev := cp.OwnerID
	now := e.now().UTC()
	_, err = e.store.RecordCapture(ctx, pointID, Event{
		GameID:          cp.GameID,
		PointID:         pointID,
		Type:            EventCapture,
		UserID:          &userID,
		PreviousOwnerID: prev,
		OccurredAt:      now,
	})
	if err != nil {
		return CaptureResult{}, fmt.Errorf("recording capture: %w", err)
	}

	e.logger.Info("control point captured",
		"game", cp.GameID, "point", pointID, "user", userID)

	return CaptureResult{
		PointID:       pointID,
		GameID:        cp.GameID,
		UserID:        userID,
		PreviousOwner: prev,
		OccurredAt:    now,
	}, nil
}
