package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/store"
)

// sessionStore is the slice of store.Store the state manager needs.
type sessionStore interface {
	store.Sessions
	store.History
}

// StoreBasedStateManager implements StateManager using a Store backend.
type StoreBasedStateManager struct {
	store sessionStore
	now   func() time.Time
}

// NewStoreBasedStateManager creates a new StateManager backed by a Store.
func NewStoreBasedStateManager(st sessionStore) *StoreBasedStateManager {
	slog.Debug("Creating StoreBasedStateManager")
	return &StoreBasedStateManager{store: st, now: time.Now}
}

// GetSession retrieves the session state, defaulting to an empty one.
func (sm *StoreBasedStateManager) GetSession(ctx context.Context, sessionID string) (models.SessionState, error) {
	slog.Debug("StateManager GetSession", "sessionID", sessionID)

	st, err := sm.store.GetSession(ctx, sessionID)
	if err != nil {
		slog.Error("StateManager GetSession error", "error", err, "sessionID", sessionID)
		return models.SessionState{}, err
	}
	if st == nil {
		slog.Debug("StateManager GetSession not found, starting fresh", "sessionID", sessionID)
		return models.SessionState{SessionID: sessionID}, nil
	}

	if p := st.Session.Pending; p != nil && (!models.IsValidStage(p.Stage) || !models.IsValidEntity(p.Entity)) {
		slog.Warn("StateManager GetSession dropping unreadable pending flow", "sessionID", sessionID, "stage", p.Stage, "entity", p.Entity)
		st.Session.Pending = nil
	}

	slog.Debug("StateManager GetSession found", "sessionID", sessionID, "pending", st.Session.Pending != nil)
	return *st, nil
}

// SaveSession stores the session state.
func (sm *StoreBasedStateManager) SaveSession(ctx context.Context, st models.SessionState) error {
	now := sm.now()
	if st.CreatedAt.IsZero() {
		st.CreatedAt = now
	}
	st.UpdatedAt = now

	if err := sm.store.SaveSession(ctx, st); err != nil {
		slog.Error("StateManager SaveSession error", "error", err, "sessionID", st.SessionID)
		return err
	}

	var stage models.Stage
	if st.Session.Pending != nil {
		stage = st.Session.Pending.Stage
	}
	slog.Debug("StateManager SaveSession succeeded", "sessionID", st.SessionID, "stage", stage)
	return nil
}

// ResetSession removes the session and its history.
func (sm *StoreBasedStateManager) ResetSession(ctx context.Context, sessionID string) error {
	slog.Debug("StateManager ResetSession", "sessionID", sessionID)

	if err := sm.store.DeleteSession(ctx, sessionID); err != nil {
		slog.Error("StateManager ResetSession error", "error", err, "sessionID", sessionID)
		return err
	}
	if err := sm.store.DeleteMessages(ctx, sessionID); err != nil {
		slog.Error("StateManager ResetSession history error", "error", err, "sessionID", sessionID)
		return err
	}

	slog.Info("StateManager ResetSession succeeded", "sessionID", sessionID)
	return nil
}
