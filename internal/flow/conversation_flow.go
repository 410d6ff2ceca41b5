package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/store"
)

// ConversationFlow hosts the engine for persistent sessions: it loads the session,
// runs one turn and stores the outcome. Turns on the same session are serialized;
// different sessions run concurrently.
type ConversationFlow struct {
	engine       *Engine
	stateManager StateManager
	history      store.History
	ids          IDGenerator
	now          func() time.Time

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewConversationFlow creates a new conversation flow with dependencies.
// A nil history disables transcript storage.
func NewConversationFlow(engine *Engine, stateManager StateManager, history store.History) *ConversationFlow {
	slog.Debug("ConversationFlow.NewConversationFlow: creating flow", "hasHistory", history != nil)
	return &ConversationFlow{
		engine:       engine,
		stateManager: stateManager,
		history:      history,
		ids:          engine.ids,
		now:          engine.now,
		locks:        make(map[string]*sessionLock),
	}
}

// Engine returns the dialogue engine driven by this flow.
func (f *ConversationFlow) Engine() *Engine {
	return f.engine
}

// Process runs one user turn for sessionID and returns the assistant's messages.
// The session and transcript are only written when the turn succeeds.
func (f *ConversationFlow) Process(ctx context.Context, sessionID string, uc models.UserContext, text string) ([]models.ChatMessage, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	unlock := f.lock(sessionID)
	defer unlock()

	slog.Debug("ConversationFlow.Process: turn started", "sessionID", sessionID, "userID", uc.UserID)

	st, err := f.stateManager.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	userMsg := models.ChatMessage{
		ID:        f.ids.NewID(),
		Role:      models.RoleUser,
		Text:      text,
		CreatedAt: f.now(),
	}

	reply, err := f.engine.HandleInput(ctx, text, st.Session, uc)
	if err != nil {
		slog.Error("ConversationFlow.Process: turn failed, session left unchanged", "sessionID", sessionID, "error", err)
		return nil, err
	}

	st.SessionID = sessionID
	if uc.UserID != "" {
		st.UserID = uc.UserID
	}
	st.Session = reply.Session
	if err := f.stateManager.SaveSession(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	if f.history != nil {
		transcript := append([]models.ChatMessage{userMsg}, reply.Messages...)
		if err := f.history.AppendMessages(ctx, sessionID, transcript); err != nil {
			// The session already moved on; a missing transcript line is not worth failing the turn.
			slog.Error("ConversationFlow.Process: failed to append history", "sessionID", sessionID, "error", err)
		}
	}

	slog.Debug("ConversationFlow.Process: turn finished", "sessionID", sessionID, "messages", len(reply.Messages), "pending", reply.Session.Pending != nil)
	return reply.Messages, nil
}

// History returns up to limit of the session's most recent messages, oldest first.
func (f *ConversationFlow) History(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	if f.history == nil {
		return nil, nil
	}
	return f.history.ListMessages(ctx, sessionID, limit)
}

// Session returns the stored state of sessionID.
func (f *ConversationFlow) Session(ctx context.Context, sessionID string) (models.SessionState, error) {
	return f.stateManager.GetSession(ctx, sessionID)
}

// Reset forgets the session's pending flow, memory and transcript.
func (f *ConversationFlow) Reset(ctx context.Context, sessionID string) error {
	unlock := f.lock(sessionID)
	defer unlock()
	return f.stateManager.ResetSession(ctx, sessionID)
}

// lock acquires the per-session mutex and returns its release function. Entries are
// dropped once no turn holds or waits for them.
func (f *ConversationFlow) lock(sessionID string) func() {
	f.mu.Lock()
	l, ok := f.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		f.locks[sessionID] = l
	}
	l.refs++
	f.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		f.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(f.locks, sessionID)
		}
		f.mu.Unlock()
	}
}
