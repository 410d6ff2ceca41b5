package flow

import (
	"context"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
)

// StateManager loads and stores the conversational memory of each session.
type StateManager interface {
	// GetSession returns the stored state, or a fresh empty state when the session
	// has never been seen.
	GetSession(ctx context.Context, sessionID string) (models.SessionState, error)

	// SaveSession persists st, stamping its timestamps.
	SaveSession(ctx context.Context, st models.SessionState) error

	// ResetSession forgets the session and its chat history.
	ResetSession(ctx context.Context, sessionID string) error
}
