package flow

import (
	"context"
	"errors"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
)

// ErrUnsupported is returned by a handler verb the entity does not implement.
var ErrUnsupported = errors.New("action not supported")

// Verb names an optional handler capability.
type Verb string

const (
	VerbParseUpdate Verb = "parse-update"
	VerbEditFields  Verb = "edit-fields"
	VerbFindTarget  Verb = "find-target"
	VerbCreate      Verb = "create"
	VerbUpdate      Verb = "update"
	VerbRemove      Verb = "remove"
	VerbComplete    Verb = "complete"
	VerbView        Verb = "view"
	VerbList        Verb = "list"
	VerbSnooze      Verb = "snooze"
	VerbRestore     Verb = "restore"
)

// Handler is the capability set every entity kind exposes to the engine.
// The engine checks Supports before calling any optional verb; a handler asked for a
// verb it does not support returns ErrUnsupported.
type Handler interface {
	Entity() models.Entity
	// Label is the singular noun used in questions, e.g. "habit".
	Label() string
	Supports(v Verb) bool

	ParseInput(text string, uc models.UserContext) models.Data
	ParseUpdate(text string, uc models.UserContext) models.Data
	CreateFields(data models.Data, uc models.UserContext) []models.FlowField
	EditFields(target *models.TargetMatch, uc models.UserContext) []models.FlowField
	Summary(action models.Action, data models.Data, target *models.TargetMatch) string

	// FindTarget returns nil without error when nothing matches.
	FindTarget(ctx context.Context, name string, uc models.UserContext) (*models.TargetMatch, error)

	Create(ctx context.Context, data models.Data, uc models.UserContext) (models.ActionResult, error)
	// Update receives a nil target only for singleton entities.
	Update(ctx context.Context, target *models.TargetMatch, data models.Data, uc models.UserContext) (models.ActionResult, error)
	Remove(ctx context.Context, target models.TargetMatch, uc models.UserContext) (models.ActionResult, error)
	Complete(ctx context.Context, target models.TargetMatch, data models.Data, uc models.UserContext) (models.ActionResult, error)
	// View shows target, or lists everything when target is nil.
	View(ctx context.Context, target *models.TargetMatch, data models.Data, uc models.UserContext) (models.ActionResult, error)
	List(ctx context.Context, uc models.UserContext) (models.ActionResult, error)
	Snooze(ctx context.Context, target models.TargetMatch, minutes int, uc models.UserContext) (models.ActionResult, error)
	Restore(ctx context.Context, data models.Data, uc models.UserContext) (models.ActionResult, error)
}

// Exporter produces a metrics export for a user.
type Exporter interface {
	ExportMetrics(ctx context.Context, uc models.UserContext) (models.ActionResult, error)
}

// IDGenerator supplies identifiers for chat messages and quick replies.
type IDGenerator interface {
	NewID() string
}
