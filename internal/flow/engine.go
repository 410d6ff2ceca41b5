package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/intent"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/util"
)

// EngineOpts holds configuration for an Engine.
type EngineOpts struct {
	IDs       IDGenerator
	Clock     func() time.Time
	Exporter  Exporter
	ShareLink string
}

// EngineOption defines a configuration option for the Engine.
type EngineOption func(*EngineOpts)

// WithIDGenerator sets the generator used for message and quick reply IDs.
func WithIDGenerator(ids IDGenerator) EngineOption {
	return func(o *EngineOpts) {
		o.IDs = ids
	}
}

// WithClock sets the time source for message timestamps and date parsing.
func WithClock(clock func() time.Time) EngineOption {
	return func(o *EngineOpts) {
		o.Clock = clock
	}
}

// WithExporter sets the collaborator triggered by the export action.
func WithExporter(exp Exporter) EngineOption {
	return func(o *EngineOpts) {
		o.Exporter = exp
	}
}

// WithShareLink sets the link offered by the share action.
func WithShareLink(link string) EngineOption {
	return func(o *EngineOpts) {
		o.ShareLink = link
	}
}

// Reply is the outcome of one turn.
type Reply struct {
	Messages []models.ChatMessage `json:"messages"`
	Session  models.Session       `json:"session"`
}

// Engine drives the per-session dialogue state machine. It keeps no state between
// calls: every turn receives a session and returns the next one.
type Engine struct {
	handlers  map[models.Entity]Handler
	detector  *intent.Detector
	ids       IDGenerator
	now       func() time.Time
	exporter  Exporter
	shareLink string
}

// NewEngine creates an Engine dispatching to the given handlers.
func NewEngine(handlers []Handler, opts ...EngineOption) *Engine {
	cfg := EngineOpts{
		IDs:       util.NewUUIDGenerator(),
		Clock:     time.Now,
		ShareLink: DefaultShareLink,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	byEntity := make(map[models.Entity]Handler, len(handlers))
	for _, h := range handlers {
		byEntity[h.Entity()] = h
	}
	slog.Debug("Engine.NewEngine: handlers registered", "count", len(byEntity))

	return &Engine{
		handlers:  byEntity,
		detector:  intent.NewDetector(),
		ids:       cfg.IDs,
		now:       cfg.Clock,
		exporter:  cfg.Exporter,
		shareLink: cfg.ShareLink,
	}
}

// Handler returns the handler registered for entity.
func (e *Engine) Handler(entity models.Entity) (Handler, bool) {
	h, ok := e.handlers[entity]
	return h, ok
}

// HandleInput processes one user utterance against session. The caller's session is
// never modified; on error the caller should keep it as the current state.
func (e *Engine) HandleInput(ctx context.Context, text string, session models.Session, uc models.UserContext) (Reply, error) {
	s := session.Clone()
	text = strings.TrimSpace(text)

	res, err := e.turn(ctx, text, &s, uc)
	if err != nil {
		slog.Error("Engine.HandleInput: turn failed", "userID", uc.UserID, "error", err)
		return Reply{}, err
	}
	return Reply{Messages: e.toMessages(res), Session: s}, nil
}

func (e *Engine) turn(ctx context.Context, text string, s *models.Session, uc models.UserContext) (models.ActionResult, error) {
	if intent.IsUndo(text) && s.LastDeleted != nil {
		if h, ok := e.handlers[s.LastDeleted.Type]; ok && h.Supports(VerbRestore) {
			return e.undo(ctx, h, s, uc)
		}
	}

	if s.Pending != nil {
		return e.handlePending(ctx, text, s, uc)
	}

	in, ok := e.detector.Detect(text)
	if !ok {
		if intent.IsUndo(text) {
			return textResult(NothingToUndo), nil
		}
		return helpResult(), nil
	}

	h, ok := e.handlers[in.Entity]
	if !ok {
		slog.Warn("Engine.turn: no handler registered", "entity", in.Entity)
		return helpResult(), nil
	}

	data := h.ParseInput(text, uc)
	if data == nil {
		data = models.Data{}
	}
	slog.Debug("Engine.turn: dispatching", "action", in.Action, "entity", in.Entity, "fields", len(data))

	switch in.Action {
	case models.ActionCreate:
		return e.startCreate(h, data, s, uc)
	case models.ActionEdit, models.ActionUpdate:
		return e.startEdit(ctx, h, text, data, s, uc)
	case models.ActionDelete:
		return e.startTargeted(ctx, h, models.ActionDelete, text, data, s, uc)
	case models.ActionComplete, models.ActionEnroll:
		return e.startTargeted(ctx, h, models.ActionComplete, text, data, s, uc)
	case models.ActionView, models.ActionProgress:
		return e.startView(ctx, h, data, s, uc)
	case models.ActionSnooze:
		return e.startSnooze(ctx, h, data, s, uc)
	case models.ActionExport:
		return e.startExport(ctx, uc), nil
	case models.ActionShare:
		return e.shareResult(), nil
	default:
		return helpResult(), nil
	}
}

func (e *Engine) undo(ctx context.Context, h Handler, s *models.Session, uc models.UserContext) (models.ActionResult, error) {
	res, err := h.Restore(ctx, s.LastDeleted.Data, uc)
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("restore %s: %w", s.LastDeleted.Type, err)
	}
	slog.Info("Engine.undo: restored", "entity", s.LastDeleted.Type, "userID", uc.UserID)
	s.LastDeleted = nil
	if res.Entity != nil {
		s.LastEntity = res.Entity
	}
	return res, nil
}

func (e *Engine) startExport(ctx context.Context, uc models.UserContext) models.ActionResult {
	if e.exporter == nil {
		return textResult(ExportUnavailable)
	}
	if uc.UserID == "" {
		return textResult(ExportSignIn)
	}
	exportCtx := context.WithoutCancel(ctx)
	go func() {
		res, err := e.exporter.ExportMetrics(exportCtx, uc)
		if err != nil {
			slog.Error("Engine.startExport: export failed", "userID", uc.UserID, "error", err)
			return
		}
		slog.Info("Engine.startExport: export finished", "userID", uc.UserID, "message", res.Message)
	}()
	return textResult(ExportStarted)
}

func (e *Engine) shareResult() models.ActionResult {
	return models.ActionResult{
		Message: fmt.Sprintf(ShareMessagePattern, e.shareLink),
		Actions: []models.ChatAction{{
			Label:   "Copy link",
			Value:   e.shareLink,
			Kind:    models.ActionKindReply,
			Variant: models.VariantPrimary,
		}},
	}
}

// toMessages renders a result as assistant messages; a follow-up becomes a second message.
func (e *Engine) toMessages(res models.ActionResult) []models.ChatMessage {
	now := e.now()
	actions := make([]models.ChatAction, len(res.Actions))
	for i, a := range res.Actions {
		if a.ID == "" {
			a.ID = e.ids.NewID()
		}
		actions[i] = a
	}
	if len(actions) == 0 {
		actions = nil
	}

	msgs := []models.ChatMessage{{
		ID:        e.ids.NewID(),
		Role:      models.RoleAssistant,
		Text:      res.Message,
		CreatedAt: now,
		Actions:   actions,
	}}
	if res.FollowUp != "" {
		msgs = append(msgs, models.ChatMessage{
			ID:        e.ids.NewID(),
			Role:      models.RoleAssistant,
			Text:      res.FollowUp,
			CreatedAt: now,
		})
	}
	return msgs
}
