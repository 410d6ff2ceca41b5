package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
)

// execute runs the confirmed flow and folds the result into the session. The
// pending flow is cleared whatever the handler answers; collaborator errors are
// returned so the caller can keep the pre-turn session.
func (e *Engine) execute(ctx context.Context, h Handler, s *models.Session, uc models.UserContext) (models.ActionResult, error) {
	p := s.Pending
	res, err := e.dispatch(ctx, h, p, uc)
	if errors.Is(err, ErrUnsupported) {
		res, err = unsupportedResult(), nil
	}
	if err != nil {
		return models.ActionResult{}, fmt.Errorf("%s %s: %w", p.Action, p.Entity, err)
	}

	slog.Info("Engine.execute: action completed", "entity", p.Entity, "action", p.Action, "userID", uc.UserID)
	s.Pending = nil
	if res.Entity != nil {
		s.LastEntity = res.Entity
	}
	if res.Deleted != nil {
		s.LastDeleted = res.Deleted
	}
	return res, nil
}

func (e *Engine) dispatch(ctx context.Context, h Handler, p *models.PendingFlow, uc models.UserContext) (models.ActionResult, error) {
	switch p.Action {
	case models.ActionCreate:
		if !h.Supports(VerbCreate) {
			return unsupportedResult(), nil
		}
		return h.Create(ctx, p.Data, uc)
	case models.ActionEdit:
		if !h.Supports(VerbUpdate) || (p.Target == nil && h.Entity() != models.EntitySettings) {
			return unsupportedResult(), nil
		}
		return h.Update(ctx, p.Target, p.Data, uc)
	case models.ActionDelete:
		if !h.Supports(VerbRemove) || p.Target == nil {
			return unsupportedResult(), nil
		}
		return h.Remove(ctx, *p.Target, uc)
	case models.ActionComplete:
		if !h.Supports(VerbComplete) || p.Target == nil {
			return unsupportedResult(), nil
		}
		return h.Complete(ctx, *p.Target, p.Data, uc)
	case models.ActionSnooze:
		if !h.Supports(VerbSnooze) || p.Target == nil {
			return unsupportedResult(), nil
		}
		minutes, ok := p.Data.Int("minutes")
		if !ok || minutes <= 0 {
			minutes = DefaultSnoozeMinutes
		}
		return h.Snooze(ctx, *p.Target, minutes, uc)
	default:
		return unsupportedResult(), nil
	}
}
