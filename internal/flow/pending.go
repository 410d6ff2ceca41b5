package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/textutil"
)

// abortWords end a flow when sent as the whole answer outside the confirm stage.
var abortWords = map[string]bool{"cancel": true, "stop": true, "never mind": true, "nevermind": true}

// handlePending resumes the session's in-flight flow.
func (e *Engine) handlePending(ctx context.Context, text string, s *models.Session, uc models.UserContext) (models.ActionResult, error) {
	p := s.Pending
	h, ok := e.handlers[p.Entity]
	if !ok {
		slog.Warn("Engine.handlePending: no handler for pending entity", "entity", p.Entity)
		s.Pending = nil
		return helpResult(), nil
	}
	slog.Debug("Engine.handlePending: resuming", "entity", p.Entity, "action", p.Action, "stage", p.Stage)

	if p.Stage != models.StageConfirm && abortWords[textutil.NormalizeText(text)] {
		s.Pending = nil
		return textResult(CanceledMessage), nil
	}

	switch p.Stage {
	case models.StageResolveTarget:
		return e.pendingResolveTarget(ctx, h, text, s, uc)
	case models.StageEditField:
		return e.pendingEditField(h, text, s, uc), nil
	case models.StageEditValue:
		return e.pendingEditValue(h, text, s), nil
	case models.StageCollect:
		return e.pendingCollect(h, text, s), nil
	case models.StageConfirm:
		return e.pendingConfirm(ctx, h, text, s, uc)
	default:
		slog.Warn("Engine.handlePending: unknown stage, clearing", "stage", p.Stage)
		s.Pending = nil
		return helpResult(), nil
	}
}

func (e *Engine) pendingResolveTarget(ctx context.Context, h Handler, text string, s *models.Session, uc models.UserContext) (models.ActionResult, error) {
	p := s.Pending

	var target *models.TargetMatch
	if p.Action == models.ActionComplete && p.Entity == models.EntityHabit && isAllHabits(text) {
		target = allHabitsTarget()
	} else if h.Supports(VerbFindTarget) {
		var err error
		target, err = h.FindTarget(ctx, text, uc)
		if err != nil {
			return models.ActionResult{}, fmt.Errorf("find %s %q: %w", h.Entity(), text, err)
		}
	}
	if target == nil {
		return textResult(fmt.Sprintf("I couldn't find that %s. %s", h.Label(), targetQuestion(h, p.Action))), nil
	}

	p.Target = target
	switch p.Action {
	case models.ActionEdit:
		s.Pending = nil
		return e.editTarget(h, "", target, s, uc), nil
	case models.ActionDelete, models.ActionComplete:
		p.Stage = models.StageConfirm
		return confirmResult(h.Summary(p.Action, p.Data, target)), nil
	case models.ActionSnooze:
		return enterSnoozeCollect(p), nil
	default:
		s.Pending = nil
		return unsupportedResult(), nil
	}
}

func (e *Engine) pendingEditField(h Handler, text string, s *models.Session, uc models.UserContext) models.ActionResult {
	p := s.Pending
	if field, ok := matchField(p.Fields, text); ok {
		p.Stage = models.StageEditValue
		p.EditFieldKey = field.Key
		return askField(p, field)
	}

	if h.Supports(VerbParseUpdate) {
		if updates := h.ParseUpdate(text, uc); len(updates) > 0 {
			p.Data = p.Data.Merge(updates)
			p.Stage = models.StageConfirm
			return confirmResult(h.Summary(models.ActionEdit, p.Data, p.Target))
		}
	}
	return models.ActionResult{Message: EditFieldPrompt, Actions: buildFieldChoices(p.Fields)}
}

// matchField picks the field named by reply: its key or label, or a word of its question.
func matchField(fields []models.FlowField, reply string) (models.FlowField, bool) {
	n := textutil.NormalizeText(reply)
	if n == "" {
		return models.FlowField{}, false
	}
	for _, f := range fields {
		if textutil.NormalizeText(f.Key) == n || textutil.NormalizeText(f.DisplayLabel()) == n {
			return f, true
		}
	}
	for _, f := range fields {
		if textutil.ContainsWord(textutil.NormalizeText(f.Question), n) {
			return f, true
		}
	}
	return models.FlowField{}, false
}

func (e *Engine) pendingEditValue(h Handler, text string, s *models.Session) models.ActionResult {
	p := s.Pending
	field := models.FlowField{Key: p.EditFieldKey, Question: fmt.Sprintf("What should the new %s be?", p.EditFieldKey)}
	for _, f := range p.Fields {
		if f.Key == p.EditFieldKey {
			field = f
			break
		}
	}

	current := p.Data
	if p.Target != nil {
		current = p.Target.Item.Merge(p.Data)
	}
	update := ApplyField(field, text, current, e.now())
	if len(update) == 0 {
		return reaskField(p, field)
	}
	p.Data = p.Data.Merge(update)
	p.Stage = models.StageConfirm
	return confirmResult(h.Summary(models.ActionEdit, p.Data, p.Target))
}

func (e *Engine) pendingCollect(h Handler, text string, s *models.Session) models.ActionResult {
	p := s.Pending
	if p.FieldIndex < 0 || p.FieldIndex >= len(p.Fields) {
		slog.Warn("Engine.pendingCollect: field index out of range, clearing", "index", p.FieldIndex, "fields", len(p.Fields))
		s.Pending = nil
		return helpResult()
	}
	field := p.Fields[p.FieldIndex]

	update := ApplyField(field, text, p.Data, e.now())
	merged := p.Data.Merge(update)
	if len(update) == 0 || merged.IsMissing(field.Key) {
		return reaskField(p, field)
	}
	p.Data = merged

	if idx, ok := findNextMissingField(p.Fields, p.Data); ok {
		p.FieldIndex = idx
		return askField(p, p.Fields[idx])
	}

	p.Stage = models.StageConfirm
	if p.Action == models.ActionSnooze && p.Target != nil {
		minutes, _ := p.Data.Int("minutes")
		return confirmResult(fmt.Sprintf("Snooze %s for %d minutes?", p.Target.Name, minutes))
	}
	return confirmResult(h.Summary(p.Action, p.Data, p.Target))
}

func (e *Engine) pendingConfirm(ctx context.Context, h Handler, text string, s *models.Session, uc models.UserContext) (models.ActionResult, error) {
	n := textutil.NormalizeText(text)
	answer, ok := textutil.ParseYesNo(text)
	if (ok && !answer) || strings.Contains(n, "cancel") {
		slog.Info("Engine.pendingConfirm: canceled", "entity", s.Pending.Entity, "action", s.Pending.Action)
		s.Pending = nil
		return textResult(CanceledMessage), nil
	}
	if !ok && !strings.Contains(n, "confirm") && !strings.Contains(n, "yes") {
		return models.ActionResult{Message: ConfirmPrompt, Actions: buildConfirmActions()}, nil
	}
	return e.execute(ctx, h, s, uc)
}
