package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/textutil"
)

// startCreate asks for the first unanswered required field, or goes straight to
// confirmation when the utterance already supplied everything.
func (e *Engine) startCreate(h Handler, data models.Data, s *models.Session, uc models.UserContext) (models.ActionResult, error) {
	fields := h.CreateFields(data, uc)
	p := &models.PendingFlow{
		Action: models.ActionCreate,
		Entity: h.Entity(),
		Data:   data,
		Fields: fields,
	}
	s.Pending = p

	if idx, ok := findNextMissingField(fields, data); ok {
		p.Stage = models.StageCollect
		p.FieldIndex = idx
		slog.Debug("Engine.startCreate: collecting", "entity", p.Entity, "field", fields[idx].Key)
		return askField(p, fields[idx]), nil
	}

	p.Stage = models.StageConfirm
	return confirmResult(h.Summary(models.ActionCreate, data, nil)), nil
}

// startEdit resolves the target, then either confirms the changes found in the
// utterance or offers a field picker. Settings has no target and edits in place.
func (e *Engine) startEdit(ctx context.Context, h Handler, text string, data models.Data, s *models.Session, uc models.UserContext) (models.ActionResult, error) {
	if !h.Supports(VerbUpdate) {
		s.Pending = nil
		return unsupportedResult(), nil
	}
	if h.Entity() == models.EntitySettings {
		p := &models.PendingFlow{Action: models.ActionEdit, Entity: h.Entity(), Data: data}
		s.Pending = p
		if len(data) == 0 {
			p.Fields = h.CreateFields(data, uc)
			if len(p.Fields) == 0 {
				s.Pending = nil
				return unsupportedResult(), nil
			}
			p.Stage = models.StageCollect
			p.FieldIndex = 0
			return askField(p, p.Fields[0]), nil
		}
		p.Stage = models.StageConfirm
		return confirmResult(h.Summary(models.ActionEdit, data, nil)), nil
	}

	target, err := e.resolveTarget(ctx, h, data, s, uc, true)
	if err != nil {
		return models.ActionResult{}, err
	}
	if target == nil {
		s.Pending = &models.PendingFlow{
			Action: models.ActionEdit,
			Entity: h.Entity(),
			Stage:  models.StageResolveTarget,
			Data:   models.Data{},
		}
		return textResult(targetQuestion(h, models.ActionEdit)), nil
	}
	return e.editTarget(h, textutil.RemoveFold(text, target.Name), target, s, uc), nil
}

// editTarget continues an edit once the target is known. Changes are read from text;
// an empty text goes straight to the field picker.
func (e *Engine) editTarget(h Handler, text string, target *models.TargetMatch, s *models.Session, uc models.UserContext) models.ActionResult {
	if !h.Supports(VerbUpdate) {
		s.Pending = nil
		return unsupportedResult()
	}
	p := &models.PendingFlow{
		Action: models.ActionEdit,
		Entity: h.Entity(),
		Data:   models.Data{},
		Target: target,
	}
	s.Pending = p

	if text != "" && h.Supports(VerbParseUpdate) {
		if updates := h.ParseUpdate(text, uc); len(updates) > 0 {
			p.Data = updates
			p.Stage = models.StageConfirm
			return confirmResult(h.Summary(models.ActionEdit, updates, target))
		}
	}

	p.Fields = editFields(h, target, uc)
	p.Stage = models.StageEditField
	return models.ActionResult{
		Message: fmt.Sprintf("What would you like to change about %s?", target.Name),
		Actions: buildFieldChoices(p.Fields),
	}
}

func editFields(h Handler, target *models.TargetMatch, uc models.UserContext) []models.FlowField {
	if h.Supports(VerbEditFields) {
		if fields := h.EditFields(target, uc); len(fields) > 0 {
			return fields
		}
	}
	return DefaultEditFields()
}

// startTargeted begins a delete or complete flow.
func (e *Engine) startTargeted(ctx context.Context, h Handler, action models.Action, text string, data models.Data, s *models.Session, uc models.UserContext) (models.ActionResult, error) {
	var target *models.TargetMatch
	if action == models.ActionComplete && h.Entity() == models.EntityHabit && isAllHabits(text) {
		target = allHabitsTarget()
	} else {
		var err error
		target, err = e.resolveTarget(ctx, h, data, s, uc, true)
		if err != nil {
			return models.ActionResult{}, err
		}
	}

	p := &models.PendingFlow{Action: action, Entity: h.Entity(), Data: data}
	s.Pending = p
	if target == nil {
		p.Stage = models.StageResolveTarget
		return textResult(targetQuestion(h, action)), nil
	}
	p.Target = target
	p.Stage = models.StageConfirm
	return confirmResult(h.Summary(action, data, target)), nil
}

// startView is one-shot: no pending flow is created.
func (e *Engine) startView(ctx context.Context, h Handler, data models.Data, s *models.Session, uc models.UserContext) (models.ActionResult, error) {
	var res models.ActionResult
	switch {
	case h.Supports(VerbView):
		target, err := e.resolveTarget(ctx, h, data, s, uc, false)
		if err != nil {
			return models.ActionResult{}, err
		}
		res, err = h.View(ctx, target, data, uc)
		if err != nil {
			return models.ActionResult{}, fmt.Errorf("view %s: %w", h.Entity(), err)
		}
	case h.Supports(VerbList):
		var err error
		res, err = h.List(ctx, uc)
		if err != nil {
			return models.ActionResult{}, fmt.Errorf("list %s: %w", h.Entity(), err)
		}
	default:
		return helpResult(), nil
	}
	if res.Entity != nil {
		s.LastEntity = res.Entity
	}
	return res, nil
}

func (e *Engine) startSnooze(ctx context.Context, h Handler, data models.Data, s *models.Session, uc models.UserContext) (models.ActionResult, error) {
	if !h.Supports(VerbSnooze) {
		return unsupportedResult(), nil
	}
	target, err := e.resolveTarget(ctx, h, data, s, uc, true)
	if err != nil {
		return models.ActionResult{}, err
	}
	p := &models.PendingFlow{Action: models.ActionSnooze, Entity: h.Entity(), Data: models.Data{}}
	s.Pending = p
	if target == nil {
		p.Stage = models.StageResolveTarget
		return textResult(targetQuestion(h, models.ActionSnooze)), nil
	}
	p.Target = target
	return enterSnoozeCollect(p), nil
}

// enterSnoozeCollect asks the single minutes question.
func enterSnoozeCollect(p *models.PendingFlow) models.ActionResult {
	field := MinutesField()
	p.Fields = []models.FlowField{field}
	p.FieldIndex = 0
	p.Stage = models.StageCollect
	return askField(p, field)
}

func targetQuestion(h Handler, action models.Action) string {
	verb := string(action)
	if action == models.ActionEdit {
		verb = "update"
	}
	return fmt.Sprintf("Which %s should I %s?", h.Label(), verb)
}

// allHabitsFiller are the only words allowed around "all", "todays" or "every"
// in a request to complete every habit.
var allHabitsFiller = map[string]bool{
	"complete": true, "completed": true, "mark": true, "marked": true, "done": true,
	"finish": true, "finished": true, "check": true, "off": true, "tick": true,
	"habit": true, "habits": true, "my": true, "of": true, "the": true, "them": true,
	"as": true, "for": true, "today": true, "please": true, "i": true, "did": true,
}

// isAllHabits reports whether text asks for all of today's habits rather than
// naming one, so "walk all dogs" stays a habit name.
func isAllHabits(text string) bool {
	quantified := false
	for _, w := range strings.Fields(textutil.NormalizeText(text)) {
		switch {
		case w == "all" || w == "todays" || w == "every":
			quantified = true
		case !allHabitsFiller[w]:
			return false
		}
	}
	return quantified
}

func allHabitsTarget() *models.TargetMatch {
	return &models.TargetMatch{ID: models.AllTargetID, Name: "All habits"}
}
