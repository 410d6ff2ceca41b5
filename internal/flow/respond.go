package flow

import (
	"fmt"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
)

// Canned replies.
const (
	HelpMessage = "I can help you manage habits, reminders, tasks, protocols, notes, schedule events, " +
		"courses, journal entries, metrics, library items, contacts, achievements and settings. " +
		"Try \"create habit\", \"remind me to call mom at 5pm\" or \"show my tasks\"."
	UnsupportedMessage  = "That action is not supported yet."
	CanceledMessage     = "Okay, canceled."
	ConfirmPrompt       = "Please confirm yes or no."
	NothingToUndo       = "There's nothing to undo right now."
	DidNotCatchPrefix   = "Sorry, I didn't catch that. "
	EditFieldPrompt     = "Tell me what to update, for example the name or the time."
	ExportStarted       = "Exporting your metrics now. The file will be ready in a moment."
	ExportSignIn        = "Please sign in to export your metrics."
	ExportUnavailable   = "Metrics export isn't available right now."
	DefaultShareLink    = "https://lifetracker.app"
	ShareMessagePattern = "Share LifeTracker with a friend: %s"
)

// buildQuestion prefixes a field's question with its step number.
func buildQuestion(field models.FlowField, step int) string {
	return fmt.Sprintf("Step %d. %s", step, field.Question)
}

// buildOptions maps a field's suggestions to quick replies, or nil when there are none.
func buildOptions(field models.FlowField) []models.ChatAction {
	if len(field.Options) == 0 {
		return nil
	}
	actions := make([]models.ChatAction, 0, len(field.Options))
	for _, opt := range field.Options {
		actions = append(actions, models.ChatAction{
			Label:   opt,
			Value:   opt,
			Kind:    models.ActionKindReply,
			Variant: models.VariantSecondary,
		})
	}
	return actions
}

// buildConfirmActions returns the fixed Yes/Cancel pair.
func buildConfirmActions() []models.ChatAction {
	return []models.ChatAction{
		{Label: "Yes, confirm", Value: "yes", Kind: models.ActionKindConfirm, Variant: models.VariantPrimary},
		{Label: "Cancel", Value: "cancel", Kind: models.ActionKindCancel, Variant: models.VariantDanger},
	}
}

// buildFieldChoices offers each editable field as a quick reply labeled by the field.
func buildFieldChoices(fields []models.FlowField) []models.ChatAction {
	actions := make([]models.ChatAction, 0, len(fields))
	for _, f := range fields {
		actions = append(actions, models.ChatAction{
			Label:   f.DisplayLabel(),
			Value:   f.Key,
			Kind:    models.ActionKindReply,
			Variant: models.VariantSecondary,
		})
	}
	return actions
}

// findNextMissingField returns the index of the first required field without a value.
func findNextMissingField(fields []models.FlowField, data models.Data) (int, bool) {
	for i, f := range fields {
		if f.Optional {
			continue
		}
		if data.IsMissing(f.Key) {
			return i, true
		}
	}
	return 0, false
}

func textResult(msg string) models.ActionResult {
	return models.ActionResult{Message: msg}
}

func helpResult() models.ActionResult {
	return textResult(HelpMessage)
}

func unsupportedResult() models.ActionResult {
	return textResult(UnsupportedMessage)
}

func confirmResult(summary string) models.ActionResult {
	return models.ActionResult{Message: summary, Actions: buildConfirmActions()}
}

// askField records one more question on the flow and renders it.
func askField(p *models.PendingFlow, field models.FlowField) models.ActionResult {
	p.Step++
	return models.ActionResult{Message: buildQuestion(field, p.Step), Actions: buildOptions(field)}
}

// reaskField repeats the current question without counting a new step.
func reaskField(p *models.PendingFlow, field models.FlowField) models.ActionResult {
	step := p.Step
	if step == 0 {
		step = 1
	}
	return models.ActionResult{Message: DidNotCatchPrefix + buildQuestion(field, step), Actions: buildOptions(field)}
}
