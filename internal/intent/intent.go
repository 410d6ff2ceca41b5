// Package intent classifies a chat utterance into an (action, entity) pair using
// fixed keyword tables. Matching is substring based on normalized text; table order
// decides between competing actions and the first-scored entity wins ties.
package intent

import (
	"log/slog"
	"strings"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/textutil"
)

// Intent is a recognized request. Action is always set when Detect succeeds.
type Intent struct {
	Action models.Action
	Entity models.Entity
}

// KeywordSet pairs an action or entity with the phrases that signal it.
type KeywordSet[T ~string] struct {
	Key      T
	Keywords []string
}

// DefaultActions is the ordered action table. Earlier rows win.
var DefaultActions = []KeywordSet[models.Action]{
	{models.ActionCreate, []string{"create", "add", "new", "make", "set up", "setup", "start", "remind me", "schedule", "log", "track", "plan", "record", "write"}},
	{models.ActionEdit, []string{"edit", "change", "update", "modify", "rename", "move", "reschedule", "adjust", "switch", "turn on", "turn off"}},
	{models.ActionComplete, []string{"complete", "completed", "done", "finish", "finished", "check off", "mark as", "tick"}},
	{models.ActionDelete, []string{"delete", "remove", "cancel", "drop", "erase", "get rid of"}},
	{models.ActionView, []string{"show", "view", "list", "see", "display", "open", "find", "search", "what are", "what is"}},
	{models.ActionSnooze, []string{"snooze", "postpone", "later", "delay"}},
	{models.ActionExport, []string{"export", "download"}},
	{models.ActionShare, []string{"share", "invite"}},
	{models.ActionEnroll, []string{"enroll", "join", "sign up", "register"}},
	{models.ActionProgress, []string{"progress", "stats", "streak", "how am i doing"}},
	{models.ActionUpdate, []string{"update", "refresh"}},
}

// DefaultEntities is the entity keyword table in scoring order.
var DefaultEntities = []KeywordSet[models.Entity]{
	{models.EntityHabit, []string{"habit", "habits"}},
	{models.EntityReminder, []string{"reminder", "remind", "alert", "alarm", "notify me"}},
	{models.EntityTask, []string{"task", "todo", "to do", "chore", "errand", "buy"}},
	{models.EntityProtocol, []string{"protocol", "routine", "morning routine", "ritual", "sequence", "steps"}},
	{models.EntityKnowledge, []string{"note", "notes", "knowledge", "idea", "jot", "write down"}},
	{models.EntitySchedule, []string{"schedule", "event", "meeting", "appointment", "calendar"}},
	{models.EntityAcademy, []string{"academy", "course", "lesson", "class", "module"}},
	{models.EntityRecall, []string{"recall", "journal", "diary", "reflection", "entry", "memory"}},
	{models.EntityMetrics, []string{"metric", "metrics", "weight", "sleep", "water", "steps", "mood", "track", "log"}},
	{models.EntityLibrary, []string{"library", "book", "article", "reading", "podcast", "video"}},
	{models.EntityNetwork, []string{"network", "contact", "connection", "friend", "person", "people"}},
	{models.EntityAchievement, []string{"achievement", "badge", "milestone", "trophy", "award"}},
	{models.EntitySettings, []string{"settings", "setting", "theme", "preference", "notifications", "dark mode", "light mode"}},
}

// Detector runs the keyword tables against utterances.
type Detector struct {
	actions  []KeywordSet[models.Action]
	entities []KeywordSet[models.Entity]
}

// NewDetector returns a detector over the default tables.
func NewDetector() *Detector {
	return &Detector{actions: DefaultActions, entities: DefaultEntities}
}

// Detect classifies text. ok is false when no entity scores above zero.
func (d *Detector) Detect(text string) (Intent, bool) {
	n := textutil.NormalizeText(text)
	if n == "" {
		return Intent{}, false
	}

	action, hasAction := d.detectAction(n)
	entity, hasEntity := d.detectEntity(n, action)
	if !hasEntity {
		slog.Debug("Detector.Detect: no entity recognized", "text", n)
		return Intent{}, false
	}

	if !hasAction {
		if entity == models.EntitySettings {
			action = models.ActionEdit
		} else {
			action = models.ActionView
		}
	}
	slog.Debug("Detector.Detect: intent recognized", "action", action, "entity", entity)
	return Intent{Action: action, Entity: entity}, true
}

func (d *Detector) detectAction(n string) (models.Action, bool) {
	for _, row := range d.actions {
		for _, kw := range row.Keywords {
			if strings.Contains(n, kw) {
				return row.Key, true
			}
		}
	}
	return "", false
}

func (d *Detector) detectEntity(n string, action models.Action) (models.Entity, bool) {
	if action == models.ActionSnooze {
		return models.EntityReminder, true
	}
	if strings.Contains(n, "dark mode") || strings.Contains(n, "light mode") {
		return models.EntitySettings, true
	}

	var best models.Entity
	bestScore := 0
	for _, row := range d.entities {
		score := Score(n, row.Keywords)
		// Strictly greater keeps the first-scored entity on ties.
		if score > bestScore {
			best = row.Key
			bestScore = score
		}
	}
	return best, bestScore > 0
}

// Score sums the word counts of every keyword contained in the normalized text.
func Score(n string, keywords []string) int {
	score := 0
	for _, kw := range keywords {
		if strings.Contains(n, kw) {
			score += len(strings.Fields(kw))
		}
	}
	return score
}

// IsUndo reports whether the text asks to undo the last deletion.
func IsUndo(text string) bool {
	n := textutil.NormalizeText(text)
	return strings.Contains(n, "undo") || strings.Contains(n, "restore")
}
