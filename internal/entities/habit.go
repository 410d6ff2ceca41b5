package entities

import (
	"fmt"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/flow"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/textutil"
)

func init() {
	register(kindDef{
		entity:      models.EntityHabit,
		label:       "habit",
		plural:      "habits",
		nameKey:     "title",
		strip:       []string{"habit", "habits"},
		verbs:       []flow.Verb{flow.VerbUpdate, flow.VerbComplete},
		defaultEdit: true,
		completeAll: true,
		fields:      habitFields,
		parse:       parseHabit,
		update:      parseHabitUpdate,
		details:     habitDetails,
		complete:    completeHabit,
	})
}

func habitFields(data models.Data) []models.FlowField {
	return []models.FlowField{
		{Key: "title", Label: "Name", Question: "What should I call this habit?", Parser: "name"},
		{Key: "timeOfDay", Label: "Time", Question: "When do you want to do it?", Options: []string{"Morning", "Afternoon", "Evening", "Anytime"}, Parser: "timeofday"},
		{Key: "frequency", Label: "Frequency", Question: "How often should it repeat?", Options: []string{"Daily", "Weekdays", "Weekends"}, Parser: "frequency"},
		{Key: "category", Label: "Category", Question: "Which category fits best?", Optional: true, Options: []string{"Health", "Mindfulness", "Learning", "Work", "Social"}, Parser: "category"},
	}
}

func parseHabit(text string, now time.Time) models.Data {
	x := newExtractor(text, []string{"habit", "habits"}, now)
	x.clock()
	x.frequency("frequency")
	x.category("category")
	x.name("title")
	return x.data
}

func parseHabitUpdate(value string, now time.Time) models.Data {
	x := newExtractor(value, nil, now)
	x.clock()
	x.frequency("frequency")
	x.category("category")
	return x.data
}

func habitDetails(d models.Data) []string {
	streak := ""
	if n, ok := d.Int("streak"); ok && n > 0 {
		streak = fmt.Sprintf("streak %d", n)
	}
	category := ""
	if c := d.String("category"); c != "" {
		category = textutil.TitleCase(c)
	}
	return nonEmpty(timeLabel(d), d.String("frequency"), category, streak)
}

// completeHabit marks the habit done today. The streak continues only when the
// previous completion was yesterday.
func completeHabit(rec *models.Record, now time.Time) (string, bool) {
	day := today(now)
	streak, _ := rec.Data.Int("streak")
	last := rec.Data.String("lastCompleted")
	if last == day {
		return fmt.Sprintf("You already completed %q today. Streak: %d.", rec.Name, streak), false
	}
	if last == now.AddDate(0, 0, -1).Format(textutil.DateLayout) {
		streak++
	} else {
		streak = 1
	}
	rec.Data["streak"] = streak
	rec.Data["lastCompleted"] = day
	if best, _ := rec.Data.Int("bestStreak"); streak > best {
		rec.Data["bestStreak"] = streak
	}
	return fmt.Sprintf("Nice work! %q is done for today. Streak: %d.", rec.Name, streak), true
}
