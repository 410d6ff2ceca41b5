package entities

import (
	"fmt"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/flow"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/textutil"
)

// FrequencyOnce labels a reminder that fires a single time.
const FrequencyOnce = "Once"

var reminderStrip = []string{"reminder", "reminders", "remind me", "remind", "alert", "alarm", "notify me"}

func init() {
	flow.RegisterParser("reminder.frequency", parseReminderFrequency)
	register(kindDef{
		entity:   models.EntityReminder,
		label:    "reminder",
		plural:   "reminders",
		nameKey:  "title",
		strip:    reminderStrip,
		verbs:    []flow.Verb{flow.VerbUpdate, flow.VerbComplete, flow.VerbSnooze},
		fields:   reminderFields,
		parse:    parseReminder,
		update:   parseReminderUpdate,
		details:  reminderDetails,
		complete: acknowledgeReminder,
	})
}

func reminderFields(data models.Data) []models.FlowField {
	return []models.FlowField{
		{Key: "title", Label: "Name", Question: "What should I remind you about?", Parser: "name"},
		{Key: "time24", Label: "Time", Question: "What time should I remind you?", Options: []string{"8:00 AM", "12:00 PM", "6:00 PM"}, Parser: "time"},
		{Key: "frequency", Label: "Frequency", Question: "How often should it repeat?", Options: []string{FrequencyOnce, "Daily", "Weekdays", "Weekends"}, Parser: "reminder.frequency"},
		{Key: "notificationType", Label: "Notification", Question: "How should I notify you?", Options: []string{"Push", "Email", "Both"}, Parser: "choice"},
	}
}

// isOnce reports whether the answer asks for a one-off reminder.
func isOnce(n string) bool {
	for _, w := range []string{"once", "one time", "just once", "one off", "no repeat", "dont repeat"} {
		if textutil.ContainsWord(n, w) {
			return true
		}
	}
	return false
}

// parseReminderFrequency accepts "once" on top of the usual weekday sets.
func parseReminderFrequency(input string, pc flow.ParseContext) models.Data {
	if isOnce(textutil.NormalizeText(input)) {
		return models.Data{pc.Key: FrequencyOnce, "days": []int{}}
	}
	f, ok := textutil.ParseFrequency(input)
	if !ok {
		return nil
	}
	return models.Data{pc.Key: f.Label, "days": f.Days}
}

func parseReminder(text string, now time.Time) models.Data {
	x := newExtractor(text, reminderStrip, now)
	x.clock()
	if isOnce(textutil.NormalizeText(text)) {
		x.data["frequency"] = FrequencyOnce
		x.data["days"] = []int{}
		x.strip = append(x.strip, "once", "one time", "just once")
	} else {
		x.frequency("frequency")
	}
	n := textutil.NormalizeText(text)
	switch {
	case textutil.ContainsWord(n, "by email"), textutil.ContainsWord(n, "via email"):
		x.data["notificationType"] = "email"
		x.strip = append(x.strip, "by email", "via email")
	case textutil.ContainsWord(n, "push notification"):
		x.data["notificationType"] = "push"
		x.strip = append(x.strip, "push notification")
	}
	x.name("title")
	return x.data
}

func parseReminderUpdate(value string, now time.Time) models.Data {
	x := newExtractor(value, nil, now)
	x.clock()
	if isOnce(textutil.NormalizeText(value)) {
		x.data["frequency"] = FrequencyOnce
		x.data["days"] = []int{}
	} else {
		x.frequency("frequency")
	}
	if len(x.data) > 0 {
		// A changed schedule re-arms a one-off reminder.
		x.data["fired"] = false
	}
	return x.data
}

func reminderDetails(d models.Data) []string {
	notify := ""
	if t := d.String("notificationType"); t != "" {
		notify = "via " + t
	}
	return nonEmpty(timeLabel(d), d.String("frequency"), notify)
}

func acknowledgeReminder(rec *models.Record, now time.Time) (string, bool) {
	rec.Data["acknowledgedAt"] = today(now)
	delete(rec.Data, "snoozedUntil")
	return fmt.Sprintf("Got it, reminder %q acknowledged.", rec.Name), true
}
