package flow

import (
	"strings"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/textutil"
)

// DefaultSnoozeMinutes is used when a snooze answer carries no number.
const DefaultSnoozeMinutes = 15

// MinutesField builds the single question asked before snoozing a reminder.
func MinutesField() models.FlowField {
	return models.FlowField{
		Key:      "minutes",
		Label:    "Minutes",
		Question: "For how many minutes should I snooze it?",
		Options:  []string{"5", "15", "30", "60"},
		Parser:   "minutes",
	}
}

// DefaultEditFields is offered when a handler has no edit schedule of its own.
func DefaultEditFields() []models.FlowField {
	return []models.FlowField{
		{Key: "time", Label: "Time", Question: "What time should it be?", Parser: "time"},
		{Key: "name", Label: "Name", Question: "What should the new name be?", Parser: "name"},
		{Key: "category", Label: "Category", Question: "Which category fits best?", Options: []string{"Health", "Mindfulness", "Learning", "Work", "Social"}, Parser: "category"},
		{Key: "frequency", Label: "Frequency", Question: "How often should it repeat?", Options: []string{"Daily", "Weekdays", "Weekends"}, Parser: "frequency"},
	}
}

func parseText(input string, pc ParseContext) models.Data {
	if input == "" {
		return nil
	}
	return models.Data{pc.Key: input}
}

func parseName(input string, pc ParseContext) models.Data {
	name := strings.TrimSpace(strings.Trim(input, "\"'“”"))
	if name == "" {
		return nil
	}
	return models.Data{pc.Key: textutil.TitleCase(name)}
}

func parseTime(input string, pc ParseContext) models.Data {
	t, ok := textutil.ParseTime(input)
	if !ok {
		return nil
	}
	out := models.Data{"timeLabel": t.Label, "timeOfDay": t.TimeOfDay}
	if t.Time24 != "" {
		out["time24"] = t.Time24
	}
	switch pc.Key {
	case "time24", "timeLabel", "timeOfDay":
	default:
		if t.Time24 != "" {
			out[pc.Key] = t.Time24
		} else {
			out[pc.Key] = t.Label
		}
	}
	return out
}

func parseTimeOfDay(input string, pc ParseContext) models.Data {
	t, ok := textutil.ParseTime(input)
	if !ok {
		return nil
	}
	out := models.Data{pc.Key: t.TimeOfDay, "timeLabel": t.Label}
	if t.Time24 != "" {
		out["time24"] = t.Time24
	}
	return out
}

func parseFrequency(input string, pc ParseContext) models.Data {
	f, ok := textutil.ParseFrequency(input)
	if !ok {
		return nil
	}
	return models.Data{"days": f.Days, "frequency": f.Label, pc.Key: f.Label}
}

func parseDate(input string, pc ParseContext) models.Data {
	d, ok := textutil.ParseDate(input, pc.Now)
	if !ok {
		return nil
	}
	return models.Data{pc.Key: d}
}

func parsePriority(input string, pc ParseContext) models.Data {
	p, ok := textutil.ExtractPriority(input)
	if !ok {
		return nil
	}
	return models.Data{pc.Key: p}
}

func parseCategory(input string, pc ParseContext) models.Data {
	if c, ok := textutil.ExtractCategory(input); ok {
		return models.Data{pc.Key: c}
	}
	if n := textutil.NormalizeText(input); n != "" {
		return models.Data{pc.Key: n}
	}
	return nil
}

func parseYesNo(input string, pc ParseContext) models.Data {
	answer, ok := textutil.ParseYesNo(input)
	if !ok {
		return nil
	}
	return models.Data{pc.Key: answer}
}

func parseMinutes(input string, pc ParseContext) models.Data {
	n, ok := textutil.FirstInt(input)
	if !ok || n <= 0 {
		n = DefaultSnoozeMinutes
	}
	return models.Data{pc.Key: n}
}

func parseNumber(input string, pc ParseContext) models.Data {
	f, ok := textutil.FirstNumber(input)
	if !ok {
		return nil
	}
	return models.Data{pc.Key: f}
}

func parseList(input string, pc ParseContext) models.Data {
	items := textutil.SplitList(input)
	if len(items) == 0 {
		return nil
	}
	return models.Data{pc.Key: items}
}

// parseChoice matches the answer against the field's options and stores the
// lowercased option.
func parseChoice(input string, pc ParseContext) models.Data {
	n := textutil.NormalizeText(input)
	if n == "" {
		return nil
	}
	for _, opt := range pc.Options {
		o := textutil.NormalizeText(opt)
		if o == n || textutil.ContainsWord(n, o) {
			return models.Data{pc.Key: o}
		}
	}
	return nil
}
