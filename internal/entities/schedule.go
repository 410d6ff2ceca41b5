package entities

import (
	"fmt"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/flow"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
)

var scheduleStrip = []string{"schedule", "event", "events", "calendar"}

func init() {
	register(kindDef{
		entity:  models.EntitySchedule,
		label:   "event",
		plural:  "events",
		nameKey: "title",
		strip:   scheduleStrip,
		verbs:   []flow.Verb{flow.VerbUpdate},
		fields:  scheduleFields,
		parse:   parseSchedule,
		update:  parseScheduleUpdate,
		details: scheduleDetails,
	})
}

func scheduleFields(data models.Data) []models.FlowField {
	return []models.FlowField{
		{Key: "title", Label: "Name", Question: "What's the event?", Parser: "name"},
		{Key: "date", Label: "Date", Question: "What day is it?", Options: []string{"Today", "Tomorrow"}, Parser: "date"},
		{Key: "time24", Label: "Time", Question: "What time does it start?", Parser: "time"},
		{Key: "duration", Label: "Duration", Question: "How long will it take, in minutes?", Optional: true, Options: []string{"30", "60", "90"}, Parser: "number"},
	}
}

func parseSchedule(text string, now time.Time) models.Data {
	x := newExtractor(text, scheduleStrip, now)
	x.minutes("duration")
	x.date("date")
	x.clock()
	x.name("title")
	return x.data
}

func parseScheduleUpdate(value string, now time.Time) models.Data {
	x := newExtractor(value, nil, now)
	x.minutes("duration")
	x.date("date")
	x.clock()
	return x.data
}

func scheduleDetails(d models.Data) []string {
	duration := ""
	if n, ok := d.Int("duration"); ok && n > 0 {
		duration = fmt.Sprintf("%d min", n)
	}
	return nonEmpty(d.String("date"), timeLabel(d), duration)
}
