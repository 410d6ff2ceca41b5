package entities

import (
	"fmt"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/flow"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
)

var taskStrip = []string{"task", "tasks", "todo", "to do", "chore", "errand"}

func init() {
	register(kindDef{
		entity:   models.EntityTask,
		label:    "task",
		plural:   "tasks",
		nameKey:  "title",
		strip:    taskStrip,
		verbs:    []flow.Verb{flow.VerbUpdate, flow.VerbComplete},
		fields:   taskFields,
		parse:    parseTask,
		update:   parseTaskUpdate,
		details:  taskDetails,
		complete: completeTask,
	})
}

func taskFields(data models.Data) []models.FlowField {
	return []models.FlowField{
		{Key: "title", Label: "Name", Question: "What's the task?", Parser: "name"},
		{Key: "dueDate", Label: "Due date", Question: "When is it due?", Options: []string{"Today", "Tomorrow"}, Parser: "date"},
		{Key: "priority", Label: "Priority", Question: "What priority should it have?", Options: []string{"High", "Medium", "Low"}, Parser: "priority"},
	}
}

func parseTask(text string, now time.Time) models.Data {
	x := newExtractor(text, taskStrip, now)
	x.date("dueDate")
	x.priority("priority")
	x.name("title")
	return x.data
}

func parseTaskUpdate(value string, now time.Time) models.Data {
	x := newExtractor(value, nil, now)
	x.date("dueDate")
	x.priority("priority")
	return x.data
}

func taskDetails(d models.Data) []string {
	due, priority := "", ""
	if v := d.String("dueDate"); v != "" {
		due = "due " + v
	}
	if v := d.String("priority"); v != "" {
		priority = v + " priority"
	}
	return nonEmpty(due, priority, d.String("status"))
}

func completeTask(rec *models.Record, now time.Time) (string, bool) {
	if rec.Data.String("status") == "done" {
		return fmt.Sprintf("Task %q is already done.", rec.Name), false
	}
	rec.Data["status"] = "done"
	rec.Data["completedAt"] = now.UTC().Format(time.RFC3339)
	return fmt.Sprintf("Checked off %q.", rec.Name), true
}
