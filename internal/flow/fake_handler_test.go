package flow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/textutil"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/util"
)

var allVerbs = []Verb{VerbParseUpdate, VerbFindTarget, VerbCreate, VerbUpdate, VerbRemove, VerbComplete, VerbView, VerbList, VerbSnooze, VerbRestore}

// fakeHandler keeps named items in memory and records every verb call.
type fakeHandler struct {
	mu     sync.Mutex
	entity models.Entity
	label  string
	strip  []string
	verbs  map[Verb]bool
	fields []models.FlowField
	items  map[string]string // id -> name
	nextID int

	createErr error
	calls     []string
	lastData  models.Data
	lastView  *models.TargetMatch
	snoozed   int
}

func newFakeHandler(entity models.Entity, label string, verbs ...Verb) *fakeHandler {
	if len(verbs) == 0 {
		verbs = allVerbs
	}
	h := &fakeHandler{
		entity: entity,
		label:  label,
		strip:  []string{label, label + "s"},
		verbs:  make(map[Verb]bool),
		items:  make(map[string]string),
		fields: []models.FlowField{
			{Key: "title", Label: "Name", Question: fmt.Sprintf("What should I call this %s?", label), Parser: "name"},
			{Key: "priority", Label: "Priority", Question: "Which priority?", Options: []string{"High", "Medium", "Low"}, Parser: "priority"},
			{Key: "notes", Label: "Notes", Question: "Any notes?", Optional: true},
		},
	}
	for _, v := range verbs {
		h.verbs[v] = true
	}
	return h
}

func (h *fakeHandler) add(name string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := fmt.Sprintf("%s-%d", h.entity, h.nextID)
	h.items[id] = name
	return id
}

func (h *fakeHandler) has(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, n := range h.items {
		if n == name {
			return true
		}
	}
	return false
}

func (h *fakeHandler) record(call string, data models.Data) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call)
	h.lastData = data.Clone()
}

func (h *fakeHandler) called(call string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (h *fakeHandler) Entity() models.Entity { return h.entity }
func (h *fakeHandler) Label() string         { return h.label }
func (h *fakeHandler) Supports(v Verb) bool  { return h.verbs[v] }

func (h *fakeHandler) ParseInput(text string, uc models.UserContext) models.Data {
	data := models.Data{}
	if h.entity == models.EntitySettings {
		n := textutil.NormalizeText(text)
		if strings.Contains(n, "dark mode") {
			data["theme"] = "dark"
		}
		return data
	}
	if name, ok := textutil.ExtractName(text, h.strip); ok {
		data["title"] = name
	}
	return data
}

func (h *fakeHandler) ParseUpdate(text string, uc models.UserContext) models.Data {
	_, after, ok := strings.Cut(strings.ToLower(text), " to ")
	if !ok || strings.TrimSpace(after) == "" {
		return nil
	}
	return models.Data{"title": textutil.TitleCase(strings.TrimSpace(after))}
}

func (h *fakeHandler) CreateFields(data models.Data, uc models.UserContext) []models.FlowField {
	if h.entity == models.EntitySettings {
		return []models.FlowField{{Key: "theme", Label: "Theme", Question: "Which theme?", Options: []string{"Dark", "Light"}, Parser: "choice"}}
	}
	return h.fields
}

func (h *fakeHandler) EditFields(target *models.TargetMatch, uc models.UserContext) []models.FlowField {
	return nil
}

func (h *fakeHandler) Summary(action models.Action, data models.Data, target *models.TargetMatch) string {
	name := data.String("title")
	if target != nil {
		name = target.Name
	}
	return fmt.Sprintf("%s %s %s?", action, h.label, name)
}

func (h *fakeHandler) FindTarget(ctx context.Context, name string, uc models.UserContext) (*models.TargetMatch, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	q := textutil.NormalizeText(name)
	if q == "" {
		return nil, nil
	}
	for id, n := range h.items {
		if textutil.NormalizeText(n) == q {
			return &models.TargetMatch{ID: id, Name: n}, nil
		}
	}
	for id, n := range h.items {
		if strings.Contains(q, textutil.NormalizeText(n)) {
			return &models.TargetMatch{ID: id, Name: n}, nil
		}
	}
	return nil, nil
}

func (h *fakeHandler) ref(id, name string) *models.EntityRef {
	return &models.EntityRef{Type: h.entity, ID: id, Name: name}
}

func (h *fakeHandler) Create(ctx context.Context, data models.Data, uc models.UserContext) (models.ActionResult, error) {
	h.record("create", data)
	if h.createErr != nil {
		return models.ActionResult{}, h.createErr
	}
	name := data.String("title")
	id := h.add(name)
	return models.ActionResult{Message: "Created " + name + ".", Entity: h.ref(id, name)}, nil
}

func (h *fakeHandler) Update(ctx context.Context, target *models.TargetMatch, data models.Data, uc models.UserContext) (models.ActionResult, error) {
	h.record("update", data)
	if target == nil {
		return models.ActionResult{Message: "Settings updated."}, nil
	}
	name := target.Name
	for _, key := range []string{"title", "name"} {
		if v := data.String(key); v != "" {
			name = v
		}
	}
	h.mu.Lock()
	h.items[target.ID] = name
	h.mu.Unlock()
	return models.ActionResult{Message: "Updated " + name + ".", Entity: h.ref(target.ID, name)}, nil
}

func (h *fakeHandler) Remove(ctx context.Context, target models.TargetMatch, uc models.UserContext) (models.ActionResult, error) {
	h.record("remove", nil)
	h.mu.Lock()
	delete(h.items, target.ID)
	h.mu.Unlock()
	return models.ActionResult{
		Message: "Deleted " + target.Name + ".",
		Deleted: &models.DeletedRef{Type: h.entity, Data: models.Data{"id": target.ID, "title": target.Name}},
	}, nil
}

func (h *fakeHandler) Complete(ctx context.Context, target models.TargetMatch, data models.Data, uc models.UserContext) (models.ActionResult, error) {
	h.record("complete:"+target.ID, data)
	return models.ActionResult{Message: "Completed " + target.Name + ".", Entity: h.ref(target.ID, target.Name)}, nil
}

func (h *fakeHandler) View(ctx context.Context, target *models.TargetMatch, data models.Data, uc models.UserContext) (models.ActionResult, error) {
	h.record("view", data)
	h.mu.Lock()
	h.lastView = target
	h.mu.Unlock()
	if target == nil {
		return models.ActionResult{Message: "All " + h.label + "s."}, nil
	}
	return models.ActionResult{Message: target.Name + ".", Entity: h.ref(target.ID, target.Name)}, nil
}

func (h *fakeHandler) List(ctx context.Context, uc models.UserContext) (models.ActionResult, error) {
	h.record("list", nil)
	return models.ActionResult{Message: "List of " + h.label + "s."}, nil
}

func (h *fakeHandler) Snooze(ctx context.Context, target models.TargetMatch, minutes int, uc models.UserContext) (models.ActionResult, error) {
	h.record("snooze", nil)
	h.mu.Lock()
	h.snoozed = minutes
	h.mu.Unlock()
	return models.ActionResult{Message: fmt.Sprintf("Snoozed %s for %d minutes.", target.Name, minutes)}, nil
}

func (h *fakeHandler) Restore(ctx context.Context, data models.Data, uc models.UserContext) (models.ActionResult, error) {
	h.record("restore", data)
	name := data.String("title")
	h.mu.Lock()
	h.items[data.String("id")] = name
	h.mu.Unlock()
	return models.ActionResult{Message: "Restored " + name + ".", Entity: h.ref(data.String("id"), name)}, nil
}

// fakeExporter signals every export on done.
type fakeExporter struct {
	done chan models.UserContext
}

func (f *fakeExporter) ExportMetrics(ctx context.Context, uc models.UserContext) (models.ActionResult, error) {
	f.done <- uc
	return models.ActionResult{Message: "exported"}, nil
}

var testNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

// testEngine wires fake task, habit, reminder, metrics and settings handlers.
type testEngine struct {
	*Engine
	task, habit, reminder, metrics, settings *fakeHandler
	exporter                                 *fakeExporter
}

func newTestEngine(opts ...EngineOption) *testEngine {
	te := &testEngine{
		task:     newFakeHandler(models.EntityTask, "task"),
		habit:    newFakeHandler(models.EntityHabit, "habit"),
		reminder: newFakeHandler(models.EntityReminder, "reminder"),
		metrics:  newFakeHandler(models.EntityMetrics, "metric", VerbCreate, VerbList),
		settings: newFakeHandler(models.EntitySettings, "setting", VerbUpdate, VerbView),
		exporter: &fakeExporter{done: make(chan models.UserContext, 1)},
	}
	te.reminder.strip = []string{"reminder", "reminders"}
	base := []EngineOption{
		WithIDGenerator(util.NewSequenceGenerator("id-")),
		WithClock(func() time.Time { return testNow }),
		WithExporter(te.exporter),
	}
	te.Engine = NewEngine([]Handler{te.task, te.habit, te.reminder, te.metrics, te.settings}, append(base, opts...)...)
	return te
}
