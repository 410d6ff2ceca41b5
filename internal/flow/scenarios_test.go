package flow_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/entities"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/flow"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/store"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/util"
)

var user = models.UserContext{UserID: "u1", UserName: "Ada"}

// chat runs whole conversations against the real entity handlers.
type chat struct {
	t       *testing.T
	engine  *flow.Engine
	store   *store.InMemoryStore
	session models.Session
}

func newChat(t *testing.T) *chat {
	t.Helper()
	st := store.NewInMemoryStore()
	clock := func() time.Time { return time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC) }
	handlers := entities.NewHandlers(st,
		entities.WithIDGenerator(util.NewSequenceGenerator("rec-")),
		entities.WithClock(clock))
	e := flow.NewEngine(handlers,
		flow.WithIDGenerator(util.NewSequenceGenerator("msg-")),
		flow.WithClock(clock))
	return &chat{t: t, engine: e, store: st}
}

// say sends text and returns the first reply message.
func (c *chat) say(text string) models.ChatMessage {
	c.t.Helper()
	reply, err := c.engine.HandleInput(context.Background(), text, c.session, user)
	if err != nil {
		c.t.Fatalf("HandleInput(%q) failed: %v", text, err)
	}
	if len(reply.Messages) == 0 {
		c.t.Fatalf("HandleInput(%q) returned no messages", text)
	}
	c.session = reply.Session
	return reply.Messages[0]
}

func (c *chat) expect(text, want string) models.ChatMessage {
	c.t.Helper()
	msg := c.say(text)
	if msg.Text != want {
		c.t.Fatalf("%q replied %q, want %q", text, msg.Text, want)
	}
	return msg
}

func (c *chat) stage(want models.Stage) *models.PendingFlow {
	c.t.Helper()
	p := c.session.Pending
	if p == nil {
		c.t.Fatalf("expected pending flow in stage %q, got none", want)
	}
	if p.Stage != want {
		c.t.Fatalf("expected stage %q, got %q", want, p.Stage)
	}
	return p
}

func (c *chat) idle() {
	c.t.Helper()
	if c.session.Pending != nil {
		c.t.Fatalf("expected no pending flow, got %+v", c.session.Pending)
	}
}

// seed stores an entity directly through its handler.
func (c *chat) seed(entity models.Entity, data models.Data) string {
	c.t.Helper()
	h, ok := c.engine.Handler(entity)
	if !ok {
		c.t.Fatalf("no handler for %s", entity)
	}
	res, err := h.Create(context.Background(), data, user)
	if err != nil || res.Entity == nil {
		c.t.Fatalf("seeding %s failed: %v (%q)", entity, err, res.Message)
	}
	return res.Entity.ID
}

func TestScenarioCreateHabitAsksForName(t *testing.T) {
	c := newChat(t)
	msg := c.expect("create habit", "Step 1. What should I call this habit?")
	if msg.Actions != nil {
		t.Errorf("expected no quick replies, got %+v", msg.Actions)
	}
	if p := c.stage(models.StageCollect); p.FieldIndex != 0 || p.Entity != models.EntityHabit {
		t.Fatalf("unexpected pending flow %+v", p)
	}

	c.expect("Drink water", "Step 2. When do you want to do it?")
	c.expect("in the morning", "Step 3. How often should it repeat?")
	c.expect("daily", `Create habit "Drink Water" (Morning, Daily)?`)
	c.expect("yes", `Created habit "Drink Water" (Morning, Daily).`)
	c.idle()
	if c.session.LastEntity == nil || c.session.LastEntity.Name != "Drink Water" {
		t.Errorf("last entity not recorded: %+v", c.session.LastEntity)
	}
}

func TestScenarioReminderFromOneSentence(t *testing.T) {
	c := newChat(t)
	msg := c.expect("remind me to call mom at 5pm", "Step 1. How often should it repeat?")
	if len(msg.Actions) != 4 || msg.Actions[0].Value != entities.FrequencyOnce {
		t.Errorf("unexpected quick replies %+v", msg.Actions)
	}
	p := c.stage(models.StageCollect)
	if p.Data.String("title") != "Call Mom" || p.Data.String("time24") != "17:00" {
		t.Fatalf("sentence not parsed: %v", p.Data)
	}

	c.expect("every day", "Step 2. How should I notify you?")
	c.expect("Push", `Create reminder "Call Mom" (5:00 PM, Daily, via push)?`)
	c.expect("yes", `Created reminder "Call Mom" (5:00 PM, Daily, via push).`)

	recs, _ := c.store.ListRecords(context.Background(), models.EntityReminder, "u1")
	if len(recs) != 1 || len(recs[0].Data.Ints("days")) != 7 {
		t.Fatalf("unexpected stored reminders %+v", recs)
	}
}

func TestScenarioDeclinedDeleteKeepsTask(t *testing.T) {
	c := newChat(t)
	id := c.seed(models.EntityTask, models.Data{"title": "Buy Milk"})

	msg := c.expect("delete task buy milk", `Delete task "Buy Milk"?`)
	if len(msg.Actions) != 2 || msg.Actions[0].Kind != models.ActionKindConfirm {
		t.Errorf("expected confirm actions, got %+v", msg.Actions)
	}
	c.stage(models.StageConfirm)
	c.expect("no", flow.CanceledMessage)
	c.idle()

	if _, err := c.store.GetRecord(context.Background(), models.EntityTask, id); err != nil {
		t.Fatalf("task removed despite cancel: %v", err)
	}
}

func TestScenarioCompleteHabitAsksWhich(t *testing.T) {
	c := newChat(t)
	id := c.seed(models.EntityHabit, models.Data{"title": "Read"})

	c.expect("complete habit", "Which habit should I complete?")
	c.stage(models.StageResolveTarget)

	c.expect("yoga", "I couldn't find that habit. Which habit should I complete?")
	c.stage(models.StageResolveTarget)

	c.expect("read", `Mark habit "Read" as done?`)
	c.expect("yes", `Nice work! "Read" is done for today. Streak: 1.`)

	rec, err := c.store.GetRecord(context.Background(), models.EntityHabit, id)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if rec.Data.String("lastCompleted") != "2026-03-02" {
		t.Errorf("completion not stored: %v", rec.Data)
	}
}

func TestScenarioDeleteThenUndo(t *testing.T) {
	c := newChat(t)
	id := c.seed(models.EntityReminder, models.Data{"title": "Drink Water", "time24": "10:00", "frequency": "Daily"})
	ctx := context.Background()

	c.expect("delete reminder drink water", `Delete reminder "Drink Water"?`)
	c.expect("yes", `Deleted reminder "Drink Water". Say "undo" to bring it back.`)
	if c.session.LastDeleted == nil {
		t.Fatal("expected an undo payload on the session")
	}
	if _, err := c.store.GetRecord(ctx, models.EntityReminder, id); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("reminder still stored: %v", err)
	}

	c.expect("undo", `Restored reminder "Drink Water".`)
	if c.session.LastDeleted != nil {
		t.Errorf("undo payload not cleared")
	}
	rec, err := c.store.GetRecord(ctx, models.EntityReminder, id)
	if err != nil {
		t.Fatalf("reminder not restored: %v", err)
	}
	if rec.Data.String("time24") != "10:00" {
		t.Errorf("restored data lost: %v", rec.Data)
	}

	c.expect("undo", flow.NothingToUndo)
}

func TestScenarioDarkModeConfirmsSettings(t *testing.T) {
	c := newChat(t)
	c.expect("dark mode", "Update your settings (theme dark)?")
	p := c.stage(models.StageConfirm)
	if p.Entity != models.EntitySettings || p.Action != models.ActionEdit {
		t.Fatalf("unexpected pending flow %+v", p)
	}
	c.expect("yes", "Settings updated: theme dark, notifications on.")
	c.idle()

	c.expect("edit settings", "Step 1. Which theme would you like?")
	c.expect("Light", "Update your settings (theme light)?")
	c.expect("yes", "Settings updated: theme light, notifications on.")
}

func TestScenarioEditHabitTime(t *testing.T) {
	c := newChat(t)
	id := c.seed(models.EntityHabit, models.Data{"title": "Read", "frequency": "Daily"})

	msg := c.say("change habit read to 7am")
	if !strings.HasPrefix(msg.Text, `Update habit "Read" (7:00 AM`) {
		t.Fatalf("unexpected edit summary %q", msg.Text)
	}
	c.stage(models.StageConfirm)
	c.say("yes")
	c.idle()

	rec, _ := c.store.GetRecord(context.Background(), models.EntityHabit, id)
	if rec.Data.String("time24") != "07:00" || rec.Name != "Read" {
		t.Errorf("edit not applied: %+v", rec)
	}

	c.expect("edit habit read", "What would you like to change about Read?")
	c.stage(models.StageEditField)
	c.expect("name", "Step 1. What should the new name be?")
	c.stage(models.StageEditValue)
	msg = c.say("Evening reading")
	if !strings.HasPrefix(msg.Text, `Update habit "Read" (new name "Evening Reading"`) {
		t.Fatalf("unexpected rename summary %q", msg.Text)
	}
	c.say("yes")
	rec, _ = c.store.GetRecord(context.Background(), models.EntityHabit, id)
	if rec.Name != "Evening Reading" {
		t.Errorf("rename not applied: %+v", rec)
	}
}

func TestScenarioEditPickerParsesFreeTextChange(t *testing.T) {
	c := newChat(t)
	id := c.seed(models.EntityHabit, models.Data{"title": "Read", "frequency": "Daily"})

	c.expect("edit habit read", "What would you like to change about Read?")
	c.stage(models.StageEditField)
	msg := c.say("7pm")
	if !strings.HasPrefix(msg.Text, `Update habit "Read" (7:00 PM`) {
		t.Fatalf("unexpected edit summary %q", msg.Text)
	}
	p := c.stage(models.StageConfirm)
	if p.Data.String("time24") != "19:00" || p.EditFieldKey != "" {
		t.Fatalf("time not merged into the edit: %+v", p)
	}
	c.say("yes")
	c.idle()

	rec, _ := c.store.GetRecord(context.Background(), models.EntityHabit, id)
	if rec.Data.String("time24") != "19:00" || rec.Data.String("frequency") != "Daily" {
		t.Errorf("edit not applied: %+v", rec.Data)
	}
}

func TestScenarioEditProtocolDurationsUsesStoredSteps(t *testing.T) {
	c := newChat(t)
	id := c.seed(models.EntityProtocol, models.Data{
		"title":        "Wind Down",
		"steps":        []string{"stretch", "read", "breathe"},
		"durations":    []int{5, 5, 5},
		"totalMinutes": 15,
	})

	c.expect("edit protocol wind down", "What would you like to change about Wind Down?")
	c.expect("durations", "Step 1. How many minutes for each step (stretch, read, breathe)?")
	c.stage(models.StageEditValue)
	c.say("read 20, 5")
	p := c.stage(models.StageConfirm)
	if got := p.Data.Ints("durations"); len(got) != 3 || got[0] != 5 || got[1] != 20 || got[2] != 5 {
		t.Fatalf("durations not matched to stored steps: %v", got)
	}
	if total, _ := p.Data.Int("totalMinutes"); total != 30 {
		t.Errorf("totalMinutes = %d, want 30", total)
	}
	if _, ok := p.Data["steps"]; ok {
		t.Errorf("stored steps copied into the edit: %+v", p.Data)
	}

	c.say("yes")
	rec, _ := c.store.GetRecord(context.Background(), models.EntityProtocol, id)
	if got := rec.Data.Ints("durations"); len(got) != 3 || got[1] != 20 {
		t.Errorf("edit not applied: %+v", rec.Data)
	}
}

func TestScenarioProtocolDurations(t *testing.T) {
	c := newChat(t)
	c.expect("create protocol wind down: stretch, read and breathe", "Step 1. How many minutes for each step (stretch, read, breathe)?")
	c.expect("5, 10 and 15", `Create protocol "Wind Down" (3 steps, 30 min)?`)
	c.say("yes")

	recs, _ := c.store.ListRecords(context.Background(), models.EntityProtocol, "u1")
	if len(recs) != 1 {
		t.Fatalf("expected one protocol, got %d", len(recs))
	}
	if got := recs[0].Data.Ints("durations"); len(got) != 3 || got[2] != 15 {
		t.Errorf("durations = %v", got)
	}
}

func TestScenarioCompleteAllHabits(t *testing.T) {
	c := newChat(t)
	c.seed(models.EntityHabit, models.Data{"title": "Read"})
	c.seed(models.EntityHabit, models.Data{"title": "Walk"})

	c.expect("complete all habits", "Mark all of today's habits as done?")
	c.expect("yes", "Completed 2 habits for today: Read, Walk.")
}

func TestScenarioAnonymousUserMustSignIn(t *testing.T) {
	c := newChat(t)
	reply, err := c.engine.HandleInput(context.Background(), "add task call bank today high priority", models.Session{}, models.UserContext{})
	if err != nil {
		t.Fatalf("HandleInput failed: %v", err)
	}
	if got := reply.Messages[0].Text; got != `Create task "Call Bank" (due 2026-03-02, high priority)?` {
		t.Fatalf("unexpected summary %q", got)
	}
	reply, err = c.engine.HandleInput(context.Background(), "yes", reply.Session, models.UserContext{})
	if err != nil {
		t.Fatalf("HandleInput failed: %v", err)
	}
	if got := reply.Messages[0].Text; got != "Please sign in to save your tasks." {
		t.Errorf("unexpected reply %q", got)
	}
	if reply.Session.Pending != nil {
		t.Errorf("pending flow survived execution")
	}
}

func TestScenarioProtocolWithClockTimeAsksForSteps(t *testing.T) {
	c := newChat(t)
	c.expect("create morning protocol at 7:30", "Step 1. What are the steps? Separate them with commas.")
	p := c.stage(models.StageCollect)
	if p.Data.String("title") != "Morning" || p.Data.String("time24") != "07:30" || !p.Data.IsMissing("steps") {
		t.Fatalf("unexpected protocol data %v", p.Data)
	}
	c.expect("stretch, breathe", "Step 2. How many minutes for each step (stretch, breathe)?")
}

func TestScenarioHabitNamedWithAllCompletesOnlyThatHabit(t *testing.T) {
	c := newChat(t)
	dogs := c.seed(models.EntityHabit, models.Data{"title": "Walk All Dogs"})
	meditate := c.seed(models.EntityHabit, models.Data{"title": "Meditate"})

	c.expect("complete habit walk all dogs", `Mark habit "Walk All Dogs" as done?`)
	if p := c.stage(models.StageConfirm); p.Target == nil || p.Target.ID != dogs {
		t.Fatalf("unexpected target %+v", p.Target)
	}
	c.expect("yes", `Nice work! "Walk All Dogs" is done for today. Streak: 1.`)

	rec, _ := c.store.GetRecord(context.Background(), models.EntityHabit, meditate)
	if rec.Data.String("lastCompleted") != "" {
		t.Errorf("unrelated habit completed: %v", rec.Data)
	}
}
