package flow

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
)

var testUser = models.UserContext{UserID: "u1", UserName: "Ada"}

// say runs one turn and fails the test on error.
func say(t *testing.T, e *testEngine, s models.Session, text string) Reply {
	t.Helper()
	reply, err := e.HandleInput(context.Background(), text, s, testUser)
	if err != nil {
		t.Fatalf("HandleInput(%q) returned error: %v", text, err)
	}
	if len(reply.Messages) == 0 {
		t.Fatalf("HandleInput(%q) returned no messages", text)
	}
	return reply
}

func firstText(r Reply) string {
	return r.Messages[0].Text
}

func mustStage(t *testing.T, s models.Session, stage models.Stage) *models.PendingFlow {
	t.Helper()
	if s.Pending == nil {
		t.Fatalf("expected pending flow in stage %q, got none", stage)
	}
	if s.Pending.Stage != stage {
		t.Fatalf("expected stage %q, got %q", stage, s.Pending.Stage)
	}
	return s.Pending
}

func TestCreateCollectsFieldsInOrder(t *testing.T) {
	e := newTestEngine()

	r := say(t, e, models.Session{}, "create task")
	if got := firstText(r); got != "Step 1. What should I call this task?" {
		t.Fatalf("unexpected first question: %q", got)
	}
	if r.Messages[0].Actions != nil {
		t.Errorf("expected no quick replies, got %+v", r.Messages[0].Actions)
	}
	if r.Messages[0].ID != "id-1" {
		t.Errorf("expected deterministic message ID id-1, got %q", r.Messages[0].ID)
	}
	if p := mustStage(t, r.Session, models.StageCollect); p.FieldIndex != 0 || p.Step != 1 {
		t.Fatalf("expected field 0 at step 1, got %d at step %d", p.FieldIndex, p.Step)
	}

	r = say(t, e, r.Session, "Buy milk")
	if got := firstText(r); got != "Step 2. Which priority?" {
		t.Fatalf("unexpected second question: %q", got)
	}
	if len(r.Messages[0].Actions) != 3 || r.Messages[0].Actions[0].Value != "High" {
		t.Errorf("expected priority quick replies, got %+v", r.Messages[0].Actions)
	}
	if p := mustStage(t, r.Session, models.StageCollect); p.FieldIndex != 1 || p.Data.String("title") != "Buy Milk" {
		t.Fatalf("unexpected pending after title: %+v", p)
	}

	// An unusable answer repeats the question without advancing.
	r = say(t, e, r.Session, "maybe")
	if got := firstText(r); got != DidNotCatchPrefix+"Step 2. Which priority?" {
		t.Fatalf("unexpected reask: %q", got)
	}
	if p := mustStage(t, r.Session, models.StageCollect); p.FieldIndex != 1 || p.Step != 2 {
		t.Fatalf("reask moved the flow: field %d step %d", p.FieldIndex, p.Step)
	}

	r = say(t, e, r.Session, "high")
	mustStage(t, r.Session, models.StageConfirm)
	if got := firstText(r); got != "create task Buy Milk?" {
		t.Errorf("unexpected summary: %q", got)
	}
	acts := r.Messages[0].Actions
	if len(acts) != 2 || acts[0].Kind != models.ActionKindConfirm || acts[1].Kind != models.ActionKindCancel {
		t.Errorf("expected confirm/cancel actions, got %+v", acts)
	}

	r = say(t, e, r.Session, "yes")
	if r.Session.Pending != nil {
		t.Fatalf("pending not cleared after execute: %+v", r.Session.Pending)
	}
	if got := firstText(r); got != "Created Buy Milk." {
		t.Errorf("unexpected result: %q", got)
	}
	if last := r.Session.LastEntity; last == nil || last.Name != "Buy Milk" || last.Type != models.EntityTask {
		t.Errorf("last entity not refreshed: %+v", last)
	}
	if e.task.lastData.String("priority") != "high" {
		t.Errorf("create received %+v", e.task.lastData)
	}
}

func TestCollectNeverRegresses(t *testing.T) {
	e := newTestEngine()
	s := say(t, e, models.Session{}, "create task").Session

	lastIndex := -1
	for _, answer := range []string{"", "Walk dog", "??", "low"} {
		r := say(t, e, s, answer)
		if r.Session.Pending != nil && r.Session.Pending.Stage == models.StageCollect {
			if r.Session.Pending.FieldIndex < lastIndex {
				t.Fatalf("field index regressed from %d to %d on %q", lastIndex, r.Session.Pending.FieldIndex, answer)
			}
			lastIndex = r.Session.Pending.FieldIndex
		}
		s = r.Session
	}
	mustStage(t, s, models.StageConfirm)
}

func TestAmbiguousConfirmLeavesPendingUnchanged(t *testing.T) {
	e := newTestEngine()
	e.task.add("Buy Milk")
	s := say(t, e, models.Session{}, "delete task buy milk").Session
	mustStage(t, s, models.StageConfirm)

	before, _ := json.Marshal(s.Pending)
	r := say(t, e, s, "maybe")
	after, _ := json.Marshal(r.Session.Pending)
	if string(before) != string(after) {
		t.Fatalf("pending changed on ambiguous reply:\nbefore %s\nafter  %s", before, after)
	}
	if firstText(r) != ConfirmPrompt {
		t.Errorf("expected confirm prompt, got %q", firstText(r))
	}
}

func TestConfirmNegativeCancels(t *testing.T) {
	e := newTestEngine()
	e.task.add("Buy Milk")
	s := say(t, e, models.Session{}, "delete task buy milk").Session
	if got := s.Pending.Target; got == nil || got.Name != "Buy Milk" {
		t.Fatalf("expected Buy Milk as target, got %+v", got)
	}

	r := say(t, e, s, "no")
	if firstText(r) != CanceledMessage {
		t.Errorf("expected %q, got %q", CanceledMessage, firstText(r))
	}
	if r.Session.Pending != nil {
		t.Errorf("pending not cleared on cancel")
	}
	if !e.task.has("Buy Milk") {
		t.Errorf("task removed despite cancel")
	}
}

func TestAbortWordCancelsCollect(t *testing.T) {
	e := newTestEngine()
	s := say(t, e, models.Session{}, "create task").Session
	r := say(t, e, s, "Cancel")
	if firstText(r) != CanceledMessage || r.Session.Pending != nil {
		t.Fatalf("expected cancellation, got %q pending=%v", firstText(r), r.Session.Pending)
	}
}

func TestResolveTargetRetries(t *testing.T) {
	e := newTestEngine()
	r := say(t, e, models.Session{}, "complete task")
	if firstText(r) != "Which task should I complete?" {
		t.Fatalf("unexpected question: %q", firstText(r))
	}
	mustStage(t, r.Session, models.StageResolveTarget)

	r = say(t, e, r.Session, "walk dog")
	if firstText(r) != "I couldn't find that task. Which task should I complete?" {
		t.Fatalf("unexpected reprompt: %q", firstText(r))
	}
	mustStage(t, r.Session, models.StageResolveTarget)

	id := e.task.add("Walk Dog")
	r = say(t, e, r.Session, "walk dog")
	mustStage(t, r.Session, models.StageConfirm)
	if firstText(r) != "complete task Walk Dog?" {
		t.Errorf("unexpected summary: %q", firstText(r))
	}

	say(t, e, r.Session, "yes")
	if !e.task.called("complete:" + id) {
		t.Errorf("complete not called for %s: %v", id, e.task.calls)
	}
}

func TestTargetFallsBackToLastEntity(t *testing.T) {
	e := newTestEngine()
	id := e.task.add("Buy Milk")
	s := models.Session{LastEntity: &models.EntityRef{Type: models.EntityTask, ID: id, Name: "Buy Milk"}}

	r := say(t, e, s, "complete task")
	p := mustStage(t, r.Session, models.StageConfirm)
	if p.Target == nil || p.Target.ID != id {
		t.Fatalf("expected fallback to last entity, got %+v", p.Target)
	}

	// A different entity kind is not a fallback candidate.
	r = say(t, e, s, "complete habit")
	mustStage(t, r.Session, models.StageResolveTarget)
	if firstText(r) != "Which habit should I complete?" {
		t.Errorf("unexpected question: %q", firstText(r))
	}
}

func TestViewDoesNotUseLastEntity(t *testing.T) {
	e := newTestEngine()
	id := e.task.add("Buy Milk")
	s := models.Session{LastEntity: &models.EntityRef{Type: models.EntityTask, ID: id, Name: "Buy Milk"}}

	r := say(t, e, s, "show tasks")
	if r.Session.Pending != nil {
		t.Fatalf("view created a pending flow")
	}
	if e.task.lastView != nil {
		t.Errorf("view received target %+v, want nil", e.task.lastView)
	}
	if firstText(r) != "All tasks." {
		t.Errorf("unexpected view result: %q", firstText(r))
	}

	r = say(t, e, models.Session{}, "show task buy milk")
	if e.task.lastView == nil || e.task.lastView.ID != id {
		t.Errorf("named view did not resolve target: %+v", e.task.lastView)
	}
	if r.Session.LastEntity == nil || r.Session.LastEntity.ID != id {
		t.Errorf("view did not refresh last entity")
	}
}

func TestProgressRoutesToView(t *testing.T) {
	e := newTestEngine()
	say(t, e, models.Session{}, "habit progress")
	if !e.habit.called("view") {
		t.Errorf("progress did not call view: %v", e.habit.calls)
	}
}

func TestViewFallsBackToList(t *testing.T) {
	e := newTestEngine()
	r := say(t, e, models.Session{}, "show my metrics")
	if firstText(r) != "List of metrics." {
		t.Errorf("expected list result, got %q", firstText(r))
	}
}

func TestUndoRestoresOnce(t *testing.T) {
	e := newTestEngine()
	e.reminder.add("Drink Water")

	s := say(t, e, models.Session{}, "delete reminder drink water").Session
	mustStage(t, s, models.StageConfirm)
	r := say(t, e, s, "yes")
	if r.Session.LastDeleted == nil || r.Session.LastDeleted.Type != models.EntityReminder {
		t.Fatalf("last deleted not recorded: %+v", r.Session.LastDeleted)
	}
	if e.reminder.has("Drink Water") {
		t.Fatalf("reminder not removed")
	}

	// Undo bypasses an unrelated pending flow.
	s = say(t, e, r.Session, "create task").Session
	r = say(t, e, s, "undo")
	if firstText(r) != "Restored Drink Water." {
		t.Fatalf("unexpected undo reply: %q", firstText(r))
	}
	if r.Session.LastDeleted != nil {
		t.Errorf("last deleted not cleared after undo")
	}
	if !e.reminder.has("Drink Water") {
		t.Errorf("reminder not restored")
	}

	s = r.Session
	s.Pending = nil
	r = say(t, e, s, "undo")
	if firstText(r) != NothingToUndo {
		t.Errorf("second undo: got %q, want %q", firstText(r), NothingToUndo)
	}
}

func TestCollaboratorFailureKeepsSession(t *testing.T) {
	e := newTestEngine()
	s := say(t, e, models.Session{}, "create task").Session
	s = say(t, e, s, "Buy milk").Session
	s = say(t, e, s, "high").Session
	mustStage(t, s, models.StageConfirm)
	before, _ := json.Marshal(s)

	dbErr := errors.New("database unavailable")
	e.task.createErr = dbErr
	reply, err := e.HandleInput(context.Background(), "yes", s, testUser)
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected wrapped collaborator error, got %v", err)
	}
	if len(reply.Messages) != 0 {
		t.Errorf("failed turn produced messages: %+v", reply.Messages)
	}
	after, _ := json.Marshal(s)
	if string(before) != string(after) {
		t.Errorf("caller session mutated by failed turn")
	}
	mustStage(t, s, models.StageConfirm)
}

func TestUnsupportedVerbClearsPending(t *testing.T) {
	e := newTestEngine()
	s := models.Session{LastEntity: &models.EntityRef{Type: models.EntityMetrics, ID: "m1", Name: "Weight"}}
	s = say(t, e, s, "delete metric").Session
	mustStage(t, s, models.StageConfirm)

	r := say(t, e, s, "yes")
	if firstText(r) != UnsupportedMessage {
		t.Errorf("expected unsupported message, got %q", firstText(r))
	}
	if r.Session.Pending != nil {
		t.Errorf("pending not cleared after unsupported verb")
	}
}

func TestUnknownStageFallsBackToHelp(t *testing.T) {
	e := newTestEngine()
	for _, p := range []*models.PendingFlow{
		{Action: models.ActionCreate, Entity: models.EntityTask, Stage: models.Stage("bogus")},
		{Action: models.ActionCreate, Entity: models.Entity("ghost"), Stage: models.StageCollect},
	} {
		r := say(t, e, models.Session{Pending: p}, "hello")
		if firstText(r) != HelpMessage || r.Session.Pending != nil {
			t.Errorf("stage %q entity %q: got %q pending=%v", p.Stage, p.Entity, firstText(r), r.Session.Pending)
		}
	}
}

func TestNoIntentReturnsHelp(t *testing.T) {
	e := newTestEngine()
	last := &models.EntityRef{Type: models.EntityTask, ID: "t1", Name: "Buy Milk"}
	r := say(t, e, models.Session{LastEntity: last}, "what a lovely day")
	if firstText(r) != HelpMessage {
		t.Errorf("expected help, got %q", firstText(r))
	}
	if r.Session.Pending != nil || r.Session.LastEntity == nil || r.Session.LastEntity.ID != "t1" {
		t.Errorf("session changed on unrecognized input: %+v", r.Session)
	}
}

func TestEditWithFieldPicker(t *testing.T) {
	e := newTestEngine()
	id := e.task.add("Buy Milk")

	r := say(t, e, models.Session{}, "edit task buy milk")
	p := mustStage(t, r.Session, models.StageEditField)
	if firstText(r) != "What would you like to change about Buy Milk?" {
		t.Fatalf("unexpected picker prompt: %q", firstText(r))
	}
	if len(p.Fields) != 4 || len(r.Messages[0].Actions) != 4 || r.Messages[0].Actions[1].Value != "name" {
		t.Fatalf("expected the default edit fields, got %+v", r.Messages[0].Actions)
	}

	r = say(t, e, r.Session, "banana")
	if firstText(r) != EditFieldPrompt {
		t.Errorf("expected edit prompt, got %q", firstText(r))
	}
	mustStage(t, r.Session, models.StageEditField)

	r = say(t, e, r.Session, "Name")
	p = mustStage(t, r.Session, models.StageEditValue)
	if p.EditFieldKey != "name" || firstText(r) != "Step 1. What should the new name be?" {
		t.Fatalf("unexpected edit-value state %q / %q", p.EditFieldKey, firstText(r))
	}

	r = say(t, e, r.Session, "oat milk")
	p = mustStage(t, r.Session, models.StageConfirm)
	if p.Data.String("name") != "Oat Milk" || len(p.Data) != 1 {
		t.Fatalf("edit should only carry the changed field, got %+v", p.Data)
	}

	r = say(t, e, r.Session, "yes")
	if !e.task.has("Oat Milk") {
		t.Errorf("task not renamed: %v", e.task.items)
	}
	if r.Session.LastEntity == nil || r.Session.LastEntity.ID != id || r.Session.LastEntity.Name != "Oat Milk" {
		t.Errorf("last entity not refreshed: %+v", r.Session.LastEntity)
	}
}

func TestEditWithInlineChange(t *testing.T) {
	e := newTestEngine()
	e.task.add("Buy Milk")

	r := say(t, e, models.Session{}, "rename task buy milk to oat milk")
	p := mustStage(t, r.Session, models.StageConfirm)
	if p.Target == nil || p.Target.Name != "Buy Milk" {
		t.Fatalf("unexpected target %+v", p.Target)
	}
	if p.Data.String("title") != "Oat Milk" {
		t.Errorf("expected inline title change, got %+v", p.Data)
	}
}

func TestEditFieldPickerAcceptsFreeText(t *testing.T) {
	e := newTestEngine()
	e.task.add("Buy Milk")

	r := say(t, e, models.Session{}, "edit task buy milk")
	mustStage(t, r.Session, models.StageEditField)

	r = say(t, e, r.Session, "rename to oat milk")
	p := mustStage(t, r.Session, models.StageConfirm)
	if p.Data.String("title") != "Oat Milk" || len(p.Data) != 1 {
		t.Fatalf("expected the parsed rename only, got %+v", p.Data)
	}
	if p.Target == nil || p.Target.Name != "Buy Milk" {
		t.Errorf("target lost: %+v", p.Target)
	}
	if firstText(r) != "edit task Buy Milk?" || len(r.Messages[0].Actions) != 2 {
		t.Errorf("expected edit confirmation, got %q %+v", firstText(r), r.Messages[0].Actions)
	}
}

func TestEditWithoutUpdateVerbIsUnsupported(t *testing.T) {
	tests := []struct {
		name    string
		session models.Session
		text    string
	}{
		{"from intent", models.Session{}, "edit task buy milk"},
		{"after resolving target", models.Session{Pending: &models.PendingFlow{
			Action: models.ActionEdit,
			Entity: models.EntityTask,
			Stage:  models.StageResolveTarget,
			Data:   models.Data{},
		}}, "buy milk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine()
			e.task.add("Buy Milk")
			e.task.verbs[VerbUpdate] = false

			r := say(t, e, tt.session, tt.text)
			if firstText(r) != UnsupportedMessage {
				t.Errorf("expected unsupported message, got %q", firstText(r))
			}
			if r.Session.Pending != nil {
				t.Errorf("pending flow kept: %+v", r.Session.Pending)
			}
		})
	}
}

func TestEditAfterResolveTargetOffersPicker(t *testing.T) {
	e := newTestEngine()
	r := say(t, e, models.Session{}, "edit task")
	if firstText(r) != "Which task should I update?" {
		t.Fatalf("unexpected question %q", firstText(r))
	}
	e.task.add("Buy Milk")
	r = say(t, e, r.Session, "buy milk")
	mustStage(t, r.Session, models.StageEditField)
}

func TestSnoozeAsksForMinutes(t *testing.T) {
	e := newTestEngine()
	e.reminder.add("Drink Water")

	r := say(t, e, models.Session{}, "snooze drink water")
	p := mustStage(t, r.Session, models.StageCollect)
	if p.Action != models.ActionSnooze || firstText(r) != "Step 1. For how many minutes should I snooze it?" {
		t.Fatalf("unexpected snooze question %q", firstText(r))
	}
	if len(r.Messages[0].Actions) != 4 {
		t.Errorf("expected 4 minute presets, got %d", len(r.Messages[0].Actions))
	}

	r = say(t, e, r.Session, "30 please")
	if firstText(r) != "Snooze Drink Water for 30 minutes?" {
		t.Fatalf("unexpected snooze confirm %q", firstText(r))
	}
	say(t, e, r.Session, "yes")
	if e.reminder.snoozed != 30 {
		t.Errorf("snoozed %d minutes, want 30", e.reminder.snoozed)
	}
}

func TestSnoozeUnsupported(t *testing.T) {
	e := newTestEngine()
	e.reminder.verbs[VerbSnooze] = false
	r := say(t, e, models.Session{}, "snooze my alarm")
	if firstText(r) != UnsupportedMessage || r.Session.Pending != nil {
		t.Errorf("expected unsupported, got %q", firstText(r))
	}
}

func TestCompleteAllHabits(t *testing.T) {
	e := newTestEngine()
	e.habit.add("Read")
	s := models.Session{LastEntity: &models.EntityRef{Type: models.EntityHabit, ID: "habit-1", Name: "Read"}}

	r := say(t, e, s, "complete all habits")
	p := mustStage(t, r.Session, models.StageConfirm)
	if p.Target == nil || p.Target.ID != models.AllTargetID {
		t.Fatalf("expected the all-habits target, got %+v", p.Target)
	}
	say(t, e, r.Session, "yes")
	if !e.habit.called("complete:" + models.AllTargetID) {
		t.Errorf("complete not called for all habits: %v", e.habit.calls)
	}
}

func TestSettingsEdit(t *testing.T) {
	e := newTestEngine()

	r := say(t, e, models.Session{}, "dark mode")
	p := mustStage(t, r.Session, models.StageConfirm)
	if p.Action != models.ActionEdit || p.Entity != models.EntitySettings || p.Data.String("theme") != "dark" {
		t.Fatalf("unexpected settings flow %+v", p)
	}
	r = say(t, e, r.Session, "yes")
	if firstText(r) != "Settings updated." {
		t.Errorf("unexpected result %q", firstText(r))
	}

	r = say(t, e, models.Session{}, "change settings")
	mustStage(t, r.Session, models.StageCollect)
	if firstText(r) != "Step 1. Which theme?" {
		t.Fatalf("unexpected settings question %q", firstText(r))
	}
	r = say(t, e, r.Session, "Light")
	if p := mustStage(t, r.Session, models.StageConfirm); p.Data.String("theme") != "light" {
		t.Errorf("theme not parsed: %+v", p.Data)
	}
}

func TestShareOffersLink(t *testing.T) {
	e := newTestEngine(WithShareLink("https://example.test/join"))
	r := say(t, e, models.Session{}, "share my habits")
	if !strings.Contains(firstText(r), "https://example.test/join") {
		t.Errorf("share message missing link: %q", firstText(r))
	}
	acts := r.Messages[0].Actions
	if len(acts) != 1 || acts[0].Label != "Copy link" || acts[0].ID == "" {
		t.Errorf("unexpected share actions %+v", acts)
	}
	if r.Session.Pending != nil {
		t.Errorf("share created a pending flow")
	}
}

func TestExportRunsInBackground(t *testing.T) {
	e := newTestEngine()
	ctx, cancel := context.WithCancel(context.Background())
	reply, err := e.HandleInput(ctx, "export my metrics", models.Session{}, testUser)
	cancel()
	if err != nil {
		t.Fatalf("HandleInput returned error: %v", err)
	}
	if reply.Messages[0].Text != ExportStarted {
		t.Errorf("unexpected export reply %q", reply.Messages[0].Text)
	}
	select {
	case uc := <-e.exporter.done:
		if uc.UserID != "u1" {
			t.Errorf("export ran for %q", uc.UserID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("exporter was not called")
	}

	anon, _ := e.HandleInput(context.Background(), "export my metrics", models.Session{}, models.UserContext{})
	if anon.Messages[0].Text != ExportSignIn {
		t.Errorf("anonymous export: got %q", anon.Messages[0].Text)
	}

	none := newTestEngine(WithExporter(nil))
	r := say(t, none, models.Session{}, "export my metrics")
	if firstText(r) != ExportUnavailable {
		t.Errorf("export without exporter: got %q", firstText(r))
	}
}

func TestFollowUpBecomesSecondMessage(t *testing.T) {
	e := newTestEngine()
	msgs := e.toMessages(models.ActionResult{
		Message:  "Done.",
		FollowUp: "Anything else?",
		Actions:  []models.ChatAction{{Label: "More", Value: "more"}},
	})
	if len(msgs) != 2 || msgs[1].Text != "Anything else?" || msgs[1].Role != models.RoleAssistant {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	if msgs[0].Actions[0].ID != "id-1" || msgs[0].ID != "id-2" || msgs[1].ID != "id-3" {
		t.Errorf("IDs not assigned in order: %+v", msgs)
	}
	if !msgs[0].CreatedAt.Equal(testNow) {
		t.Errorf("message not stamped with the engine clock: %v", msgs[0].CreatedAt)
	}
}

func TestIsAllHabits(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"complete all habits", true},
		{"complete today's habits", true},
		{"mark all of my habits as done", true},
		{"complete every habit", true},
		{"all", true},
		{"complete habit walk all dogs", false},
		{"complete habit read every morning", false},
		{"complete habit", false},
		{"walk all dogs", false},
	}
	for _, tt := range tests {
		if got := isAllHabits(tt.text); got != tt.want {
			t.Errorf("isAllHabits(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
