package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/store"
)

func newTestConversation(t *testing.T) (*ConversationFlow, *testEngine, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	e := newTestEngine()
	return NewConversationFlow(e.Engine, NewStoreBasedStateManager(st), st), e, st
}

func TestConversationFlowPersistsSuccessfulTurns(t *testing.T) {
	cf, _, st := newTestConversation(t)
	ctx := context.Background()

	msgs, err := cf.Process(ctx, "s1", testUser, "create task")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "Step 1. What should I call this task?" {
		t.Fatalf("unexpected reply %+v", msgs)
	}

	saved, err := st.GetSession(ctx, "s1")
	if err != nil || saved == nil {
		t.Fatalf("session not saved: %v", err)
	}
	if saved.UserID != "u1" || saved.Session.Pending == nil || saved.Session.Pending.Stage != models.StageCollect {
		t.Errorf("unexpected saved session %+v", saved)
	}
	if saved.CreatedAt.IsZero() || saved.UpdatedAt.IsZero() {
		t.Errorf("timestamps not stamped: %+v", saved)
	}

	history, err := cf.History(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 || history[0].Role != models.RoleUser || history[0].Text != "create task" || history[1].Role != models.RoleAssistant {
		t.Fatalf("unexpected history %+v", history)
	}

	// The next turn resumes the stored flow.
	msgs, err = cf.Process(ctx, "s1", testUser, "Buy milk")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if msgs[0].Text != "Step 2. Which priority?" {
		t.Errorf("flow did not resume: %q", msgs[0].Text)
	}
}

func TestConversationFlowFailedTurnKeepsStoredState(t *testing.T) {
	cf, e, st := newTestConversation(t)
	ctx := context.Background()

	for _, text := range []string{"create task", "Buy milk", "low"} {
		if _, err := cf.Process(ctx, "s1", testUser, text); err != nil {
			t.Fatalf("Process(%q) failed: %v", text, err)
		}
	}
	before, _ := cf.History(ctx, "s1", 0)

	e.task.createErr = errors.New("disk full")
	if _, err := cf.Process(ctx, "s1", testUser, "yes"); err == nil {
		t.Fatal("expected the collaborator error")
	}

	saved, _ := st.GetSession(ctx, "s1")
	if saved.Session.Pending == nil || saved.Session.Pending.Stage != models.StageConfirm {
		t.Errorf("stored session changed by failed turn: %+v", saved.Session.Pending)
	}
	after, _ := cf.History(ctx, "s1", 0)
	if len(after) != len(before) {
		t.Errorf("history grew on failed turn: %d -> %d", len(before), len(after))
	}

	// Retrying once the collaborator recovers completes the flow.
	e.task.createErr = nil
	msgs, err := cf.Process(ctx, "s1", testUser, "yes")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if msgs[0].Text != "Created Buy Milk." {
		t.Errorf("unexpected retry reply %q", msgs[0].Text)
	}
}

func TestConversationFlowReset(t *testing.T) {
	cf, _, st := newTestConversation(t)
	ctx := context.Background()
	if _, err := cf.Process(ctx, "s1", testUser, "create task"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if err := cf.Reset(ctx, "s1"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if saved, _ := st.GetSession(ctx, "s1"); saved != nil {
		t.Errorf("session survived reset")
	}
	if history, _ := cf.History(ctx, "s1", 0); len(history) != 0 {
		t.Errorf("history survived reset: %d messages", len(history))
	}
	state, err := cf.Session(ctx, "s1")
	if err != nil || state.SessionID != "s1" || state.Session.Pending != nil {
		t.Errorf("expected fresh session after reset, got %+v, %v", state, err)
	}
}

func TestConversationFlowRequiresSessionID(t *testing.T) {
	cf, _, _ := newTestConversation(t)
	if _, err := cf.Process(context.Background(), "", testUser, "hello"); err == nil {
		t.Error("expected error for empty session id")
	}
}

func TestConversationFlowSerializesTurnsPerSession(t *testing.T) {
	cf, _, _ := newTestConversation(t)
	ctx := context.Background()

	const turns = 20
	var wg sync.WaitGroup
	errs := make(chan error, turns*2)
	for i := 0; i < turns; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := cf.Process(ctx, "shared", testUser, "hello"); err != nil {
				errs <- err
			}
		}()
		go func(i int) {
			defer wg.Done()
			if _, err := cf.Process(ctx, fmt.Sprintf("own-%d", i), testUser, "hello"); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Process failed: %v", err)
	}

	history, _ := cf.History(ctx, "shared", 0)
	if len(history) != turns*2 {
		t.Errorf("shared session history has %d messages, want %d", len(history), turns*2)
	}
	cf.mu.Lock()
	defer cf.mu.Unlock()
	if len(cf.locks) != 0 {
		t.Errorf("session locks leaked: %d", len(cf.locks))
	}
}

func TestMockStateManagerStartsFresh(t *testing.T) {
	sm := NewMockStateManager()
	st, err := sm.GetSession(context.Background(), "new")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if st.SessionID != "new" || st.Session.Pending != nil {
		t.Errorf("unexpected fresh state %+v", st)
	}
}

func TestStateManagerDropsUnreadablePendingFlow(t *testing.T) {
	st := store.NewInMemoryStore()
	ctx := context.Background()
	bad := models.SessionState{SessionID: "s1", Session: models.Session{
		Pending: &models.PendingFlow{Entity: models.EntityTask, Action: models.ActionCreate, Stage: "daydreaming"},
	}}
	if err := st.SaveSession(ctx, bad); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := NewStoreBasedStateManager(st).GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Session.Pending != nil {
		t.Errorf("expected corrupt pending flow to be dropped, got %+v", got.Session.Pending)
	}
}
