package models

import (
	"encoding/json"
	"testing"
)

func TestChatRequestValidate(t *testing.T) {
	r := ChatRequest{UserID: "+15551234567", Text: "  create habit  "}
	if err := r.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.SessionID != "+15551234567" {
		t.Errorf("expected session id to default to user id, got %q", r.SessionID)
	}
	if r.Text != "create habit" {
		t.Errorf("expected trimmed text, got %q", r.Text)
	}

	empty := ChatRequest{UserID: "u1", Text: "   "}
	if err := empty.Validate(); err != ErrEmptyText {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}

	anon := ChatRequest{Text: "hi"}
	if err := anon.Validate(); err != ErrMissingSession {
		t.Errorf("expected ErrMissingSession, got %v", err)
	}
}

func TestDataAccessorsSurviveJSON(t *testing.T) {
	d := Data{"days": []int{1, 3, 5}, "minutes": 15, "tags": []string{"a", "b"}, "done": true}
	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded Data
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	days := decoded.Ints("days")
	if len(days) != 3 || days[0] != 1 || days[2] != 5 {
		t.Errorf("unexpected days: %v", days)
	}
	if n, ok := decoded.Int("minutes"); !ok || n != 15 {
		t.Errorf("unexpected minutes: %v %v", n, ok)
	}
	if tags := decoded.Strings("tags"); len(tags) != 2 || tags[1] != "b" {
		t.Errorf("unexpected tags: %v", tags)
	}
	if b, ok := decoded.Bool("done"); !ok || !b {
		t.Errorf("unexpected done: %v %v", b, ok)
	}
}

func TestDataMergeDoesNotMutate(t *testing.T) {
	base := Data{"title": "Run"}
	merged := base.Merge(Data{"time24": "07:00"})
	if _, ok := base["time24"]; ok {
		t.Fatal("merge mutated the receiver")
	}
	if merged.String("title") != "Run" || merged.String("time24") != "07:00" {
		t.Errorf("unexpected merge result: %v", merged)
	}
}

func TestDataIsMissing(t *testing.T) {
	d := Data{"a": "", "b": nil, "c": "x", "d": 0}
	for _, key := range []string{"a", "b", "zzz"} {
		if !d.IsMissing(key) {
			t.Errorf("expected %q to be missing", key)
		}
	}
	for _, key := range []string{"c", "d"} {
		if d.IsMissing(key) {
			t.Errorf("expected %q to be present", key)
		}
	}
}

func TestSessionCloneIsDeep(t *testing.T) {
	s := Session{
		Pending: &PendingFlow{
			Action: ActionCreate,
			Entity: EntityHabit,
			Stage:  StageCollect,
			Data:   Data{"title": "Run"},
			Fields: []FlowField{{Key: "title", Question: "What should I call this habit?"}},
		},
		LastEntity: &EntityRef{Type: EntityHabit, ID: "h1", Name: "Run"},
	}
	c := s.Clone()
	c.Pending.Data["title"] = "Walk"
	c.Pending.Fields[0].Key = "changed"
	c.LastEntity.Name = "Walk"

	if s.Pending.Data.String("title") != "Run" {
		t.Error("clone shares pending data with the original")
	}
	if s.Pending.Fields[0].Key != "title" {
		t.Error("clone shares fields with the original")
	}
	if s.LastEntity.Name != "Run" {
		t.Error("clone shares last entity with the original")
	}
}

func TestRecordAsData(t *testing.T) {
	r := Record{ID: "r1", Kind: EntityTask, Name: "Buy Milk", Data: Data{"priority": "high"}}
	d := r.AsData()
	if d.String("id") != "r1" || d.String("name") != "Buy Milk" || d.String("priority") != "high" {
		t.Errorf("unexpected payload: %v", d)
	}
	if _, ok := r.Data["id"]; ok {
		t.Error("AsData mutated the record data")
	}
}
