// Package testutil provides common test utilities and helpers for LifeTracker tests.
package testutil

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/entities"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/flow"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/store"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/util"
)

// Now is the fixed instant test conversations run at: Monday 2026-03-02 09:30 UTC.
var Now = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

// Clock always returns Now.
func Clock() time.Time { return Now }

// NewConversation builds a conversation over an in-memory store with deterministic IDs and clock.
// This centralizes the wiring shared by transport and API tests.
func NewConversation(t *testing.T) (*flow.ConversationFlow, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	handlers := entities.NewHandlers(st,
		entities.WithIDGenerator(util.NewSequenceGenerator("rec-")),
		entities.WithClock(Clock))
	engine := flow.NewEngine(handlers,
		flow.WithIDGenerator(util.NewSequenceGenerator("msg-")),
		flow.WithClock(Clock))
	return flow.NewConversationFlow(engine, flow.NewStoreBasedStateManager(st), st), st
}

// SeedRecords stores recs, stamping CreatedAt from Now when unset so insertion order is kept.
func SeedRecords(t *testing.T, st store.Records, recs ...models.Record) {
	t.Helper()
	for i, r := range recs {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = Now.Add(time.Duration(i-len(recs)) * time.Minute)
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = r.CreatedAt
		}
		if err := st.CreateRecord(context.Background(), r); err != nil {
			t.Fatalf("failed to seed record %s: %v", r.ID, err)
		}
	}
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected int, rr *httptest.ResponseRecorder, context string) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("%s: expected status %d, got %d (body %s)", context, expected, rr.Code, rr.Body.String())
	}
}

// DecodeEnvelope decodes an API envelope and validates its status field.
func DecodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus models.APIStatus) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	MustUnmarshalJSON(t, rr.Body.Bytes(), &resp)
	if resp.Status != string(expectedStatus) {
		t.Errorf("expected status '%s', got '%s'", expectedStatus, resp.Status)
	}
	return resp
}

// DecodeResult re-decodes the envelope's result into target.
func DecodeResult(t *testing.T, resp models.APIResponse, target interface{}) {
	t.Helper()
	MustUnmarshalJSON(t, MustMarshalJSON(t, resp.Result), target)
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t *testing.T, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON %q: %v", data, err)
	}
}
