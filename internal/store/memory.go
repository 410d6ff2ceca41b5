package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
)

// InMemoryStore keeps everything in process memory. It is used by tests and by the
// server when no database is configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	records  map[string]models.Record // keyed by kind + "/" + id
	sessions map[string]models.SessionState
	messages map[string][]models.ChatMessage
	dedup    map[string]DedupRecord
	outbox   []OutboxMessage
	outboxN  int
}

// Compile-time check that InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records:  make(map[string]models.Record),
		sessions: make(map[string]models.SessionState),
		messages: make(map[string][]models.ChatMessage),
		dedup:    make(map[string]DedupRecord),
	}
}

func recordKey(kind models.Entity, id string) string {
	return string(kind) + "/" + id
}

func copyRecord(r models.Record) models.Record {
	r.Data = r.Data.Clone()
	return r
}

func (s *InMemoryStore) CreateRecord(ctx context.Context, r models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[recordKey(r.Kind, r.ID)] = copyRecord(r)
	return nil
}

func (s *InMemoryStore) UpdateRecord(ctx context.Context, r models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey(r.Kind, r.ID)
	if _, ok := s.records[key]; !ok {
		return ErrNotFound
	}
	s.records[key] = copyRecord(r)
	return nil
}

func (s *InMemoryStore) DeleteRecord(ctx context.Context, kind models.Entity, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, recordKey(kind, id))
	return nil
}

func (s *InMemoryStore) GetRecord(ctx context.Context, kind models.Entity, id string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[recordKey(kind, id)]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyRecord(r)
	return &out, nil
}

func (s *InMemoryStore) ListRecords(ctx context.Context, kind models.Entity, userID string) ([]models.Record, error) {
	return s.list(kind, func(r models.Record) bool { return r.UserID == userID }), nil
}

func (s *InMemoryStore) ListRecordsByKind(ctx context.Context, kind models.Entity) ([]models.Record, error) {
	return s.list(kind, func(models.Record) bool { return true }), nil
}

func (s *InMemoryStore) list(kind models.Entity, keep func(models.Record) bool) []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Record
	for _, r := range s.records {
		if r.Kind == kind && keep(r) {
			out = append(out, copyRecord(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *InMemoryStore) GetSession(ctx context.Context, sessionID string) (*models.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	st.Session = st.Session.Clone()
	return &st, nil
}

func (s *InMemoryStore) SaveSession(ctx context.Context, st models.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.Session = st.Session.Clone()
	s.sessions[st.SessionID] = st
	return nil
}

func (s *InMemoryStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *InMemoryStore) AppendMessages(ctx context.Context, sessionID string, msgs []models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[sessionID] = append(s.messages[sessionID], msgs...)
	return nil
}

func (s *InMemoryStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.messages[sessionID]
	limit = historyLimit(limit)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]models.ChatMessage(nil), all...), nil
}

func (s *InMemoryStore) DeleteMessages(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, sessionID)
	return nil
}

func (s *InMemoryStore) IsDuplicate(messageID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.dedup[messageID]
	return ok, nil
}

func (s *InMemoryStore) RecordInbound(messageID, senderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dedup[messageID]; ok {
		return false, nil
	}
	s.dedup[messageID] = DedupRecord{MessageID: messageID, SenderID: senderID, ReceivedAt: time.Now()}
	return true, nil
}

func (s *InMemoryStore) MarkProcessed(messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.dedup[messageID]
	if !ok {
		return nil
	}
	now := time.Now()
	rec.ProcessedAt = &now
	s.dedup[messageID] = rec
	return nil
}

func (s *InMemoryStore) EnqueueOutboxMessage(recipient, kind, body, dedupeKey string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dedupeKey != "" {
		for _, m := range s.outbox {
			if m.DedupeKey == dedupeKey {
				return m.ID, false, nil
			}
		}
	}
	s.outboxN++
	now := time.Now().UTC()
	m := OutboxMessage{
		ID:        fmt.Sprintf("outbox_%d", s.outboxN),
		Recipient: recipient,
		Kind:      kind,
		Body:      body,
		Status:    OutboxStatusQueued,
		DedupeKey: dedupeKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.outbox = append(s.outbox, m)
	return m.ID, true, nil
}

func (s *InMemoryStore) ClaimDueOutboxMessages(now time.Time, limit int) ([]OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var claimed []OutboxMessage
	for i := range s.outbox {
		if limit > 0 && len(claimed) >= limit {
			break
		}
		m := &s.outbox[i]
		if m.Status != OutboxStatusQueued || (m.NextAttemptAt != nil && m.NextAttemptAt.After(now)) {
			continue
		}
		lockedAt := now
		m.Status = OutboxStatusSending
		m.LockedAt = &lockedAt
		m.UpdatedAt = now
		claimed = append(claimed, *m)
	}
	return claimed, nil
}

func (s *InMemoryStore) MarkOutboxMessageSent(id string) error {
	return s.updateOutbox(id, func(m *OutboxMessage) {
		m.Status = OutboxStatusSent
		m.LockedAt = nil
	})
}

func (s *InMemoryStore) FailOutboxMessage(id string, errMsg string, nextAttemptAt time.Time) error {
	return s.updateOutbox(id, func(m *OutboxMessage) {
		m.Attempts++
		m.LastError = errMsg
		m.LockedAt = nil
		if nextAttemptAt.IsZero() {
			m.Status = OutboxStatusFailed
			return
		}
		next := nextAttemptAt
		m.Status = OutboxStatusQueued
		m.NextAttemptAt = &next
	})
}

func (s *InMemoryStore) RequeueStaleSendingMessages(staleBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.outbox {
		m := &s.outbox[i]
		if m.Status == OutboxStatusSending && m.LockedAt != nil && m.LockedAt.Before(staleBefore) {
			m.Status = OutboxStatusQueued
			m.LockedAt = nil
			n++
		}
	}
	return n, nil
}

// OutboxMessages returns a snapshot of every outbox message, oldest first.
func (s *InMemoryStore) OutboxMessages() []OutboxMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]OutboxMessage, len(s.outbox))
	copy(out, s.outbox)
	return out
}

func (s *InMemoryStore) updateOutbox(id string, fn func(*OutboxMessage)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].ID == id {
			fn(&s.outbox[i])
			s.outbox[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrNotFound
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
