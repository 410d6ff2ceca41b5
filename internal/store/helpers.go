package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/util"
)

// sqlDB implements Records, Sessions and History over database/sql. Queries are
// written with ? placeholders and rebound for drivers that number them.
type sqlDB struct {
	db       *sql.DB
	backend  string // used as the log prefix, e.g. "SQLiteStore"
	numbered bool   // use $1, $2, ... placeholders
	ids      IDGenerator
}

func newSQLDB(db *sql.DB, backend string, numbered bool, ids IDGenerator) sqlDB {
	if ids == nil {
		ids = util.NewUUIDGenerator()
	}
	return sqlDB{db: db, backend: backend, numbered: numbered, ids: ids}
}

func (s *sqlDB) q(query string) string {
	if !s.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func marshalJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (s *sqlDB) CreateRecord(ctx context.Context, r models.Record) error {
	data, err := marshalJSON(r.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal record data: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO records (id, kind, user_id, name, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		r.ID, string(r.Kind), r.UserID, r.Name, data, r.CreatedAt.UTC(), r.UpdatedAt.UTC())
	if err != nil {
		slog.Error(s.backend+" CreateRecord failed", "error", err, "kind", r.Kind, "id", r.ID)
		return fmt.Errorf("failed to insert %s record %s: %w", r.Kind, r.ID, err)
	}
	slog.Debug(s.backend+" CreateRecord succeeded", "kind", r.Kind, "id", r.ID)
	return nil
}

func (s *sqlDB) UpdateRecord(ctx context.Context, r models.Record) error {
	data, err := marshalJSON(r.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal record data: %w", err)
	}
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE records SET name = ?, data = ?, updated_at = ? WHERE kind = ? AND id = ?`),
		r.Name, data, r.UpdatedAt.UTC(), string(r.Kind), r.ID)
	if err != nil {
		slog.Error(s.backend+" UpdateRecord failed", "error", err, "kind", r.Kind, "id", r.ID)
		return fmt.Errorf("failed to update %s record %s: %w", r.Kind, r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rows affected check failed: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	slog.Debug(s.backend+" UpdateRecord succeeded", "kind", r.Kind, "id", r.ID)
	return nil
}

func (s *sqlDB) DeleteRecord(ctx context.Context, kind models.Entity, id string) error {
	_, err := s.db.ExecContext(ctx, s.q(`DELETE FROM records WHERE kind = ? AND id = ?`), string(kind), id)
	if err != nil {
		slog.Error(s.backend+" DeleteRecord failed", "error", err, "kind", kind, "id", id)
		return fmt.Errorf("failed to delete %s record %s: %w", kind, id, err)
	}
	slog.Debug(s.backend+" DeleteRecord succeeded", "kind", kind, "id", id)
	return nil
}

const recordColumns = `id, kind, user_id, name, data, created_at, updated_at`

func (s *sqlDB) GetRecord(ctx context.Context, kind models.Entity, id string) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+recordColumns+` FROM records WHERE kind = ? AND id = ?`), string(kind), id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		slog.Error(s.backend+" GetRecord failed", "error", err, "kind", kind, "id", id)
		return nil, err
	}
	return &r, nil
}

func (s *sqlDB) ListRecords(ctx context.Context, kind models.Entity, userID string) ([]models.Record, error) {
	return s.queryRecords(ctx, `SELECT `+recordColumns+` FROM records WHERE kind = ? AND user_id = ? ORDER BY created_at, id`, string(kind), userID)
}

func (s *sqlDB) ListRecordsByKind(ctx context.Context, kind models.Entity) ([]models.Record, error) {
	return s.queryRecords(ctx, `SELECT `+recordColumns+` FROM records WHERE kind = ? ORDER BY created_at, id`, string(kind))
}

func (s *sqlDB) queryRecords(ctx context.Context, query string, args ...any) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		slog.Error(s.backend+" list records query failed", "error", err)
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			slog.Error(s.backend+" list records scan failed", "error", err)
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate record rows: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord scans a Record from a row or rows cursor.
func scanRecord(sc rowScanner) (models.Record, error) {
	var r models.Record
	var kind string
	var data []byte
	if err := sc.Scan(&r.ID, &kind, &r.UserID, &r.Name, &data, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scan record failed: %w", err)
	}
	r.Kind = models.Entity(kind)
	r.Data = models.Data{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &r.Data); err != nil {
			return r, fmt.Errorf("failed to unmarshal record data: %w", err)
		}
	}
	return r, nil
}

func (s *sqlDB) GetSession(ctx context.Context, sessionID string) (*models.SessionState, error) {
	var st models.SessionState
	var userID sql.NullString
	var state []byte
	err := s.db.QueryRowContext(ctx, s.q(`SELECT session_id, user_id, state, created_at, updated_at FROM sessions WHERE session_id = ?`), sessionID).
		Scan(&st.SessionID, &userID, &state, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug(s.backend+" GetSession not found", "sessionID", sessionID)
		return nil, nil
	}
	if err != nil {
		slog.Error(s.backend+" GetSession failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	st.UserID = userID.String
	if len(state) > 0 {
		if err := json.Unmarshal(state, &st.Session); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
		}
	}
	return &st, nil
}

func (s *sqlDB) SaveSession(ctx context.Context, st models.SessionState) error {
	state, err := marshalJSON(st.Session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO sessions (session_id, user_id, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET user_id = excluded.user_id, state = excluded.state, updated_at = excluded.updated_at`),
		st.SessionID, nilIfEmpty(st.UserID), state, st.CreatedAt.UTC(), st.UpdatedAt.UTC())
	if err != nil {
		slog.Error(s.backend+" SaveSession failed", "error", err, "sessionID", st.SessionID)
		return fmt.Errorf("failed to save session %s: %w", st.SessionID, err)
	}
	slog.Debug(s.backend+" SaveSession succeeded", "sessionID", st.SessionID, "pending", st.Session.Pending != nil)
	return nil
}

func (s *sqlDB) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM sessions WHERE session_id = ?`), sessionID); err != nil {
		slog.Error(s.backend+" DeleteSession failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

func (s *sqlDB) AppendMessages(ctx context.Context, sessionID string, msgs []models.ChatMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.q(`INSERT INTO messages (id, session_id, role, text, actions, created_at) VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		var actions interface{}
		if len(m.Actions) > 0 {
			raw, err := marshalJSON(m.Actions)
			if err != nil {
				return fmt.Errorf("failed to marshal message actions: %w", err)
			}
			actions = raw
		}
		if _, err := stmt.ExecContext(ctx, m.ID, sessionID, string(m.Role), m.Text, actions, m.CreatedAt.UTC()); err != nil {
			slog.Error(s.backend+" AppendMessages insert failed", "error", err, "sessionID", sessionID)
			return fmt.Errorf("failed to insert message %s: %w", m.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit messages: %w", err)
	}
	slog.Debug(s.backend+" AppendMessages succeeded", "sessionID", sessionID, "count", len(msgs))
	return nil
}

func (s *sqlDB) ListMessages(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT id, role, text, actions, created_at FROM messages WHERE session_id = ? ORDER BY seq DESC LIMIT ?`),
		sessionID, historyLimit(limit))
	if err != nil {
		slog.Error(s.backend+" ListMessages query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		var role string
		var actions sql.NullString
		var createdAt time.Time
		if err := rows.Scan(&m.ID, &role, &m.Text, &actions, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		m.Role = models.Role(role)
		m.CreatedAt = createdAt
		if actions.Valid && actions.String != "" {
			if err := json.Unmarshal([]byte(actions.String), &m.Actions); err != nil {
				return nil, fmt.Errorf("failed to unmarshal message actions: %w", err)
			}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}

	// Rows come newest first; callers expect chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *sqlDB) DeleteMessages(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM messages WHERE session_id = ?`), sessionID); err != nil {
		slog.Error(s.backend+" DeleteMessages failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to delete messages for %s: %w", sessionID, err)
	}
	return nil
}

// Close closes the database connection.
func (s *sqlDB) Close() error {
	slog.Debug("Closing " + s.backend + " database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close "+s.backend+" database", "error", err)
	}
	return err
}
