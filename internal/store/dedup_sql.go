package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Compile-time checks that the SQL stores implement DedupRepo.
var (
	_ DedupRepo = (*SQLiteStore)(nil)
	_ DedupRepo = (*PostgresStore)(nil)
)

func (s *sqlDB) IsDuplicate(messageID string) (bool, error) {
	var id string
	err := s.db.QueryRow(s.q(`SELECT message_id FROM inbound_dedup WHERE message_id = ?`), messageID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return true, nil
}

// RecordInbound relies on the primary key so two concurrent deliveries of the
// same message cannot both report first sight.
func (s *sqlDB) RecordInbound(messageID, senderID string) (bool, error) {
	result, err := s.db.Exec(s.q(
		`INSERT INTO inbound_dedup (message_id, sender_id, received_at) VALUES (?, ?, ?)
		 ON CONFLICT (message_id) DO NOTHING`),
		messageID, senderID, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("record inbound failed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("dedup rows affected check failed: %w", err)
	}
	if n == 0 {
		slog.Debug(s.backend+".RecordInbound: duplicate inbound message", "messageID", messageID, "senderID", senderID)
	}
	return n > 0, nil
}

func (s *sqlDB) MarkProcessed(messageID string) error {
	_, err := s.db.Exec(s.q(`UPDATE inbound_dedup SET processed_at = ? WHERE message_id = ?`),
		time.Now().UTC(), messageID)
	if err != nil {
		return fmt.Errorf("mark processed failed: %w", err)
	}
	return nil
}
