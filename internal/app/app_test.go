package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/config"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/flow"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelDebug,
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"chatty":  slog.LevelDebug,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestStoreOptions(t *testing.T) {
	if opts := StoreOptions(&config.Config{}); opts != nil {
		t.Errorf("empty DSN should give no options, got %d", len(opts))
	}
	if opts := StoreOptions(&config.Config{DatabaseDSN: "postgres://lt@localhost/lt"}); len(opts) != 1 {
		t.Errorf("expected one option for Postgres, got %d", len(opts))
	}
	if opts := StoreOptions(&config.Config{DatabaseDSN: "/tmp/lt.db"}); len(opts) != 1 {
		t.Errorf("expected one option for SQLite, got %d", len(opts))
	}
}

func TestNewConversationOnSQLite(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Parse(nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	cfg.DatabaseDSN = filepath.Join(dir, "db", "lifetracker.db")
	cfg.Export.Dir = filepath.Join(dir, "exports")

	st, err := OpenStore(cfg)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer st.Close()

	conv := NewConversation(st, cfg)
	ctx := context.Background()
	uc := models.UserContext{UserID: "15551234567"}
	msgs, err := conv.Process(ctx, uc.UserID, uc, "help")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(msgs) == 0 || msgs[0].Text != flow.HelpMessage {
		t.Fatalf("unexpected reply %+v", msgs)
	}
	history, err := conv.History(ctx, uc.UserID, 10)
	if err != nil || len(history) != 2 {
		t.Errorf("history = %d messages, err %v", len(history), err)
	}
}
