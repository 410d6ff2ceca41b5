// Package app assembles the LifeTracker conversation from configuration. Both the
// server and the developer console build on it.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/config"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/entities"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/export"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/flow"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/store"
)

// ParseLogLevel maps a LOG_LEVEL value to a slog level. Unknown values mean debug.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// InitLogger installs the default text logger at the LOG_LEVEL level.
func InitLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: ParseLogLevel(os.Getenv("LOG_LEVEL"))}))
	slog.SetDefault(logger)
}

// StoreOptions picks the store backend for the configured DSN.
func StoreOptions(cfg *config.Config) []store.Option {
	if cfg.DatabaseDSN == "" {
		return nil
	}
	if store.DetectDSNType(cfg.DatabaseDSN) == "postgres" {
		slog.Debug("app.StoreOptions: detected PostgreSQL DSN", "dsn_set", true)
		return []store.Option{store.WithPostgresDSN(cfg.DatabaseDSN)}
	}
	slog.Debug("app.StoreOptions: detected SQLite DSN", "db_path", cfg.DatabaseDSN)
	return []store.Option{store.WithSQLiteDSN(cfg.DatabaseDSN)}
}

// OpenStore opens the configured store, creating the SQLite directory when needed.
func OpenStore(cfg *config.Config) (store.Store, error) {
	if cfg.DatabaseDSN != "" && store.DetectDSNType(cfg.DatabaseDSN) != "postgres" {
		dir := filepath.Dir(strings.TrimPrefix(cfg.DatabaseDSN, "file:"))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}
	st, err := store.NewStore(StoreOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

// NewConversation builds the engine with every entity handler, the CSV exporter and
// the share link, hosted on st.
func NewConversation(st store.Store, cfg *config.Config, opts ...flow.EngineOption) *flow.ConversationFlow {
	engineOpts := []flow.EngineOption{
		flow.WithExporter(export.NewCSVExporter(st, cfg.Export.Dir)),
		flow.WithShareLink(cfg.Share.Link),
	}
	engineOpts = append(engineOpts, opts...)
	engine := flow.NewEngine(entities.NewHandlers(st), engineOpts...)
	return flow.NewConversationFlow(engine, flow.NewStoreBasedStateManager(st), st)
}
