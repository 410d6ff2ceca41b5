// Command lifetracker runs the LifeTracker chat server: the HTTP API, an optional
// WhatsApp or Twilio transport, and reminder delivery.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/app"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/config"
)

func main() {
	app.InitLogger()

	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	cfg, err := loadConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping LifeTracker", "state_dir", cfg.StateDir, "transport", cfg.Transport, "api_addr", cfg.APIAddr)
	if err := run(ctx, cfg); err != nil {
		slog.Error("LifeTracker failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("LifeTracker exited successfully")
}

// Flags holds command line flag values. Only flags given on the command line override configuration.
type Flags struct {
	configPath  *string
	stateDir    *string
	dbDSN       *string
	apiAddr     *string
	transport   *string
	qrOutput    *string
	numericCode *bool
}

func defineFlags(fs *flag.FlagSet) Flags {
	return Flags{
		configPath:  fs.String("config", os.Getenv("LIFETRACKER_CONFIG"), "path to a YAML config file (overrides $LIFETRACKER_CONFIG)"),
		stateDir:    fs.String("state-dir", "", "state directory for LifeTracker data (overrides $LIFETRACKER_STATE_DIR)"),
		dbDSN:       fs.String("db-dsn", "", "database DSN, SQLite path or Postgres URL (overrides $DATABASE_URL)"),
		apiAddr:     fs.String("api-addr", "", "API server address (overrides $API_ADDR)"),
		transport:   fs.String("transport", "", "chat transport: none, whatsapp or twilio (overrides $LIFETRACKER_TRANSPORT)"),
		qrOutput:    fs.String("qr-output", "", "path to write the WhatsApp login QR code"),
		numericCode: fs.Bool("numeric-code", false, "print a numeric WhatsApp login code instead of a QR code"),
	}
}

// flagEnv maps each overriding flag to the environment variable it stands in for.
var flagEnv = map[string]string{
	"state-dir":    "LIFETRACKER_STATE_DIR",
	"db-dsn":       "DATABASE_URL",
	"api-addr":     "API_ADDR",
	"transport":    "LIFETRACKER_TRANSPORT",
	"qr-output":    "WHATSAPP_QR_OUTPUT",
	"numeric-code": "WHATSAPP_NUMERIC_CODE",
}

// loadConfig layers flags over the environment and the YAML file. Flags set on the
// command line are exported as their environment variables before loading, so values
// derived from the state directory follow -state-dir.
func loadConfig(fs *flag.FlagSet, args []string) (*config.Config, error) {
	flags := defineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var setErr error
	fs.Visit(func(f *flag.Flag) {
		if key, ok := flagEnv[f.Name]; ok {
			if err := os.Setenv(key, f.Value.String()); err != nil && setErr == nil {
				setErr = err
			}
		}
	})
	if setErr != nil {
		return nil, setErr
	}

	cfg, err := config.Load(*flags.configPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("configuration loaded",
		"state_dir", cfg.StateDir,
		"dsn_set", cfg.DatabaseDSN != "",
		"api_addr", cfg.APIAddr,
		"transport", cfg.Transport,
		"reminders_cron", cfg.Reminders.Cron,
		"export_dir", cfg.Export.Dir)
	return cfg, nil
}
