package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/app"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/config"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/flow"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/lockfile"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
	"github.com/pruthviraj-b/lifetracker-sub001/internal/store"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	stateDir   string
	userID     string
	userName   string
	sessionID  string
	logLevel   string
}

func (o *rootOptions) bind(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVarP(&o.configPath, "config", "c", os.Getenv("LIFETRACKER_CONFIG"), "path to LifeTracker config file")
	f.StringVar(&o.stateDir, "state-dir", "", "state directory (overrides $LIFETRACKER_STATE_DIR)")
	f.StringVarP(&o.userID, "user", "u", "local", "user id to chat as; empty chats anonymously")
	f.StringVar(&o.userName, "name", "", "display name of the user")
	f.StringVarP(&o.sessionID, "session", "s", "", "session id (defaults to the user id, or \"console\")")
	f.StringVar(&o.logLevel, "log-level", "error", "log level: debug, info, warn or error")
}

func (o *rootOptions) user() models.UserContext {
	return models.UserContext{UserID: o.userID, UserName: o.userName}
}

func (o *rootOptions) session() string {
	switch {
	case o.sessionID != "":
		return o.sessionID
	case o.userID != "":
		return o.userID
	default:
		return "console"
	}
}

// env is an open console environment. close releases the store and the state lock.
type env struct {
	cfg   *config.Config
	store store.Store
	conv  *flow.ConversationFlow
	lock  *lockfile.Lock
}

func (e *env) close() {
	e.store.Close()
	e.lock.Release()
}

// open loads configuration, locks the state directory and builds the conversation.
func (o *rootOptions) open() (*env, error) {
	if err := os.Setenv("LOG_LEVEL", o.logLevel); err != nil {
		return nil, err
	}
	app.InitLogger()

	if o.stateDir != "" {
		if err := os.Setenv("LIFETRACKER_STATE_DIR", o.stateDir); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	lock, err := lockfile.AcquireLock(cfg.StateDir, "ltchat")
	if err != nil {
		return nil, err
	}
	st, err := app.OpenStore(cfg)
	if err != nil {
		lock.Release()
		return nil, err
	}
	return &env{cfg: cfg, store: st, conv: app.NewConversation(st, cfg), lock: lock}, nil
}

// withEnv runs fn inside an open environment.
func (o *rootOptions) withEnv(fn func(e *env) error) error {
	e, err := o.open()
	if err != nil {
		return fmt.Errorf("failed to open LifeTracker state: %w", err)
	}
	defer e.close()
	return fn(e)
}
