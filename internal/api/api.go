// Package api exposes the LifeTracker conversation over HTTP.
//
// Clients post chat turns to /chat and read back session state and transcripts.
// When the Twilio transport is active its webhook is mounted on the same server.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
)

const (
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = ":8080"
	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes = 64 << 10
)

// Conversation is the host-side chat API served over HTTP. flow.ConversationFlow implements it.
type Conversation interface {
	Process(ctx context.Context, sessionID string, uc models.UserContext, text string) ([]models.ChatMessage, error)
	History(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error)
	Session(ctx context.Context, sessionID string) (models.SessionState, error)
	Reset(ctx context.Context, sessionID string) error
}

// Opts holds configuration for the API server.
type Opts struct {
	Addr    string
	Webhook http.HandlerFunc // inbound transport webhook, mounted at POST /webhook/twilio
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithTwilioWebhook mounts the Twilio inbound webhook.
func WithTwilioWebhook(h http.HandlerFunc) Option {
	return func(o *Opts) {
		o.Webhook = h
	}
}

// Server serves the chat API.
type Server struct {
	conv    Conversation
	addr    string
	webhook http.HandlerFunc
}

// NewServer creates a server around conv.
func NewServer(conv Conversation, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{conv: conv, addr: cfg.Addr, webhook: cfg.Webhook}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.chatHandler)
	mux.HandleFunc("GET /sessions/{id}", s.sessionHandler)
	mux.HandleFunc("DELETE /sessions/{id}", s.resetSessionHandler)
	mux.HandleFunc("GET /sessions/{id}/messages", s.historyHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	if s.webhook != nil {
		mux.HandleFunc("POST /webhook/twilio", s.webhook)
	}
	return logRequests(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Server.Run: shutting down API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("Server: request served", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
