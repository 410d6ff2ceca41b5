package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
)

// FailureMessage is returned when a chat turn fails inside the server.
const FailureMessage = "Something went wrong"

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req models.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&req); err != nil {
		slog.Warn("Server.chatHandler: failed to decode JSON", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.chatHandler: validation failed", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	uc := models.UserContext{UserID: req.UserID, UserName: req.UserName}
	msgs, err := s.conv.Process(r.Context(), req.SessionID, uc, req.Text)
	if err != nil {
		slog.Error("Server.chatHandler: turn failed", "sessionID", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, FailureMessage)
		return
	}
	writeMessages(w, req.SessionID, msgs)
}

func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	st, err := s.conv.Session(r.Context(), id)
	if err != nil {
		slog.Error("Server.sessionHandler: failed to load session", "sessionID", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load session")
		return
	}
	writeResult(w, st)
}

func (s *Server) resetSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := s.conv.Reset(r.Context(), id); err != nil {
		slog.Error("Server.resetSessionHandler: failed to reset session", "sessionID", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to reset session")
		return
	}
	slog.Info("Server.resetSessionHandler: session reset", "sessionID", id)
	writeMessage(w, "Session reset")
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	msgs, err := s.conv.History(r.Context(), id, limit)
	if err != nil {
		slog.Error("Server.historyHandler: failed to list messages", "sessionID", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}
	writeMessages(w, "", msgs)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, "ok")
}

// sessionID reads and checks the {id} path value, answering 400 when it is unusable.
func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	var err error
	switch {
	case id == "":
		err = models.ErrMissingSession
	case len(id) > models.MaxSessionIDLength:
		err = models.ErrSessionIDTooLong
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}

