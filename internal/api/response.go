package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
)

// internalErrorBody is written when a response cannot be encoded.
var internalErrorBody = mustMarshal(models.Error(FailureMessage))

func mustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic("api: cannot encode fallback response: " + err.Error())
	}
	return b
}

// writeEnvelope encodes resp before touching headers so an encoding failure can
// still become a clean 500.
func writeEnvelope(w http.ResponseWriter, status int, resp models.APIResponse) {
	body, err := json.Marshal(resp)
	if err != nil {
		slog.Error("Server.writeEnvelope: failed to encode response", "status", status, "error", err)
		body, status = internalErrorBody, http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Error("Server.writeEnvelope: failed to write response", "error", err)
	}
}

func writeResult(w http.ResponseWriter, result interface{}) {
	writeEnvelope(w, http.StatusOK, models.Success(result))
}

func writeMessage(w http.ResponseWriter, message string) {
	writeEnvelope(w, http.StatusOK, models.SuccessWithMessage(message, nil))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, models.Error(message))
}

// writeMessages answers with chat messages, never encoding a nil list as null.
// An empty sessionID writes the bare list, as the history endpoint does.
func writeMessages(w http.ResponseWriter, sessionID string, msgs []models.ChatMessage) {
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	if sessionID == "" {
		writeResult(w, msgs)
		return
	}
	writeResult(w, models.ChatResponse{SessionID: sessionID, Messages: msgs})
}
