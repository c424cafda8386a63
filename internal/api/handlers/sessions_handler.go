package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/pmsignal/hub/internal/api/response"
)

// SessionStore deletes a session's stored records.
type SessionStore interface {
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
}

// BudgetResetter clears a session's question budget.
type BudgetResetter interface {
	ResetSession(sessionID string)
}

// SessionsHandler handles HTTP requests for session lifecycle.
type SessionsHandler struct {
	store   SessionStore
	budgets BudgetResetter
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(store SessionStore, budgets BudgetResetter) *SessionsHandler {
	return &SessionsHandler{store: store, budgets: budgets}
}

// DeleteSessionResponse reports how many records a delete removed.
type DeleteSessionResponse struct {
	SessionID      string `json:"session_id"`
	DeletedRecords int64  `json:"deleted_records"`
}

// Delete handles DELETE /v1/sessions/{id}. Removes the session's records and
// resets its question budget.
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		response.RespondBadRequest(w, "session id must be a valid UUID")

		return
	}

	deleted, err := h.store.DeleteBySession(r.Context(), sessionID)
	if err != nil {
		slog.Error("Failed to delete session", "session_id", sessionID, "error", err)
		response.RespondInternalServerError(w, "Session deletion failed")

		return
	}

	h.budgets.ResetSession(sessionID)

	response.RespondJSON(w, http.StatusOK, DeleteSessionResponse{
		SessionID:      sessionID,
		DeletedRecords: deleted,
	})
}
