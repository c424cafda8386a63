package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/pmsignal/hub/internal/api/response"
	"github.com/pmsignal/hub/internal/apperrors"
	"github.com/pmsignal/hub/internal/service"
)

// AnswerService defines the interface for grounded question answering.
type AnswerService interface {
	Answer(ctx context.Context, sessionID, query string, topK int) (*service.AnswerResult, error)
}

// QueryHandler handles HTTP requests for asking questions about a session.
type QueryHandler struct {
	service AnswerService
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(service AnswerService) *QueryHandler {
	return &QueryHandler{service: service}
}

// QueryRequest is the body for POST /v1/query.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
	TopK      int    `json:"top_k"`
}

// Query handles POST /v1/query.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")

		return
	}

	if req.SessionID == "" {
		response.RespondBadRequest(w, "session_id is required")

		return
	}

	if _, err := uuid.Parse(req.SessionID); err != nil {
		response.RespondBadRequest(w, "session_id must be a valid UUID")

		return
	}

	result, err := h.service.Answer(r.Context(), req.SessionID, req.Query, req.TopK)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyQuery):
			response.RespondBadRequest(w, "query is required and must be non-empty")
		case errors.Is(err, apperrors.ErrLimitExceeded):
			response.RespondTooManyRequests(w, err.Error())
		case errors.Is(err, apperrors.ErrExhaustedPool):
			response.RespondServiceUnavailable(w, err.Error())
		default:
			slog.Error("Failed to answer query", "session_id", req.SessionID, "error", err)
			response.RespondInternalServerError(w, "Query failed")
		}

		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}
