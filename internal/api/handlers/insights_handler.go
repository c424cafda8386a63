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
	"github.com/pmsignal/hub/internal/models"
)

// InsightsService defines the interface for theme clustering business logic.
type InsightsService interface {
	RunClustering(ctx context.Context, sessionID string, clusterHint int) ([]models.ClusterGroup, error)
}

// InsightsHandler handles HTTP requests for theme clustering.
type InsightsHandler struct {
	service InsightsService
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(service InsightsService) *InsightsHandler {
	return &InsightsHandler{service: service}
}

// InsightsRequest is the body for POST /v1/insights.
// NClusters overrides the automatic cluster count selection when positive.
type InsightsRequest struct {
	SessionID string `json:"session_id"`
	NClusters int    `json:"n_clusters"`
}

// Insights handles POST /v1/insights.
func (h *InsightsHandler) Insights(w http.ResponseWriter, r *http.Request) {
	var req InsightsRequest

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

	if req.NClusters < 0 {
		response.RespondBadRequest(w, "n_clusters must be a positive integer")

		return
	}

	clusters, err := h.service.RunClustering(r.Context(), req.SessionID, req.NClusters)
	if err != nil {
		if errors.Is(err, apperrors.ErrExhaustedPool) {
			response.RespondServiceUnavailable(w, err.Error())

			return
		}

		slog.Error("Failed to run clustering", "session_id", req.SessionID, "error", err)
		response.RespondInternalServerError(w, "Clustering failed")

		return
	}

	response.RespondJSON(w, http.StatusOK, models.ClusteringResponse{
		SessionID:     req.SessionID,
		Clusters:      clusters,
		TotalClusters: len(clusters),
	})
}
