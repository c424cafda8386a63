package handlers

import (
	"net/http"

	"github.com/pmsignal/hub/internal/api/response"
	"github.com/pmsignal/hub/internal/keypool"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	pool *keypool.Pool
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(pool *keypool.Pool) *HealthHandler {
	return &HealthHandler{pool: pool}
}

// HealthResponse reports service status and per-provider credential pools.
type HealthResponse struct {
	Status string                         `json:"status"`
	Pools  map[string][]keypool.KeyStatus `json:"pools"`
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Pools: map[string][]keypool.KeyStatus{
			"groq":   h.pool.Status("groq"),
			"gemini": h.pool.Status("gemini"),
		},
	}

	response.RespondJSON(w, http.StatusOK, resp)
}
