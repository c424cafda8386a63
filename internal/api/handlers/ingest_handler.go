package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/pmsignal/hub/internal/api/response"
	"github.com/pmsignal/hub/internal/apperrors"
	"github.com/pmsignal/hub/internal/service"
)

// IngestService defines the interface for file ingestion business logic.
type IngestService interface {
	IngestFile(ctx context.Context, sessionID, filename string, content []byte) (service.FileResult, error)
}

// IngestHandler handles HTTP requests for uploading feedback files.
type IngestHandler struct {
	service IngestService
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(service IngestService) *IngestHandler {
	return &IngestHandler{service: service}
}

// IngestResponse is the response for POST /v1/ingest.
type IngestResponse struct {
	SessionID   string               `json:"session_id"`
	Files       []service.FileResult `json:"files"`
	TotalChunks int                  `json:"total_chunks"`
}

// Ingest handles POST /v1/ingest.
// Accepts multipart form uploads under the "files" field. An optional
// "session_id" field appends to an existing session; otherwise a new
// session is created.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(service.MaxUploadSize); err != nil {
		response.RespondBadRequest(w, "Invalid multipart form")

		return
	}

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		sessionID = uuid.New().String()
	} else if _, err := uuid.Parse(sessionID); err != nil {
		response.RespondBadRequest(w, "session_id must be a valid UUID")

		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		response.RespondBadRequest(w, "At least one file is required under the 'files' field")

		return
	}

	results := make([]service.FileResult, 0, len(files))
	totalChunks := 0

	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			response.RespondBadRequest(w, fmt.Sprintf("Cannot read uploaded file %q", header.Filename))

			return
		}

		content, err := io.ReadAll(f)
		_ = f.Close()

		if err != nil {
			response.RespondBadRequest(w, fmt.Sprintf("Cannot read uploaded file %q", header.Filename))

			return
		}

		result, err := h.service.IngestFile(r.Context(), sessionID, header.Filename, content)
		if err != nil {
			var validationErr *apperrors.ValidationError
			if errors.As(err, &validationErr) {
				response.RespondBadRequest(w, err.Error())

				return
			}

			if errors.Is(err, apperrors.ErrExhaustedPool) {
				response.RespondServiceUnavailable(w, err.Error())

				return
			}

			slog.Error("Failed to ingest file", "file", header.Filename, "error", err)
			response.RespondInternalServerError(w, "File ingestion failed")

			return
		}

		totalChunks += result.Chunks
		results = append(results, result)
	}

	response.RespondJSON(w, http.StatusOK, IngestResponse{
		SessionID:   sessionID,
		Files:       results,
		TotalChunks: totalChunks,
	})
}
