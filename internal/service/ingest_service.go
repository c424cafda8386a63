package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pmsignal/hub/internal/apperrors"
	"github.com/pmsignal/hub/internal/models"
	"github.com/pmsignal/hub/internal/parser"
	"github.com/pmsignal/hub/pkg/embeddings"
)

const (
	// MaxUploadSize bounds a single uploaded file.
	MaxUploadSize = 10 << 20

	// storedTextLimit bounds the text persisted per record; embeddings are
	// computed from the full chunk.
	storedTextLimit = 1000
)

// RecordStore persists embedded feedback records.
type RecordStore interface {
	UpsertBatch(ctx context.Context, records []models.FeedbackRecord) error
}

// DocumentEmbedder embeds document batches.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// IngestService parses uploaded files, embeds the chunks, and stores them
// under a session.
type IngestService struct {
	store    RecordStore
	embedder DocumentEmbedder
}

// NewIngestService creates the ingest service.
func NewIngestService(store RecordStore, embedder DocumentEmbedder) *IngestService {
	return &IngestService{store: store, embedder: embedder}
}

// FileResult reports the outcome for one uploaded file.
type FileResult struct {
	File    string `json:"file"`
	Chunks  int    `json:"chunks"`
	Warning string `json:"warning,omitempty"`
}

// IngestFile parses one uploaded file, embeds its chunks, and upserts the
// records. Files over MaxUploadSize and unsupported extensions fail
// validation; files that parse to nothing succeed with a warning.
func (s *IngestService) IngestFile(ctx context.Context, sessionID, filename string, content []byte) (FileResult, error) {
	if len(content) > MaxUploadSize {
		return FileResult{}, apperrors.NewValidationError("file", filename+" exceeds 10MB limit")
	}

	chunks, err := parser.Parse(filename, content)
	if err != nil {
		return FileResult{}, err
	}

	if len(chunks) == 0 {
		return FileResult{File: filename, Warning: "no parseable content found"}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return FileResult{}, err
	}

	if len(vectors) != len(chunks) {
		return FileResult{}, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(chunks))
	}

	records := make([]models.FeedbackRecord, len(chunks))
	for i, c := range chunks {
		embeddings.NormalizeL2(vectors[i])

		text := c.Text
		if runes := []rune(text); len(runes) > storedTextLimit {
			text = string(runes[:storedTextLimit])
		}

		records[i] = models.FeedbackRecord{
			ID:         uuid.New(),
			SessionID:  sessionID,
			SourceFile: filename,
			SourceType: c.SourceType,
			Text:       text,
			Embedding:  vectors[i],
		}
	}

	if err := s.store.UpsertBatch(ctx, records); err != nil {
		return FileResult{}, err
	}

	slog.Info("file ingested", "session_id", sessionID, "file", filename, "chunks", len(records))

	return FileResult{File: filename, Chunks: len(records)}, nil
}
