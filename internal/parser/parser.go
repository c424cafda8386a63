// Package parser extracts raw feedback chunks from uploaded files: Slack
// export JSON, Jira CSV exports, and call transcripts as plain text or PDF.
package parser

import (
	"path/filepath"
	"strings"

	"github.com/pmsignal/hub/internal/apperrors"
	"github.com/pmsignal/hub/internal/models"
)

// Chunk is one parsed unit of feedback text before embedding.
type Chunk struct {
	Text       string
	SourceType models.SourceType
	Author     string
	Timestamp  string
	IssueType  string
}

// Parse dispatches on the file extension: .json is a Slack export, .csv a
// Jira export, .txt or .pdf a transcript. Anything else is a validation error.
func Parse(filename string, content []byte) ([]Chunk, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return ParseSlack(content)
	case ".csv":
		return ParseJira(content)
	case ".txt":
		return ParseTranscript(content), nil
	case ".pdf":
		return ParsePDF(content)
	default:
		return nil, apperrors.NewValidationError("file", "unsupported file type: "+filepath.Ext(filename))
	}
}
