package parser

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// ParsePDF extracts the plain text of a PDF transcript and chunks it with
// the same sliding window as plain-text transcripts.
func ParsePDF(content []byte) (chunks []Chunk, err error) {
	// The reader panics on some malformed cross-reference tables instead of
	// returning an error.
	defer func() {
		if r := recover(); r != nil {
			chunks = nil
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	text, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	extracted, err := io.ReadAll(text)
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	return ParseTranscript(extracted), nil
}
