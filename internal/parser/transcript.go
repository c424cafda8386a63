package parser

import (
	"strings"

	"github.com/pmsignal/hub/internal/models"
)

const (
	// transcriptWindowWords is the sliding-window chunk size.
	transcriptWindowWords = 300

	// transcriptStepWords advances the window, leaving a 50-word overlap so
	// a topic spanning a chunk boundary is not split away from its context.
	transcriptStepWords = 250
)

// ParseTranscript chunks a plain-text call transcript with a sliding window
// of 300 words and 50 words of overlap.
func ParseTranscript(content []byte) []Chunk {
	words := strings.Fields(string(content))

	var chunks []Chunk

	for i := 0; i < len(words); i += transcriptStepWords {
		end := i + transcriptWindowWords
		if end > len(words) {
			end = len(words)
		}

		text := strings.TrimSpace(strings.Join(words[i:end], " "))
		if text == "" {
			continue
		}

		chunks = append(chunks, Chunk{
			Text:       text,
			SourceType: models.SourceTranscript,
		})

		if end == len(words) {
			break
		}
	}

	return chunks
}
