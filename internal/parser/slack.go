package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pmsignal/hub/internal/models"
)

// minSlackMessageLength filters out reactions, acks, and other noise.
const minSlackMessageLength = 10

type slackMessage struct {
	Text    string `json:"text"`
	User    string `json:"user"`
	TS      string `json:"ts"`
	Subtype string `json:"subtype"`
}

var skippedSubtypes = map[string]struct{}{
	"bot_message":   {},
	"channel_join":  {},
	"channel_leave": {},
}

// ParseSlack parses a Slack export into chunks. Accepts either a single
// channel export (a JSON array of messages) or a multi-channel export (a map
// of channel name to message array). Bot and system messages are skipped, as
// are messages too short to carry signal.
func ParseSlack(content []byte) ([]Chunk, error) {
	var messages []slackMessage

	if err := json.Unmarshal(content, &messages); err != nil {
		var channels map[string][]slackMessage
		if err2 := json.Unmarshal(content, &channels); err2 != nil {
			return nil, fmt.Errorf("parse slack export: %w", err)
		}

		for _, msgs := range channels {
			messages = append(messages, msgs...)
		}
	}

	chunks := make([]Chunk, 0, len(messages))

	for _, msg := range messages {
		text := strings.TrimSpace(msg.Text)
		if len(text) < minSlackMessageLength {
			continue
		}

		if _, skip := skippedSubtypes[msg.Subtype]; skip {
			continue
		}

		chunks = append(chunks, Chunk{
			Text:       text,
			SourceType: models.SourceSlack,
			Author:     msg.User,
			Timestamp:  msg.TS,
		})
	}

	return chunks, nil
}
