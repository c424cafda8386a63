package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/pmsignal/hub/internal/models"
)

// ParseJira parses a Jira CSV export. Each row becomes one chunk of the form
// "Issue Type: Summary. Description". Rows with no usable text are skipped.
func ParseJira(content []byte) ([]Chunk, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("parse jira csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	var chunks []Chunk

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse jira csv row: %w", err)
		}

		summary := field(row, columns, "Summary")
		description := field(row, columns, "Description")
		issueType := field(row, columns, "Issue Type")

		text := strings.TrimSpace(fmt.Sprintf("%s: %s. %s", issueType, summary, description))
		if text == "" || text == ": ." {
			continue
		}

		chunks = append(chunks, Chunk{
			Text:       text,
			SourceType: models.SourceJira,
			IssueType:  issueType,
		})
	}

	return chunks, nil
}

func field(row []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
