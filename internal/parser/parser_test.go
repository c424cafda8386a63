package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmsignal/hub/internal/apperrors"
	"github.com/pmsignal/hub/internal/models"
)

func TestParse(t *testing.T) {
	t.Run("dispatches on extension", func(t *testing.T) {
		chunks, err := Parse("export.json", []byte(`[{"text":"the login page is broken again","user":"U1","ts":"1"}]`))
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, models.SourceSlack, chunks[0].SourceType)

		chunks, err = Parse("tickets.CSV", []byte("Summary,Description,Issue Type\nLogin broken,Cannot sign in,Bug\n"))
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, models.SourceJira, chunks[0].SourceType)

		chunks, err = Parse("call.txt", []byte("we keep hearing complaints about onboarding"))
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, models.SourceTranscript, chunks[0].SourceType)
	})

	t.Run("unsupported extension is a validation error", func(t *testing.T) {
		_, err := Parse("slides.pptx", []byte("whatever"))

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestParseSlack(t *testing.T) {
	t.Run("single channel array export", func(t *testing.T) {
		content := []byte(`[
			{"text": "the export feature times out on large projects", "user": "U123", "ts": "1700000000.1"},
			{"text": "ok", "user": "U456", "ts": "1700000000.2"},
			{"text": "automated deploy notice for the team channel", "subtype": "bot_message"},
			{"text": "joined the channel just now ok", "subtype": "channel_join"}
		]`)

		chunks, err := ParseSlack(content)

		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "the export feature times out on large projects", chunks[0].Text)
		assert.Equal(t, "U123", chunks[0].Author)
		assert.Equal(t, "1700000000.1", chunks[0].Timestamp)
	})

	t.Run("multi channel map export", func(t *testing.T) {
		content := []byte(`{
			"general": [{"text": "search results are irrelevant for short queries", "user": "U1", "ts": "1"}],
			"support": [{"text": "password reset emails arrive hours late", "user": "U2", "ts": "2"}]
		}`)

		chunks, err := ParseSlack(content)

		require.NoError(t, err)
		assert.Len(t, chunks, 2)
	})

	t.Run("malformed json errors", func(t *testing.T) {
		_, err := ParseSlack([]byte("{not json"))

		require.Error(t, err)
	})
}

func TestParseJira(t *testing.T) {
	t.Run("rows become typed chunks", func(t *testing.T) {
		content := []byte("Issue Type,Summary,Description\n" +
			"Bug,Login broken,Users cannot sign in with SSO\n" +
			"Story,Add CSV export,\n")

		chunks, err := ParseJira(content)

		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "Bug: Login broken. Users cannot sign in with SSO", chunks[0].Text)
		assert.Equal(t, "Bug", chunks[0].IssueType)
		assert.Equal(t, models.SourceJira, chunks[0].SourceType)
		assert.Equal(t, "Story: Add CSV export.", chunks[1].Text)
	})

	t.Run("empty rows are skipped", func(t *testing.T) {
		content := []byte("Issue Type,Summary,Description\n,,\n")

		chunks, err := ParseJira(content)

		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("missing columns yield partial text", func(t *testing.T) {
		content := []byte("Summary\nOnboarding flow confuses new users\n")

		chunks, err := ParseJira(content)

		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, ": Onboarding flow confuses new users.", chunks[0].Text)
	})

	t.Run("header only yields no chunks", func(t *testing.T) {
		chunks, err := ParseJira([]byte("Issue Type,Summary,Description\n"))

		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("empty file errors", func(t *testing.T) {
		_, err := ParseJira(nil)

		require.Error(t, err)
	})
}

func TestParseTranscript(t *testing.T) {
	t.Run("short transcript is one chunk", func(t *testing.T) {
		chunks := ParseTranscript([]byte("customers keep asking for a dark mode option"))

		require.Len(t, chunks, 1)
		assert.Equal(t, models.SourceTranscript, chunks[0].SourceType)
	})

	t.Run("long transcript chunks with overlap", func(t *testing.T) {
		words := make([]string, 600)
		for i := range words {
			words[i] = fmt.Sprintf("w%d", i)
		}

		chunks := ParseTranscript([]byte(strings.Join(words, " ")))

		require.Len(t, chunks, 3)

		// Windows are 300 words stepping by 250, so each chunk starts
		// 50 words before the previous one ended.
		assert.True(t, strings.HasPrefix(chunks[0].Text, "w0 "))
		assert.True(t, strings.HasPrefix(chunks[1].Text, "w250 "))
		assert.True(t, strings.HasPrefix(chunks[2].Text, "w500 "))
		assert.True(t, strings.HasSuffix(chunks[0].Text, " w299"))
		assert.True(t, strings.HasSuffix(chunks[2].Text, " w599"))
	})

	t.Run("empty input yields no chunks", func(t *testing.T) {
		assert.Empty(t, ParseTranscript([]byte("   \n  ")))
	})
}
