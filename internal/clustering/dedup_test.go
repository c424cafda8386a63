package clustering

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmsignal/hub/internal/models"
)

func record(file, text string) models.FeedbackRecord {
	return models.FeedbackRecord{
		ID:         uuid.New(),
		SourceFile: file,
		SourceType: models.SourceSlack,
		Text:       text,
	}
}

func TestDeduplicate(t *testing.T) {
	t.Run("drops exact duplicates regardless of case and whitespace", func(t *testing.T) {
		records := []models.FeedbackRecord{
			record("a.json", "Login is broken on mobile"),
			record("a.json", "  LOGIN IS BROKEN ON MOBILE  "),
			record("a.json", "Dashboard loads slowly"),
		}

		kept := Deduplicate(records, DefaultOverlapThreshold)

		require.Len(t, kept, 2)
		assert.Equal(t, "Login is broken on mobile", kept[0].Text)
		assert.Equal(t, "Dashboard loads slowly", kept[1].Text)
	})

	t.Run("fingerprint compares only the first hundred characters", func(t *testing.T) {
		prefix := strings.Repeat("x", 100)
		records := []models.FeedbackRecord{
			record("a.json", prefix+" first tail"),
			record("b.json", prefix+" completely different tail"),
		}

		kept := Deduplicate(records, DefaultOverlapThreshold)

		assert.Len(t, kept, 1)
	})

	t.Run("drops near-duplicates within the same source file", func(t *testing.T) {
		records := []models.FeedbackRecord{
			record("a.json", "the checkout button does nothing when clicked on safari"),
			record("a.json", "the checkout button does nothing when clicked on firefox"),
		}

		kept := Deduplicate(records, DefaultOverlapThreshold)

		assert.Len(t, kept, 1)
	})

	t.Run("keeps near-duplicates across different source files", func(t *testing.T) {
		records := []models.FeedbackRecord{
			record("a.json", "the checkout button does nothing when clicked on safari"),
			record("b.csv", "the checkout button does nothing when clicked on firefox"),
		}

		kept := Deduplicate(records, DefaultOverlapThreshold)

		assert.Len(t, kept, 2)
	})

	t.Run("keeps distinct records and preserves order", func(t *testing.T) {
		records := []models.FeedbackRecord{
			record("a.json", "export to csv fails with large datasets"),
			record("a.json", "dark mode resets after every deploy"),
			record("a.json", "billing page shows the wrong currency"),
		}

		kept := Deduplicate(records, DefaultOverlapThreshold)

		require.Len(t, kept, 3)
		for i := range records {
			assert.Equal(t, records[i].Text, kept[i].Text)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		records := make([]models.FeedbackRecord, 0, 20)
		for i := 0; i < 10; i++ {
			records = append(records, record("a.json", fmt.Sprintf("unique issue number %d about feature %d", i, i*7)))
			records = append(records, record("a.json", fmt.Sprintf("unique issue number %d about feature %d", i, i*7)))
		}

		once := Deduplicate(records, DefaultOverlapThreshold)
		twice := Deduplicate(once, DefaultOverlapThreshold)

		assert.Equal(t, once, twice)
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		assert.Empty(t, Deduplicate(nil, DefaultOverlapThreshold))
	})
}
