package clustering

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmsignal/hub/internal/models"
)

type mockVectorStore struct {
	fetchFunc func(ctx context.Context, sessionID string) ([]models.FeedbackRecord, error)
}

func (m *mockVectorStore) FetchAllBySession(ctx context.Context, sessionID string) ([]models.FeedbackRecord, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, sessionID)
	}

	return []models.FeedbackRecord{}, nil
}

// sessionCorpus builds two well-separated topic blobs across two source
// files, with distinct texts so deduplication keeps everything.
func sessionCorpus(n int) []models.FeedbackRecord {
	records := make([]models.FeedbackRecord, 0, 2*n)
	for i := 0; i < n; i++ {
		rec := record("slack-export.json", fmt.Sprintf("login keeps failing with error code %d on attempt %d", i, 1000+i))
		rec.Embedding = []float32{1, float32(i) * 0.001}
		records = append(records, rec)
	}
	for i := 0; i < n; i++ {
		rec := record("tickets.csv", fmt.Sprintf("billing invoice %d renders amount %d incorrectly", i, 2000+i))
		rec.SourceType = models.SourceJira
		rec.Embedding = []float32{-1, 5 + float32(i)*0.001}
		records = append(records, rec)
	}

	return records
}

func TestEngineRun(t *testing.T) {
	ctx := context.Background()

	t.Run("empty session returns empty slice", func(t *testing.T) {
		engine := NewEngine(&mockVectorStore{}, DefaultOptions())

		groups, err := engine.Run(ctx, uuid.New().String(), 0)

		require.NoError(t, err)
		assert.Empty(t, groups)
	})

	t.Run("store errors propagate", func(t *testing.T) {
		engine := NewEngine(&mockVectorStore{
			fetchFunc: func(context.Context, string) ([]models.FeedbackRecord, error) {
				return nil, errors.New("connection refused")
			},
		}, DefaultOptions())

		_, err := engine.Run(ctx, uuid.New().String(), 0)

		require.Error(t, err)
	})

	t.Run("group counts sum to the deduplicated record count", func(t *testing.T) {
		corpus := sessionCorpus(15)
		engine := NewEngine(&mockVectorStore{
			fetchFunc: func(context.Context, string) ([]models.FeedbackRecord, error) {
				return corpus, nil
			},
		}, DefaultOptions())

		groups, err := engine.Run(ctx, uuid.New().String(), 0)

		require.NoError(t, err)
		require.NotEmpty(t, groups)

		total := 0
		memberIDs := make(map[uuid.UUID]bool)
		for _, g := range groups {
			total += g.Count
			assert.Len(t, g.MemberIDs, g.Count)
			for _, id := range g.MemberIDs {
				assert.False(t, memberIDs[id], "record assigned to two groups")
				memberIDs[id] = true
			}
		}
		assert.Equal(t, len(corpus), total)
	})

	t.Run("groups are ranked by member count descending", func(t *testing.T) {
		corpus := sessionCorpus(20)
		engine := NewEngine(&mockVectorStore{
			fetchFunc: func(context.Context, string) ([]models.FeedbackRecord, error) {
				return corpus, nil
			},
		}, DefaultOptions())

		groups, err := engine.Run(ctx, uuid.New().String(), 0)

		require.NoError(t, err)
		for i := 1; i < len(groups); i++ {
			assert.GreaterOrEqual(t, groups[i-1].Count, groups[i].Count)
		}
	})

	t.Run("cluster hint overrides automatic selection", func(t *testing.T) {
		corpus := sessionCorpus(20)
		engine := NewEngine(&mockVectorStore{
			fetchFunc: func(context.Context, string) ([]models.FeedbackRecord, error) {
				return corpus, nil
			},
		}, DefaultOptions())

		groups, err := engine.Run(ctx, uuid.New().String(), 2)

		require.NoError(t, err)
		assert.LessOrEqual(t, len(groups), 2)
	})

	t.Run("source histograms reflect membership", func(t *testing.T) {
		corpus := sessionCorpus(15)
		engine := NewEngine(&mockVectorStore{
			fetchFunc: func(context.Context, string) ([]models.FeedbackRecord, error) {
				return corpus, nil
			},
		}, DefaultOptions())

		groups, err := engine.Run(ctx, uuid.New().String(), 0)

		require.NoError(t, err)
		for _, g := range groups {
			histTotal := 0
			for _, c := range g.Sources {
				histTotal += c
			}
			assert.Equal(t, g.Count, histTotal)
		}
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		corpus := sessionCorpus(15)
		engine := NewEngine(&mockVectorStore{
			fetchFunc: func(context.Context, string) ([]models.FeedbackRecord, error) {
				return corpus, nil
			},
		}, DefaultOptions())

		first, err := engine.Run(ctx, uuid.New().String(), 0)
		require.NoError(t, err)
		second, err := engine.Run(ctx, uuid.New().String(), 0)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
}
