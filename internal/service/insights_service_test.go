package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmsignal/hub/internal/apperrors"
	"github.com/pmsignal/hub/internal/clustering"
	"github.com/pmsignal/hub/internal/models"
)

type mockClusterEngine struct {
	runFunc func(ctx context.Context, sessionID string, clusterHint int) ([]clustering.Group, error)
}

func (m *mockClusterEngine) Run(ctx context.Context, sessionID string, clusterHint int) ([]clustering.Group, error) {
	if m.runFunc != nil {
		return m.runFunc(ctx, sessionID, clusterHint)
	}

	return []clustering.Group{}, nil
}

type mockGroupNamer struct {
	nameFunc func(ctx context.Context, excerpts [][]string, homogeneous []bool) ([]string, error)
}

func (m *mockGroupNamer) NameGroups(ctx context.Context, excerpts [][]string, homogeneous []bool) ([]string, error) {
	if m.nameFunc != nil {
		return m.nameFunc(ctx, excerpts, homogeneous)
	}

	return nil, nil
}

func twoGroups() []clustering.Group {
	return []clustering.Group{
		{
			Label:       0,
			MemberIDs:   []uuid.UUID{uuid.New(), uuid.New(), uuid.New()},
			Count:       3,
			Excerpts:    []string{"login fails on mobile", "cannot sign in", "sso redirect loops"},
			Homogeneous: true,
			Sources:     map[models.SourceType]int{models.SourceSlack: 3},
		},
		{
			Label:       2,
			MemberIDs:   []uuid.UUID{uuid.New(), uuid.New()},
			Count:       2,
			Excerpts:    []string{"invoices render the wrong total", "currency mismatch on billing page"},
			Homogeneous: false,
			Sources:     map[models.SourceType]int{models.SourceJira: 1, models.SourceTranscript: 1},
		},
	}
}

func TestRunClustering(t *testing.T) {
	ctx := context.Background()
	sessionID := uuid.New().String()

	t.Run("names and maps groups", func(t *testing.T) {
		var gotHomogeneous []bool
		namer := &mockGroupNamer{
			nameFunc: func(_ context.Context, excerpts [][]string, homogeneous []bool) ([]string, error) {
				gotHomogeneous = homogeneous
				require.Len(t, excerpts, 2)

				return []string{"Mobile Login Failures", "Incorrect Billing Totals"}, nil
			},
		}
		engine := &mockClusterEngine{
			runFunc: func(context.Context, string, int) ([]clustering.Group, error) {
				return twoGroups(), nil
			},
		}

		svc := NewInsightsService(engine, namer)

		clusters, err := svc.RunClustering(ctx, sessionID, 0)

		require.NoError(t, err)
		require.Len(t, clusters, 2)
		assert.Equal(t, []bool{true, false}, gotHomogeneous)

		assert.Equal(t, 0, clusters[0].Index)
		assert.Equal(t, 3, clusters[0].Count)
		assert.Equal(t, "Mobile Login Failures", clusters[0].Name)
		assert.Equal(t, map[models.SourceType]int{models.SourceSlack: 3}, clusters[0].Sources)

		assert.Equal(t, 2, clusters[1].Index)
		assert.Equal(t, "Incorrect Billing Totals", clusters[1].Name)
	})

	t.Run("response excerpts are capped in count and length", func(t *testing.T) {
		groups := twoGroups()
		groups[0].Excerpts = []string{
			strings.Repeat("a", 120),
			"second excerpt",
			"third excerpt",
			"fourth excerpt",
			"fifth excerpt",
		}

		engine := &mockClusterEngine{
			runFunc: func(context.Context, string, int) ([]clustering.Group, error) {
				return groups, nil
			},
		}
		namer := &mockGroupNamer{
			nameFunc: func(_ context.Context, excerpts [][]string, _ []bool) ([]string, error) {
				return []string{"First", "Second"}, nil
			},
		}

		svc := NewInsightsService(engine, namer)

		clusters, err := svc.RunClustering(ctx, sessionID, 0)

		require.NoError(t, err)
		require.Len(t, clusters[0].Excerpts, 3)
		assert.Len(t, clusters[0].Excerpts[0], 100)
	})

	t.Run("duplicate names collapse to fallbacks", func(t *testing.T) {
		engine := &mockClusterEngine{
			runFunc: func(context.Context, string, int) ([]clustering.Group, error) {
				return twoGroups(), nil
			},
		}
		namer := &mockGroupNamer{
			nameFunc: func(_ context.Context, _ [][]string, _ []bool) ([]string, error) {
				return []string{"Slow Page Load Times", "Slow Page Load Errors"}, nil
			},
		}

		svc := NewInsightsService(engine, namer)

		clusters, err := svc.RunClustering(ctx, sessionID, 0)

		require.NoError(t, err)
		assert.Equal(t, "Slow Page Load Times", clusters[0].Name)
		assert.Equal(t, "Unclassified Theme 2", clusters[1].Name)
	})

	t.Run("empty names fall back to placeholders", func(t *testing.T) {
		engine := &mockClusterEngine{
			runFunc: func(context.Context, string, int) ([]clustering.Group, error) {
				return twoGroups(), nil
			},
		}
		namer := &mockGroupNamer{
			nameFunc: func(_ context.Context, _ [][]string, _ []bool) ([]string, error) {
				return []string{"", ""}, nil
			},
		}

		svc := NewInsightsService(engine, namer)

		clusters, err := svc.RunClustering(ctx, sessionID, 0)

		require.NoError(t, err)
		assert.Equal(t, "Unclassified Theme 1", clusters[0].Name)
		assert.Equal(t, "Unclassified Theme 2", clusters[1].Name)
	})

	t.Run("empty session yields empty result without naming", func(t *testing.T) {
		named := false
		namer := &mockGroupNamer{
			nameFunc: func(_ context.Context, _ [][]string, _ []bool) ([]string, error) {
				named = true

				return nil, nil
			},
		}

		svc := NewInsightsService(&mockClusterEngine{}, namer)

		clusters, err := svc.RunClustering(ctx, sessionID, 0)

		require.NoError(t, err)
		assert.Empty(t, clusters)
		assert.False(t, named)
	})

	t.Run("engine errors propagate", func(t *testing.T) {
		engine := &mockClusterEngine{
			runFunc: func(context.Context, string, int) ([]clustering.Group, error) {
				return nil, errors.New("fetch failed")
			},
		}

		svc := NewInsightsService(engine, &mockGroupNamer{})

		_, err := svc.RunClustering(ctx, sessionID, 0)

		require.Error(t, err)
	})

	t.Run("namer pool exhaustion propagates", func(t *testing.T) {
		engine := &mockClusterEngine{
			runFunc: func(context.Context, string, int) ([]clustering.Group, error) {
				return twoGroups(), nil
			},
		}
		namer := &mockGroupNamer{
			nameFunc: func(_ context.Context, _ [][]string, _ []bool) ([]string, error) {
				return nil, apperrors.NewExhaustedPoolError("groq", "all credentials cooling")
			},
		}

		svc := NewInsightsService(engine, namer)

		_, err := svc.RunClustering(ctx, sessionID, 0)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrExhaustedPool)
	})
}
