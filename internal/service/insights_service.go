package service

import (
	"context"
	"fmt"

	"github.com/pmsignal/hub/internal/clustering"
	"github.com/pmsignal/hub/internal/models"
	"github.com/pmsignal/hub/internal/naming"
)

const (
	// responseExcerptCount and responseExcerptLength bound the excerpts
	// returned to the reviewer; the namer sees longer ones.
	responseExcerptCount  = 3
	responseExcerptLength = 100
)

// ClusterEngine defines the clustering pipeline the insights service drives.
type ClusterEngine interface {
	Run(ctx context.Context, sessionID string, clusterHint int) ([]clustering.Group, error)
}

// GroupNamer defines the naming stage.
type GroupNamer interface {
	NameGroups(ctx context.Context, excerpts [][]string, homogeneous []bool) ([]string, error)
}

// InsightsService runs the full clustering-and-naming pipeline for a session.
type InsightsService struct {
	engine ClusterEngine
	namer  GroupNamer
}

// NewInsightsService creates the insights service.
func NewInsightsService(engine ClusterEngine, namer GroupNamer) *InsightsService {
	return &InsightsService{engine: engine, namer: namer}
}

// RunClustering executes the pipeline and returns the ranked, named groups.
// Empty sessions yield an empty slice, never an error. Naming failures are
// fully absorbed into deterministic placeholder names; only key-pool
// exhaustion propagates.
func (s *InsightsService) RunClustering(ctx context.Context, sessionID string, clusterHint int) ([]models.ClusterGroup, error) {
	groups, err := s.engine.Run(ctx, sessionID, clusterHint)
	if err != nil {
		return nil, fmt.Errorf("clustering run: %w", err)
	}

	if len(groups) == 0 {
		return []models.ClusterGroup{}, nil
	}

	excerpts := make([][]string, len(groups))
	homogeneous := make([]bool, len(groups))
	for i, g := range groups {
		excerpts[i] = g.Excerpts
		homogeneous[i] = g.Homogeneous
	}

	names, err := s.namer.NameGroups(ctx, excerpts, homogeneous)
	if err != nil {
		return nil, err
	}

	names = naming.FlagDuplicateNames(names, naming.DefaultSharedRunLength)

	result := make([]models.ClusterGroup, len(groups))
	for i, g := range groups {
		name := naming.FallbackName(i)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}

		result[i] = models.ClusterGroup{
			Index:    g.Label,
			Count:    g.Count,
			Excerpts: responseExcerpts(g.Excerpts),
			Sources:  g.Sources,
			Name:     name,
		}
	}

	return result, nil
}

func responseExcerpts(excerpts []string) []string {
	out := make([]string, 0, responseExcerptCount)
	for _, e := range excerpts {
		if len(out) == responseExcerptCount {
			break
		}

		runes := []rune(e)
		if len(runes) > responseExcerptLength {
			e = string(runes[:responseExcerptLength])
		}

		out = append(out, e)
	}

	return out
}
