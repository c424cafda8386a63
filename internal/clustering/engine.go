// Package clustering implements the issue-clustering engine: deduplication,
// cluster-count selection, minority-source oversampling, centroid
// partitioning, tiny-cluster merging, and representative-excerpt selection.
// Naming is layered on top by the insights service.
package clustering

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/pmsignal/hub/internal/models"
)

// VectorStore is the data access the engine needs. FetchAllBySession must
// return an empty slice, not an error, when the session has no data.
type VectorStore interface {
	FetchAllBySession(ctx context.Context, sessionID string) ([]models.FeedbackRecord, error)
}

// Options holds the engine's tunables. The thresholds are preserved as
// parameters rather than hard-coded; their defaults match the values the
// pipeline was tuned with.
type Options struct {
	OverlapThreshold   float64
	MinorityShare      float64
	MinClusterSize     int
	TopRepresentatives int
	HomogeneityCutoff  int
	MaxIterations      int
	Seed               int64
}

// DefaultOptions returns the standard engine tuning.
func DefaultOptions() Options {
	return Options{
		OverlapThreshold:   DefaultOverlapThreshold,
		MinorityShare:      DefaultMinorityShare,
		MinClusterSize:     DefaultMinClusterSize,
		TopRepresentatives: DefaultTopRepresentatives,
		HomogeneityCutoff:  DefaultHomogeneityCutoff,
		MaxIterations:      DefaultMaxIterations,
		Seed:               42,
	}
}

// Group is one unnamed cluster produced by a run, ranked by member count.
type Group struct {
	Label       int
	MemberIDs   []uuid.UUID
	Count       int
	Excerpts    []string
	Homogeneous bool
	Sources     map[models.SourceType]int
}

// Engine runs the clustering pipeline for one session per call. It holds no
// mutable state, so concurrent runs for different sessions are independent.
type Engine struct {
	store VectorStore
	opts  Options
}

// NewEngine creates an engine over the given vector store.
func NewEngine(store VectorStore, opts Options) *Engine {
	return &Engine{store: store, opts: opts}
}

// Run executes the pipeline for a session: fetch, deduplicate, size, balance,
// partition, merge, represent, rank. clusterHint overrides the size-based
// cluster count when positive; either way the count is clamped to
// [2, record count]. An empty or fully-deduplicated-to-empty session returns
// an empty slice and no error. The sum of group counts always equals the
// deduplicated record count: oversampled synthetic rows influence
// partitioning only and never appear in membership.
func (e *Engine) Run(ctx context.Context, sessionID string, clusterHint int) ([]Group, error) {
	records, err := e.store.FetchAllBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch session vectors: %w", err)
	}

	if len(records) == 0 {
		return []Group{}, nil
	}

	deduped := Deduplicate(records, e.opts.OverlapThreshold)
	if len(deduped) == 0 {
		return []Group{}, nil
	}

	sourceFiles := make(map[string]struct{})
	for _, rec := range deduped {
		sourceFiles[rec.SourceFile] = struct{}{}
	}

	k := clusterHint
	if k <= 0 {
		k = SelectClusterCount(len(deduped), len(sourceFiles))
	}
	k = ClampClusterCount(k, len(deduped))

	matrix := make([][]float32, len(deduped))
	for i, rec := range deduped {
		matrix[i] = rec.Embedding
	}

	slog.Info("clustering session",
		"session_id", sessionID,
		"records", len(records),
		"deduplicated", len(deduped),
		"source_files", len(sourceFiles),
		"k", k,
	)

	_, balMatrix, nOriginal := BalanceMinoritySources(deduped, matrix, e.opts.MinorityShare)

	labels, centroids := Partition(balMatrix, k, e.opts.MaxIterations, e.opts.Seed)

	// Synthetic oversampled rows end here; only original labels survive.
	labels = labels[:nOriginal]

	labels = MergeTinyClusters(labels, centroids, e.opts.MinClusterSize)

	groups := e.buildGroups(deduped, matrix, labels, centroids)

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Count > groups[b].Count
	})

	return groups, nil
}

func (e *Engine) buildGroups(
	deduped []models.FeedbackRecord, matrix [][]float32, labels []int, centroids [][]float32,
) []Group {
	membersByLabel := make(map[int][]int)
	for i, l := range labels {
		membersByLabel[l] = append(membersByLabel[l], i)
	}

	labelOrder := make([]int, 0, len(membersByLabel))
	for l := range membersByLabel {
		labelOrder = append(labelOrder, l)
	}
	sort.Ints(labelOrder)

	groups := make([]Group, 0, len(labelOrder))

	for _, label := range labelOrder {
		members := membersByLabel[label]

		excerpts, homogeneous := SelectRepresentatives(
			members, matrix, deduped, centroids[label],
			e.opts.TopRepresentatives, e.opts.HomogeneityCutoff,
		)

		sources := make(map[models.SourceType]int)
		ids := make([]uuid.UUID, 0, len(members))
		for _, idx := range members {
			sources[deduped[idx].SourceType]++
			ids = append(ids, deduped[idx].ID)
		}

		groups = append(groups, Group{
			Label:       label,
			MemberIDs:   ids,
			Count:       len(members),
			Excerpts:    excerpts,
			Homogeneous: homogeneous,
			Sources:     sources,
		})
	}

	return groups
}
