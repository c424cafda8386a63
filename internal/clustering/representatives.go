package clustering

import (
	"sort"

	"github.com/pmsignal/hub/internal/models"
	"github.com/pmsignal/hub/pkg/embeddings"
)

const (
	// DefaultTopRepresentatives is how many excerpts are considered per group.
	DefaultTopRepresentatives = 5

	// DefaultHomogeneityCutoff: when one source file accounts for at least
	// this many of the top picks, the group is classified homogeneous.
	DefaultHomogeneityCutoff = 4

	// representativeExcerptLength bounds excerpt size passed to the namer.
	representativeExcerptLength = 120

	// homogeneousExcerptCount limits homogeneous groups to the dominant
	// file's best excerpts.
	homogeneousExcerptCount = 3
)

// SelectRepresentatives picks the excerpts most similar to the group centroid
// by cosine similarity and classifies the group. If one source file accounts
// for homogeneityCutoff or more of the topN picks, the group is homogeneous
// and excerpts are restricted to that file's top entries; otherwise the group
// is mixed and all top picks are kept. This distinction lets the namer ask
// mixed groups for a common theme instead of describing one dominant source.
func SelectRepresentatives(
	memberIndices []int,
	matrix [][]float32,
	records []models.FeedbackRecord,
	centroid []float32,
	topN, homogeneityCutoff int,
) (excerpts []string, homogeneous bool) {
	if topN <= 0 {
		topN = DefaultTopRepresentatives
	}

	if homogeneityCutoff <= 0 {
		homogeneityCutoff = DefaultHomogeneityCutoff
	}

	ranked := make([]int, len(memberIndices))
	copy(ranked, memberIndices)

	sims := make(map[int]float64, len(memberIndices))
	for _, idx := range memberIndices {
		sims[idx] = embeddings.CosineSimilarity(matrix[idx], centroid)
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return sims[ranked[a]] > sims[ranked[b]]
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	fileCounts := make(map[string]int)
	for _, idx := range ranked {
		fileCounts[records[idx].SourceFile]++
	}

	dominantFile := ""
	dominantCount := 0
	for file, c := range fileCounts {
		if c > dominantCount {
			dominantFile, dominantCount = file, c
		}
	}

	if dominantCount >= homogeneityCutoff {
		for _, idx := range ranked {
			if records[idx].SourceFile != dominantFile {
				continue
			}

			excerpts = append(excerpts, truncate(records[idx].Text, representativeExcerptLength))
			if len(excerpts) == homogeneousExcerptCount {
				break
			}
		}

		return excerpts, true
	}

	for _, idx := range ranked {
		excerpts = append(excerpts, truncate(records[idx].Text, representativeExcerptLength))
	}

	return excerpts, false
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n])
}
