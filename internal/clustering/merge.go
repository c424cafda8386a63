package clustering

import (
	"math"

	"github.com/pmsignal/hub/pkg/embeddings"
)

// DefaultMinClusterSize is the smallest group size that survives merging.
const DefaultMinClusterSize = 3

// MergeTinyClusters reassigns every group with fewer than minSize members
// (but at least one) to the group with the nearest other centroid by
// Euclidean distance. Member counts are taken once at the start: a group
// that becomes undersized as a side effect of a merge in this pass is not
// itself re-merged. Groups with zero members are skipped and simply absent
// from further processing. Returns a new label slice; the input is not
// modified.
func MergeTinyClusters(labels []int, centroids [][]float32, minSize int) []int {
	if minSize <= 0 {
		minSize = DefaultMinClusterSize
	}

	merged := make([]int, len(labels))
	copy(merged, labels)

	counts := make([]int, len(centroids))
	for _, l := range labels {
		if l >= 0 && l < len(counts) {
			counts[l]++
		}
	}

	for c := range centroids {
		if counts[c] == 0 || counts[c] >= minSize {
			continue
		}

		target := nearestOtherCentroid(c, centroids, counts)
		if target < 0 {
			continue
		}

		for i, l := range merged {
			if l == c {
				merged[i] = target
			}
		}
	}

	return merged
}

// nearestOtherCentroid returns the index of the closest centroid to
// centroids[from] among groups that had members at the start of the pass,
// or -1 when no candidate exists.
func nearestOtherCentroid(from int, centroids [][]float32, counts []int) int {
	minDist := math.MaxFloat64
	nearest := -1

	for c := range centroids {
		if c == from || counts[c] == 0 {
			continue
		}

		if dist := embeddings.EuclideanDistance(centroids[from], centroids[c]); dist < minDist {
			minDist = dist
			nearest = c
		}
	}

	return nearest
}
