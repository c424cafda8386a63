package clustering

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/pmsignal/hub/pkg/embeddings"
)

// DefaultMaxIterations caps the iterative relocation loop.
const DefaultMaxIterations = 100

// Partition runs centroid-based partitioning (Lloyd iteration) over matrix,
// minimizing within-group squared Euclidean distance to centroid. Centroids
// are initialized with k-means++ driven by a seeded source, so the result is
// deterministic across runs for the same input and seed. Returns a label per
// row and the k centroids.
func Partition(matrix [][]float32, k, maxIterations int, seed int64) ([]int, [][]float32) {
	if len(matrix) == 0 || k <= 0 {
		return nil, nil
	}

	if k > len(matrix) {
		k = len(matrix)
	}

	if maxIterations < 1 {
		maxIterations = DefaultMaxIterations
	}

	dim := len(matrix[0])
	rng := rand.New(rand.NewSource(seed))
	centroids := initializeCentroidsKMeansPlusPlus(matrix, k, rng)

	labels := make([]int, len(matrix))

	for iter := 0; iter < maxIterations; iter++ {
		// Assignment step: each point to its nearest centroid.
		changed := false
		for i, row := range matrix {
			nearest := nearestCentroid(row, centroids)
			if labels[i] != nearest {
				labels[i] = nearest
				changed = true
			}
		}

		if !changed && iter > 0 {
			slog.Debug("k-means converged", "iterations", iter+1)
			break
		}

		// Update step: recompute centroids as the mean of assigned points.
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := 0; c < k; c++ {
			sums[c] = make([]float64, dim)
		}

		for i, row := range matrix {
			c := labels[i]
			counts[c]++
			for d := 0; d < dim; d++ {
				sums[c][d] += float64(row[d])
			}
		}

		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Empty cluster keeps its previous centroid.
				continue
			}

			next := make([]float32, dim)
			for d := 0; d < dim; d++ {
				next[d] = float32(sums[c][d] / float64(counts[c]))
			}
			centroids[c] = next
		}
	}

	return labels, centroids
}

// initializeCentroidsKMeansPlusPlus picks starting centroids with probability
// proportional to squared distance from the already-chosen set.
func initializeCentroidsKMeansPlusPlus(matrix [][]float32, k int, rng *rand.Rand) [][]float32 {
	n := len(matrix)
	centroids := make([][]float32, 0, k)

	first := make([]float32, len(matrix[0]))
	copy(first, matrix[rng.Intn(n)])
	centroids = append(centroids, first)

	for len(centroids) < k {
		distances := make([]float64, n)

		var totalDist float64
		for i, row := range matrix {
			minDist := math.MaxFloat64
			for _, centroid := range centroids {
				if dist := embeddings.SquaredDistance(row, centroid); dist < minDist {
					minDist = dist
				}
			}

			distances[i] = minDist
			totalDist += minDist
		}

		selected := 0
		if totalDist > 0 {
			target := rng.Float64() * totalDist

			var cum float64
			for i, d := range distances {
				cum += d
				if cum >= target {
					selected = i
					break
				}
			}
		} else {
			// All points coincide with an existing centroid.
			selected = rng.Intn(n)
		}

		next := make([]float32, len(matrix[selected]))
		copy(next, matrix[selected])
		centroids = append(centroids, next)
	}

	return centroids
}

func nearestCentroid(row []float32, centroids [][]float32) int {
	minDist := math.MaxFloat64
	nearest := 0

	for i, centroid := range centroids {
		if dist := embeddings.SquaredDistance(row, centroid); dist < minDist {
			minDist = dist
			nearest = i
		}
	}

	return nearest
}
