package clustering

// SelectClusterCount picks the number of clusters from corpus size and source
// diversity. A single source file cannot sustain many distinct themes, so it
// overrides the size-based table. This is a deliberate heuristic, not derived
// from an information-theoretic criterion.
func SelectClusterCount(nRecords, nSourceFiles int) int {
	if nSourceFiles == 1 {
		return 3
	}

	switch {
	case nRecords < 20:
		return 3
	case nRecords <= 50:
		return 5
	case nRecords <= 100:
		return 7
	default:
		return 10
	}
}

// ClampClusterCount bounds k to [2, nRecords] so the partitioner never sees
// more clusters than points. Sessions with a single record collapse to k=1.
func ClampClusterCount(k, nRecords int) int {
	if k < 2 {
		k = 2
	}

	if k > nRecords {
		k = nRecords
	}

	return k
}
