package clustering

import (
	"github.com/pmsignal/hub/internal/models"
)

// DefaultMinorityShare is the share of total records below which a source
// type counts as underrepresented.
const DefaultMinorityShare = 0.10

// BalanceMinoritySources duplicates every record of any source type whose
// share of the corpus is below minorityShare, appending the copies to both
// the record list and the embedding matrix. Duplicating minority records
// doubles their pull on nearby centroids without materially moving majority
// centroids. Returns the augmented pair and the original record count; only
// labels for the first nOriginal positions are meaningful downstream, so the
// synthetic copies never appear in reported membership.
func BalanceMinoritySources(
	records []models.FeedbackRecord, matrix [][]float32, minorityShare float64,
) ([]models.FeedbackRecord, [][]float32, int) {
	nOriginal := len(records)
	if nOriginal == 0 {
		return records, matrix, 0
	}

	if minorityShare <= 0 {
		minorityShare = DefaultMinorityShare
	}

	counts := make(map[models.SourceType]int)
	for _, rec := range records {
		counts[rec.SourceType]++
	}

	minority := make(map[models.SourceType]bool)
	for st, c := range counts {
		share := float64(c) / float64(nOriginal)
		if share < minorityShare {
			minority[st] = true
		}
	}

	if len(minority) == 0 {
		return records, matrix, nOriginal
	}

	augmented := make([]models.FeedbackRecord, nOriginal, nOriginal*2)
	copy(augmented, records)
	augMatrix := make([][]float32, nOriginal, nOriginal*2)
	copy(augMatrix, matrix)

	for i := 0; i < nOriginal; i++ {
		if minority[records[i].SourceType] {
			augmented = append(augmented, records[i])
			augMatrix = append(augMatrix, matrix[i])
		}
	}

	return augmented, augMatrix, nOriginal
}
