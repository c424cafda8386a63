package clustering

import (
	"strings"

	"github.com/pmsignal/hub/internal/models"
)

const (
	// fingerprintLength is how many characters of normalized text form the
	// exact-duplicate fingerprint.
	fingerprintLength = 100

	// DefaultOverlapThreshold is the bag-of-words overlap ratio above which
	// two records from the same source file count as near-duplicates.
	DefaultOverlapThreshold = 0.8
)

// Deduplicate removes exact and near-duplicate records, preserving the
// original relative order. A record is dropped when the first 100 characters
// of its normalized text match an earlier record, or when it shares a source
// file with an earlier kept record and their word-bag overlap ratio exceeds
// overlapThreshold. Near-duplicate comparison is scoped per source file to
// bound cost. Running Deduplicate on its own output returns the same output.
func Deduplicate(records []models.FeedbackRecord, overlapThreshold float64) []models.FeedbackRecord {
	if overlapThreshold <= 0 {
		overlapThreshold = DefaultOverlapThreshold
	}

	seen := make(map[string]struct{}, len(records))
	keptWordsByFile := make(map[string][]map[string]struct{})
	kept := make([]models.FeedbackRecord, 0, len(records))

	for _, rec := range records {
		normalized := strings.ToLower(strings.TrimSpace(rec.Text))

		fp := normalized
		if runes := []rune(fp); len(runes) > fingerprintLength {
			fp = string(runes[:fingerprintLength])
		}

		if _, ok := seen[fp]; ok {
			continue
		}

		words := wordBag(normalized)

		if isNearDuplicate(words, keptWordsByFile[rec.SourceFile], overlapThreshold) {
			continue
		}

		seen[fp] = struct{}{}
		keptWordsByFile[rec.SourceFile] = append(keptWordsByFile[rec.SourceFile], words)
		kept = append(kept, rec)
	}

	return kept
}

func wordBag(normalized string) map[string]struct{} {
	bag := make(map[string]struct{})
	for _, w := range strings.Fields(normalized) {
		bag[w] = struct{}{}
	}

	return bag
}

// isNearDuplicate reports whether words overlaps any earlier kept bag from
// the same source file by more than threshold, where the overlap ratio is
// |a ∩ b| / max(|a|, |b|).
func isNearDuplicate(words map[string]struct{}, earlier []map[string]struct{}, threshold float64) bool {
	if len(words) == 0 {
		return false
	}

	for _, other := range earlier {
		if len(other) == 0 {
			continue
		}

		shared := 0
		for w := range words {
			if _, ok := other[w]; ok {
				shared++
			}
		}

		denom := len(words)
		if len(other) > denom {
			denom = len(other)
		}

		if float64(shared)/float64(denom) > threshold {
			return true
		}
	}

	return false
}
