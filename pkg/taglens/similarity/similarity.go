// Package similarity flags tag pairs that are likely duplicates or variants
// of one another, using fuzzy string matching. All consolidation decisions
// stay with human curators; this only produces candidates.
package similarity

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/openheritage/taglens/pkg/taglens/tagtable"
)

// DefaultThreshold is the minimum score (0-100) for a pair to be flagged.
const DefaultThreshold = 80

// Pair is one candidate merge. Similarity is the maximum of the three
// metrics; SuggestedMerge is the higher-usage tag of the pair.
type Pair struct {
	Tag1           string
	Tag2           string
	Count1         int
	Count2         int
	Ratio          int
	Partial        int
	TokenSort      int
	Similarity     int
	SuggestedMerge string
}

// FindPairs compares every unordered pair of distinct tags and returns those
// whose best metric reaches the threshold. Tags are enumerated in
// lexicographic order, so Tag1 < Tag2 in every pair and output order is
// reproducible across runs. Comparison is case-insensitive; three metrics are
// computed per pair:
//
//   - Ratio: normalized edit distance over the full strings
//   - Partial: best-matching-substring ratio
//   - TokenSort: ratio over alphabetically re-sorted word tokens
//
// When usage counts tie, the suggested merge target is Tag1, the
// lexicographically smaller tag.
func FindPairs(tbl *tagtable.Table, threshold int) []Pair {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	names := tbl.Names()
	var pairs []Pair

	for i, tag1 := range names {
		lower1 := strings.ToLower(tag1)
		for _, tag2 := range names[i+1:] {
			lower2 := strings.ToLower(tag2)

			ratio := fuzzy.Ratio(lower1, lower2)
			partial := fuzzy.PartialRatio(lower1, lower2)
			tokenSort := fuzzy.TokenSortRatio(lower1, lower2)

			max := ratio
			if partial > max {
				max = partial
			}
			if tokenSort > max {
				max = tokenSort
			}

			if max < threshold {
				continue
			}

			count1 := tbl.Count(tag1)
			count2 := tbl.Count(tag2)

			suggested := tag1
			if count2 > count1 {
				suggested = tag2
			}

			pairs = append(pairs, Pair{
				Tag1:           tag1,
				Tag2:           tag2,
				Count1:         count1,
				Count2:         count2,
				Ratio:          ratio,
				Partial:        partial,
				TokenSort:      tokenSort,
				Similarity:     max,
				SuggestedMerge: suggested,
			})
		}
	}

	return pairs
}
