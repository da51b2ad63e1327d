package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/openheritage/taglens/pkg/taglens/internalerr"
	"github.com/openheritage/taglens/pkg/taglens/similarity"
)

// readFileChecked reads path, mapping a missing file to ErrMissingInput so
// callers can tell "run the earlier stage first" apart from an IO failure.
func readFileChecked(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", internalerr.ErrMissingInput, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// top returns at most n leading elements of s.
func top[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// sortPairsBySimilarity orders candidate merges by descending best score,
// with a lexicographic tie-break for stable output.
func sortPairsBySimilarity(pairs []similarity.Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Similarity != pairs[j].Similarity {
			return pairs[i].Similarity > pairs[j].Similarity
		}
		if pairs[i].Tag1 != pairs[j].Tag1 {
			return pairs[i].Tag1 < pairs[j].Tag1
		}
		return pairs[i].Tag2 < pairs[j].Tag2
	})
}
