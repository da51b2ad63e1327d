// Package hierarchy proposes broader/narrower tag pairs by substring
// containment. Direction is purely lexical: the containing string is labeled
// broader, which can be wrong for terms that are textually longer but
// semantically narrower. Candidates are review material, not conclusions.
package hierarchy

import (
	"strings"

	"github.com/openheritage/taglens/pkg/taglens/tagtable"
)

// Candidate is one proposed broader/narrower relationship.
type Candidate struct {
	BroaderTerm   string
	NarrowerTerm  string
	BroaderCount  int
	NarrowerCount int
	Relationship  string
}

// Detect checks every ordered pair of distinct tags for strict substring
// containment under case-insensitive comparison. Both directions are checked
// separately: containment is not symmetric, and (A in B) and (B in A) are
// different questions. Enumeration follows the table's lexicographic tag
// order for reproducible output.
func Detect(tbl *tagtable.Table) []Candidate {
	names := tbl.Names()

	lowered := make([]string, len(names))
	for i, name := range names {
		lowered[i] = strings.ToLower(name)
	}

	var candidates []Candidate
	for i, narrow := range names {
		for j, broad := range names {
			if i == j {
				continue
			}
			if lowered[i] == lowered[j] {
				continue
			}
			if !strings.Contains(lowered[j], lowered[i]) {
				continue
			}
			candidates = append(candidates, Candidate{
				BroaderTerm:   broad,
				NarrowerTerm:  narrow,
				BroaderCount:  tbl.Count(broad),
				NarrowerCount: tbl.Count(narrow),
				Relationship:  "substring",
			})
		}
	}

	return candidates
}
