// Package cooccur counts how often tag pairs appear on the same record,
// producing the weighted tag graph behind the network report.
package cooccur

import (
	"sort"

	"github.com/openheritage/taglens/pkg/taglens/tagtable"
)

// TagPair is a canonically ordered pair of tag names (Tag1 < Tag2).
type TagPair struct {
	Tag1, Tag2 string
}

// Pair is one co-occurrence result: two tags, the number of records carrying
// both, and each tag's overall usage count for context.
type Pair struct {
	Tag1      string
	Tag2      string
	Count     int
	Tag1Total int
	Tag2Total int
}

// Counter maintains symmetric pairwise co-occurrence counts.
type Counter struct {
	counts map[TagPair]int
}

// NewCounter creates an empty co-occurrence counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[TagPair]int)}
}

// AddRecord increments the counter for every unordered 2-combination of the
// record's tag set. Records with fewer than two tags contribute nothing.
// Tags are sorted before combination so iteration order of the input never
// affects the result.
func (c *Counter) AddRecord(tags []string) {
	if len(tags) < 2 {
		return
	}

	sorted := make([]string, len(tags))
	copy(sorted, tags)
	sort.Strings(sorted)

	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			c.counts[TagPair{Tag1: sorted[i], Tag2: sorted[j]}]++
		}
	}
}

// PairCount returns the co-occurrence count for two tags, in either argument
// order.
func (c *Counter) PairCount(t1, t2 string) int {
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	return c.counts[TagPair{Tag1: t1, Tag2: t2}]
}

// UniquePairs returns the number of distinct co-occurring pairs.
func (c *Counter) UniquePairs() int {
	return len(c.counts)
}

// Count inverts the tag table into a record→tags mapping, accumulates pair
// counts per record, and returns one Pair per unordered tag pair, sorted by
// descending count with lexicographic tie-break.
func Count(tbl *tagtable.Table) []Pair {
	// Invert: record id -> set of tag names.
	recordTags := make(map[string]map[string]struct{})
	for name, usage := range tbl.Tags {
		for _, id := range usage.Items {
			set, ok := recordTags[id]
			if !ok {
				set = make(map[string]struct{})
				recordTags[id] = set
			}
			set[name] = struct{}{}
		}
	}

	counter := NewCounter()
	for _, set := range recordTags {
		tags := make([]string, 0, len(set))
		for name := range set {
			tags = append(tags, name)
		}
		counter.AddRecord(tags)
	}

	pairs := make([]Pair, 0, counter.UniquePairs())
	for pair, count := range counter.counts {
		pairs = append(pairs, Pair{
			Tag1:      pair.Tag1,
			Tag2:      pair.Tag2,
			Count:     count,
			Tag1Total: tbl.Count(pair.Tag1),
			Tag2Total: tbl.Count(pair.Tag2),
		})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		if pairs[i].Tag1 != pairs[j].Tag1 {
			return pairs[i].Tag1 < pairs[j].Tag1
		}
		return pairs[i].Tag2 < pairs[j].Tag2
	})

	return pairs
}
