package report

import (
	"fmt"
	"strings"

	"github.com/openheritage/taglens/pkg/taglens/cooccur"
	"github.com/openheritage/taglens/pkg/taglens/tagtable"
)

// CooccurrenceDOT renders a Graphviz graph of the strongest co-occurrence
// structure. Only the topTags most used tags become nodes, and only pairs at
// or above minWeight (between included nodes) become edges. Node size scales
// with usage count, edge weight with co-occurrence count.
func CooccurrenceDOT(entries []tagtable.FrequencyEntry, pairs []cooccur.Pair, topTags, minWeight int) string {
	included := make(map[string]int)
	for _, e := range top(entries, topTags) {
		included[e.Tag] = e.Count
	}

	var b strings.Builder
	b.WriteString("graph tag_cooccurrence {\n")
	b.WriteString("  layout=fdp;\n")
	b.WriteString("  overlap=false;\n")
	b.WriteString("  node [shape=ellipse, style=filled, fillcolor=lightyellow, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [color=gray50];\n\n")

	maxCount := maxIncludedCount(included)
	for _, e := range top(entries, topTags) {
		// Font size 10-24 proportional to count within the included set.
		size := 10.0
		if maxCount > 0 {
			size = 10 + 14*float64(e.Count)/float64(maxCount)
		}
		fmt.Fprintf(&b, "  %s [label=\"%s\\n(%d)\", fontsize=%.1f];\n",
			quoteDOT(e.Tag), escapeDOT(e.Tag), e.Count, size)
	}
	b.WriteString("\n")

	for _, p := range pairs {
		if p.Count < minWeight {
			continue
		}
		if _, ok := included[p.Tag1]; !ok {
			continue
		}
		if _, ok := included[p.Tag2]; !ok {
			continue
		}
		fmt.Fprintf(&b, "  %s -- %s [weight=%d, penwidth=%.1f, label=\"%d\"];\n",
			quoteDOT(p.Tag1), quoteDOT(p.Tag2), p.Count, 0.5+float64(p.Count)*0.5, p.Count)
	}

	b.WriteString("}\n")
	return b.String()
}

func maxIncludedCount(included map[string]int) int {
	max := 0
	for _, n := range included {
		if n > max {
			max = n
		}
	}
	return max
}

// escapeDOT escapes a tag name for use inside a double-quoted DOT string.
// Tag names routinely contain spaces and occasionally quotes.
func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func quoteDOT(s string) string {
	return `"` + escapeDOT(s) + `"`
}
