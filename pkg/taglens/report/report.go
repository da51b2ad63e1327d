// Package report renders the analysis results into the markdown documents
// and tabular exports consumed by human curators. Everything here is
// serialization; no analysis happens in this package.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/openheritage/taglens/pkg/taglens/cooccur"
	"github.com/openheritage/taglens/pkg/taglens/hierarchy"
	"github.com/openheritage/taglens/pkg/taglens/inspect"
	"github.com/openheritage/taglens/pkg/taglens/quality"
	"github.com/openheritage/taglens/pkg/taglens/similarity"
	"github.com/openheritage/taglens/pkg/taglens/tagtable"
)

const footer = "\n---\n\n*Generated by taglens*\n"

func header(b *strings.Builder, title, libraryID string, now time.Time) {
	fmt.Fprintf(b, "# %s\n\n", title)
	fmt.Fprintf(b, "**Generated:** %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(b, "**Library ID:** %s\n\n---\n\n", libraryID)
}

// ExtractionSummary renders the post-extraction overview: statistics table,
// top tags, and singleton tags needing review.
func ExtractionSummary(tbl *tagtable.Table, stats tagtable.Stats, libraryID string, now time.Time) string {
	var b strings.Builder
	header(&b, "Tag Extraction Summary", libraryID, now)

	withPct, withoutPct := 0.0, 0.0
	if stats.TotalRecords > 0 {
		withPct = float64(stats.RecordsWithTags) / float64(stats.TotalRecords) * 100
		withoutPct = float64(stats.RecordsWithout) / float64(stats.TotalRecords) * 100
	}

	b.WriteString("## Overall Statistics\n\n")
	b.WriteString("| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Total Records in Library | %d |\n", stats.TotalRecords)
	fmt.Fprintf(&b, "| Records with Tags | %d (%.1f%%) |\n", stats.RecordsWithTags, withPct)
	fmt.Fprintf(&b, "| Records without Tags | %d (%.1f%%) |\n", stats.RecordsWithout, withoutPct)
	fmt.Fprintf(&b, "| Unique Tags | %d |\n", stats.UniqueTags)
	fmt.Fprintf(&b, "| Total Tag Applications | %d |\n", stats.TotalApplications)
	fmt.Fprintf(&b, "| Average Tags per Tagged Record | %.2f |\n", stats.AvgTagsPerRecord)
	fmt.Fprintf(&b, "| Max Tags on Single Record | %d |\n", stats.MaxTagsPerRecord)
	fmt.Fprintf(&b, "| Min Tags on Tagged Record | %d |\n", stats.MinTagsPerRecord)

	b.WriteString("\n---\n\n## Top 20 Most Frequently Used Tags\n\n")
	b.WriteString("| Rank | Tag | Count | % of Total |\n|------|-----|-------|------------|\n")
	for i, entry := range top(tbl.Frequency(), 20) {
		fmt.Fprintf(&b, "| %d | %s | %d | %.1f%% |\n", i+1, entry.Tag, entry.Count, entry.Percentage)
	}

	singletons := tbl.Singletons()
	fmt.Fprintf(&b, "\n---\n\n## Singleton Tags (Used Only Once)\n\n**Count:** %d tags\n\n", len(singletons))
	b.WriteString("These may be typos, overly specific terms, or legitimate unique descriptors.\n\n")
	for _, tag := range top(singletons, 20) {
		fmt.Fprintf(&b, "- %s\n", tag)
	}
	if len(singletons) > 20 {
		fmt.Fprintf(&b, "\n*...and %d more*\n", len(singletons)-20)
	}

	b.WriteString(footer)
	return b.String()
}

// Analysis renders the similarity, hierarchy and co-occurrence results. The
// similarity pairs are sorted here by descending best score; the analyzer
// itself does not pre-sort.
func Analysis(pairs []similarity.Pair, candidates []hierarchy.Candidate, copairs []cooccur.Pair, libraryID string, now time.Time) string {
	sorted := make([]similarity.Pair, len(pairs))
	copy(sorted, pairs)
	sortPairsBySimilarity(sorted)

	var b strings.Builder
	header(&b, "Tag Analysis Report", libraryID, now)

	fmt.Fprintf(&b, "## 1. Similar Tags\n\nFound **%d** pairs of similar tags that may need consolidation.\n\n", len(sorted))
	b.WriteString("| Tag 1 | Tag 2 | Similarity | Count 1 | Count 2 | Suggested Merge To |\n")
	b.WriteString("|-------|-------|------------|---------|---------|--------------------|\n")
	for _, p := range top(sorted, 20) {
		fmt.Fprintf(&b, "| %s | %s | %d%% | %d | %d | **%s** |\n",
			p.Tag1, p.Tag2, p.Similarity, p.Count1, p.Count2, p.SuggestedMerge)
	}

	fmt.Fprintf(&b, "\n---\n\n## 2. Hierarchical Relationships\n\nFound **%d** potential broader/narrower pairs.\n\n", len(candidates))
	if len(candidates) > 0 {
		b.WriteString("| Broader Term | Narrower Term | Broader Count | Narrower Count |\n")
		b.WriteString("|--------------|---------------|---------------|----------------|\n")
		for _, c := range top(candidates, 20) {
			fmt.Fprintf(&b, "| %s | %s | %d | %d |\n",
				c.BroaderTerm, c.NarrowerTerm, c.BroaderCount, c.NarrowerCount)
		}
		b.WriteString("\nDirection is a lexical guess (the containing string is labeled broader); manual review required.\n")
	} else {
		b.WriteString("*No containment relationships detected in tag names.*\n")
	}

	fmt.Fprintf(&b, "\n---\n\n## 3. Tag Co-occurrence\n\n**%d** tag pairs appear together on at least one record.\n\n", len(copairs))
	b.WriteString("| Tag 1 | Tag 2 | Co-occurrence | Tag 1 Total | Tag 2 Total |\n")
	b.WriteString("|-------|-------|---------------|-------------|-------------|\n")
	for _, p := range top(copairs, 30) {
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %d |\n", p.Tag1, p.Tag2, p.Count, p.Tag1Total, p.Tag2Total)
	}

	b.WriteString(footer)
	return b.String()
}

// Quality renders the data-quality issue report. Severity labels exist only
// here in the narrative, never as data fields.
func Quality(rep *quality.Report, libraryID string, now time.Time) string {
	var b strings.Builder
	header(&b, "Data Quality Issues Report", libraryID, now)

	fmt.Fprintf(&b, "## 1. Duplicate Titles\n\n**%d** records across **%d** duplicate groups.\n\n",
		rep.DuplicateRecordCount(), len(rep.Duplicates))
	for i, group := range top(rep.Duplicates, 10) {
		fmt.Fprintf(&b, "**%d. \"%s\"** (%d records)\n", i+1, group.Records[0].Title, len(group.Records))
		for _, r := range group.Records {
			fmt.Fprintf(&b, "   - Key: `%s`, Type: %s, Date: %s\n", r.ID, r.Type, r.Date)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "---\n\n## 2. Non-Primary Source Records\n\n**%d** records are notes, annotations or attachments.\n\n", len(rep.NonPrimary))
	for _, r := range top(rep.NonPrimary, 20) {
		fmt.Fprintf(&b, "- Key: `%s`, Type: **%s**, Title: \"%s\"\n", r.ID, r.Type, r.Title)
	}
	if len(rep.NonPrimary) > 20 {
		fmt.Fprintf(&b, "\n*...and %d more*\n", len(rep.NonPrimary)-20)
	}

	fmt.Fprintf(&b, "\n---\n\n## 3. Records with Multiple Attachments\n\n**%d** records. **HIGH** priority: these may combine distinct sources that should be split.\n\n", len(rep.ManyAttachments))
	if len(rep.ManyAttachments) > 0 {
		b.WriteString("| Record Key | Title | Attachments |\n|------------|-------|-------------|\n")
		for _, r := range top(rep.ManyAttachments, 30) {
			fmt.Fprintf(&b, "| `%s` | %s | %d |\n", r.ID, truncate(r.Title, 60), r.Attachments)
		}
	}

	fmt.Fprintf(&b, "\n---\n\n## 4. Records without Attachments\n\n**%d** records have no attached files. **MEDIUM** priority: verify text was captured elsewhere.\n\n", len(rep.NoAttachments))
	for _, r := range top(rep.NoAttachments, 50) {
		fmt.Fprintf(&b, "- Key: `%s`, Title: \"%s\"\n", r.ID, r.Title)
	}
	if len(rep.NoAttachments) > 50 {
		fmt.Fprintf(&b, "\n*...and %d more; see the CSV export for the full list*\n", len(rep.NoAttachments)-50)
	}

	b.WriteString(footer)
	return b.String()
}

// Inspection renders the attachment inspection report, grouped by category
// in fixed priority order.
func Inspection(result *inspect.Result, libraryID string, now time.Time) string {
	byCat := result.ByCategory()

	var b strings.Builder
	header(&b, "Multiple Attachments Inspection Report", libraryID, now)

	fmt.Fprintf(&b, "**Records inspected:** %d (%d skipped after fetch failures)\n\n", result.Processed, result.Skipped)

	b.WriteString("## Summary by Category\n\n")
	b.WriteString("| Category | Count | Priority |\n|----------|-------|----------|\n")
	for _, cat := range categoryOrder {
		fmt.Fprintf(&b, "| %s | %d | %s |\n", cat.label, len(byCat[cat.category]), cat.priority)
	}

	for _, cat := range categoryOrder {
		items := byCat[cat.category]
		fmt.Fprintf(&b, "\n---\n\n## %s (%s)\n\n**Count:** %d\n\n", cat.label, cat.priority, len(items))
		for i, ins := range top(items, 20) {
			fmt.Fprintf(&b, "### %d. \"%s\"\n\n**Record Key:** `%s`\n\n**Attachments (%d):**\n\n",
				i+1, ins.Title, ins.RecordID, len(ins.Children))
			for j, ch := range ins.Children {
				name := ch.Filename
				if name == "" {
					name = ch.Title
				}
				fmt.Fprintf(&b, "%d. **%s:** %s\n", j+1, ch.Type, name)
				if ch.ContentType != "" {
					fmt.Fprintf(&b, "   - Content Type: %s\n", ch.ContentType)
				}
			}
			fmt.Fprintf(&b, "\n**Rationale:** %s\n\n", ins.Classification.Rationale)
		}
		if len(items) > 20 {
			fmt.Fprintf(&b, "*...and %d more in this category*\n", len(items)-20)
		}
	}

	b.WriteString(footer)
	return b.String()
}

var categoryOrder = []struct {
	category inspect.Category
	label    string
	priority string
}{
	{inspect.MultiplePDFs, "Multiple PDFs", "HIGH"},
	{inspect.PDFPlusNotes, "PDF + Notes", "LOW"},
	{inspect.MultipleNotes, "Multiple Notes", "MEDIUM"},
	{inspect.MixedContent, "Mixed Content", "MEDIUM"},
	{inspect.Uncertain, "Uncertain", "MEDIUM"},
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
