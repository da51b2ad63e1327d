// Package tagtable builds the tag-to-usage mapping that every analysis stage
// consumes, and serializes it as the hand-off contract between pipeline
// stages.
package tagtable

import (
	"sort"

	"github.com/openheritage/taglens/pkg/taglens/record"
)

// Usage holds one tag's applications. Count always equals len(Items) and
// len(ItemTitles); the three slices are parallel, one entry per application.
type Usage struct {
	Count      int      `json:"count"`
	Items      []string `json:"items"`
	ItemTitles []string `json:"item_titles"`
}

// Table maps tag name to usage. Tag names are opaque, case- and
// whitespace-sensitive keys.
type Table struct {
	Tags map[string]*Usage `json:"tags"`
}

// Stats summarizes one aggregation pass. Average, max and min are computed
// over tagged records only; all three are 0 when no record carries a tag.
type Stats struct {
	TotalRecords      int     `json:"total_records"`
	RecordsWithTags   int     `json:"records_with_tags"`
	RecordsWithout    int     `json:"records_without_tags"`
	UniqueTags        int     `json:"unique_tags"`
	TotalApplications int     `json:"total_tag_applications"`
	AvgTagsPerRecord  float64 `json:"avg_tags_per_record"`
	MaxTagsPerRecord  int     `json:"max_tags_per_record"`
	MinTagsPerRecord  int     `json:"min_tags_per_record"`
}

// FrequencyEntry is one row of the frequency export. Percentage is of total
// tag applications, not of records.
type FrequencyEntry struct {
	Tag        string
	Count      int
	Percentage float64
}

// Build aggregates the record collection into a tag table plus statistics.
func Build(records []record.Record) (*Table, Stats) {
	tbl := &Table{Tags: make(map[string]*Usage)}
	stats := Stats{TotalRecords: len(records)}

	var tagsPerRecord []int

	for _, rec := range records {
		if !rec.HasTags() {
			stats.RecordsWithout++
			continue
		}

		stats.RecordsWithTags++
		tagsPerRecord = append(tagsPerRecord, len(rec.Tags))

		for _, name := range rec.Tags {
			usage, ok := tbl.Tags[name]
			if !ok {
				usage = &Usage{}
				tbl.Tags[name] = usage
			}
			usage.Count++
			usage.Items = append(usage.Items, rec.ID)
			usage.ItemTitles = append(usage.ItemTitles, rec.Title)
			stats.TotalApplications++
		}
	}

	stats.UniqueTags = len(tbl.Tags)

	if len(tagsPerRecord) > 0 {
		sum := 0
		stats.MaxTagsPerRecord = tagsPerRecord[0]
		stats.MinTagsPerRecord = tagsPerRecord[0]
		for _, n := range tagsPerRecord {
			sum += n
			if n > stats.MaxTagsPerRecord {
				stats.MaxTagsPerRecord = n
			}
			if n < stats.MinTagsPerRecord {
				stats.MinTagsPerRecord = n
			}
		}
		stats.AvgTagsPerRecord = float64(sum) / float64(len(tagsPerRecord))
	}

	return tbl, stats
}

// Names returns all tag names in lexicographic order. Every all-pairs
// analysis iterates this so results are reproducible across runs.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.Tags))
	for name := range t.Tags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the usage count for a tag, 0 if unknown.
func (t *Table) Count(name string) int {
	if usage, ok := t.Tags[name]; ok {
		return usage.Count
	}
	return 0
}

// Frequency returns all tags ranked by descending count, ties broken
// lexicographically. Percentage is each tag's share of total applications.
func (t *Table) Frequency() []FrequencyEntry {
	total := 0
	for _, usage := range t.Tags {
		total += usage.Count
	}

	entries := make([]FrequencyEntry, 0, len(t.Tags))
	for name, usage := range t.Tags {
		entry := FrequencyEntry{Tag: name, Count: usage.Count}
		if total > 0 {
			entry.Percentage = float64(usage.Count) / float64(total) * 100
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Tag < entries[j].Tag
	})

	return entries
}

// Singletons returns the tags used exactly once, sorted lexicographically.
// These are the usual typo and over-specific-term candidates for curators.
func (t *Table) Singletons() []string {
	var out []string
	for name, usage := range t.Tags {
		if usage.Count == 1 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
