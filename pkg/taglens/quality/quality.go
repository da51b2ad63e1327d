// Package quality scans the record collection for structural problems that
// need curator attention before tagging and publication: duplicate titles,
// non-primary-source entries, and attachment-count anomalies.
package quality

import (
	"sort"
	"strings"

	"github.com/openheritage/taglens/pkg/taglens/record"
)

// IssueKind identifies one category of data-quality problem.
type IssueKind string

const (
	DuplicateTitle  IssueKind = "duplicates"
	NonPrimaryType  IssueKind = "non_primary_sources"
	ManyAttachments IssueKind = "multiple_attachments"
	ZeroAttachments IssueKind = "no_attachments"
)

// nonPrimaryTypes are record types that are not primary sources themselves.
var nonPrimaryTypes = map[string]bool{
	"note":       true,
	"annotation": true,
	"attachment": true,
}

// Summary is one affected record as it appears in issue lists.
type Summary struct {
	ID          string
	Title       string
	Type        string
	Date        string
	Attachments int
}

// DuplicateGroup is all records sharing one normalized title. The group is
// the semantic unit: three same-titled records are one group of three
// members, not three pairwise issues.
type DuplicateGroup struct {
	NormalizedTitle string
	Records         []Summary
}

// Report holds the outcome of one audit pass.
type Report struct {
	Duplicates      []DuplicateGroup
	NonPrimary      []Summary
	ManyAttachments []Summary
	NoAttachments   []Summary
}

// Audit scans all records in a single pass. Titles are compared
// case-insensitively for duplicate detection. A record lands in exactly one
// of the attachment buckets when its child count is 0 or above 1; a count of
// exactly 1 triggers neither.
func Audit(records []record.Record) *Report {
	report := &Report{}
	titleMap := make(map[string][]Summary)

	for _, rec := range records {
		summary := Summary{
			ID:          rec.ID,
			Title:       rec.Title,
			Type:        rec.Type,
			Date:        rec.Date,
			Attachments: rec.ChildCount,
		}

		normalized := strings.ToLower(rec.Title)
		titleMap[normalized] = append(titleMap[normalized], summary)

		if nonPrimaryTypes[rec.Type] {
			report.NonPrimary = append(report.NonPrimary, summary)
		}

		switch {
		case rec.ChildCount > 1:
			report.ManyAttachments = append(report.ManyAttachments, summary)
		case rec.ChildCount == 0:
			report.NoAttachments = append(report.NoAttachments, summary)
		}
	}

	for title, members := range titleMap {
		if len(members) > 1 {
			report.Duplicates = append(report.Duplicates, DuplicateGroup{
				NormalizedTitle: title,
				Records:         members,
			})
		}
	}
	sort.Slice(report.Duplicates, func(i, j int) bool {
		return report.Duplicates[i].NormalizedTitle < report.Duplicates[j].NormalizedTitle
	})

	return report
}

// DuplicateRecordCount returns the total number of records involved in
// duplicate groups.
func (r *Report) DuplicateRecordCount() int {
	n := 0
	for _, group := range r.Duplicates {
		n += len(group.Records)
	}
	return n
}

// Counts returns per-kind affected-record counts for the report layer.
func (r *Report) Counts() map[IssueKind]int {
	return map[IssueKind]int{
		DuplicateTitle:  r.DuplicateRecordCount(),
		NonPrimaryType:  len(r.NonPrimary),
		ManyAttachments: len(r.ManyAttachments),
		ZeroAttachments: len(r.NoAttachments),
	}
}
