package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/openheritage/taglens/pkg/taglens/inspect"
	"github.com/openheritage/taglens/pkg/taglens/tagtable"
)

// detailsFile is the machine-readable companion to the inspection report:
// the full child listing per flagged record, including stripped note text,
// for downstream tooling that the markdown summary is too lossy for.
type detailsFile struct {
	Metadata detailsMetadata `json:"metadata"`
	Records  []recordDetail  `json:"records"`
}

type detailsMetadata struct {
	GeneratedAt time.Time `json:"generated_at"`
	LibraryID   string    `json:"library_id"`
	Processed   int       `json:"processed"`
	Skipped     int       `json:"skipped"`
}

type recordDetail struct {
	Key       string        `json:"key"`
	Title     string        `json:"title"`
	Category  string        `json:"category"`
	Priority  string        `json:"priority"`
	Rationale string        `json:"rationale"`
	Children  []childDetail `json:"children"`
}

type childDetail struct {
	Key         string `json:"key,omitempty"`
	ItemType    string `json:"item_type"`
	Title       string `json:"title,omitempty"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	LinkMode    string `json:"link_mode,omitempty"`
	Note        string `json:"note,omitempty"`
}

// InspectionDetails writes the per-record inspection details as JSON. Note
// children carry their HTML-stripped text here; the markdown report only
// lists attachment names.
func InspectionDetails(path string, result *inspect.Result, libraryID string, now time.Time) error {
	file := detailsFile{
		Metadata: detailsMetadata{
			GeneratedAt: now,
			LibraryID:   libraryID,
			Processed:   result.Processed,
			Skipped:     result.Skipped,
		},
		Records: make([]recordDetail, 0, len(result.Inspections)),
	}

	for _, ins := range result.Inspections {
		detail := recordDetail{
			Key:       ins.RecordID,
			Title:     ins.Title,
			Category:  string(ins.Classification.Category),
			Priority:  ins.Classification.Priority,
			Rationale: ins.Classification.Rationale,
			Children:  make([]childDetail, 0, len(ins.Children)),
		}
		for _, ch := range ins.Children {
			detail.Children = append(detail.Children, childDetail{
				Key:         ch.ID,
				ItemType:    ch.Type,
				Title:       ch.Title,
				Filename:    ch.Filename,
				ContentType: ch.ContentType,
				LinkMode:    ch.LinkMode,
				Note:        ch.Note,
			})
		}
		file.Records = append(file.Records, detail)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal inspection details: %w", err)
	}
	return tagtable.WriteFileAtomic(path, data)
}
