package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/openheritage/taglens/pkg/taglens/cooccur"
	"github.com/openheritage/taglens/pkg/taglens/hierarchy"
	"github.com/openheritage/taglens/pkg/taglens/inspect"
	"github.com/openheritage/taglens/pkg/taglens/internalerr"
	"github.com/openheritage/taglens/pkg/taglens/quality"
	"github.com/openheritage/taglens/pkg/taglens/record"
	"github.com/openheritage/taglens/pkg/taglens/similarity"
	"github.com/openheritage/taglens/pkg/taglens/tagtable"
)

var testTime = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func buildTable(t *testing.T) (*tagtable.Table, tagtable.Stats) {
	t.Helper()
	records := []record.Record{
		{ID: "R1", Title: "Mine report", Tags: []string{"Mining", "Katoomba"}},
		{ID: "R2", Title: "Shaft survey", Tags: []string{"Mining"}},
		{ID: "R3", Title: "Untagged"},
	}
	tbl, stats := tagtable.Build(records)
	return tbl, stats
}

func TestExtractionSummary(t *testing.T) {
	tbl, stats := buildTable(t)
	out := ExtractionSummary(tbl, stats, "12345", testTime)

	for _, want := range []string{
		"# Tag Extraction Summary",
		"**Library ID:** 12345",
		"| Total Records in Library | 3 |",
		"| Unique Tags | 2 |",
		"| 1 | Mining | 2 |",
		"- Katoomba",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}

func TestAnalysisSortsBySimilarity(t *testing.T) {
	pairs := []similarity.Pair{
		{Tag1: "aaa", Tag2: "aab", Similarity: 85, SuggestedMerge: "aaa"},
		{Tag1: "xxx", Tag2: "xxy", Similarity: 95, SuggestedMerge: "xxx"},
	}
	out := Analysis(pairs, nil, nil, "12345", testTime)

	first := strings.Index(out, "| xxx |")
	second := strings.Index(out, "| aaa |")
	if first == -1 || second == -1 {
		t.Fatalf("pairs missing from report:\n%s", out)
	}
	if first > second {
		t.Error("higher-similarity pair should come first")
	}
	if !strings.Contains(out, "*No containment relationships detected in tag names.*") {
		t.Error("empty hierarchy section should carry its placeholder")
	}
}

func TestQualityReport(t *testing.T) {
	rep := quality.Audit([]record.Record{
		{ID: "R1", Title: "Same Title", Type: "document", ChildCount: 1},
		{ID: "R2", Title: "same title", Type: "document", ChildCount: 3},
		{ID: "R3", Title: "A Note", Type: "note", ChildCount: 0},
	})
	out := Quality(rep, "12345", testTime)

	for _, want := range []string{
		"**2** records across **1** duplicate groups",
		"Key: `R2`",
		"Type: **note**",
		"## 3. Records with Multiple Attachments",
		"## 4. Records without Attachments",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("quality report missing %q", want)
		}
	}
}

func TestInspectionReport(t *testing.T) {
	result := &inspect.Result{
		Inspections: []inspect.Inspection{
			{
				RecordID: "R1",
				Title:    "Two scans",
				Children: []record.ChildAttachment{
					{Type: "attachment", ContentType: "application/pdf", Filename: "a.pdf"},
					{Type: "attachment", ContentType: "application/pdf", Filename: "b.pdf"},
				},
				Classification: inspect.Classify([]record.ChildAttachment{
					{Type: "attachment", ContentType: "application/pdf"},
					{Type: "attachment", ContentType: "application/pdf"},
				}),
			},
		},
		Processed: 1,
		Skipped:   2,
	}
	out := Inspection(result, "12345", testTime)

	for _, want := range []string{
		"**Records inspected:** 1 (2 skipped after fetch failures)",
		"| Multiple PDFs | 1 | HIGH |",
		"**Record Key:** `R1`",
		"a.pdf",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("inspection report missing %q", want)
		}
	}
}

func TestQualityCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rep := quality.Audit([]record.Record{
		{ID: "R1", Title: "Flagged, with comma", Type: "document", Date: "1901", ChildCount: 4},
		{ID: "R2", Title: "Fine", Type: "document", ChildCount: 1},
	})

	written, err := QualityCSVs(dir, rep)
	if err != nil {
		t.Fatalf("QualityCSVs failed: %v", err)
	}
	if len(written) != 1 {
		t.Fatalf("written = %v, want the multiple_attachments export only", written)
	}

	flagged, err := LoadFlaggedCSV(filepath.Join(dir, "quality_multiple_attachments.csv"))
	if err != nil {
		t.Fatalf("LoadFlaggedCSV failed: %v", err)
	}
	if len(flagged) != 1 {
		t.Fatalf("got %d flagged records, want 1", len(flagged))
	}
	got := flagged[0]
	if got.ID != "R1" || got.Title != "Flagged, with comma" || got.Date != "1901" || got.Attachments != 4 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestLoadFlaggedCSVMissingFile(t *testing.T) {
	_, err := LoadFlaggedCSV(filepath.Join(t.TempDir(), "nope.csv"))
	if !errors.Is(err, internalerr.ErrMissingInput) {
		t.Errorf("err = %v, want ErrMissingInput", err)
	}
}

func TestLoadFlaggedCSVBadAttachmentCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flagged.csv")
	data := "key,title,item_type,date,num_attachments\nR1,Title,document,1901,lots\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFlaggedCSV(path)
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestInspectionDetails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "details.json")
	result := &inspect.Result{
		Inspections: []inspect.Inspection{
			{
				RecordID: "R1",
				Title:    "Scan with transcript",
				Children: []record.ChildAttachment{
					{ID: "C1", Type: "attachment", ContentType: "application/pdf", Filename: "scan.pdf"},
					{ID: "C2", Type: "note", Note: "transcribed text of the scan"},
				},
				Classification: inspect.Classification{
					Category:  inspect.PDFPlusNotes,
					Priority:  "LOW",
					Rationale: "Has 1 PDF(s) and 1 note(s). Likely text extraction.",
				},
			},
		},
		Processed: 1,
		Skipped:   0,
	}

	if err := InspectionDetails(path, result, "12345", testTime); err != nil {
		t.Fatalf("InspectionDetails failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	var file struct {
		Metadata struct {
			LibraryID string `json:"library_id"`
			Processed int    `json:"processed"`
		} `json:"metadata"`
		Records []struct {
			Key      string `json:"key"`
			Category string `json:"category"`
			Children []struct {
				ItemType string `json:"item_type"`
				Note     string `json:"note"`
			} `json:"children"`
		} `json:"records"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		t.Fatalf("parse details: %v", err)
	}

	if file.Metadata.LibraryID != "12345" || file.Metadata.Processed != 1 {
		t.Errorf("metadata = %+v", file.Metadata)
	}
	if len(file.Records) != 1 || file.Records[0].Key != "R1" {
		t.Fatalf("records = %+v", file.Records)
	}
	if file.Records[0].Category != "pdf_plus_notes" {
		t.Errorf("category = %q", file.Records[0].Category)
	}

	// The stripped note text must survive into the export.
	note := file.Records[0].Children[1]
	if note.ItemType != "note" || note.Note != "transcribed text of the scan" {
		t.Errorf("note child = %+v", note)
	}
}

func TestFrequencyCSV(t *testing.T) {
	tbl, _ := buildTable(t)
	path := filepath.Join(t.TempDir(), "freq.csv")
	if err := FrequencyCSV(path, tbl.Frequency()); err != nil {
		t.Fatalf("FrequencyCSV failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus 2 tags", len(lines))
	}
	if lines[0] != "tag,count,percentage" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Mining,2,") {
		t.Errorf("most used tag should lead: %q", lines[1])
	}
}

func TestCooccurrenceDOT(t *testing.T) {
	entries := []tagtable.FrequencyEntry{
		{Tag: "Mining", Count: 10},
		{Tag: "Katoomba", Count: 5},
		{Tag: "Rare", Count: 1},
	}
	pairs := []cooccur.Pair{
		{Tag1: "Katoomba", Tag2: "Mining", Count: 4},
		{Tag1: "Mining", Tag2: "Rare", Count: 4},
		{Tag1: "Katoomba", Tag2: "Rare", Count: 1},
	}

	out := CooccurrenceDOT(entries, pairs, 2, 3)

	if !strings.Contains(out, `"Mining" [label=`) || !strings.Contains(out, `"Katoomba" [label=`) {
		t.Errorf("top tags should appear as nodes:\n%s", out)
	}
	if strings.Contains(out, `"Rare"`) {
		t.Error("tag outside the top-N should be excluded")
	}
	if !strings.Contains(out, `"Katoomba" -- "Mining"`) {
		t.Error("edge between included nodes at weight >= min should appear")
	}
	if strings.Contains(out, `-- "Rare"`) || strings.Contains(out, `"Rare" --`) {
		t.Error("edges touching excluded nodes should not appear")
	}
}

func TestTopAndTruncate(t *testing.T) {
	if got := top([]int{1, 2, 3}, 2); len(got) != 2 {
		t.Errorf("top = %v", got)
	}
	if got := top([]int{1}, 5); len(got) != 1 {
		t.Errorf("top should not extend short slices: %v", got)
	}
	if got := truncate("abcdef", 3); got != "abc..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("ab", 3); got != "ab" {
		t.Errorf("truncate = %q", got)
	}
	// Multibyte titles must be cut on rune boundaries, not bytes.
	if got := truncate("Jävla Gruvor", 5); got != "Jävla..." {
		t.Errorf("truncate = %q", got)
	}
}

// hierarchy is referenced by Analysis; exercise the rendered table too.
func TestAnalysisHierarchySection(t *testing.T) {
	candidates := []hierarchy.Candidate{
		{BroaderTerm: "Coal Mining", NarrowerTerm: "Mining", BroaderCount: 3, NarrowerCount: 10},
	}
	out := Analysis(nil, candidates, nil, "12345", testTime)
	if !strings.Contains(out, "| Coal Mining | Mining | 3 | 10 |") {
		t.Errorf("hierarchy row missing:\n%s", out)
	}
}
