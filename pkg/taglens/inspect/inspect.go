// Package inspect examines records flagged for carrying multiple attachments
// and classifies each attachment pattern so curators can focus review on the
// items most likely to combine distinct sources.
package inspect

import (
	"context"
	"fmt"
	"log"
	"strings"

	"golang.org/x/net/html"

	"github.com/openheritage/taglens/pkg/taglens/quality"
	"github.com/openheritage/taglens/pkg/taglens/record"
)

// Category is one attachment-pattern classification.
type Category string

const (
	MultiplePDFs  Category = "multiple_pdfs"
	PDFPlusNotes  Category = "pdf_plus_notes"
	MultipleNotes Category = "multiple_notes"
	MixedContent  Category = "mixed_content"
	Uncertain     Category = "uncertain"
)

// Classification carries the category plus a human-readable rationale and
// review priority for the report.
type Classification struct {
	Category  Category
	Priority  string
	Rationale string
}

// Inspection is the full result for one flagged record.
type Inspection struct {
	RecordID       string
	Title          string
	Children       []record.ChildAttachment
	Classification Classification
}

// Result summarizes one inspection batch, including how many flagged records
// could not be fetched and were skipped.
type Result struct {
	Inspections []Inspection
	Processed   int
	Skipped     int
}

// ChildFetcher fetches the child attachments of one record.
type ChildFetcher interface {
	FetchChildren(ctx context.Context, recordID string) ([]record.ChildAttachment, error)
}

// Classify categorizes an attachment pattern. Rules are evaluated in fixed
// order with first match winning; the final rule is a catch-all, so every
// combination of counts falls into exactly one category.
func Classify(children []record.ChildAttachment) Classification {
	var pdfs, notes, attachments int
	for _, ch := range children {
		if ch.IsPDF() {
			pdfs++
		}
		if ch.IsNote() {
			notes++
		}
		if ch.Type == "attachment" {
			attachments++
		}
	}

	switch {
	case pdfs >= 2 && notes == 0:
		return Classification{
			Category:  MultiplePDFs,
			Priority:  "HIGH",
			Rationale: fmt.Sprintf("Has %d PDF files with no notes. May be distinct sources combined.", pdfs),
		}
	case pdfs >= 1 && notes >= 1:
		return Classification{
			Category:  PDFPlusNotes,
			Priority:  "LOW",
			Rationale: fmt.Sprintf("Has %d PDF(s) and %d note(s). Likely text extraction.", pdfs, notes),
		}
	case pdfs == 0 && notes >= 2:
		return Classification{
			Category:  MultipleNotes,
			Priority:  "MEDIUM",
			Rationale: fmt.Sprintf("Has %d notes with no PDFs. May be transcribed text sections.", notes),
		}
	case attachments > pdfs+notes:
		return Classification{
			Category:  MixedContent,
			Priority:  "MEDIUM",
			Rationale: fmt.Sprintf("Has mixed attachment types: %d total attachments.", attachments),
		}
	default:
		return Classification{
			Category:  Uncertain,
			Priority:  "MEDIUM",
			Rationale: "Pattern unclear from metadata alone.",
		}
	}
}

// Inspector runs the inspection batch over the quality audit's flagged
// subset.
type Inspector struct {
	Fetcher ChildFetcher
}

// Run fetches children for each flagged record and classifies the pattern.
// A fetch failure for one record is logged and skipped; it never aborts the
// rest of the batch. Note text is HTML-stripped for the detail export.
func (in *Inspector) Run(ctx context.Context, flagged []quality.Summary) (*Result, error) {
	result := &Result{}

	for i, summary := range flagged {
		if (i+1)%50 == 0 {
			log.Printf("  Processed %d/%d records...", i+1, len(flagged))
		}

		children, err := in.Fetcher.FetchChildren(ctx, summary.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("  Skipping %s: %v", summary.ID, err)
			result.Skipped++
			continue
		}

		for j := range children {
			if children[j].IsNote() {
				children[j].Note = StripHTML(children[j].Note)
			}
		}

		result.Inspections = append(result.Inspections, Inspection{
			RecordID:       summary.ID,
			Title:          summary.Title,
			Children:       children,
			Classification: Classify(children),
		})
		result.Processed++
	}

	return result, nil
}

// ByCategory groups inspections for the report layer, preserving batch order
// within each category.
func (r *Result) ByCategory() map[Category][]Inspection {
	out := make(map[Category][]Inspection)
	for _, ins := range r.Inspections {
		out[ins.Classification.Category] = append(out[ins.Classification.Category], ins)
	}
	return out
}

// StripHTML extracts the text content of an HTML fragment. Zotero note
// bodies are stored as HTML.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}
