package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/openheritage/taglens/pkg/taglens/cooccur"
	"github.com/openheritage/taglens/pkg/taglens/internalerr"
	"github.com/openheritage/taglens/pkg/taglens/quality"
	"github.com/openheritage/taglens/pkg/taglens/similarity"
	"github.com/openheritage/taglens/pkg/taglens/tagtable"
)

func writeCSV(path string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("encode csv %s: %w", path, err)
	}
	return tagtable.WriteFileAtomic(path, buf.Bytes())
}

// FrequencyCSV writes the tag frequency table, most used first.
func FrequencyCSV(path string, entries []tagtable.FrequencyEntry) error {
	rows := [][]string{{"tag", "count", "percentage"}}
	for _, e := range entries {
		rows = append(rows, []string{e.Tag, strconv.Itoa(e.Count), fmt.Sprintf("%.2f", e.Percentage)})
	}
	return writeCSV(path, rows)
}

// SimilarityCSV writes candidate merge pairs sorted by descending best
// score.
func SimilarityCSV(path string, pairs []similarity.Pair) error {
	sorted := make([]similarity.Pair, len(pairs))
	copy(sorted, pairs)
	sortPairsBySimilarity(sorted)

	rows := [][]string{{"tag1", "tag2", "count1", "count2", "similarity", "ratio", "partial", "token_sort", "suggested_merge"}}
	for _, p := range sorted {
		rows = append(rows, []string{
			p.Tag1, p.Tag2,
			strconv.Itoa(p.Count1), strconv.Itoa(p.Count2),
			strconv.Itoa(p.Similarity), strconv.Itoa(p.Ratio),
			strconv.Itoa(p.Partial), strconv.Itoa(p.TokenSort),
			p.SuggestedMerge,
		})
	}
	return writeCSV(path, rows)
}

// CooccurrenceCSV writes the ranked co-occurrence pairs.
func CooccurrenceCSV(path string, pairs []cooccur.Pair) error {
	rows := [][]string{{"tag1", "tag2", "count", "tag1_total", "tag2_total"}}
	for _, p := range pairs {
		rows = append(rows, []string{
			p.Tag1, p.Tag2,
			strconv.Itoa(p.Count), strconv.Itoa(p.Tag1Total), strconv.Itoa(p.Tag2Total),
		})
	}
	return writeCSV(path, rows)
}

// QualityCSVs writes one CSV per non-empty issue kind into dir, using the
// issue kind as filename suffix. Returns the paths written.
func QualityCSVs(dir string, rep *quality.Report) ([]string, error) {
	var written []string

	write := func(kind quality.IssueKind, summaries []quality.Summary) error {
		if len(summaries) == 0 {
			return nil
		}
		rows := [][]string{{"key", "title", "item_type", "date", "num_attachments"}}
		for _, s := range summaries {
			rows = append(rows, []string{s.ID, s.Title, s.Type, s.Date, strconv.Itoa(s.Attachments)})
		}
		path := dir + "/quality_" + string(kind) + ".csv"
		if err := writeCSV(path, rows); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	var duplicates []quality.Summary
	for _, group := range rep.Duplicates {
		duplicates = append(duplicates, group.Records...)
	}

	if err := write(quality.DuplicateTitle, duplicates); err != nil {
		return written, err
	}
	if err := write(quality.NonPrimaryType, rep.NonPrimary); err != nil {
		return written, err
	}
	if err := write(quality.ManyAttachments, rep.ManyAttachments); err != nil {
		return written, err
	}
	if err := write(quality.ZeroAttachments, rep.NoAttachments); err != nil {
		return written, err
	}
	return written, nil
}

// LoadFlaggedCSV reads back a quality CSV (the many-attachments export feeds
// the inspection stage).
func LoadFlaggedCSV(path string) ([]quality.Summary, error) {
	data, err := readFileChecked(path)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(data))
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv %s: %w", path, err)
	}
	if len(rows) < 1 {
		return nil, nil
	}

	var out []quality.Summary
	for i, row := range rows[1:] {
		if len(row) < 5 {
			return nil, fmt.Errorf("%w: %s row %d has %d fields, want 5",
				internalerr.ErrInvalidInput, path, i+2, len(row))
		}
		attachments, err := strconv.Atoi(row[4])
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: bad attachment count %q",
				internalerr.ErrInvalidInput, path, i+2, row[4])
		}
		out = append(out, quality.Summary{
			ID:          row[0],
			Title:       row[1],
			Type:        row[2],
			Date:        row[3],
			Attachments: attachments,
		})
	}
	return out, nil
}
