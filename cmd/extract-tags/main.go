// extract-tags pulls every record from the configured Zotero library,
// aggregates its tags into the tag table, and writes the table, the frequency
// CSV and the human-readable summary report.
package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"
	"time"

	"github.com/openheritage/taglens/internal/zotero"
	"github.com/openheritage/taglens/pkg/taglens/archive"
	"github.com/openheritage/taglens/pkg/taglens/config"
	"github.com/openheritage/taglens/pkg/taglens/report"
	"github.com/openheritage/taglens/pkg/taglens/tagtable"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatalf("prepare output directories: %v", err)
	}

	log.Println("==========================================")
	log.Println("Tag Extraction")
	log.Println("==========================================")
	log.Printf("Library: %s (%s)", cfg.Library.ID, cfg.Library.Type)

	ctx := context.Background()
	started := time.Now()

	client := zotero.NewClient(zotero.Options{
		LibraryID:   cfg.Library.ID,
		LibraryType: cfg.Library.Type,
		APIKey:      cfg.APIKey,
		PageSize:    cfg.Library.PageSize,
	})

	log.Println("Retrieving records...")
	records, err := client.ListRecords(ctx)
	if err != nil {
		log.Fatalf("retrieve records: %v", err)
	}
	log.Printf("Retrieved %d records", len(records))

	tbl, stats := tagtable.Build(records)
	log.Printf("Found %d unique tags across %d tagged records",
		stats.UniqueTags, stats.RecordsWithTags)

	now := time.Now()

	tagTablePath := filepath.Join(cfg.Paths.DataDir, "all_tags.json")
	if err := tbl.Save(tagTablePath, cfg.Library.ID, stats, now); err != nil {
		log.Fatalf("save tag table: %v", err)
	}

	frequencyPath := filepath.Join(cfg.Paths.ReportsDir, "tag_frequency.csv")
	if err := report.FrequencyCSV(frequencyPath, tbl.Frequency()); err != nil {
		log.Fatalf("write frequency csv: %v", err)
	}

	summaryPath := filepath.Join(cfg.Paths.ReportsDir, "tag_summary.md")
	summary := report.ExtractionSummary(tbl, stats, cfg.Library.ID, now)
	if err := tagtable.WriteFileAtomic(summaryPath, []byte(summary)); err != nil {
		log.Fatalf("write summary report: %v", err)
	}

	recordRun(ctx, cfg, archive.Run{
		Stage:      "extract",
		LibraryID:  cfg.Library.ID,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Artifacts:  []string{tagTablePath, frequencyPath, summaryPath},
		Stats: map[string]int{
			"records":           stats.TotalRecords,
			"records_with_tags": stats.RecordsWithTags,
			"unique_tags":       stats.UniqueTags,
			"tag_applications":  stats.TotalApplications,
		},
	})

	log.Println("==========================================")
	log.Println("Extraction complete")
	log.Printf("  Tag table:  %s", tagTablePath)
	log.Printf("  Frequency:  %s", frequencyPath)
	log.Printf("  Summary:    %s", summaryPath)
	log.Println("==========================================")
}

// recordRun archives the run for later comparison. The reports are the
// product; a broken archive is worth a warning, never an exit.
func recordRun(ctx context.Context, cfg *config.Config, run archive.Run) {
	a, err := archive.Open(ctx, cfg.Paths.ArchiveDB)
	if err != nil {
		log.Printf("WARNING: open run archive: %v", err)
		return
	}
	defer a.Close()

	if _, err := a.RecordRun(ctx, run); err != nil {
		log.Printf("WARNING: record run: %v", err)
	}
}
