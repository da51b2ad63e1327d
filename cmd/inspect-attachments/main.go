// inspect-attachments examines the records the quality audit flagged for
// carrying multiple attachments, fetches their children and classifies each
// attachment pattern for curator review.
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
	"github.com/openheritage/taglens/pkg/taglens/inspect"
	"github.com/openheritage/taglens/pkg/taglens/report"
	"github.com/openheritage/taglens/pkg/taglens/tagtable"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	flaggedFlag := flag.String("flagged", "", "Flagged-records CSV (default <reports_dir>/quality_multiple_attachments.csv)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatalf("prepare output directories: %v", err)
	}

	flaggedPath := *flaggedFlag
	if flaggedPath == "" {
		flaggedPath = filepath.Join(cfg.Paths.ReportsDir, "quality_multiple_attachments.csv")
	}

	log.Println("==========================================")
	log.Println("Attachment Inspection")
	log.Println("==========================================")

	ctx := context.Background()
	started := time.Now()

	flagged, err := report.LoadFlaggedCSV(flaggedPath)
	if err != nil {
		log.Fatalf("load flagged records (run analyze-tags first): %v", err)
	}
	if len(flagged) == 0 {
		log.Println("No flagged records; nothing to inspect")
		return
	}
	log.Printf("Inspecting %d flagged records...", len(flagged))

	client := zotero.NewClient(zotero.Options{
		LibraryID:   cfg.Library.ID,
		LibraryType: cfg.Library.Type,
		APIKey:      cfg.APIKey,
		PageSize:    cfg.Library.PageSize,
	})

	inspector := &inspect.Inspector{Fetcher: client}
	result, err := inspector.Run(ctx, flagged)
	if err != nil {
		log.Fatalf("inspection aborted: %v", err)
	}
	log.Printf("Inspected %d records (%d skipped)", result.Processed, result.Skipped)

	byCat := result.ByCategory()
	for cat, items := range byCat {
		log.Printf("  %s: %d", cat, len(items))
	}

	now := time.Now()

	reportPath := filepath.Join(cfg.Paths.ReportsDir, "attachment_inspection.md")
	md := report.Inspection(result, cfg.Library.ID, now)
	if err := tagtable.WriteFileAtomic(reportPath, []byte(md)); err != nil {
		log.Fatalf("write inspection report: %v", err)
	}

	detailsPath := filepath.Join(cfg.Paths.DataDir, "multiple_attachments_details.json")
	if err := report.InspectionDetails(detailsPath, result, cfg.Library.ID, now); err != nil {
		log.Fatalf("write inspection details: %v", err)
	}

	recordRun(ctx, cfg, archive.Run{
		Stage:      "inspect",
		LibraryID:  cfg.Library.ID,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Artifacts:  []string{reportPath, detailsPath},
		Stats: map[string]int{
			"flagged":   len(flagged),
			"processed": result.Processed,
			"skipped":   result.Skipped,
		},
	})

	log.Println("==========================================")
	log.Println("Inspection complete")
	log.Printf("  Report:  %s", reportPath)
	log.Printf("  Details: %s", detailsPath)
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
