// analyze-tags runs the analysis stages over a saved tag table: similar-tag
// detection, hierarchy candidates, co-occurrence counting and the data
// quality audit. It needs the extract-tags output and a fresh record fetch
// for the audit.
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
	"github.com/openheritage/taglens/pkg/taglens/cooccur"
	"github.com/openheritage/taglens/pkg/taglens/hierarchy"
	"github.com/openheritage/taglens/pkg/taglens/quality"
	"github.com/openheritage/taglens/pkg/taglens/report"
	"github.com/openheritage/taglens/pkg/taglens/similarity"
	"github.com/openheritage/taglens/pkg/taglens/tagtable"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	tagTableFlag := flag.String("tags", "", "Tag table JSON (default <data_dir>/all_tags.json)")
	historyFlag := flag.Int("history", 0, "Print the N most recent archived runs and exit")
	stageFlag := flag.String("stage", "", "With -history, only show runs of this stage")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatalf("prepare output directories: %v", err)
	}

	if *historyFlag > 0 {
		printHistory(context.Background(), cfg, *stageFlag, *historyFlag)
		return
	}

	tagTablePath := *tagTableFlag
	if tagTablePath == "" {
		tagTablePath = filepath.Join(cfg.Paths.DataDir, "all_tags.json")
	}

	log.Println("==========================================")
	log.Println("Tag Analysis")
	log.Println("==========================================")

	ctx := context.Background()
	started := time.Now()

	// The tag table is the hand-off from extract-tags; without it there is
	// nothing to analyze.
	tbl, meta, err := tagtable.LoadFile(tagTablePath)
	if err != nil {
		log.Fatalf("load tag table (run extract-tags first): %v", err)
	}
	log.Printf("Loaded %d tags (extracted %s)",
		len(tbl.Tags), meta.GeneratedAt.Format("2006-01-02 15:04"))

	log.Printf("Finding similar tags (threshold %d)...", cfg.Analysis.SimilarityThreshold)
	pairs := similarity.FindPairs(tbl, cfg.Analysis.SimilarityThreshold)
	log.Printf("  %d similar pairs", len(pairs))

	log.Println("Detecting hierarchical relationships...")
	candidates := hierarchy.Detect(tbl)
	log.Printf("  %d candidates", len(candidates))

	log.Println("Counting tag co-occurrence...")
	copairs := cooccur.Count(tbl)
	log.Printf("  %d co-occurring pairs", len(copairs))

	log.Println("Retrieving records for quality audit...")
	client := zotero.NewClient(zotero.Options{
		LibraryID:   cfg.Library.ID,
		LibraryType: cfg.Library.Type,
		APIKey:      cfg.APIKey,
		PageSize:    cfg.Library.PageSize,
	})
	records, err := client.ListRecords(ctx)
	if err != nil {
		log.Fatalf("retrieve records: %v", err)
	}

	audit := quality.Audit(records)
	for kind, n := range audit.Counts() {
		log.Printf("  %s: %d", kind, n)
	}

	now := time.Now()
	artifacts := []string{}

	analysisPath := filepath.Join(cfg.Paths.ReportsDir, "tag_analysis.md")
	analysis := report.Analysis(pairs, candidates, copairs, cfg.Library.ID, now)
	if err := tagtable.WriteFileAtomic(analysisPath, []byte(analysis)); err != nil {
		log.Fatalf("write analysis report: %v", err)
	}
	artifacts = append(artifacts, analysisPath)

	qualityPath := filepath.Join(cfg.Paths.ReportsDir, "quality_report.md")
	qualityMD := report.Quality(audit, cfg.Library.ID, now)
	if err := tagtable.WriteFileAtomic(qualityPath, []byte(qualityMD)); err != nil {
		log.Fatalf("write quality report: %v", err)
	}
	artifacts = append(artifacts, qualityPath)

	similarCSV := filepath.Join(cfg.Paths.ReportsDir, "similar_tags.csv")
	if err := report.SimilarityCSV(similarCSV, pairs); err != nil {
		log.Fatalf("write similarity csv: %v", err)
	}
	artifacts = append(artifacts, similarCSV)

	cooccurCSV := filepath.Join(cfg.Paths.ReportsDir, "cooccurrence.csv")
	if err := report.CooccurrenceCSV(cooccurCSV, copairs); err != nil {
		log.Fatalf("write co-occurrence csv: %v", err)
	}
	artifacts = append(artifacts, cooccurCSV)

	qualityCSVs, err := report.QualityCSVs(cfg.Paths.ReportsDir, audit)
	if err != nil {
		log.Fatalf("write quality csvs: %v", err)
	}
	artifacts = append(artifacts, qualityCSVs...)

	dotPath := filepath.Join(cfg.Paths.ReportsDir, "cooccurrence_graph.dot")
	dot := report.CooccurrenceDOT(tbl.Frequency(), copairs,
		cfg.Analysis.GraphTopTags, cfg.Analysis.GraphMinWeight)
	if err := tagtable.WriteFileAtomic(dotPath, []byte(dot)); err != nil {
		log.Fatalf("write co-occurrence graph: %v", err)
	}
	artifacts = append(artifacts, dotPath)

	recordRun(ctx, cfg, archive.Run{
		Stage:      "analyze",
		LibraryID:  cfg.Library.ID,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Artifacts:  artifacts,
		Stats: map[string]int{
			"similar_pairs":        len(pairs),
			"hierarchy_candidates": len(candidates),
			"cooccurring_pairs":    len(copairs),
			"duplicate_records":    audit.DuplicateRecordCount(),
		},
	})

	log.Println("==========================================")
	log.Println("Analysis complete")
	for _, path := range artifacts {
		log.Printf("  %s", path)
	}
	log.Println("==========================================")
}

func printHistory(ctx context.Context, cfg *config.Config, stage string, limit int) {
	a, err := archive.Open(ctx, cfg.Paths.ArchiveDB)
	if err != nil {
		log.Fatalf("open run archive: %v", err)
	}
	defer a.Close()

	runs, err := a.ListRuns(ctx, stage, limit)
	if err != nil {
		log.Fatalf("list runs: %v", err)
	}
	if len(runs) == 0 {
		log.Println("No archived runs")
		return
	}

	for _, run := range runs {
		log.Printf("%s  %-8s  %s  (%s, %d artifacts)",
			run.ID, run.Stage,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Second),
			len(run.Artifacts))
	}
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
