// Package archive records pipeline runs in a local SQLite database so the
// history of extractions and analyses against a library stays queryable:
// when each stage ran, what it produced, and the headline numbers.
package archive

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Run is one completed pipeline stage execution.
type Run struct {
	ID         string
	Stage      string
	LibraryID  string
	StartedAt  time.Time
	FinishedAt time.Time
	Artifacts  []string
	Stats      map[string]int
}

// Archive is the run history store.
type Archive struct {
	db      *sql.DB
	entropy *ulid.MonotonicEntropy
}

// Open opens (creating if needed) the run archive at path with WAL mode
// enabled.
func Open(ctx context.Context, path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Archive{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	stage TEXT NOT NULL,
	library_id TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	stats_json TEXT
);

CREATE TABLE IF NOT EXISTS run_artifacts (
	run_id TEXT NOT NULL,
	path TEXT NOT NULL,
	UNIQUE(run_id, path),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// RecordRun persists one run, assigning it a ULID, and returns the id.
func (a *Archive) RecordRun(ctx context.Context, run Run) (string, error) {
	id := ulid.MustNew(ulid.Now(), a.entropy).String()

	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return "", fmt.Errorf("marshal run stats: %w", err)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, stage, library_id, started_at, finished_at, stats_json)
VALUES (?, ?, ?, ?, ?, ?)`,
		id, run.Stage, run.LibraryID,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		string(statsJSON))
	if err != nil {
		return "", err
	}

	for _, path := range run.Artifacts {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO run_artifacts (run_id, path) VALUES (?, ?)
ON CONFLICT(run_id, path) DO NOTHING`, id, path); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// ListRuns returns the most recent runs, newest first, at most limit. An
// empty stage matches all stages.
func (a *Archive) ListRuns(ctx context.Context, stage string, limit int) ([]Run, error) {
	query := `
SELECT id, stage, library_id, started_at, finished_at, stats_json
FROM runs`
	var args []any
	if stage != "" {
		query += " WHERE stage = ?"
		args = append(args, stage)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished, statsJSON string
		if err := rows.Scan(&run.ID, &run.Stage, &run.LibraryID, &started, &finished, &statsJSON); err != nil {
			return nil, err
		}
		if run.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("run %s: bad started_at: %w", run.ID, err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
			return nil, fmt.Errorf("run %s: bad finished_at: %w", run.ID, err)
		}
		if statsJSON != "" {
			if err := json.Unmarshal([]byte(statsJSON), &run.Stats); err != nil {
				return nil, fmt.Errorf("run %s: bad stats: %w", run.ID, err)
			}
		}

		artifacts, err := a.runArtifacts(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		run.Artifacts = artifacts

		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (a *Archive) runArtifacts(ctx context.Context, runID string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `
SELECT path FROM run_artifacts WHERE run_id = ? ORDER BY path`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
