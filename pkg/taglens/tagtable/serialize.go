package tagtable

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is the on-disk form of a tag table: a metadata block with
// provenance and statistics, plus the tags themselves. This is the hand-off
// contract between the extraction stage and every analysis stage and must
// round-trip without loss.
type Snapshot struct {
	Metadata Metadata          `json:"metadata"`
	Tags     map[string]*Usage `json:"tags"`
}

// Metadata records when and from which library a snapshot was generated.
type Metadata struct {
	GeneratedAt time.Time `json:"generated_at"`
	LibraryID   string    `json:"library_id"`
	Statistics  Stats     `json:"statistics"`
}

// Save writes the tag table and statistics to path. The file is written to a
// temporary sibling first and renamed into place, so a crash mid-write never
// leaves a half-written snapshot.
func (t *Table) Save(path, libraryID string, stats Stats, now time.Time) error {
	snap := Snapshot{
		Metadata: Metadata{
			GeneratedAt: now,
			LibraryID:   libraryID,
			Statistics:  stats,
		},
		Tags: t.Tags,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tag table: %w", err)
	}

	return WriteFileAtomic(path, data)
}

// LoadFile reads a snapshot written by Save.
func LoadFile(path string) (*Table, Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("read tag table %s: %w", path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, Metadata{}, fmt.Errorf("parse tag table %s: %w", path, err)
	}
	if snap.Tags == nil {
		snap.Tags = make(map[string]*Usage)
	}

	return &Table{Tags: snap.Tags}, snap.Metadata, nil
}

// WriteFileAtomic writes data to path via a temporary file and rename.
// Shared by every artifact writer in the pipeline.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s to %s: %w", tmpName, path, err)
	}
	return nil
}
