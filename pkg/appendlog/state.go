package appendlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wa-project/recorder/pkg/recorder"
)

// stateDocument is the small structured document persisted alongside the
// data file: {segment_id, next_offset, next_ordinal, checkpoints}.
type stateDocument struct {
	SegmentID    uint32                         `json:"segment_id"`
	NextOffset   uint64                         `json:"next_offset"`
	NextOrdinal  uint64                         `json:"next_ordinal"`
	Checkpoints  map[string]recorder.Checkpoint `json:"checkpoints"`
}

func newStateDocument() *stateDocument {
	return &stateDocument{Checkpoints: make(map[string]recorder.Checkpoint)}
}

// loadStateDocument reads the state file if present; a missing file is not
// an error and yields a freshly-initialized document.
func loadStateDocument(path string) (*stateDocument, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return newStateDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("appendlog: read state file: %w", err)
	}
	var doc stateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("appendlog: parse state file: %w", err)
	}
	if doc.Checkpoints == nil {
		doc.Checkpoints = make(map[string]recorder.Checkpoint)
	}
	return &doc, nil
}

// persist writes the state document via write-temp + rename for
// crash-atomic durability: a crash mid-write leaves the old state file
// intact rather than a half-written one.
func (d *stateDocument) persist(path string) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("appendlog: marshal state: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("appendlog: create temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("appendlog: write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("appendlog: fsync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("appendlog: close temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("appendlog: rename state file into place: %w", err)
	}
	return nil
}
