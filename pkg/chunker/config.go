// Package chunker implements the deterministic, policy-versioned semantic
// chunker (C4): it groups a window of recorder events into content-hashed
// chunks that are stable under input reordering. Grounded in the chunk
// lifecycle shape of the gastrolog chunk manager (sealing a growing unit
// once size/time limits are exceeded) and in the teacher's
// pkg/config/validator.go pattern of a single struct of positive-valued
// tunables checked once at construction.
package chunker

import "fmt"

// PolicyVersion is embedded in every chunk this package emits. Bump it
// whenever boundary or identity rules change.
const PolicyVersion = "ft.recorder.chunking.v1"

// Policy holds the chunker's tunable boundary and glue thresholds.
type Policy struct {
	MaxChunkChars  int   `yaml:"max_chunk_chars"`
	MaxChunkEvents int   `yaml:"max_chunk_events"`
	MaxWindowMs    int64 `yaml:"max_window_ms"`
	HardGapMs      int64 `yaml:"hard_gap_ms"`
	MinChunkChars  int   `yaml:"min_chunk_chars"`
	MergeWindowMs  int64 `yaml:"merge_window_ms"`
	OverlapChars   int   `yaml:"overlap_chars"`
}

// DefaultPolicy returns the baseline, non-zero chunking policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxChunkChars:  4000,
		MaxChunkEvents: 200,
		MaxWindowMs:    60_000,
		HardGapMs:      30_000,
		MinChunkChars:  1,
		MergeWindowMs:  5_000,
		OverlapChars:   200,
	}
}

// Validate checks that every tunable is a usable positive value.
func (p Policy) Validate() error {
	if p.MaxChunkChars <= 0 {
		return fmt.Errorf("chunker: max_chunk_chars must be positive, got %d", p.MaxChunkChars)
	}
	if p.MaxChunkEvents <= 0 {
		return fmt.Errorf("chunker: max_chunk_events must be positive, got %d", p.MaxChunkEvents)
	}
	if p.MaxWindowMs <= 0 {
		return fmt.Errorf("chunker: max_window_ms must be positive, got %d", p.MaxWindowMs)
	}
	if p.HardGapMs <= 0 {
		return fmt.Errorf("chunker: hard_gap_ms must be positive, got %d", p.HardGapMs)
	}
	if p.MinChunkChars <= 0 {
		return fmt.Errorf("chunker: min_chunk_chars must be positive, got %d", p.MinChunkChars)
	}
	if p.MergeWindowMs <= 0 {
		return fmt.Errorf("chunker: merge_window_ms must be positive, got %d", p.MergeWindowMs)
	}
	if p.OverlapChars <= 0 {
		return fmt.Errorf("chunker: overlap_chars must be positive, got %d", p.OverlapChars)
	}
	return nil
}
