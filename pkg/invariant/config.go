// Package invariant implements the single-pass event checker (C3): it
// certifies an ordered batch of events against the recorder's ordering,
// identity, and causality contract, and verifies that two logs merge-sort
// to identical replay order. Grounded in the teacher's pkg/config/validator.go
// single-pass accumulate-and-report shape, generalized from config field
// checks to a streaming pass over an event batch.
package invariant

// Config holds the checker's tunable thresholds.
type Config struct {
	MaxSequenceGap             uint64 `yaml:"max_sequence_gap"`
	CheckCausality             bool   `yaml:"check_causality"`
	CheckMergeOrder            bool   `yaml:"check_merge_order"`
	ClockFutureSkewThresholdMs int64  `yaml:"clock_future_skew_threshold_ms"`
	ExpectedSchemaVersion      string `yaml:"expected_schema_version"`
}

// DefaultConfig returns the baseline checker configuration.
func DefaultConfig() Config {
	return Config{
		MaxSequenceGap:             1,
		CheckCausality:             true,
		CheckMergeOrder:            true,
		ClockFutureSkewThresholdMs: 5000,
		ExpectedSchemaVersion:      "",
	}
}
