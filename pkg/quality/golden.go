// Package quality freezes lexical search relevance against a hand-curated
// golden corpus, grounded in the teacher's test/e2e golden-scenario harness
// (test/e2e/golden.go, scenarios_test.go) generalized from asserting on
// agent session outcomes to asserting on search results.
package quality

import (
	"time"

	"github.com/wa-project/recorder/pkg/lexical"
)

// QueryClass buckets a golden query by expected cost, selecting its latency
// budget.
type QueryClass string

const (
	SimpleTerm     QueryClass = "simple_term"
	MultiTerm      QueryClass = "multi_term"
	Filtered       QueryClass = "filtered"
	Forensic       QueryClass = "forensic"
	HighCardinality QueryClass = "high_cardinality"
)

// DefaultBudgets returns the latency budget per QueryClass for the reference
// in-memory service. These are recalibrated per deployment against a real
// index; see the package doc.
func DefaultBudgets() map[QueryClass]time.Duration {
	return map[QueryClass]time.Duration{
		SimpleTerm:      5 * time.Millisecond,
		MultiTerm:       10 * time.Millisecond,
		Filtered:        15 * time.Millisecond,
		Forensic:        25 * time.Millisecond,
		HighCardinality: 50 * time.Millisecond,
	}
}

// GoldenQuery bundles one search scenario with its expected outcome.
type GoldenQuery struct {
	Name        string
	Class       QueryClass
	Query       lexical.Query
	Assertions  []Assertion
	Description string
}
