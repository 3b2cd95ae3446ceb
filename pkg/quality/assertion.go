package quality

import (
	"fmt"

	"github.com/wa-project/recorder/pkg/lexical"
)

// Assertion checks one property of a lexical.Result, returning a non-nil
// error describing the failure.
type Assertion interface {
	check(res lexical.Result) error
}

// MustHit requires EventID to appear somewhere in the hits.
type MustHit struct{ EventID string }

func (a MustHit) check(res lexical.Result) error {
	for _, h := range res.Hits {
		if h.Document.EventID == a.EventID {
			return nil
		}
	}
	return fmt.Errorf("must_hit: %q not found among %d hits", a.EventID, len(res.Hits))
}

// MustNotHit requires EventID to be absent from the hits.
type MustNotHit struct{ EventID string }

func (a MustNotHit) check(res lexical.Result) error {
	for _, h := range res.Hits {
		if h.Document.EventID == a.EventID {
			return fmt.Errorf("must_not_hit: %q was present", a.EventID)
		}
	}
	return nil
}

// MinTotalHits requires TotalHits >= N.
type MinTotalHits struct{ N int }

func (a MinTotalHits) check(res lexical.Result) error {
	if res.TotalHits < a.N {
		return fmt.Errorf("min_total_hits: want >= %d, got %d", a.N, res.TotalHits)
	}
	return nil
}

// MaxTotalHits requires TotalHits <= N.
type MaxTotalHits struct{ N int }

func (a MaxTotalHits) check(res lexical.Result) error {
	if res.TotalHits > a.N {
		return fmt.Errorf("max_total_hits: want <= %d, got %d", a.N, res.TotalHits)
	}
	return nil
}

// ExactTotalHits requires TotalHits == N.
type ExactTotalHits struct{ N int }

func (a ExactTotalHits) check(res lexical.Result) error {
	if res.TotalHits != a.N {
		return fmt.Errorf("exact_total_hits: want %d, got %d", a.N, res.TotalHits)
	}
	return nil
}

// InTopN requires EventID to rank within the first N hits.
type InTopN struct {
	EventID string
	N       int
}

func (a InTopN) check(res lexical.Result) error {
	limit := a.N
	if limit > len(res.Hits) {
		limit = len(res.Hits)
	}
	for i := 0; i < limit; i++ {
		if res.Hits[i].Document.EventID == a.EventID {
			return nil
		}
	}
	return fmt.Errorf("in_top_n: %q not within top %d", a.EventID, a.N)
}

// RankedBefore requires Before to rank ahead of After among the hits.
type RankedBefore struct {
	Before string
	After  string
}

func (a RankedBefore) check(res lexical.Result) error {
	beforeIdx, afterIdx := -1, -1
	for i, h := range res.Hits {
		if h.Document.EventID == a.Before {
			beforeIdx = i
		}
		if h.Document.EventID == a.After {
			afterIdx = i
		}
	}
	if beforeIdx == -1 {
		return fmt.Errorf("ranked_before: %q not found", a.Before)
	}
	if afterIdx == -1 {
		return fmt.Errorf("ranked_before: %q not found", a.After)
	}
	if beforeIdx >= afterIdx {
		return fmt.Errorf("ranked_before: %q (rank %d) not before %q (rank %d)", a.Before, beforeIdx, a.After, afterIdx)
	}
	return nil
}

// FirstResult requires the top hit to have the given event ID.
type FirstResult struct{ EventID string }

func (a FirstResult) check(res lexical.Result) error {
	if len(res.Hits) == 0 {
		return fmt.Errorf("first_result: no hits, want %q", a.EventID)
	}
	if res.Hits[0].Document.EventID != a.EventID {
		return fmt.Errorf("first_result: want %q, got %q", a.EventID, res.Hits[0].Document.EventID)
	}
	return nil
}

// AllMatchFilter requires every hit to satisfy pred, named for diagnostics.
type AllMatchFilter struct {
	Name string
	Pred func(d lexical.Document) bool
}

func (a AllMatchFilter) check(res lexical.Result) error {
	for _, h := range res.Hits {
		if !a.Pred(h.Document) {
			return fmt.Errorf("all_match_filter(%s): event %q failed predicate", a.Name, h.Document.EventID)
		}
	}
	return nil
}
