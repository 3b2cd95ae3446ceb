package lexical

import "github.com/wa-project/recorder/pkg/recorder"

// Filter is one conjunctive predicate in a Query. Filters form a logical
// AND; a Query with multiple filters matches only documents satisfying
// all of them.
type Filter interface {
	matches(d Document) bool
}

// PaneIDFilter matches documents whose pane ID is one of Values.
type PaneIDFilter struct{ Values []uint64 }

func (f PaneIDFilter) matches(d Document) bool {
	for _, v := range f.Values {
		if d.PaneID == v {
			return true
		}
	}
	return false
}

// SessionIDFilter matches documents with an exact session ID.
type SessionIDFilter struct{ Value string }

func (f SessionIDFilter) matches(d Document) bool { return d.SessionID == f.Value }

// EventTypeFilter matches documents whose stream kind is one of Values.
type EventTypeFilter struct{ Values []string }

func (f EventTypeFilter) matches(d Document) bool {
	for _, v := range f.Values {
		if d.EventType == v {
			return true
		}
	}
	return false
}

// IngressKindFilter matches ingress documents with an exact ingress kind.
type IngressKindFilter struct{ Value string }

func (f IngressKindFilter) matches(d Document) bool { return d.IngressKind == f.Value }

// SegmentKindFilter matches egress documents with an exact segment kind.
type SegmentKindFilter struct{ Value string }

func (f SegmentKindFilter) matches(d Document) bool { return d.SegmentKind == f.Value }

// SourceFilter matches documents whose source is one of Values.
type SourceFilter struct{ Values []recorder.Source }

func (f SourceFilter) matches(d Document) bool {
	for _, v := range f.Values {
		if d.Source == v {
			return true
		}
	}
	return false
}

// DirectionMode selects which stream directions DirectionFilter admits.
type DirectionMode string

const (
	DirectionIngressOnly DirectionMode = "ingress"
	DirectionEgressOnly  DirectionMode = "egress"
	DirectionBoth        DirectionMode = "both"
)

// DirectionFilter restricts results to ingress-only, egress-only, or both
// (a no-op filter).
type DirectionFilter struct{ Mode DirectionMode }

func (f DirectionFilter) matches(d Document) bool {
	switch f.Mode {
	case DirectionIngressOnly:
		return d.EventType == string(recorder.StreamIngress)
	case DirectionEgressOnly:
		return d.EventType == string(recorder.StreamEgress)
	default:
		return true
	}
}

// TimeRangeFilter bounds occurred_at_ms inclusively; a nil bound is open.
type TimeRangeFilter struct {
	MinMs *int64
	MaxMs *int64
}

func (f TimeRangeFilter) matches(d Document) bool {
	if f.MinMs != nil && d.OccurredAtMs < *f.MinMs {
		return false
	}
	if f.MaxMs != nil && d.OccurredAtMs > *f.MaxMs {
		return false
	}
	return true
}

// SequenceRangeFilter bounds sequence inclusively; a nil bound is open.
type SequenceRangeFilter struct {
	Min *uint64
	Max *uint64
}

func (f SequenceRangeFilter) matches(d Document) bool {
	if f.Min != nil && d.Sequence < *f.Min {
		return false
	}
	if f.Max != nil && d.Sequence > *f.Max {
		return false
	}
	return true
}

// LogOffsetRangeFilter bounds log_offset inclusively; a nil bound is open.
type LogOffsetRangeFilter struct {
	Min *uint64
	Max *uint64
}

func (f LogOffsetRangeFilter) matches(d Document) bool {
	if f.Min != nil && d.LogOffset < *f.Min {
		return false
	}
	if f.Max != nil && d.LogOffset > *f.Max {
		return false
	}
	return true
}

// SortField selects the primary ranking key. Every field retains the same
// tie-break chain: occurred_at_ms desc, sequence desc, log_offset desc.
type SortField string

const (
	SortRelevance SortField = "relevance"
	SortOccurredAt SortField = "occurred_at"
	SortSequence   SortField = "sequence"
	SortLogOffset  SortField = "log_offset"
)

// Sort selects the primary sort key and direction.
type Sort struct {
	Field      SortField
	Descending bool
}

// DefaultSort ranks by relevance, descending.
func DefaultSort() Sort { return Sort{Field: SortRelevance, Descending: true} }

// SnippetConfig controls fragment extraction around matched terms.
type SnippetConfig struct {
	Enabled       bool
	Before        string
	After         string
	MaxFragments  int
	FragmentChars int
}

// DefaultSnippetConfig matches spec.md's default delimiters.
func DefaultSnippetConfig() SnippetConfig {
	return SnippetConfig{
		Enabled:       true,
		Before:        "«",
		After:         "»",
		MaxFragments:  3,
		FragmentChars: 80,
	}
}

// Query is one lexical search request.
type Query struct {
	Text    string
	Filters []Filter
	Sort    Sort
	Limit   int
	Cursor  string
	Snippet SnippetConfig
}

func (q Query) matchesFilters(d Document) bool {
	for _, f := range q.Filters {
		if !f.matches(d) {
			return false
		}
	}
	return true
}
