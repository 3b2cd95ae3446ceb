package invariant

import "fmt"

// Severity classifies how serious a violation is. A batch passes checking
// only when no Error or Critical violation was emitted.
type Severity string

const (
	Warning  Severity = "warning"
	Error    Severity = "error"
	Critical Severity = "critical"
)

// Kind identifies the specific rule a violation comes from.
type Kind string

const (
	EmptyEventId          Kind = "empty_event_id"
	SchemaVersionMismatch Kind = "schema_version_mismatch"
	DuplicateEventId      Kind = "duplicate_event_id"
	DuplicateSequence     Kind = "duplicate_sequence"
	SequenceRegression    Kind = "sequence_regression"
	SequenceGap           Kind = "sequence_gap"
	ClockRegression       Kind = "clock_regression"
	ClockFutureSkew       Kind = "clock_future_skew"
	MergeOrderViolation   Kind = "merge_order_violation"
	DanglingParentRef     Kind = "dangling_parent_ref"
	DanglingTriggerRef    Kind = "dangling_trigger_ref"
	DanglingRootRef       Kind = "dangling_root_ref"
)

// Violation is one certified defect found during a single pass over a
// batch.
type Violation struct {
	Kind       Kind     `json:"kind"`
	Severity   Severity `json:"severity"`
	EventID    string   `json:"event_id"`
	PaneID     uint64   `json:"pane_id"`
	EventIndex int      `json:"event_index"`
	Message    string   `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s at index %d (event_id=%q, pane_id=%d): %s", v.Severity, v.Kind, v.EventIndex, v.EventID, v.PaneID, v.Message)
}

// Report is the outcome of one Check call.
type Report struct {
	Violations []Violation `json:"violations"`
}

// Passed reports whether the batch has no Error or Critical violations.
func (r Report) Passed() bool {
	for _, v := range r.Violations {
		if v.Severity == Error || v.Severity == Critical {
			return false
		}
	}
	return true
}
