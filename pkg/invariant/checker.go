package invariant

import (
	"fmt"

	"github.com/wa-project/recorder/pkg/recorder"
)

// domainKey identifies a per-(pane_id, stream_kind) sequencing domain.
type domainKey struct {
	PaneID     uint64
	StreamKind recorder.StreamKind
}

// domainState tracks the sequence and clock history for one domain.
type domainState struct {
	lastSequence    uint64
	haveSequence    bool
	seenSequences   map[uint64]bool
	lastClockMs     int64
	haveClock       bool
}

// Checker runs the single-pass invariant check described in spec §4.2.
type Checker struct {
	cfg Config
}

// New constructs a Checker with the given configuration.
func New(cfg Config) *Checker {
	return &Checker{cfg: cfg}
}

// Check performs one single pass over events (presented in the caller's
// order — typically append order), tracking per-domain sequence/clock
// state, a global event-id set, and the previous merge key, emitting
// Violations as it goes.
func (c *Checker) Check(events []recorder.Event) Report {
	var report Report
	seenEventIDs := make(map[string]bool, len(events))
	domains := make(map[domainKey]*domainState)
	var prevKey *recorder.MergeKey
	var havePrevKey bool

	for i, e := range events {
		if e.EventID == "" {
			report.Violations = append(report.Violations, Violation{
				Kind: EmptyEventId, Severity: Error, EventIndex: i, PaneID: e.PaneID,
				Message: "event_id must not be empty",
			})
		}

		if c.cfg.ExpectedSchemaVersion != "" && e.SchemaVersion != c.cfg.ExpectedSchemaVersion {
			report.Violations = append(report.Violations, Violation{
				Kind: SchemaVersionMismatch, Severity: Error, EventID: e.EventID, EventIndex: i, PaneID: e.PaneID,
				Message: fmt.Sprintf("schema_version %q does not match expected %q", e.SchemaVersion, c.cfg.ExpectedSchemaVersion),
			})
		}

		if e.EventID != "" {
			if seenEventIDs[e.EventID] {
				report.Violations = append(report.Violations, Violation{
					Kind: DuplicateEventId, Severity: Critical, EventID: e.EventID, EventIndex: i, PaneID: e.PaneID,
					Message: "event_id appears more than once in the batch",
				})
			}
			seenEventIDs[e.EventID] = true
		}

		dk := domainKey{PaneID: e.PaneID, StreamKind: e.StreamKind()}
		ds, ok := domains[dk]
		if !ok {
			ds = &domainState{seenSequences: make(map[uint64]bool)}
			domains[dk] = ds
		}

		if ds.seenSequences[e.Sequence] {
			report.Violations = append(report.Violations, Violation{
				Kind: DuplicateSequence, Severity: Error, EventID: e.EventID, EventIndex: i, PaneID: e.PaneID,
				Message: fmt.Sprintf("sequence %d repeats within pane %d stream %q", e.Sequence, e.PaneID, dk.StreamKind),
			})
		}
		ds.seenSequences[e.Sequence] = true

		if ds.haveSequence {
			switch {
			case e.Sequence < ds.lastSequence:
				report.Violations = append(report.Violations, Violation{
					Kind: SequenceRegression, Severity: Critical, EventID: e.EventID, EventIndex: i, PaneID: e.PaneID,
					Message: fmt.Sprintf("sequence %d regresses below last seen %d", e.Sequence, ds.lastSequence),
				})
			case e.Sequence > ds.lastSequence+1 && !e.IsExplicitGap():
				gap := e.Sequence - ds.lastSequence - 1
				sev := Warning
				if gap > c.cfg.MaxSequenceGap {
					sev = Error
				}
				report.Violations = append(report.Violations, Violation{
					Kind: SequenceGap, Severity: sev, EventID: e.EventID, EventIndex: i, PaneID: e.PaneID,
					Message: fmt.Sprintf("sequence gap of %d after last seen %d", gap, ds.lastSequence),
				})
			}
		}
		if e.Sequence >= ds.lastSequence || !ds.haveSequence {
			ds.lastSequence = e.Sequence
			ds.haveSequence = true
		}

		if ds.haveClock {
			switch {
			case e.RecordedAtMs < ds.lastClockMs:
				report.Violations = append(report.Violations, Violation{
					Kind: ClockRegression, Severity: Warning, EventID: e.EventID, EventIndex: i, PaneID: e.PaneID,
					Message: fmt.Sprintf("recorded_at_ms %d precedes previous %d in this domain", e.RecordedAtMs, ds.lastClockMs),
				})
			case e.RecordedAtMs-ds.lastClockMs > c.cfg.ClockFutureSkewThresholdMs:
				report.Violations = append(report.Violations, Violation{
					Kind: ClockFutureSkew, Severity: Warning, EventID: e.EventID, EventIndex: i, PaneID: e.PaneID,
					Message: fmt.Sprintf("recorded_at_ms jumped forward by %dms, exceeds threshold %dms", e.RecordedAtMs-ds.lastClockMs, c.cfg.ClockFutureSkewThresholdMs),
				})
			}
		}
		ds.lastClockMs = e.RecordedAtMs
		ds.haveClock = true

		if c.cfg.CheckMergeOrder {
			key := e.Key()
			if havePrevKey && key.Less(*prevKey) {
				report.Violations = append(report.Violations, Violation{
					Kind: MergeOrderViolation, Severity: Error, EventID: e.EventID, EventIndex: i, PaneID: e.PaneID,
					Message: "merge key regresses relative to the previous event in batch order",
				})
			}
			prevKey = &key
			havePrevKey = true
		}

		if c.cfg.CheckCausality {
			c.checkCausalityRef(e.Causality.ParentEventID, DanglingParentRef, seenEventIDs, e, i, &report)
			c.checkCausalityRef(e.Causality.TriggerEventID, DanglingTriggerRef, seenEventIDs, e, i, &report)
			c.checkCausalityRef(e.Causality.RootEventID, DanglingRootRef, seenEventIDs, e, i, &report)
		}
	}

	return report
}

// checkCausalityRef reports a dangling reference when ref is non-empty and
// has not been seen yet at this point in the single pass — this also
// catches forward references, since the checker never looks ahead.
func (c *Checker) checkCausalityRef(ref string, kind Kind, seen map[string]bool, e recorder.Event, index int, report *Report) {
	if ref == "" {
		return
	}
	if seen[ref] {
		return
	}
	report.Violations = append(report.Violations, Violation{
		Kind: kind, Severity: Warning, EventID: e.EventID, EventIndex: index, PaneID: e.PaneID,
		Message: fmt.Sprintf("reference %q has not appeared earlier in the batch", ref),
	})
}
