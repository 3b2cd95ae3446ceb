// Package lexical implements the ranked full-text search service (C6): a
// flat document projection of recorder events, a BM25-style in-memory
// index, filters, sort, cursor pagination, and snippet extraction.
// Grounded in the teacher's pkg/config/validator.go fail-fast field
// checking for the query model's validation pass, and hand-rolled (no
// third-party full-text engine appears anywhere in the retrieval pack) for
// the scoring itself — see DESIGN.md.
package lexical

import "github.com/wa-project/recorder/pkg/recorder"

// Document is the flat, one-per-event projection searched by this
// service. log_offset equals the event's append-log ordinal and is the
// cross-subsystem join key back to the append log.
type Document struct {
	EventID        string `json:"event_id"`
	PaneID         uint64 `json:"pane_id"`
	SessionID      string `json:"session_id,omitempty"`
	WorkflowID     string `json:"workflow_id,omitempty"`
	CorrelationID  string `json:"correlation_id,omitempty"`

	EventType          string `json:"event_type"`
	IngressKind        string `json:"ingress_kind,omitempty"`
	SegmentKind        string `json:"segment_kind,omitempty"`
	ControlMarkerType  string `json:"control_marker_type,omitempty"`
	LifecyclePhase     string `json:"lifecycle_phase,omitempty"`
	IsGap              bool   `json:"is_gap"`

	Source        recorder.Source        `json:"source"`
	Redaction     recorder.RedactionTier `json:"redaction"`
	OccurredAtMs  int64                  `json:"occurred_at_ms"`
	RecordedAtMs  int64                  `json:"recorded_at_ms"`
	Sequence      uint64                 `json:"sequence"`
	LogOffset     uint64                 `json:"log_offset"`

	Text        string `json:"text"`
	TextSymbols string `json:"text_symbols"`
}

// Project builds the lexical document for one recorder event at the given
// log offset. text_symbols carries the same content as text but is
// searched with a score boost for symbol-dense tokens (paths, flags,
// error codes) that plain tokenization would otherwise dilute.
func Project(e recorder.Event, offset recorder.Offset) Document {
	doc := Document{
		EventID:       e.EventID,
		PaneID:        e.PaneID,
		SessionID:     e.SessionID,
		WorkflowID:    e.WorkflowID,
		CorrelationID: e.CorrelationID,
		EventType:     string(e.StreamKind()),
		Source:        e.Source,
		OccurredAtMs:  e.OccurredAtMs,
		RecordedAtMs:  e.RecordedAtMs,
		Sequence:      e.Sequence,
		LogOffset:     offset.Ordinal,
		Text:          e.Text(),
	}
	doc.TextSymbols = doc.Text

	switch p := e.Payload.(type) {
	case recorder.IngressText:
		doc.IngressKind = p.IngressKind
		doc.Redaction = p.Redaction
	case recorder.EgressOutput:
		doc.SegmentKind = p.SegmentKind
		doc.Redaction = p.Redaction
		doc.IsGap = p.IsGap
	case recorder.ControlMarker:
		doc.ControlMarkerType = p.MarkerType
	case recorder.LifecycleMarker:
		doc.LifecyclePhase = p.Phase
	}
	return doc
}
