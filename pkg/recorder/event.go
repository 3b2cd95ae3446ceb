// Package recorder defines the self-describing event model shared by every
// other component: identity, causality, ordering keys, and the tagged
// payload variants that distinguish ingress keystrokes from egress output,
// control markers, and lifecycle markers.
package recorder

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion is the interned constant every event carries. Migrations
// are gated on equality against this value.
const SchemaVersion = "ft.recorder.event.v1"

// Source identifies the origin of an event.
type Source string

const (
	SourceOperator    Source = "operator"
	SourceAutomation  Source = "automation"
	SourceMultiplexer Source = "multiplexer"
	SourceInternal    Source = "internal"
)

// RedactionTier describes how heavily a text payload has been masked before
// persistence. Produced by the masking pipeline (pkg/masking).
type RedactionTier string

const (
	RedactionNone    RedactionTier = "none"
	RedactionPartial RedactionTier = "partial"
	RedactionFull    RedactionTier = "full"
)

// StreamKind is derived purely from the payload variant. It, together with
// PaneID, forms the ordering domain for Sequence.
type StreamKind string

const (
	StreamIngress   StreamKind = "ingress"
	StreamEgress    StreamKind = "egress"
	StreamControl   StreamKind = "control"
	StreamLifecycle StreamKind = "lifecycle"
)

// streamKindRank gives each stream kind a stable position in the merge key.
// The order is arbitrary but must be total and deterministic; it does not
// encode any priority between stream kinds.
var streamKindRank = map[StreamKind]int{
	StreamIngress:   0,
	StreamEgress:    1,
	StreamControl:   2,
	StreamLifecycle: 3,
}

// Rank returns this stream kind's position in the merge key tuple.
func (k StreamKind) Rank() int {
	if r, ok := streamKindRank[k]; ok {
		return r
	}
	return len(streamKindRank)
}

// Causality links an event to the events that produced it. All three
// references are optional; an empty string means "no reference".
type Causality struct {
	ParentEventID  string `json:"parent_event_id,omitempty"`
	TriggerEventID string `json:"trigger_event_id,omitempty"`
	RootEventID    string `json:"root_event_id,omitempty"`
}

// Payload is the tagged variant carried by every event. Kind returns the
// discriminator used for JSON encoding and for StreamKind derivation.
type Payload interface {
	Kind() string
	streamKind() StreamKind
}

// IngressText is bytes flowing into a pane (operator keystrokes or injected
// automation input).
type IngressText struct {
	Text        string        `json:"text"`
	Encoding    string        `json:"encoding"`
	Redaction   RedactionTier `json:"redaction"`
	IngressKind string        `json:"ingress_kind"`
}

func (IngressText) Kind() string            { return "ingress_text" }
func (IngressText) streamKind() StreamKind  { return StreamIngress }

// EgressOutput is bytes flowing out of a pane. IsGap=true denotes an
// explicit discontinuity marker carrying no content (e.g. a dropped PTY
// read); such events are boundary-only and never contribute text.
type EgressOutput struct {
	Text        string        `json:"text"`
	Encoding    string        `json:"encoding"`
	Redaction   RedactionTier `json:"redaction"`
	SegmentKind string        `json:"segment_kind"`
	IsGap       bool          `json:"is_gap"`
}

func (EgressOutput) Kind() string           { return "egress_output" }
func (EgressOutput) streamKind() StreamKind { return StreamEgress }

// ControlMarker records out-of-band pane events: resize, prompt boundary,
// focus change, etc. Control markers are boundary-only: the chunker treats
// them as hard boundaries and never includes their details in chunk text.
type ControlMarker struct {
	MarkerType string            `json:"marker_type"`
	Details    map[string]string `json:"details,omitempty"`
}

func (ControlMarker) Kind() string           { return "control_marker" }
func (ControlMarker) streamKind() StreamKind { return StreamControl }

// LifecycleMarker records capture/session lifecycle transitions: start,
// stop, join, leave.
type LifecycleMarker struct {
	Phase   string            `json:"phase"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func (LifecycleMarker) Kind() string           { return "lifecycle_marker" }
func (LifecycleMarker) streamKind() StreamKind { return StreamLifecycle }

// Event is one recorder event: identity, causality, ordering keys, and a
// tagged payload. Events are immutable once appended to the log.
type Event struct {
	SchemaVersion string  `json:"schema_version"`
	EventID       string  `json:"event_id"`
	PaneID        uint64  `json:"pane_id"`
	SessionID     string  `json:"session_id,omitempty"`
	WorkflowID    string  `json:"workflow_id,omitempty"`
	CorrelationID string  `json:"correlation_id,omitempty"`
	Source        Source  `json:"source"`
	OccurredAtMs  int64   `json:"occurred_at_ms"`
	RecordedAtMs  int64   `json:"recorded_at_ms"`
	Sequence      uint64  `json:"sequence"`
	Causality     Causality `json:"causality"`
	Payload       Payload `json:"payload"`
}

// StreamKind derives the stream kind from the payload variant.
func (e *Event) StreamKind() StreamKind {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.streamKind()
}

// IsExplicitGap reports whether this event is an egress gap marker: it
// contributes no text and is treated as boundary-only by the chunker and
// as a sequence-gap exemption by the invariant checker.
func (e *Event) IsExplicitGap() bool {
	eg, ok := e.Payload.(EgressOutput)
	return ok && eg.IsGap
}

// Text returns the textual content of the payload, or "" for variants that
// carry no text (control/lifecycle markers, gap markers).
func (e *Event) Text() string {
	switch p := e.Payload.(type) {
	case IngressText:
		return p.Text
	case EgressOutput:
		if p.IsGap {
			return ""
		}
		return p.Text
	default:
		return ""
	}
}

// eventWire is the JSON-on-the-wire shape: a discriminated union encoded as
// a "payload_kind" tag alongside the untyped payload body.
type eventWire struct {
	SchemaVersion string            `json:"schema_version"`
	EventID       string            `json:"event_id"`
	PaneID        uint64            `json:"pane_id"`
	SessionID     string            `json:"session_id,omitempty"`
	WorkflowID    string            `json:"workflow_id,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Source        Source            `json:"source"`
	OccurredAtMs  int64             `json:"occurred_at_ms"`
	RecordedAtMs  int64             `json:"recorded_at_ms"`
	Sequence      uint64            `json:"sequence"`
	Causality     Causality         `json:"causality"`
	PayloadKind   string            `json:"payload_kind"`
	Payload       json.RawMessage   `json:"payload"`
}

// MarshalJSON encodes the event with an explicit payload_kind discriminator
// so UnmarshalJSON can reconstruct the correct concrete payload type.
func (e Event) MarshalJSON() ([]byte, error) {
	var kind string
	var body any = e.Payload
	if e.Payload != nil {
		kind = e.Payload.Kind()
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("recorder: marshal payload: %w", err)
	}
	w := eventWire{
		SchemaVersion: e.SchemaVersion,
		EventID:       e.EventID,
		PaneID:        e.PaneID,
		SessionID:     e.SessionID,
		WorkflowID:    e.WorkflowID,
		CorrelationID: e.CorrelationID,
		Source:        e.Source,
		OccurredAtMs:  e.OccurredAtMs,
		RecordedAtMs:  e.RecordedAtMs,
		Sequence:      e.Sequence,
		Causality:     e.Causality,
		PayloadKind:   kind,
		Payload:       raw,
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the event, dispatching on payload_kind to the
// correct concrete Payload implementation.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w eventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.SchemaVersion = w.SchemaVersion
	e.EventID = w.EventID
	e.PaneID = w.PaneID
	e.SessionID = w.SessionID
	e.WorkflowID = w.WorkflowID
	e.CorrelationID = w.CorrelationID
	e.Source = w.Source
	e.OccurredAtMs = w.OccurredAtMs
	e.RecordedAtMs = w.RecordedAtMs
	e.Sequence = w.Sequence
	e.Causality = w.Causality

	if len(w.Payload) == 0 || string(w.Payload) == "null" {
		e.Payload = nil
		return nil
	}

	switch w.PayloadKind {
	case "ingress_text":
		var p IngressText
		if err := json.Unmarshal(w.Payload, &p); err != nil {
			return fmt.Errorf("recorder: unmarshal ingress_text: %w", err)
		}
		e.Payload = p
	case "egress_output":
		var p EgressOutput
		if err := json.Unmarshal(w.Payload, &p); err != nil {
			return fmt.Errorf("recorder: unmarshal egress_output: %w", err)
		}
		e.Payload = p
	case "control_marker":
		var p ControlMarker
		if err := json.Unmarshal(w.Payload, &p); err != nil {
			return fmt.Errorf("recorder: unmarshal control_marker: %w", err)
		}
		e.Payload = p
	case "lifecycle_marker":
		var p LifecycleMarker
		if err := json.Unmarshal(w.Payload, &p); err != nil {
			return fmt.Errorf("recorder: unmarshal lifecycle_marker: %w", err)
		}
		e.Payload = p
	default:
		return fmt.Errorf("recorder: unknown payload_kind %q", w.PayloadKind)
	}
	return nil
}
