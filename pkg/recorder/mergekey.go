package recorder

import "sort"

// MergeKey is the canonical replay sort key:
// (recorded_at_ms, pane_id, stream_kind_rank, sequence, event_id).
// Sorting a batch of events by this key yields canonical replay order,
// deterministic on equal keys by lexicographic event_id comparison.
type MergeKey struct {
	RecordedAtMs   int64
	PaneID         uint64
	StreamKindRank int
	Sequence       uint64
	EventID        string
}

// Less reports whether k sorts strictly before other.
func (k MergeKey) Less(other MergeKey) bool {
	if k.RecordedAtMs != other.RecordedAtMs {
		return k.RecordedAtMs < other.RecordedAtMs
	}
	if k.PaneID != other.PaneID {
		return k.PaneID < other.PaneID
	}
	if k.StreamKindRank != other.StreamKindRank {
		return k.StreamKindRank < other.StreamKindRank
	}
	if k.Sequence != other.Sequence {
		return k.Sequence < other.Sequence
	}
	return k.EventID < other.EventID
}

// Equal reports whether k and other compare as the same merge key.
func (k MergeKey) Equal(other MergeKey) bool {
	return k == other
}

// Key computes the event's merge key.
func (e *Event) Key() MergeKey {
	return MergeKey{
		RecordedAtMs:   e.RecordedAtMs,
		PaneID:         e.PaneID,
		StreamKindRank: e.StreamKind().Rank(),
		Sequence:       e.Sequence,
		EventID:        e.EventID,
	}
}

// SortByMergeKey sorts events in place into canonical replay order.
func SortByMergeKey(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Key().Less(events[j].Key())
	})
}

// Offset identifies a record's position in the append log:
// (segment_id, byte_offset, ordinal). segment_id is reserved for future
// segment rollover; the baseline uses a single segment (segment_id == 0).
type Offset struct {
	SegmentID  uint32 `json:"segment_id"`
	ByteOffset uint64 `json:"byte_offset"`
	Ordinal    uint64 `json:"ordinal"`
}

// Less orders offsets first by segment, then by ordinal — the ordinal alone
// is already strictly monotonic across all accepted events, so segment_id
// only matters once segment rollover is implemented.
func (o Offset) Less(other Offset) bool {
	if o.SegmentID != other.SegmentID {
		return o.SegmentID < other.SegmentID
	}
	return o.Ordinal < other.Ordinal
}

// Checkpoint is a per-consumer durable bookmark into the append log.
type Checkpoint struct {
	ConsumerID    string `json:"consumer_id"`
	UpToOffset    Offset `json:"upto_offset"`
	SchemaVersion string `json:"schema_version"`
	CommittedAtMs int64  `json:"committed_at_ms"`
}
