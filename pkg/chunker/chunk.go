package chunker

import "github.com/wa-project/recorder/pkg/recorder"

// Direction classifies the content flow a chunk was built from.
type Direction string

const (
	DirectionIngress    Direction = "ingress"
	DirectionEgress     Direction = "egress"
	DirectionMixedGlued Direction = "mixed_glued"
)

// Overlap carries a suffix sample of the immediately preceding chunk's
// text, used to give retrieval a little cross-chunk context.
type Overlap struct {
	FromChunkID string `json:"from_chunk_id"`
	Text        string `json:"text"`
	Chars       int    `json:"chars"`
}

// Chunk is one content-hashed, policy-versioned grouping of events.
type Chunk struct {
	ChunkID           string          `json:"chunk_id"`
	PolicyVersion     string          `json:"policy_version"`
	PaneID            uint64          `json:"pane_id"`
	SessionID         string          `json:"session_id,omitempty"`
	Direction         Direction       `json:"direction"`
	StartOffset       recorder.Offset `json:"start_offset"`
	EndOffset         recorder.Offset `json:"end_offset"`
	EventIDs          []string        `json:"event_ids"`
	EventCount        int             `json:"event_count"`
	OccurredAtStartMs int64           `json:"occurred_at_start_ms"`
	OccurredAtEndMs   int64           `json:"occurred_at_end_ms"`
	TextChars         int             `json:"text_chars"`
	ContentHash       string          `json:"content_hash"`
	Text              string          `json:"text"`
	Overlap           *Overlap        `json:"overlap,omitempty"`
}

// taggedEvent pairs an event with its log offset, the chunker's input unit.
type taggedEvent struct {
	Event  recorder.Event
	Offset recorder.Offset
}

// openChunk is a chunk still accumulating events, before identity is
// computed and it is closed.
type openChunk struct {
	paneID            uint64
	sessionID         string
	direction         Direction
	startOffset       recorder.Offset
	endOffset         recorder.Offset
	eventIDs          []string
	occurredAtStartMs int64
	occurredAtEndMs   int64
	textParts         []string
	textChars         int

	// followedByHardBoundary is true when this chunk was closed because of
	// a genuine hard boundary (pane change, time gap, or direction change
	// between adjacent content events) rather than a boundary-only event
	// or a soft limit. Only a genuine hard boundary blocks the glue phase
	// from later re-joining this chunk with its successor.
	followedByHardBoundary bool
}
