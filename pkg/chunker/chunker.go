package chunker

import (
	"sort"
	"unicode/utf8"

	"github.com/wa-project/recorder/pkg/recorder"
)

// Chunker groups events into deterministic, policy-versioned chunks.
type Chunker struct {
	policy Policy
}

// New constructs a Chunker from a validated policy.
func New(policy Policy) (*Chunker, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{policy: policy}, nil
}

// Chunk groups a window of events (in any order) into chunks, sorted by
// (start_offset.segment_id, start_offset.ordinal).
func (c *Chunker) Chunk(events []recorder.Event, offsets []recorder.Offset) ([]Chunk, error) {
	if len(events) != len(offsets) {
		panic("chunker: events and offsets must be the same length")
	}
	if len(events) == 0 {
		return nil, nil
	}

	tagged := make([]taggedEvent, len(events))
	for i, e := range events {
		tagged[i] = taggedEvent{Event: e, Offset: offsets[i]}
	}
	sort.Slice(tagged, func(i, j int) bool {
		return tagged[i].Event.Key().Less(tagged[j].Event.Key())
	})

	closed := c.segment(tagged)
	glued := c.glue(closed)

	chunks := make([]Chunk, 0, len(glued))
	for _, oc := range glued {
		chunks = append(chunks, c.finalize(oc))
	}

	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].StartOffset.SegmentID != chunks[j].StartOffset.SegmentID {
			return chunks[i].StartOffset.SegmentID < chunks[j].StartOffset.SegmentID
		}
		return chunks[i].StartOffset.Ordinal < chunks[j].StartOffset.Ordinal
	})

	c.applyOverlaps(chunks)
	return chunks, nil
}

// contributesText reports whether a payload variant contributes text to a
// chunk, as opposed to being boundary-only.
func contributesText(e recorder.Event) bool {
	switch e.StreamKind() {
	case recorder.StreamControl, recorder.StreamLifecycle:
		return false
	case recorder.StreamEgress:
		return !e.IsExplicitGap()
	default:
		return true
	}
}

// eventDirection maps a content-contributing event's stream kind to a
// chunk direction.
func eventDirection(e recorder.Event) Direction {
	if e.StreamKind() == recorder.StreamEgress {
		return DirectionEgress
	}
	return DirectionIngress
}

// segment performs the hard/soft boundary pass over the merge-key-sorted
// input, producing closed chunks. Boundary-only events never start or
// extend a chunk's text but do force a boundary where required.
func (c *Chunker) segment(tagged []taggedEvent) []openChunk {
	var closed []openChunk
	var cur *openChunk

	closeCurrent := func(hard bool) {
		if cur != nil && len(cur.eventIDs) > 0 {
			cur.followedByHardBoundary = hard
			closed = append(closed, *cur)
		}
		cur = nil
	}

	for _, te := range tagged {
		e := te.Event
		isContent := contributesText(e)

		if !isContent {
			// Boundary-only: forces a boundary but never permanently
			// blocks the glue phase from re-joining across it.
			closeCurrent(false)
			continue
		}

		dir := eventDirection(e)

		hardBoundary := false
		if cur != nil {
			if cur.paneID != e.PaneID {
				hardBoundary = true
			}
			if e.RecordedAtMs-cur.occurredAtEndMs > c.policy.HardGapMs {
				hardBoundary = true
			}
			if cur.direction != dir {
				hardBoundary = true
			}
		}
		if hardBoundary {
			closeCurrent(true)
		}

		if cur == nil {
			cur = &openChunk{
				paneID:            e.PaneID,
				sessionID:         e.SessionID,
				direction:         dir,
				startOffset:       te.Offset,
				endOffset:         te.Offset,
				occurredAtStartMs: e.RecordedAtMs,
				occurredAtEndMs:   e.RecordedAtMs,
			}
		}

		text := e.Text()
		cur.eventIDs = append(cur.eventIDs, e.EventID)
		cur.textParts = append(cur.textParts, text)
		cur.textChars += utf8.RuneCountInString(text)
		cur.endOffset = te.Offset
		cur.occurredAtEndMs = e.RecordedAtMs

		if cur.textChars >= c.policy.MaxChunkChars ||
			len(cur.eventIDs) >= c.policy.MaxChunkEvents ||
			cur.occurredAtEndMs-cur.occurredAtStartMs > c.policy.MaxWindowMs {
			closeCurrent(false)
		}
	}
	closeCurrent(false)

	return closed
}

// glue merges adjacent closed chunks that are small enough and close
// enough in time, per spec: at most two source chunks merge per glue step.
func (c *Chunker) glue(closed []openChunk) []openChunk {
	if len(closed) < 2 {
		return closed
	}

	var out []openChunk
	i := 0
	for i < len(closed) {
		if i+1 >= len(closed) {
			out = append(out, closed[i])
			i++
			continue
		}
		a, b := closed[i], closed[i+1]
		combinedChars := a.textChars + b.textChars
		gapMs := b.occurredAtStartMs - a.occurredAtEndMs
		separatedByHardBoundary := a.followedByHardBoundary || a.paneID != b.paneID || gapMs > c.policy.HardGapMs

		if !separatedByHardBoundary &&
			combinedChars <= c.policy.MaxChunkChars+c.policy.OverlapChars &&
			gapMs <= c.policy.MergeWindowMs &&
			len(a.eventIDs)+len(b.eventIDs) <= 2*c.policy.MaxChunkEvents {

			merged := mergeOpenChunks(a, b)
			out = append(out, merged)
			i += 2
			continue
		}

		out = append(out, a)
		i++
	}
	return out
}

func mergeOpenChunks(a, b openChunk) openChunk {
	dir := a.direction
	if a.direction != b.direction {
		dir = DirectionMixedGlued
	}
	return openChunk{
		paneID:            a.paneID,
		sessionID:         a.sessionID,
		direction:         dir,
		startOffset:       a.startOffset,
		endOffset:         b.endOffset,
		eventIDs:          append(append([]string(nil), a.eventIDs...), b.eventIDs...),
		occurredAtStartMs: a.occurredAtStartMs,
		occurredAtEndMs:   b.occurredAtEndMs,
		textParts:         append(append([]string(nil), a.textParts...), b.textParts...),
		textChars:         a.textChars + b.textChars,
		followedByHardBoundary: b.followedByHardBoundary,
	}
}

// finalize computes a closed openChunk's identity and produces its public
// Chunk representation.
func (c *Chunker) finalize(oc openChunk) Chunk {
	text := joinParts(oc.textParts)
	hash := contentHash(PolicyVersion, oc.paneID, oc.direction, text, oc.eventIDs)
	id := chunkID(hash, oc.startOffset, oc.endOffset)

	return Chunk{
		ChunkID:           id,
		PolicyVersion:     PolicyVersion,
		PaneID:            oc.paneID,
		SessionID:         oc.sessionID,
		Direction:         oc.direction,
		StartOffset:       oc.startOffset,
		EndOffset:         oc.endOffset,
		EventIDs:          oc.eventIDs,
		EventCount:        len(oc.eventIDs),
		OccurredAtStartMs: oc.occurredAtStartMs,
		OccurredAtEndMs:   oc.occurredAtEndMs,
		TextChars:         utf8.RuneCountInString(text),
		ContentHash:       hash,
		Text:              text,
	}
}

func joinParts(parts []string) string {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	buf := make([]byte, 0, total)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return string(buf)
}

// applyOverlaps attaches a suffix sample of each chunk's text to the
// immediately following chunk, truncated at the nearest rune boundary.
func (c *Chunker) applyOverlaps(chunks []Chunk) {
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		sample := suffixSample(prev.Text, c.policy.OverlapChars)
		if sample == "" {
			continue
		}
		chunks[i].Overlap = &Overlap{
			FromChunkID: prev.ChunkID,
			Text:        sample,
			Chars:       utf8.RuneCountInString(sample),
		}
	}
}

// suffixSample returns the last n runes of s, respecting rune boundaries.
func suffixSample(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
