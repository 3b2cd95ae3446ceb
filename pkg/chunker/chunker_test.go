package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wa-project/recorder/pkg/recorder"
)

func ingress(id string, pane uint64, seq uint64, ordinal uint64, ms int64, text string) (recorder.Event, recorder.Offset) {
	e := recorder.Event{
		SchemaVersion: recorder.SchemaVersion,
		EventID:       id,
		PaneID:        pane,
		Source:        recorder.SourceOperator,
		OccurredAtMs:  ms,
		RecordedAtMs:  ms,
		Sequence:      seq,
		Payload:       recorder.IngressText{Text: text, Encoding: "utf-8", Redaction: recorder.RedactionNone, IngressKind: "keystroke"},
	}
	return e, recorder.Offset{Ordinal: ordinal}
}

func egressGap(id string, pane uint64, seq uint64, ordinal uint64, ms int64) (recorder.Event, recorder.Offset) {
	e := recorder.Event{
		SchemaVersion: recorder.SchemaVersion,
		EventID:       id,
		PaneID:        pane,
		Source:        recorder.SourceMultiplexer,
		OccurredAtMs:  ms,
		RecordedAtMs:  ms,
		Sequence:      seq,
		Payload:       recorder.EgressOutput{Encoding: "utf-8", Redaction: recorder.RedactionNone, SegmentKind: "output", IsGap: true},
	}
	return e, recorder.Offset{Ordinal: ordinal}
}

func controlMarker(id string, pane uint64, seq uint64, ordinal uint64, ms int64) (recorder.Event, recorder.Offset) {
	e := recorder.Event{
		SchemaVersion: recorder.SchemaVersion,
		EventID:       id,
		PaneID:        pane,
		Source:        recorder.SourceMultiplexer,
		OccurredAtMs:  ms,
		RecordedAtMs:  ms,
		Sequence:      seq,
		Payload:       recorder.ControlMarker{MarkerType: "resize"},
	}
	return e, recorder.Offset{Ordinal: ordinal}
}

func TestChunker_EmptyInput_EmptyOutput(t *testing.T) {
	c, err := New(DefaultPolicy())
	require.NoError(t, err)
	chunks, err := c.Chunk(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunker_BoundaryOnlyEvents_EmptyOutput(t *testing.T) {
	c, err := New(DefaultPolicy())
	require.NoError(t, err)

	e1, o1 := controlMarker("c1", 1, 1, 0, 1000)
	e2, o2 := egressGap("g1", 1, 2, 1, 1010)
	chunks, err := c.Chunk([]recorder.Event{e1, e2}, []recorder.Offset{o1, o2})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunker_SingleContentEvent_OneChunk(t *testing.T) {
	c, err := New(DefaultPolicy())
	require.NoError(t, err)

	e1, o1 := ingress("e1", 1, 1, 0, 1000, "ls -la")
	chunks, err := c.Chunk([]recorder.Event{e1}, []recorder.Offset{o1})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "ls -la", chunks[0].Text)
	assert.Equal(t, 1, chunks[0].EventCount)
	assert.Equal(t, PolicyVersion, chunks[0].PolicyVersion)
	assert.Len(t, chunks[0].ChunkID, 64)
	assert.Len(t, chunks[0].ContentHash, 64)
}

func TestChunker_DifferentPanes_NeverShareChunk(t *testing.T) {
	c, err := New(DefaultPolicy())
	require.NoError(t, err)

	e1, o1 := ingress("e1", 1, 1, 0, 1000, "hello")
	e2, o2 := ingress("e2", 2, 1, 1, 1001, "world")
	chunks, err := c.Chunk([]recorder.Event{e1, e2}, []recorder.Offset{o1, o2})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.NotEqual(t, chunks[0].PaneID, chunks[1].PaneID)
}

func TestChunker_HardGap_SplitsChunk(t *testing.T) {
	policy := DefaultPolicy()
	policy.HardGapMs = 1000
	c, err := New(policy)
	require.NoError(t, err)

	e1, o1 := ingress("e1", 1, 1, 0, 1000, "hello")
	e2, o2 := ingress("e2", 1, 2, 1, 500000, "world") // far beyond hard gap
	chunks, err := c.Chunk([]recorder.Event{e1, e2}, []recorder.Offset{o1, o2})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
}

func TestChunker_AdjacentIngressEvents_MergeIntoOneChunk(t *testing.T) {
	c, err := New(DefaultPolicy())
	require.NoError(t, err)

	e1, o1 := ingress("e1", 1, 1, 0, 1000, "ls ")
	e2, o2 := ingress("e2", 1, 2, 1, 1010, "-la")
	chunks, err := c.Chunk([]recorder.Event{e1, e2}, []recorder.Offset{o1, o2})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "ls -la", chunks[0].Text)
	assert.Equal(t, 2, chunks[0].EventCount)
}

func TestChunker_DirectionChange_IsHardBoundary(t *testing.T) {
	c, err := New(DefaultPolicy())
	require.NoError(t, err)

	e1 := recorder.Event{SchemaVersion: recorder.SchemaVersion, EventID: "e1", PaneID: 1, RecordedAtMs: 1000, Sequence: 1,
		Payload: recorder.IngressText{Text: "ls", Encoding: "utf-8", Redaction: recorder.RedactionNone, IngressKind: "keystroke"}}
	e2 := recorder.Event{SchemaVersion: recorder.SchemaVersion, EventID: "e2", PaneID: 1, RecordedAtMs: 1010, Sequence: 1,
		Payload: recorder.EgressOutput{Text: "output", Encoding: "utf-8", Redaction: recorder.RedactionNone, SegmentKind: "output"}}

	chunks, err := c.Chunk([]recorder.Event{e1, e2}, []recorder.Offset{{Ordinal: 0}, {Ordinal: 1}})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, DirectionIngress, chunks[0].Direction)
	assert.Equal(t, DirectionEgress, chunks[1].Direction)
}

func TestChunker_SoftCharLimit_ClosesChunk(t *testing.T) {
	policy := DefaultPolicy()
	policy.MaxChunkChars = 3
	policy.OverlapChars = 1 // keep glue from re-merging what the soft limit just split
	c, err := New(policy)
	require.NoError(t, err)

	e1, o1 := ingress("e1", 1, 1, 0, 1000, "hello")
	e2, o2 := ingress("e2", 1, 2, 1, 1010, "world")
	chunks, err := c.Chunk([]recorder.Event{e1, e2}, []recorder.Offset{o1, o2})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
}

func TestChunker_InputOrderIndependent_IdenticalChunkIDs(t *testing.T) {
	c, err := New(DefaultPolicy())
	require.NoError(t, err)

	e1, o1 := ingress("e1", 1, 1, 0, 1000, "hello ")
	e2, o2 := ingress("e2", 1, 2, 1, 1010, "world")

	forward, err := c.Chunk([]recorder.Event{e1, e2}, []recorder.Offset{o1, o2})
	require.NoError(t, err)
	reversed, err := c.Chunk([]recorder.Event{e2, e1}, []recorder.Offset{o2, o1})
	require.NoError(t, err)

	require.Len(t, forward, 1)
	require.Len(t, reversed, 1)
	assert.Equal(t, forward[0].ChunkID, reversed[0].ChunkID)
	assert.Equal(t, forward[0].Text, reversed[0].Text)
}

func TestChunker_OutputOrdering_NonDecreasingOrdinal(t *testing.T) {
	policy := DefaultPolicy()
	policy.HardGapMs = 100
	c, err := New(policy)
	require.NoError(t, err)

	e1, o1 := ingress("e1", 1, 1, 0, 1000, "a")
	e2, o2 := ingress("e2", 1, 2, 1, 500000, "b")
	e3, o3 := ingress("e3", 1, 3, 2, 1_000_000, "c")

	chunks, err := c.Chunk([]recorder.Event{e3, e1, e2}, []recorder.Offset{o3, o1, o2})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i := 1; i < len(chunks); i++ {
		assert.LessOrEqual(t, chunks[i-1].StartOffset.Ordinal, chunks[i].StartOffset.Ordinal)
	}
}

func TestChunker_ChunkIDs_UniqueWithinInvocation(t *testing.T) {
	policy := DefaultPolicy()
	policy.HardGapMs = 100
	c, err := New(policy)
	require.NoError(t, err)

	e1, o1 := ingress("e1", 1, 1, 0, 1000, "a")
	e2, o2 := ingress("e2", 1, 2, 1, 500000, "b")
	e3, o3 := ingress("e3", 1, 3, 2, 1_000_000, "c")

	chunks, err := c.Chunk([]recorder.Event{e1, e2, e3}, []recorder.Offset{o1, o2, o3})
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, ch := range chunks {
		assert.False(t, seen[ch.ChunkID], "duplicate chunk_id %s", ch.ChunkID)
		seen[ch.ChunkID] = true
	}
}

func TestChunker_InvalidPolicy_Rejected(t *testing.T) {
	policy := DefaultPolicy()
	policy.MaxChunkChars = 0
	_, err := New(policy)
	assert.Error(t, err)
}
