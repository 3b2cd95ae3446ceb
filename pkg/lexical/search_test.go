package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wa-project/recorder/pkg/recorder"
)

func doc(eventID string, paneID uint64, logOffset uint64, occurredAt int64, seq uint64, text string) Document {
	return Document{
		EventID:      eventID,
		PaneID:       paneID,
		EventType:    string(recorder.StreamEgress),
		OccurredAtMs: occurredAt,
		Sequence:     seq,
		LogOffset:    logOffset,
		Text:         text,
		TextSymbols:  text,
	}
}

func TestSearch_EmptyTextNoFilters_IsError(t *testing.T) {
	s := NewService()
	s.Index(doc("e1", 1, 0, 100, 1, "hello world"))
	_, err := s.Search(Query{})
	require.Error(t, err)
}

func TestSearch_EmptyTextWithFilter_ReturnsAllMatchingWithZeroScore(t *testing.T) {
	s := NewService()
	s.Index(doc("e1", 1, 0, 100, 1, "hello world"))
	s.Index(doc("e2", 2, 1, 101, 1, "goodbye world"))

	res, err := s.Search(Query{Filters: []Filter{PaneIDFilter{Values: []uint64{1}}}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, 0.0, res.Hits[0].Score)
	assert.Equal(t, "e1", res.Hits[0].Document.EventID)
}

func TestSearch_RanksMoreRelevantDocHigher(t *testing.T) {
	s := NewService()
	s.Index(doc("e1", 1, 0, 100, 1, "error error error connection refused"))
	s.Index(doc("e2", 1, 1, 101, 2, "normal output line"))

	res, err := s.Search(Query{Text: "error", Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "e1", res.Hits[0].Document.EventID)
	assert.Greater(t, res.Hits[0].Score, 0.0)
}

func TestSearch_PaginationCoversAllResultsExactlyOnce(t *testing.T) {
	s := NewService()
	for i := uint64(0); i < 25; i++ {
		s.Index(doc("e", 1, i, int64(i), i, "shared term unique content"))
	}

	seen := make(map[uint64]bool)
	cursor := ""
	for {
		res, err := s.Search(Query{Text: "shared", Limit: 7, Cursor: cursor, Sort: Sort{Field: SortLogOffset, Descending: false}})
		require.NoError(t, err)
		for _, h := range res.Hits {
			assert.False(t, seen[h.Document.LogOffset], "duplicate log_offset %d", h.Document.LogOffset)
			seen[h.Document.LogOffset] = true
		}
		if !res.HasMore {
			break
		}
		cursor = res.NextCursor
	}
	assert.Len(t, seen, 25)
}

func TestSearch_DirectionFilter(t *testing.T) {
	s := NewService()
	ingress := doc("e1", 1, 0, 100, 1, "keystroke text")
	ingress.EventType = string(recorder.StreamIngress)
	s.Index(ingress)
	s.Index(doc("e2", 1, 1, 101, 2, "output text"))

	res, err := s.Search(Query{Filters: []Filter{DirectionFilter{Mode: DirectionEgressOnly}}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "e2", res.Hits[0].Document.EventID)
}

func TestSearch_SnippetsWrapMatchedTerms(t *testing.T) {
	s := NewService()
	s.Index(doc("e1", 1, 0, 100, 1, "connection refused by remote host"))

	res, err := s.Search(Query{Text: "refused", Limit: 10, Snippet: DefaultSnippetConfig()})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	require.NotEmpty(t, res.Hits[0].Snippets)
	assert.Contains(t, res.Hits[0].Snippets[0], "«refused»")
}

func TestSearch_SnippetsDisabled_EmptySlice(t *testing.T) {
	s := NewService()
	s.Index(doc("e1", 1, 0, 100, 1, "connection refused"))

	res, err := s.Search(Query{Text: "refused", Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Empty(t, res.Hits[0].Snippets)
}

func TestGetByEventIDAndLogOffset(t *testing.T) {
	s := NewService()
	s.Index(doc("e1", 1, 42, 100, 1, "hello"))

	d, ok := s.GetByEventID("e1")
	require.True(t, ok)
	assert.EqualValues(t, 42, d.LogOffset)

	d2, ok := s.GetByLogOffset(42)
	require.True(t, ok)
	assert.Equal(t, "e1", d2.EventID)

	_, ok = s.GetByEventID("missing")
	assert.False(t, ok)
}

func TestCount(t *testing.T) {
	s := NewService()
	s.Index(doc("e1", 1, 0, 100, 1, "alpha"))
	s.Index(doc("e2", 2, 1, 101, 1, "alpha beta"))

	n, err := s.Count(Query{Text: "alpha"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
