package lexical

import (
	"sort"

	"github.com/wa-project/recorder/pkg/envelope"
)

// Hit is one ranked search result.
type Hit struct {
	Document  Document `json:"document"`
	Score     float64  `json:"score"`
	Snippets  []string `json:"snippets,omitempty"`
}

// Result is the outcome of Search.
type Result struct {
	Hits       []Hit  `json:"hits"`
	TotalHits  int    `json:"total_hits"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Service is the reference lexical search implementation: an in-memory
// BM25-style index over the document projection, with filters, sort,
// cursor pagination, and snippet extraction.
type Service struct {
	index *Index
}

// NewService constructs a Service backed by a fresh, empty index.
func NewService() *Service {
	return &Service{index: NewIndex()}
}

// Index indexes one document, making it searchable.
func (s *Service) Index(d Document) {
	s.index.Add(d)
}

// GetByEventID returns the document with the given event ID, if indexed.
func (s *Service) GetByEventID(eventID string) (Document, bool) {
	idx, ok := s.index.byEventID[eventID]
	if !ok {
		return Document{}, false
	}
	return s.index.docs[idx], true
}

// GetByLogOffset returns the document with the given log offset, if
// indexed.
func (s *Service) GetByLogOffset(logOffset uint64) (Document, bool) {
	idx, ok := s.index.byLogOffset[logOffset]
	if !ok {
		return Document{}, false
	}
	return s.index.docs[idx], true
}

// candidate pairs a document index with its relevance score.
type candidate struct {
	idx   int
	score float64
}

func (s *Service) candidates(q Query) ([]candidate, error) {
	if q.Text == "" && len(q.Filters) == 0 {
		return nil, envelope.New(envelope.KindTerminalData, envelope.CodeFTSQuery,
			"lexical: query must have non-empty text or at least one filter")
	}

	var out []candidate
	if q.Text != "" {
		scores := s.index.scoreQuery(q.Text)
		for idx, score := range scores {
			d := s.index.docs[idx]
			if q.matchesFilters(d) {
				out = append(out, candidate{idx: idx, score: score})
			}
		}
	} else {
		for idx, d := range s.index.docs {
			if q.matchesFilters(d) {
				out = append(out, candidate{idx: idx, score: 0})
			}
		}
	}
	return out, nil
}

func sortKey(d Document, score float64) cursorKey {
	return cursorKey{Score: score, OccurredAtMs: d.OccurredAtMs, Sequence: d.Sequence, LogOffset: d.LogOffset}
}

// less reports whether a sorts strictly before b under sort, using the
// fixed tie-break chain (occurred_at_ms desc, sequence desc, log_offset
// desc) whenever the primary field compares equal.
func less(a, b cursorKey, field SortField, descending bool) bool {
	var av, bv float64
	switch field {
	case SortRelevance:
		av, bv = a.Score, b.Score
	case SortOccurredAt:
		av, bv = float64(a.OccurredAtMs), float64(b.OccurredAtMs)
	case SortSequence:
		av, bv = float64(a.Sequence), float64(b.Sequence)
	case SortLogOffset:
		av, bv = float64(a.LogOffset), float64(b.LogOffset)
	}
	if av != bv {
		if descending {
			return av > bv
		}
		return av < bv
	}
	if a.OccurredAtMs != b.OccurredAtMs {
		return a.OccurredAtMs > b.OccurredAtMs
	}
	if a.Sequence != b.Sequence {
		return a.Sequence > b.Sequence
	}
	return a.LogOffset > b.LogOffset
}

// afterCursor reports whether k sorts strictly after cursor under the same
// order less defines (i.e. cursor would come first).
func afterCursor(cursor, k cursorKey, field SortField, descending bool) bool {
	return less(cursor, k, field, descending)
}

// Search runs a query against the index per spec.md §4.5.
func (s *Service) Search(q Query) (Result, error) {
	cands, err := s.candidates(q)
	if err != nil {
		return Result{}, err
	}

	sortField := q.Sort.Field
	if sortField == "" {
		sortField = SortRelevance
	}
	descending := q.Sort.Descending
	if q.Sort == (Sort{}) {
		descending = true
	}

	keys := make([]cursorKey, len(cands))
	for i, c := range cands {
		keys[i] = sortKey(s.index.docs[c.idx], c.score)
	}

	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return less(keys[order[i]], keys[order[j]], sortField, descending)
	})

	total := len(cands)

	startAt := 0
	if q.Cursor != "" {
		cur, err := decodeCursor(q.Cursor)
		if err != nil {
			return Result{}, err
		}
		startAt = len(order)
		for i, oi := range order {
			if afterCursor(cur, keys[oi], sortField, descending) {
				startAt = i
				break
			}
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = total
	}

	end := startAt + limit
	hasMore := false
	if end < len(order) {
		hasMore = true
	} else {
		end = len(order)
	}

	queryTokens := tokenize(q.Text)
	snippetCfg := q.Snippet

	result := Result{TotalHits: total}
	for _, oi := range order[startAt:end] {
		c := cands[oi]
		d := s.index.docs[c.idx]
		hit := Hit{Document: d, Score: c.score}
		if snippetCfg.Enabled {
			hit.Snippets = extractSnippets(d.Text, queryTokens, snippetCfg)
		}
		result.Hits = append(result.Hits, hit)
	}

	if hasMore && len(result.Hits) > 0 {
		last := keys[order[end-1]]
		result.NextCursor = encodeCursor(last)
	}
	result.HasMore = hasMore

	return result, nil
}

// Count returns the number of documents matching query, ignoring sort,
// cursor, and limit.
func (s *Service) Count(q Query) (uint64, error) {
	cands, err := s.candidates(q)
	if err != nil {
		return 0, err
	}
	return uint64(len(cands)), nil
}
