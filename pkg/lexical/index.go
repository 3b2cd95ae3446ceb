package lexical

import "math"

const (
	bm25K1 = 1.2
	bm25B  = 0.75

	textFieldWeight        = 1.0
	textSymbolsFieldWeight = 1.25
)

// posting records one document's term frequency for one token.
type posting struct {
	docIdx int
	tf     int
}

// fieldIndex is a per-field inverted index with the length statistics BM25
// needs.
type fieldIndex struct {
	postings map[string][]posting
	docLen   map[int]int
	totalLen int
	docCount int
}

func newFieldIndex() *fieldIndex {
	return &fieldIndex{
		postings: make(map[string][]posting),
		docLen:   make(map[int]int),
	}
}

func (fi *fieldIndex) add(docIdx int, text string) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return
	}
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	for t, tf := range counts {
		fi.postings[t] = append(fi.postings[t], posting{docIdx: docIdx, tf: tf})
	}
	fi.docLen[docIdx] = len(tokens)
	fi.totalLen += len(tokens)
	fi.docCount++
}

func (fi *fieldIndex) avgDocLen() float64 {
	if fi.docCount == 0 {
		return 0
	}
	return float64(fi.totalLen) / float64(fi.docCount)
}

// score adds this field's BM25 contribution for token to scores, weighted
// by weight.
func (fi *fieldIndex) score(token string, weight float64, scores map[int]float64) {
	posts, ok := fi.postings[token]
	if !ok {
		return
	}
	n := float64(fi.docCount)
	df := float64(len(posts))
	idf := math.Log(1 + (n-df+0.5)/(df+0.5))
	if idf < 0 {
		idf = 0
	}
	avgLen := fi.avgDocLen()
	for _, p := range posts {
		dl := float64(fi.docLen[p.docIdx])
		tf := float64(p.tf)
		denom := tf + bm25K1*(1-bm25B+bm25B*dl/avgLen)
		s := idf * (tf * (bm25K1 + 1)) / denom
		scores[p.docIdx] += weight * s
	}
}

// Index is the in-memory inverted index backing Service. Documents are
// appended in insertion order and never mutated once indexed.
type Index struct {
	docs          []Document
	byEventID     map[string]int
	byLogOffset   map[uint64]int
	text          *fieldIndex
	textSymbols   *fieldIndex
}

// NewIndex constructs an empty index.
func NewIndex() *Index {
	return &Index{
		byEventID:   make(map[string]int),
		byLogOffset: make(map[uint64]int),
		text:        newFieldIndex(),
		textSymbols: newFieldIndex(),
	}
}

// Add indexes one document. Re-adding a document with a log_offset already
// present replaces it (matching the append log's immutability guarantee,
// this is only exercised by re-indexing after a restart).
func (ix *Index) Add(d Document) {
	if existing, ok := ix.byLogOffset[d.LogOffset]; ok {
		ix.docs[existing] = d
		return
	}
	idx := len(ix.docs)
	ix.docs = append(ix.docs, d)
	ix.byEventID[d.EventID] = idx
	ix.byLogOffset[d.LogOffset] = idx
	ix.text.add(idx, d.Text)
	ix.textSymbols.add(idx, d.TextSymbols)
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int { return len(ix.docs) }

// scoreQuery computes a BM25-style relevance score for every candidate
// document matched by at least one query token, across both text fields.
func (ix *Index) scoreQuery(text string) map[int]float64 {
	scores := make(map[int]float64)
	seen := make(map[string]bool)
	for _, tok := range tokenize(text) {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		ix.text.score(tok, textFieldWeight, scores)
		ix.textSymbols.score(tok, textSymbolsFieldWeight, scores)
	}
	return scores
}
