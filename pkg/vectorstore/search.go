package vectorstore

import (
	"context"
	"math"
	"sort"

	"github.com/wa-project/recorder/pkg/envelope"
)

// SemanticSearch returns the generation's embeddings ranked by cosine
// similarity to query, truncated to limit. An empty query returns an empty
// result; a query containing a non-finite entry is an error. Embeddings
// whose dimension differs from the query's are skipped, not errored
// (spec.md §8 boundary behavior).
func (s *Store) SemanticSearch(ctx context.Context, profileID, generationID string, query []float32, limit int) ([]SearchHit, error) {
	if len(query) == 0 {
		return nil, nil
	}
	for _, f := range query {
		f64 := float64(f)
		if math.IsNaN(f64) || math.IsInf(f64, 0) {
			return nil, envelope.New(envelope.KindTerminalData, envelope.CodeInvalidArgs, "vectorstore: query vector must contain only finite entries")
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, embedding_dimension, embedding
		FROM semantic_chunk_embeddings
		WHERE profile_id = ? AND generation_id = ?
	`, profileID, generationID)
	if err != nil {
		return nil, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "query embeddings for search", err)
	}
	defer rows.Close()

	hits := make([]SearchHit, 0)
	for rows.Next() {
		var chunkID string
		var dim int
		var blob []byte
		if err := rows.Scan(&chunkID, &dim, &blob); err != nil {
			return nil, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "scan embedding row", err)
		}
		if dim != len(query) {
			continue
		}
		vec := decodeVector(blob)
		score, ok := cosineSimilarity(query, vec)
		if !ok {
			continue
		}
		hits = append(hits, SearchHit{ChunkID: chunkID, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "iterate embedding rows", err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if limit >= 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
