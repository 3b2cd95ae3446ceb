package vectorstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/wa-project/recorder/pkg/envelope"
)

// UpsertResult reports whether an UpsertEmbedding call replaced an existing
// row (was_update) or inserted a new one.
type UpsertResult struct {
	WasUpdate bool
}

// UpsertEmbedding validates and persists one chunk embedding. On conflict
// (same profile/generation/chunk_id) the full payload replaces prior
// columns except inserted_at, per spec.md §4.4.
func (s *Store) UpsertEmbedding(ctx context.Context, e ChunkEmbedding, nowMs int64) (UpsertResult, error) {
	if err := validateVector(e.Vector); err != nil {
		return UpsertResult{}, err
	}

	gen, err := s.GetGeneration(ctx, e.ProfileID, e.GenerationID)
	if err != nil {
		return UpsertResult{}, err
	}
	if gen == nil {
		return UpsertResult{}, envelope.New(envelope.KindTerminalData, envelope.CodeInvalidArgs, "vectorstore: generation not found").WithHint("register the generation before upserting embeddings")
	}
	if gen.ChunkPolicyVersion != e.PolicyVersion {
		return UpsertResult{}, envelope.New(envelope.KindTerminalData, envelope.CodePolicy, "vectorstore: chunk policy version mismatch").
			WithHint("re-chunk with the generation's chunk_policy_version or register a new generation")
	}

	var existed int
	err = s.db.QueryRowContext(ctx, `
		SELECT 1 FROM semantic_chunk_embeddings WHERE profile_id = ? AND generation_id = ? AND chunk_id = ?
	`, e.ProfileID, e.GenerationID, e.ChunkID).Scan(&existed)
	switch {
	case err == nil:
		// row exists
	case errors.Is(err, sql.ErrNoRows):
		existed = 0
	default:
		return UpsertResult{}, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "lookup embedding", err)
	}

	vectorBytes := encodeVector(e.Vector)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO semantic_chunk_embeddings (
			profile_id, generation_id, chunk_id, policy_version, pane_id, session_id, direction,
			start_offset_segment_id, start_offset_ordinal, end_offset_segment_id, end_offset_ordinal,
			content_hash, embedding_dimension, embedding, inserted_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(profile_id, generation_id, chunk_id) DO UPDATE SET
			policy_version = excluded.policy_version,
			pane_id = excluded.pane_id,
			session_id = excluded.session_id,
			direction = excluded.direction,
			start_offset_segment_id = excluded.start_offset_segment_id,
			start_offset_ordinal = excluded.start_offset_ordinal,
			end_offset_segment_id = excluded.end_offset_segment_id,
			end_offset_ordinal = excluded.end_offset_ordinal,
			content_hash = excluded.content_hash,
			embedding_dimension = excluded.embedding_dimension,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at
	`,
		e.ProfileID, e.GenerationID, e.ChunkID, e.PolicyVersion, e.PaneID, nullableString(e.SessionID), e.Direction,
		e.StartOffset.SegmentID, e.StartOffset.Ordinal, e.EndOffset.SegmentID, e.EndOffset.Ordinal,
		e.ContentHash, len(e.Vector), vectorBytes, nowMs, nowMs,
	)
	if err != nil {
		return UpsertResult{}, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "upsert embedding", err)
	}

	return UpsertResult{WasUpdate: existed == 1}, nil
}

// PruneChunksThroughOrdinal deletes embeddings of the given generation
// whose end_offset.ordinal <= cutoff, and returns the number removed.
func (s *Store) PruneChunksThroughOrdinal(ctx context.Context, profileID, generationID string, cutoff uint64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM semantic_chunk_embeddings
		WHERE profile_id = ? AND generation_id = ? AND end_offset_ordinal <= ?
	`, profileID, generationID, cutoff)
	if err != nil {
		return 0, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "prune chunk embeddings", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "count pruned rows", err)
	}
	return n, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
