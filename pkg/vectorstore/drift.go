package vectorstore

import (
	"context"
	"math"

	"github.com/wa-project/recorder/pkg/envelope"
)

// DriftReport returns the generation's chunk-policy version and status, a
// lexical-schema-version mismatch flag, and counters over its embeddings:
// total count, the maximum end_offset ordinal, how many chunks extend past
// lexicalUptoOrdinal (when provided), and how many stored vectors have
// drifted from unit L2 norm.
func (s *Store) DriftReport(ctx context.Context, profileID, generationID, expectedLexVer string, lexicalUptoOrdinal *uint64) (*DriftReport, error) {
	gen, err := s.GetGeneration(ctx, profileID, generationID)
	if err != nil {
		return nil, err
	}
	if gen == nil {
		return nil, envelope.New(envelope.KindTerminalData, envelope.CodeInvalidArgs, "vectorstore: generation not found")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT end_offset_ordinal, embedding
		FROM semantic_chunk_embeddings
		WHERE profile_id = ? AND generation_id = ?
	`, profileID, generationID)
	if err != nil {
		return nil, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "query embeddings for drift report", err)
	}
	defer rows.Close()

	report := &DriftReport{
		ChunkPolicyVersion:    gen.ChunkPolicyVersion,
		Status:                gen.Status,
		LexicalSchemaMismatch: gen.LexicalSchemaVersion != expectedLexVer,
	}

	for rows.Next() {
		var endOrdinal uint64
		var blob []byte
		if err := rows.Scan(&endOrdinal, &blob); err != nil {
			return nil, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "scan drift row", err)
		}
		report.TotalChunks++
		if endOrdinal > report.MaxVectorOrdinal {
			report.MaxVectorOrdinal = endOrdinal
		}
		if lexicalUptoOrdinal != nil && endOrdinal > *lexicalUptoOrdinal {
			report.ChunksBeyondLexical++
		}
		vec := decodeVector(blob)
		if math.Abs(l2Norm(vec)-1.0) > l2NormTolerance {
			report.NonNormalizedChunks++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "iterate drift rows", err)
	}

	return report, nil
}
