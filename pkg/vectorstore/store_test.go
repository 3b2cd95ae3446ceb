package vectorstore

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wa-project/recorder/pkg/envelope"
	"github.com/wa-project/recorder/pkg/recorder"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func normalize(v []float32) []float32 {
	norm := l2Norm(v)
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}

func TestRegisterAndActivateGeneration(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RegisterGeneration(ctx, Generation{
		ProfileID: "p1", GenerationID: "g1", ChunkPolicyVersion: "ft.recorder.chunking.v1",
		LexicalSchemaVersion: "v1", EmbeddingModel: "m1", CreatedAt: 1000,
	}))
	require.NoError(t, store.RegisterGeneration(ctx, Generation{
		ProfileID: "p1", GenerationID: "g2", ChunkPolicyVersion: "ft.recorder.chunking.v1",
		LexicalSchemaVersion: "v1", EmbeddingModel: "m1", CreatedAt: 2000,
	}))

	require.NoError(t, store.ActivateGeneration(ctx, "p1", "g1", 5000))
	g1, err := store.GetGeneration(ctx, "p1", "g1")
	require.NoError(t, err)
	require.Equal(t, StatusActive, g1.Status)
	require.NotNil(t, g1.ActivatedAt)
	require.Equal(t, int64(5000), *g1.ActivatedAt)

	// Activating a second generation of the same profile retires the first.
	require.NoError(t, store.ActivateGeneration(ctx, "p1", "g2", 6000))
	g1Again, err := store.GetGeneration(ctx, "p1", "g1")
	require.NoError(t, err)
	require.Equal(t, StatusRetired, g1Again.Status)
	require.NotNil(t, g1Again.RetiredAt)

	g2, err := store.GetGeneration(ctx, "p1", "g2")
	require.NoError(t, err)
	require.Equal(t, StatusActive, g2.Status)

	// Re-activating g1 preserves its original activated_at.
	require.NoError(t, store.ActivateGeneration(ctx, "p1", "g1", 7000))
	g1Third, err := store.GetGeneration(ctx, "p1", "g1")
	require.NoError(t, err)
	require.Equal(t, int64(5000), *g1Third.ActivatedAt)
}

func TestActivateUnknownGenerationFails(t *testing.T) {
	store := openTestStore(t)
	err := store.ActivateGeneration(context.Background(), "p1", "missing", 1000)
	require.Error(t, err)
	var e *envelope.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, envelope.CodeInvalidArgs, e.Code)
}

func TestUpsertEmbeddingRejectsNonNormalizedVector(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.RegisterGeneration(ctx, Generation{
		ProfileID: "p1", GenerationID: "g1", ChunkPolicyVersion: "ft.recorder.chunking.v1", CreatedAt: 1,
	}))

	_, err := store.UpsertEmbedding(ctx, ChunkEmbedding{
		ProfileID: "p1", GenerationID: "g1", ChunkID: "c1",
		PolicyVersion: "ft.recorder.chunking.v1", Vector: []float32{1, 1, 1},
	}, 100)
	require.Error(t, err)
}

func TestUpsertEmbeddingRejectsNaN(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.RegisterGeneration(ctx, Generation{
		ProfileID: "p1", GenerationID: "g1", ChunkPolicyVersion: "ft.recorder.chunking.v1", CreatedAt: 1,
	}))

	_, err := store.UpsertEmbedding(ctx, ChunkEmbedding{
		ProfileID: "p1", GenerationID: "g1", ChunkID: "c1",
		PolicyVersion: "ft.recorder.chunking.v1", Vector: []float32{float32(math.NaN()), 0, 0},
	}, 100)
	require.Error(t, err)
}

func TestUpsertEmbeddingRejectsChunkPolicyMismatch(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.RegisterGeneration(ctx, Generation{
		ProfileID: "p1", GenerationID: "g1", ChunkPolicyVersion: "ft.recorder.chunking.v1", CreatedAt: 1,
	}))

	_, err := store.UpsertEmbedding(ctx, ChunkEmbedding{
		ProfileID: "p1", GenerationID: "g1", ChunkID: "c1",
		PolicyVersion: "ft.recorder.chunking.v2", Vector: normalize([]float32{1, 0, 0}),
	}, 100)
	require.Error(t, err)
	var e *envelope.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, envelope.CodePolicy, e.Code)
}

func TestUpsertEmbeddingIsIdempotentOnConflict(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.RegisterGeneration(ctx, Generation{
		ProfileID: "p1", GenerationID: "g1", ChunkPolicyVersion: "ft.recorder.chunking.v1", CreatedAt: 1,
	}))

	emb := ChunkEmbedding{
		ProfileID: "p1", GenerationID: "g1", ChunkID: "c1",
		PolicyVersion: "ft.recorder.chunking.v1", Vector: normalize([]float32{1, 0, 0}),
	}

	res1, err := store.UpsertEmbedding(ctx, emb, 100)
	require.NoError(t, err)
	require.False(t, res1.WasUpdate)

	res2, err := store.UpsertEmbedding(ctx, emb, 200)
	require.NoError(t, err)
	require.True(t, res2.WasUpdate)
}

// TestSemanticSearchRanking is end-to-end scenario 6 from spec.md §8.
func TestSemanticSearchRanking(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.RegisterGeneration(ctx, Generation{
		ProfileID: "p1", GenerationID: "g1", ChunkPolicyVersion: "ft.recorder.chunking.v1", CreatedAt: 1,
	}))

	v1 := normalize([]float32{1, 0, 0})
	v2 := normalize([]float32{0.9, 0.1, 0})

	_, err := store.UpsertEmbedding(ctx, ChunkEmbedding{
		ProfileID: "p1", GenerationID: "g1", ChunkID: "chunk-v1",
		PolicyVersion: "ft.recorder.chunking.v1", Vector: v1,
		StartOffset: recorder.Offset{Ordinal: 0}, EndOffset: recorder.Offset{Ordinal: 1},
	}, 100)
	require.NoError(t, err)
	_, err = store.UpsertEmbedding(ctx, ChunkEmbedding{
		ProfileID: "p1", GenerationID: "g1", ChunkID: "chunk-v2",
		PolicyVersion: "ft.recorder.chunking.v1", Vector: v2,
		StartOffset: recorder.Offset{Ordinal: 1}, EndOffset: recorder.Offset{Ordinal: 2},
	}, 100)
	require.NoError(t, err)

	hits, err := store.SemanticSearch(ctx, "p1", "g1", normalize([]float32{1, 0, 0}), 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "chunk-v1", hits[0].ChunkID)
	require.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestSemanticSearchEmptyQueryReturnsEmpty(t *testing.T) {
	store := openTestStore(t)
	hits, err := store.SemanticSearch(context.Background(), "p1", "g1", nil, 10)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestSemanticSearchSkipsDimensionMismatch(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.RegisterGeneration(ctx, Generation{
		ProfileID: "p1", GenerationID: "g1", ChunkPolicyVersion: "ft.recorder.chunking.v1", CreatedAt: 1,
	}))
	_, err := store.UpsertEmbedding(ctx, ChunkEmbedding{
		ProfileID: "p1", GenerationID: "g1", ChunkID: "c1",
		PolicyVersion: "ft.recorder.chunking.v1", Vector: normalize([]float32{1, 0}),
	}, 100)
	require.NoError(t, err)

	hits, err := store.SemanticSearch(ctx, "p1", "g1", normalize([]float32{1, 0, 0}), 10)
	require.NoError(t, err)
	require.Empty(t, hits, "query vector of differing dimension returns empty result, no error")
}

func TestPruneChunksThroughOrdinal(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.RegisterGeneration(ctx, Generation{
		ProfileID: "p1", GenerationID: "g1", ChunkPolicyVersion: "ft.recorder.chunking.v1", CreatedAt: 1,
	}))
	for i, ord := range []uint64{5, 15, 25} {
		_, err := store.UpsertEmbedding(ctx, ChunkEmbedding{
			ProfileID: "p1", GenerationID: "g1", ChunkID: chunkName(i),
			PolicyVersion: "ft.recorder.chunking.v1", Vector: normalize([]float32{1, 0, 0}),
			EndOffset: recorder.Offset{Ordinal: ord},
		}, 100)
		require.NoError(t, err)
	}

	n, err := store.PruneChunksThroughOrdinal(ctx, "p1", "g1", 15)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	hits, err := store.SemanticSearch(ctx, "p1", "g1", normalize([]float32{1, 0, 0}), 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestDriftReport(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.RegisterGeneration(ctx, Generation{
		ProfileID: "p1", GenerationID: "g1", ChunkPolicyVersion: "ft.recorder.chunking.v1",
		LexicalSchemaVersion: "v1", CreatedAt: 1,
	}))
	_, err := store.UpsertEmbedding(ctx, ChunkEmbedding{
		ProfileID: "p1", GenerationID: "g1", ChunkID: "c1",
		PolicyVersion: "ft.recorder.chunking.v1", Vector: normalize([]float32{1, 0, 0}),
		EndOffset: recorder.Offset{Ordinal: 50},
	}, 100)
	require.NoError(t, err)

	cutoff := uint64(10)
	report, err := store.DriftReport(ctx, "p1", "g1", "v2", &cutoff)
	require.NoError(t, err)
	require.Equal(t, 1, report.TotalChunks)
	require.Equal(t, uint64(50), report.MaxVectorOrdinal)
	require.Equal(t, 1, report.ChunksBeyondLexical)
	require.True(t, report.LexicalSchemaMismatch)
	require.Equal(t, 0, report.NonNormalizedChunks)
}

func chunkName(i int) string {
	return string(rune('a' + i))
}
