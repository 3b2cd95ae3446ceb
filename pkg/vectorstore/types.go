package vectorstore

import "github.com/wa-project/recorder/pkg/recorder"

// GenerationStatus is the lifecycle state of a semantic generation.
type GenerationStatus string

const (
	StatusBuilding GenerationStatus = "building"
	StatusActive   GenerationStatus = "active"
	StatusRetired  GenerationStatus = "retired"
	StatusFailed   GenerationStatus = "failed"
)

// Generation is a policy-versioned, profile-scoped embedding generation.
type Generation struct {
	ProfileID            string
	GenerationID         string
	ChunkPolicyVersion   string
	LexicalSchemaVersion string
	EmbeddingModel       string
	Status               GenerationStatus
	CreatedAt            int64
	ActivatedAt          *int64
	RetiredAt            *int64
}

// ChunkEmbedding is one persisted embedding row.
type ChunkEmbedding struct {
	ProfileID          string
	GenerationID       string
	ChunkID            string
	PolicyVersion      string
	PaneID             uint64
	SessionID          string
	Direction          string
	StartOffset        recorder.Offset
	EndOffset          recorder.Offset
	ContentHash        string
	Vector             []float32
	EmbeddingDimension int
	InsertedAt         int64
	UpdatedAt          int64
}

// SearchHit is one ranked semantic_search result.
type SearchHit struct {
	ChunkID string
	Score   float64
}

// DriftReport summarizes a generation's health relative to the current
// chunk policy and lexical schema version.
type DriftReport struct {
	ChunkPolicyVersion      string
	Status                  GenerationStatus
	LexicalSchemaMismatch   bool
	TotalChunks             int
	MaxVectorOrdinal        uint64
	ChunksBeyondLexical     int
	NonNormalizedChunks     int
}
