package vectorstore

import (
	"encoding/binary"
	"math"

	"github.com/wa-project/recorder/pkg/envelope"
)

const l2NormTolerance = 1e-3

// encodeVector serializes a float32 vector as little-endian bytes, the
// on-disk representation spec.md §3 requires alongside embedding_dimension.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is the inverse of encodeVector.
func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

// l2Norm returns the Euclidean norm of v in float64 precision.
func l2Norm(v []float32) float64 {
	var sumSq float64
	for _, f := range v {
		sumSq += float64(f) * float64(f)
	}
	return math.Sqrt(sumSq)
}

// validateVector checks that v is non-empty, every entry is finite, and its
// L2 norm is within 1.0 ± l2NormTolerance, per spec.md §4.4.
func validateVector(v []float32) error {
	if len(v) == 0 {
		return envelope.New(envelope.KindTerminalData, envelope.CodeInvalidArgs, "vectorstore: vector must not be empty")
	}
	for _, f := range v {
		f64 := float64(f)
		if math.IsNaN(f64) || math.IsInf(f64, 0) {
			return envelope.New(envelope.KindTerminalData, envelope.CodeInvalidArgs, "vectorstore: vector entries must be finite")
		}
	}
	norm := l2Norm(v)
	if math.Abs(norm-1.0) > l2NormTolerance {
		return envelope.New(envelope.KindTerminalData, envelope.CodeInvalidArgs, "vectorstore: vector must be L2-normalized")
	}
	return nil
}

// cosineSimilarity computes cosine similarity in float64 precision. The
// caller is responsible for dropping pairs with a zero denominator.
func cosineSimilarity(a, b []float32) (score float64, ok bool) {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		af, bf := float64(a[i]), float64(b[i])
		dot += af * bf
		normA += af * af
		normB += bf * bf
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0, false
	}
	return dot / denom, true
}
