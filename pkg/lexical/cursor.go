package lexical

import (
	"encoding/base64"
	"fmt"
)

// cursorKey is the full sort position of one hit: the relevance score (if
// any) plus the fixed tie-break chain. It is sufficient to resume
// pagination regardless of which SortField was requested, since the
// tie-break chain is always present and log_offset alone already makes it
// a total order.
type cursorKey struct {
	Score        float64
	OccurredAtMs int64
	Sequence     uint64
	LogOffset    uint64
}

func encodeCursor(k cursorKey) string {
	raw := fmt.Sprintf("%x|%d|%d|%d", toBits(k.Score), k.OccurredAtMs, k.Sequence, k.LogOffset)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(s string) (cursorKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return cursorKey{}, fmt.Errorf("lexical: invalid cursor: %w", err)
	}
	var bits uint64
	var k cursorKey
	_, err = fmt.Sscanf(string(raw), "%x|%d|%d|%d", &bits, &k.OccurredAtMs, &k.Sequence, &k.LogOffset)
	if err != nil {
		return cursorKey{}, fmt.Errorf("lexical: malformed cursor: %w", err)
	}
	k.Score = fromBits(bits)
	return k, nil
}
