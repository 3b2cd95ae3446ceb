package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/wa-project/recorder/pkg/recorder"
)

// contentHash computes the 64-char lowercase hex SHA-256 digest of
// policy_version || pane_id || direction || concatenated_texts ||
// event_ids_sorted_lex. Event ids are sorted first so identity is stable
// under any reordering of the source events.
func contentHash(policyVersion string, paneID uint64, direction Direction, text string, eventIDs []string) string {
	sorted := append([]string(nil), eventIDs...)
	sort.Strings(sorted)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s|%s|%s", policyVersion, paneID, direction, text, strings.Join(sorted, ","))
	return hex.EncodeToString(h.Sum(nil))
}

// chunkID computes the chunk's identity from its content hash and span, so
// two chunks with identical content but different spans never collide.
func chunkID(hash string, start, end recorder.Offset) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d:%d:%d|%d:%d:%d", hash, start.SegmentID, start.ByteOffset, start.Ordinal, end.SegmentID, end.ByteOffset, end.Ordinal)
	return hex.EncodeToString(h.Sum(nil))
}
