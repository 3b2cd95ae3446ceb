package invariant

import (
	"fmt"
	"sort"

	"github.com/wa-project/recorder/pkg/recorder"
)

// DeterminismReport is the outcome of verifying that two event batches
// merge-sort to the same replay order.
type DeterminismReport struct {
	Deterministic   bool
	DivergenceIndex *int
	Message         string
}

// VerifyReplayDeterminism computes merge keys for both slices, sorts
// copies of each, and compares element-wise. A length mismatch reports
// divergence at min(len_a, len_b).
func VerifyReplayDeterminism(eventsA, eventsB []recorder.Event) DeterminismReport {
	keysA := sortedKeys(eventsA)
	keysB := sortedKeys(eventsB)

	n := len(keysA)
	if len(keysB) < n {
		n = len(keysB)
	}

	for i := 0; i < n; i++ {
		if !keysA[i].Equal(keysB[i]) {
			idx := i
			return DeterminismReport{
				Deterministic:   false,
				DivergenceIndex: &idx,
				Message:         fmt.Sprintf("merge keys diverge at index %d", i),
			}
		}
	}

	if len(keysA) != len(keysB) {
		idx := n
		return DeterminismReport{
			Deterministic:   false,
			DivergenceIndex: &idx,
			Message:         fmt.Sprintf("batch lengths differ: %d vs %d", len(keysA), len(keysB)),
		}
	}

	return DeterminismReport{Deterministic: true}
}

func sortedKeys(events []recorder.Event) []recorder.MergeKey {
	keys := make([]recorder.MergeKey, len(events))
	for i, e := range events {
		keys[i] = e.Key()
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
