// Package fingerprint derives stable digests from a period's raw events.
// Cached summaries are keyed by these digests: identical fingerprints
// guarantee identical input data, so a matching digest means the cached
// artifact is still fresh.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"yourbody/internal/core"
)

// Empty is the reserved fingerprint of a period with no events. It can never
// collide with a real digest because digests are hex-encoded.
const Empty = "empty"

// Compute hashes the ordered set of (id, occurred_at, last_modified) tuples.
// Events are sorted by (occurred_at, id) first so insertion order never
// affects the result; last_modified is included so in-place edits invalidate
// the fingerprint even when no event is added or removed.
func Compute(events []core.RawEvent) string {
	if len(events) == 0 {
		return Empty
	}

	sorted := make([]core.RawEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].OccurredAt.Equal(sorted[j].OccurredAt) {
			return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	h := sha256.New()
	for _, ev := range sorted {
		fmt.Fprintf(h, "%s\x00%d\x00%d\x00", ev.ID, ev.OccurredAt.UnixNano(), ev.LastModified.UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil))
}
