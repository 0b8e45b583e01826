// Package finalize applies the confidence floor and the output ordering.
package finalize

import (
	"cmp"
	"slices"

	"github.com/okian/hoopfuse/internal/domain/model"
)

// Apply drops events below floor and stable-sorts the rest by timestamp, so
// events with equal timestamps keep their input order. It returns the kept
// events and how many were dropped. The input slice is not modified.
func Apply(events []model.GameEvent, floor float64) ([]model.GameEvent, int) {
	kept := make([]model.GameEvent, 0, len(events))
	for _, e := range events {
		if e.Confidence >= floor {
			kept = append(kept, e)
		}
	}
	slices.SortStableFunc(kept, func(a, b model.GameEvent) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	return kept, len(events) - len(kept)
}
