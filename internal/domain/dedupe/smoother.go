// Package dedupe collapses duplicates: near-simultaneous detections of the same
// game event, and repeated job submissions.
package dedupe

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/okian/hoopfuse/internal/domain/model"
	"github.com/okian/hoopfuse/pkg/logger"
)

// TemporalSmoother merges events of the same kind and team that lie within a
// time window of each other.
type TemporalSmoother struct {
	window float64
	log    logger.Logger
}

// NewTemporalSmoother creates a smoother with a one second window.
func NewTemporalSmoother(opts ...Option) *TemporalSmoother {
	s := &TemporalSmoother{window: DefaultWindow}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("smoother")
	}
	return s
}

// Window returns the merge window in seconds.
func (s *TemporalSmoother) Window() float64 { return s.window }

// Smooth returns the merged events and the number of events absorbed.
//
// Each pass walks the events in input order; an unprocessed event collects
// every later unprocessed event with the same kind and team within the window
// of it, and the group is replaced by one merged event at the group's
// position. Passes repeat until one merges nothing, so the result never holds
// two same-key events within the window and smoothing it again is a no-op.
// Smooth does not modify its input.
func (s *TemporalSmoother) Smooth(ctx context.Context, events []model.GameEvent) ([]model.GameEvent, int) {
	out := slices.Clone(events)
	total := 0
	for {
		var merged int
		out, merged = s.pass(ctx, out)
		if merged == 0 {
			break
		}
		total += merged
	}
	if total > 0 {
		s.log.Debug(ctx, "smoothed events",
			logger.Int("in", len(events)),
			logger.Int("out", len(out)),
			logger.Int("merged", total),
		)
	}
	return out, total
}

func (s *TemporalSmoother) pass(ctx context.Context, events []model.GameEvent) ([]model.GameEvent, int) {
	processed := make([]bool, len(events))
	out := make([]model.GameEvent, 0, len(events))
	merged := 0
	for i, seed := range events {
		if processed[i] {
			continue
		}
		processed[i] = true
		group := []model.GameEvent{seed}
		for j := i + 1; j < len(events); j++ {
			e := events[j]
			if processed[j] || e.Kind != seed.Kind || e.TeamID != seed.TeamID {
				continue
			}
			if math.Abs(e.Timestamp-seed.Timestamp) <= s.window {
				processed[j] = true
				group = append(group, e)
			}
		}
		if len(group) == 1 {
			out = append(out, seed)
			continue
		}
		merged += len(group) - 1
		out = append(out, s.merge(ctx, group))
	}
	return out, merged
}

// merge builds one event from a group: median timestamp, mean confidence, the
// union of sources, and the kind-specific fields of the most confident member.
func (s *TemporalSmoother) merge(ctx context.Context, group []model.GameEvent) model.GameEvent {
	best := group[0]
	timestamps := make([]float64, len(group))
	confidences := make([]float64, len(group))
	var sources, notes []string
	for i, e := range group {
		timestamps[i] = e.Timestamp
		confidences[i] = e.Confidence
		if e.Confidence > best.Confidence {
			best = e
		}
		for _, src := range e.Sources() {
			if !slices.Contains(sources, src) {
				sources = append(sources, src)
			}
		}
		if e.Notes != "" && !slices.Contains(notes, e.Notes) {
			notes = append(notes, e.Notes)
		}
	}

	p := best.Params()
	if p.PlayerID == "" {
		for _, e := range group {
			if e.PlayerID != "" {
				p.PlayerID = e.PlayerID
				break
			}
		}
	}
	p.Timestamp = median(timestamps)
	p.Confidence = stat.Mean(confidences, nil)
	p.Source = strings.Join(sources, "+")
	p.Notes = strings.Join(append(notes, fmt.Sprintf("merged %d detections", len(group))), "; ")

	e, err := model.NewEvent(best.Kind, p)
	if err != nil {
		s.log.Error(ctx, "merge produced an invalid event, keeping the strongest member",
			logger.String("kind", string(best.Kind)), logger.Error(err))
		return best
	}
	return e
}

// median averages the two middle values for even-sized input.
func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
