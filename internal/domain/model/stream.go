package model

import (
	"cmp"
	"math"
	"slices"
)

// DetectionFrame holds the detections of one sampled frame.
type DetectionFrame[T any] struct {
	FrameIndex int     `json:"frameIndex"`
	Timestamp  float64 `json:"timestamp"`
	Detections []T     `json:"detections"`
}

// Stream is a time-ordered sequence of frames for one modality.
type Stream[T any] []DetectionFrame[T]

// SortedCopy returns a copy stably sorted by timestamp, then frame index.
func (s Stream[T]) SortedCopy() Stream[T] {
	out := slices.Clone(s)
	slices.SortStableFunc(out, func(a, b DetectionFrame[T]) int {
		if c := cmp.Compare(a.Timestamp, b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.FrameIndex, b.FrameIndex)
	})
	return out
}

// Window returns the frames with from <= timestamp <= to. The stream must be sorted.
func (s Stream[T]) Window(from, to float64) Stream[T] {
	if len(s) == 0 || to < from {
		return nil
	}
	lo, _ := slices.BinarySearchFunc(s, from, func(f DetectionFrame[T], t float64) int {
		return cmp.Compare(f.Timestamp, t)
	})
	hi := lo
	for hi < len(s) && s[hi].Timestamp <= to {
		hi++
	}
	return s[lo:hi]
}

// Nearest returns the frame closest to ts within tolerance. Ties resolve to
// the earlier frame. The stream must be sorted.
func (s Stream[T]) Nearest(ts, tolerance float64) (DetectionFrame[T], bool) {
	window := s.Window(ts-tolerance, ts+tolerance)
	best := -1
	bestDelta := math.Inf(1)
	for i, f := range window {
		if d := math.Abs(f.Timestamp - ts); d < bestDelta {
			best, bestDelta = i, d
		}
	}
	if best < 0 {
		return DetectionFrame[T]{}, false
	}
	return window[best], true
}

// WithDetections returns the frames that carry at least one detection.
func (s Stream[T]) WithDetections() Stream[T] {
	var out Stream[T]
	for _, f := range s {
		if len(f.Detections) > 0 {
			out = append(out, f)
		}
	}
	return out
}

// CountWithDetections counts frames that carry at least one detection.
func (s Stream[T]) CountWithDetections() int {
	n := 0
	for _, f := range s {
		if len(f.Detections) > 0 {
			n++
		}
	}
	return n
}

// LastTimestamp returns the largest frame timestamp, 0 for an empty stream.
func (s Stream[T]) LastTimestamp() float64 {
	last := 0.0
	for _, f := range s {
		last = math.Max(last, f.Timestamp)
	}
	return last
}
