// Package dedupe collapses duplicates: near-simultaneous detections of the same
// game event, and repeated job submissions.
package dedupe

import "github.com/okian/hoopfuse/pkg/logger"

// DefaultWindow is the smoothing window in seconds.
const DefaultWindow = 1.0

// Option applies a configuration option to the TemporalSmoother.
type Option func(*TemporalSmoother)

// WithWindow sets the maximum distance in seconds between merged events.
func WithWindow(seconds float64) Option {
	return func(s *TemporalSmoother) {
		if seconds > 0 {
			s.window = seconds
		}
	}
}

// WithLogger sets the logger used to report merges.
func WithLogger(l logger.Logger) Option {
	return func(s *TemporalSmoother) {
		if l != nil {
			s.log = l
		}
	}
}

// TrackerOption applies a configuration option to the Tracker.
type TrackerOption func(*Tracker)

// WithMaxSize bounds the number of remembered ids. Zero or negative means unbounded.
func WithMaxSize(maxSize int) TrackerOption {
	return func(t *Tracker) {
		t.maxSize = maxSize
	}
}
