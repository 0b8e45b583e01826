package model

import "math"

// DefaultConfidenceFloor is the floor used when callers do not pick one.
const DefaultConfidenceFloor = 0.3

// Options selects the optional fusion stages for one run.
type Options struct {
	Enable3PTEstimation bool    `json:"enable3ptEstimation"`
	EnableVisualScoring bool    `json:"enableVisualScoring"`
	ConfidenceFloor     float64 `json:"confidenceFloor"`
}

// DefaultOptions enables three-point estimation with OCR scoring.
func DefaultOptions() Options {
	return Options{
		Enable3PTEstimation: true,
		ConfidenceFloor:     DefaultConfidenceFloor,
	}
}

// Validate rejects a floor outside [0,1].
func (o Options) Validate() error {
	f := o.ConfidenceFloor
	if math.IsNaN(f) || f < 0 || f > 1 {
		return &ConfigurationError{Field: "confidence_floor", Reason: "must be within [0,1]"}
	}
	return nil
}

// ValidateClip rejects clip metadata the detectors cannot work without.
func (s *Signals) ValidateClip() error {
	switch {
	case s == nil:
		return &ConfigurationError{Field: "signals", Reason: "must not be nil"}
	case !(s.FPS > 0) || math.IsInf(s.FPS, 0):
		return &ConfigurationError{Field: "fps", Reason: "must be a positive sampling rate"}
	case !(s.FrameWidth > 0) || !(s.FrameHeight > 0):
		return &ConfigurationError{Field: "frame_size", Reason: "frame width and height must be positive"}
	}
	return nil
}
