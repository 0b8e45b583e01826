package detector

import (
	"github.com/okian/hoopfuse/internal/domain/model"
	"github.com/okian/hoopfuse/pkg/logger"
)

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l logger.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.log = l
		}
	}
}

// WithDefaultTeam sets the team used when attribution finds no evidence.
func WithDefaultTeam(team model.TeamID) Option {
	return func(d *Detector) {
		if team != "" {
			d.defaultTeam = team
		}
	}
}

// WithInsufficientSignalHook registers a callback for every fallback activation.
// The hook is called with the detector's lock held and must not call back into it.
func WithInsufficientSignalHook(hook func(InsufficientSignal)) Option {
	return func(d *Detector) {
		d.hook = hook
	}
}

// WithRecorder replaces the metrics sink for fallback activations.
func WithRecorder(record func(detector, fallback string)) Option {
	return func(d *Detector) {
		if record != nil {
			d.record = record
		}
	}
}
