package fusion

import (
	"github.com/okian/hoopfuse/internal/domain/detector"
	"github.com/okian/hoopfuse/internal/domain/model"
	"github.com/okian/hoopfuse/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine and its stages.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithDefaultTeam sets the team credited when attribution finds no evidence.
func WithDefaultTeam(team model.TeamID) Option {
	return func(e *Engine) {
		if team != "" {
			e.defaultTeam = team
		}
	}
}

// WithSmoothingWindow sets the temporal smoothing window in seconds.
func WithSmoothingWindow(seconds float64) Option {
	return func(e *Engine) {
		if seconds > 0 {
			e.window = seconds
		}
	}
}

// WithInsufficientSignalHook observes every fallback activation of every run.
func WithInsufficientSignalHook(hook func(detector.InsufficientSignal)) Option {
	return func(e *Engine) {
		e.hook = hook
	}
}
