// Package confidence is the only place where evidence from several signals
// is blended into one event confidence.
package confidence

import "math"

// Default blending parameters.
const (
	DefaultCorroborationBonus     = 0.08
	DefaultCorroborationThreshold = 0.6
	minCorroboratingSignals       = 2
)

// Signal is one piece of evidence with its relative weight.
type Signal struct {
	Value  float64
	Weight float64
}

type settings struct {
	bonus     float64
	threshold float64
}

// Option adjusts a single Combine call.
type Option func(*settings)

// WithCorroborationBonus replaces the bonus added when at least two signals
// exceed the corroboration threshold.
func WithCorroborationBonus(bonus float64) Option {
	return func(s *settings) {
		if bonus >= 0 {
			s.bonus = bonus
		}
	}
}

// Combine normalizes the weights to sum to one, takes the weighted sum of the
// signal values, adds the corroboration bonus when two or more contributing
// signals exceed the threshold, and clamps the result to [0,1]. Signals with
// a non-positive or non-finite weight do not contribute; non-finite values
// count as zero.
func Combine(signals []Signal, opts ...Option) float64 {
	cfg := settings{
		bonus:     DefaultCorroborationBonus,
		threshold: DefaultCorroborationThreshold,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var total float64
	for _, s := range signals {
		if usable(s.Weight) {
			total += s.Weight
		}
	}
	if total == 0 {
		return 0
	}

	var sum float64
	strong := 0
	for _, s := range signals {
		if !usable(s.Weight) {
			continue
		}
		v := Clamp(s.Value)
		sum += v * (s.Weight / total)
		if v > cfg.threshold {
			strong++
		}
	}
	if strong >= minCorroboratingSignals {
		sum += cfg.bonus
	}
	return Clamp(sum)
}

// Clamp bounds v to [0,1]; NaN maps to 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// Scale multiplies a confidence by factor and clamps the result.
func Scale(v, factor float64) float64 {
	return Clamp(Clamp(v) * factor)
}

// Closeness maps a distance inside radius onto (0,1], 1 meaning touching.
// Distances at or beyond the radius give 0.
func Closeness(distance, radius float64) float64 {
	if radius <= 0 || distance >= radius || math.IsNaN(distance) {
		return 0
	}
	return Clamp(1 - distance/radius)
}

func usable(w float64) bool {
	return w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}
