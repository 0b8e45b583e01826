package detector

import (
	"errors"
	"fmt"
)

// ErrInsufficientSignal marks a fallback activation. It is never returned as a
// failure; detectors report it through InsufficientSignal values.
var ErrInsufficientSignal = errors.New("insufficient signal")

// InsufficientSignal describes a detector that switched to a degraded strategy.
type InsufficientSignal struct {
	Detector string
	Reason   string
	Fallback string
}

func (w InsufficientSignal) Error() string {
	return fmt.Sprintf("%s: %s: falling back to %s", w.Detector, w.Reason, w.Fallback)
}

func (w InsufficientSignal) Is(target error) bool {
	return target == ErrInsufficientSignal
}
