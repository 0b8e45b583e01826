package model

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidEvent  = errors.New("invalid game event")
	ErrUnknownKind   = errors.New("unknown event kind")
	ErrConfiguration = errors.New("configuration error")
)

// ConfigurationError rejects a fusion call before any detector runs.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrConfiguration) hold.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
