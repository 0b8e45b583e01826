package config

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// FieldError names the setting that failed validation. It matches
// ErrInvalidConfig under errors.Is.
type FieldError struct {
	Key    string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConfig, e.Key, e.Reason)
}

func (e *FieldError) Is(target error) bool { return target == ErrInvalidConfig }

func invalid(key, reason string) error { return &FieldError{Key: key, Reason: reason} }
