package repository

import "errors"

// Sentinel kinds for result store errors.
var (
	ErrNotFound      = errors.New("job not found")
	ErrInvalidResult = errors.New("invalid job result")
)
