package ingest

import (
	"errors"
	"fmt"
)

// ErrInputData marks malformed signal input.
var ErrInputData = errors.New("invalid input data")

// InputDataError locates one malformed record.
type InputDataError struct {
	Stream string
	Index  int
	Reason string
}

func (e *InputDataError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid input data: %s: %s", e.Stream, e.Reason)
	}
	return fmt.Sprintf("invalid input data: %s[%d]: %s", e.Stream, e.Index, e.Reason)
}

// Is makes errors.Is(err, ErrInputData) hold.
func (e *InputDataError) Is(target error) bool {
	return target == ErrInputData
}
