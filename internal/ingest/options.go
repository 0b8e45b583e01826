package ingest

import "github.com/okian/hoopfuse/pkg/logger"

// Option configures Sanitize.
type Option func(*sanitizer)

// WithStrict makes Sanitize fail on the first malformed record instead of
// dropping it.
func WithStrict(strict bool) Option {
	return func(z *sanitizer) { z.strict = strict }
}

// WithLogger sets the logger used to report dropped records.
func WithLogger(l logger.Logger) Option {
	return func(z *sanitizer) {
		if l != nil {
			z.log = l
		}
	}
}

// WithRecorder replaces the metrics hook called per stream with the number of
// dropped records.
func WithRecorder(record func(stream string, n int)) Option {
	return func(z *sanitizer) {
		if record != nil {
			z.record = record
		}
	}
}
