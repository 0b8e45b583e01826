// Package repository stores the outcome of asynchronous fusion jobs.
package repository

import (
	"context"
	"time"

	"github.com/okian/hoopfuse/internal/domain/model"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued Status = "queued"
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)

// Terminal reports whether no further transition can follow.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Result is the stored record of one job.
type Result struct {
	JobID       string            `json:"jobId"`
	Status      Status            `json:"status"`
	Events      []model.GameEvent `json:"events,omitempty"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	CompletedAt time.Time         `json:"completedAt,omitzero"`
}

// Store provides read/write access to job results.
type Store interface {
	// Save inserts or replaces the result keyed by its job id.
	Save(ctx context.Context, r Result) error

	// Get returns the result for a job.
	// Returns ErrNotFound if the job is unknown.
	Get(ctx context.Context, jobID string) (Result, error)

	// Count returns the number of stored results.
	Count(ctx context.Context) (int, error)

	// Close releases the underlying resources.
	Close() error
}

func validate(r Result) error {
	if r.JobID == "" {
		return ErrInvalidResult
	}
	switch r.Status {
	case StatusQueued, StatusDone, StatusFailed:
		return nil
	default:
		return ErrInvalidResult
	}
}
