package service

import (
	"fmt"

	"github.com/okian/hoopfuse/internal/adapters/mq/queue"
)

// ErrNotStarted is returned by the job pipeline before Start. It matches
// queue.ErrClosed so callers can treat both as unavailable.
var ErrNotStarted = fmt.Errorf("service not started: %w", queue.ErrClosed)
