// Package worker runs queued fusion jobs and stores their results.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/hoopfuse/internal/adapters/mq/queue"
	"github.com/okian/hoopfuse/internal/adapters/repository"
	"github.com/okian/hoopfuse/internal/domain/model"
	"github.com/okian/hoopfuse/pkg/logger"
	"github.com/okian/hoopfuse/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Fuser turns one clip into game events.
type Fuser interface {
	Fuse(ctx context.Context, s *model.Signals, opts model.Options) ([]model.GameEvent, error)
}

// ResultWriter persists the outcome of a job.
type ResultWriter interface {
	Save(ctx context.Context, r repository.Result) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs and writes results using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue drains.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in progress.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for fusion jobs.
type InMemoryWorker struct {
	queue      Queue
	fuser      Fuser
	writer     ResultWriter
	name       string
	jobTimeout time.Duration

	// observer is called after every job with its final status.
	observer func(repository.Status)

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, fuser Fuser, writer ResultWriter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		fuser:    fuser,
		writer:   writer,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			status := w.process(ctx, job)
			if w.observer != nil {
				w.observer(status)
			}
		}
	}
}

// Shutdown stops the worker after the job in progress.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs one job and stores its result. A fusion error becomes a failed
// result rather than a worker error.
func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) repository.Status { //nolint:gocritic // hugeParam: Job is received by value from the channel
	start := time.Now()

	runCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	result := repository.Result{JobID: job.ID, CreatedAt: job.Submitted}
	events, err := w.fuser.Fuse(runCtx, job.Signals, job.Options)
	result.CompletedAt = time.Now().UTC()
	if err != nil {
		result.Status = repository.StatusFailed
		result.Error = err.Error()
		w.logger.Warn(ctx, "fusion job failed", logger.String("job_id", job.ID), logger.Error(err))
	} else {
		result.Status = repository.StatusDone
		result.Events = events
	}

	if err := w.writer.Save(ctx, result); err != nil {
		w.logger.Error(ctx, "storing job result failed", logger.String("job_id", job.ID), logger.Error(err))
		metrics.RecordJobCompleted("store_error", msSince(start))
		return repository.StatusFailed
	}

	metrics.RecordJobCompleted(string(result.Status), msSince(start))
	w.logger.Debug(ctx, "fusion job finished",
		logger.String("job_id", job.ID),
		logger.String("status", string(result.Status)),
		logger.Int("events", len(result.Events)),
	)
	return result.Status
}

// Stats counts the jobs a pool has finished.
type Stats struct {
	Workers   int   `json:"workers"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	started   atomic.Bool
	processed atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers; a count below one uses one
// worker per CPU. Options are applied to every worker.
func NewPool(workerCount int, q Queue, fuser Fuser, writer ResultWriter, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, fuser, writer, workerOpts...)
		w.observer = pool.observe
		pool.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

func (p *Pool) observe(s repository.Status) {
	p.processed.Add(1)
	if s == repository.StatusFailed {
		p.failed.Add(1)
	}
}

// Stats returns the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   len(p.workers),
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
	}
}

// Shutdown closes the queue and lets the workers drain it. Workers still busy
// when ctx (or the pool timeout) expires are stopped after their current job.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	if !p.started.Load() {
		return nil
	}

	drainCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-drainCtx.Done():
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			stopCtx, stop := context.WithTimeout(context.Background(), time.Second)
			if err := w.Shutdown(stopCtx); err != nil {
				timedOut++
			}
			stop()
		}
	}

	metrics.UpdateWorkerCount(0)
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not stop", timedOut)
	}
	return nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
