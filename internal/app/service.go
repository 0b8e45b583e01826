// Package service wires the fusion engine to the job queue, the worker pool
// and the result store, and implements the dependencies of the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/hoopfuse/internal/adapters/mq/queue"
	workerpool "github.com/okian/hoopfuse/internal/adapters/mq/worker"
	"github.com/okian/hoopfuse/internal/adapters/repository"
	"github.com/okian/hoopfuse/internal/domain/dedupe"
	"github.com/okian/hoopfuse/internal/domain/fusion"
	"github.com/okian/hoopfuse/internal/domain/model"
	"github.com/okian/hoopfuse/internal/ingest"
	"github.com/okian/hoopfuse/pkg/logger"
	"github.com/okian/hoopfuse/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// Service implements the API dependencies for the fusion system.
type Service struct {
	mu sync.RWMutex

	engine  *fusion.Engine
	store   repository.Store
	tracker *dedupe.Tracker
	jobs    *queue.InMemoryQueue
	pool    *workerpool.Pool

	workerCount int
	queueSize   int
	dedupeSize  int
	sqlitePath  string
	engineOpts  []fusion.Option
	defaults    model.Options
	strict      bool
	jobTimeout  time.Duration

	started   bool
	ownsStore bool

	logger logger.Logger
}

// New constructs a Service. The engine is usable immediately; the job
// pipeline needs Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
		dedupeSize:  50000,
		defaults:    model.DefaultOptions(),
		jobTimeout:  time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.engine = fusion.New(append([]fusion.Option{fusion.WithLogger(s.logger.Named("fusion"))}, s.engineOpts...)...)
	s.tracker = dedupe.NewTracker(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start opens the result store and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting fusion service...")

	if s.store == nil {
		s.ownsStore = true
		if s.sqlitePath != "" {
			store, err := repository.OpenSQLite(ctx, s.sqlitePath, repository.WithLogger(s.logger.Named("repository")))
			if err != nil {
				return fmt.Errorf("open result store: %w", err)
			}
			s.store = store
			s.logger.Info(ctx, "using sqlite store", logger.String("path", s.sqlitePath))
		} else {
			s.store = repository.NewMemoryStore(repository.WithLogger(s.logger.Named("repository")))
			s.logger.Info(ctx, "using memory store")
		}
	}

	s.jobs = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.jobs, s, s.store, workerpool.WithJobTimeout(s.jobTimeout), workerpool.WithLogger(s.logger.Named("worker")))
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "fusion service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains the queue and closes the store it opened.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping fusion service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "closing result store failed", logger.Error(err))
		}
		s.store, s.ownsStore = nil, false
	}

	s.started = false
	s.logger.Info(ctx, "fusion service stopped")
}

// Defaults returns the run options applied when a request carries none.
func (s *Service) Defaults() model.Options { return s.defaults }

// Fuse sanitizes the clip and runs the engine synchronously. The workers use
// it for queued jobs as well.
func (s *Service) Fuse(ctx context.Context, sig *model.Signals, opts model.Options) ([]model.GameEvent, error) {
	report, err := ingest.Sanitize(ctx, sig, ingest.WithStrict(s.strict), ingest.WithLogger(s.logger.Named("ingest")))
	if err != nil {
		return nil, err
	}
	if n := report.Total(); n > 0 {
		s.logger.Debug(ctx, "clip sanitized", logger.Int("dropped", n), logger.Int("derived", report.Derived), logger.Int("untagged", report.Untagged))
	}
	return s.engine.Fuse(ctx, sig, opts)
}

// Submit queues a clip for asynchronous fusion and returns the job id. An
// empty id gets a random one. Resubmitting a known id is reported as a
// duplicate and queues nothing. A full queue returns queue.ErrFull, after
// which the id may be submitted again.
func (s *Service) Submit(ctx context.Context, id string, sig *model.Signals, opts model.Options) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", false, ErrNotStarted
	}

	if err := opts.Validate(); err != nil {
		return "", false, err
	}
	if err := sig.ValidateClip(); err != nil {
		return "", false, err
	}
	if id == "" {
		id = uuid.NewString()
	}
	if s.tracker.SeenAndRecord(ctx, id) {
		s.logger.Debug(ctx, "duplicate job submission", logger.String("job_id", id))
		return id, true, nil
	}

	now := time.Now().UTC()
	if err := s.store.Save(ctx, repository.Result{JobID: id, Status: repository.StatusQueued, CreatedAt: now}); err != nil {
		s.tracker.Forget(ctx, id)
		return "", false, fmt.Errorf("record job: %w", err)
	}

	job := queue.Job{ID: id, Signals: sig, Options: opts, Submitted: now}
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		s.tracker.Forget(ctx, id)
		rejected := repository.Result{
			JobID: id, Status: repository.StatusFailed, Error: err.Error(),
			CreatedAt: now, CompletedAt: time.Now().UTC(),
		}
		if saveErr := s.store.Save(ctx, rejected); saveErr != nil {
			s.logger.Warn(ctx, "recording rejected job failed", logger.String("job_id", id), logger.Error(saveErr))
		}
		return "", false, err
	}
	return id, false, nil
}

// Result returns the stored state of a job.
func (s *Service) Result(ctx context.Context, id string) (repository.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return repository.Result{}, ErrNotStarted
	}
	return s.store.Get(ctx, id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"trackedJobs": s.tracker.Size(),
	}

	if s.started {
		queueLen := s.jobs.Len(ctx)
		stats["queueLength"] = queueLen
		if n, err := s.store.Count(ctx); err == nil {
			stats["storedResults"] = n
			metrics.UpdateStoreRecords(n)
		}
		ps := s.pool.Stats()
		stats["processedJobs"] = ps.Processed
		stats["failedJobs"] = ps.Failed
	}
	return stats
}
