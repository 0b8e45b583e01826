package service

import (
	"time"

	"github.com/okian/hoopfuse/internal/adapters/repository"
	"github.com/okian/hoopfuse/internal/config"
	"github.com/okian/hoopfuse/internal/domain/fusion"
	"github.com/okian/hoopfuse/internal/domain/model"
	"github.com/okian/hoopfuse/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of fusion workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many submitted job ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore injects the result store. The caller keeps ownership.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSQLite makes Start open a SQLite result store at path.
func WithSQLite(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.sqlitePath = path
		}
	}
}

// WithEngineOptions configures the fusion engine.
func WithEngineOptions(opts ...fusion.Option) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithDefaultOptions sets the run options used when a request carries none.
func WithDefaultOptions(opts model.Options) Option {
	return func(s *Service) {
		s.defaults = opts
	}
}

// WithStrictIngest rejects malformed records instead of dropping them.
func WithStrictIngest(strict bool) Option {
	return func(s *Service) {
		s.strict = strict
	}
}

// WithJobTimeout bounds each asynchronous fusion run.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// FromConfig maps the process configuration onto service options.
func FromConfig(cfg *config.Config) []Option {
	opts := []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithDefaultOptions(cfg.FusionOptions()),
		WithStrictIngest(cfg.StrictIngest),
		WithEngineOptions(
			fusion.WithDefaultTeam(model.TeamID(cfg.DefaultTeam)),
			fusion.WithSmoothingWindow(cfg.SmoothingWindowS),
		),
	}
	if cfg.Store == config.StoreSQLite {
		opts = append(opts, WithSQLite(cfg.SQLitePath))
	}
	return opts
}
