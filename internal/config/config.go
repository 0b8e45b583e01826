// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers file and env on top.
// - Validate reports the first bad key as a *FieldError matching ErrInvalidConfig.
package config

import (
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/okian/hoopfuse/internal/domain/model"
	"github.com/okian/hoopfuse/pkg/metrics"
)

// Result store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: json or text.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ConfidenceFloor drops events below this confidence.
	ConfidenceFloor float64 `koanf:"confidence_floor"`

	// Enable3PTEstimation turns on shot-distance classification.
	Enable3PTEstimation bool `koanf:"enable_3pt_estimation"`

	// EnableVisualScoring scores from ball/hoop crossings instead of the scoreboard.
	EnableVisualScoring bool `koanf:"enable_visual_scoring"`

	// SmoothingWindowS is the temporal smoothing window in seconds.
	SmoothingWindowS float64 `koanf:"smoothing_window_s"`

	// DefaultTeam is credited when attribution finds no evidence.
	DefaultTeam string `koanf:"default_team"`

	// StrictIngest rejects malformed records instead of dropping them.
	StrictIngest bool `koanf:"strict_ingest"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of fusion workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many job ids are remembered for idempotent submits.
	DedupeSize int `koanf:"dedupe_size"`

	// Store selects the result store: memory or sqlite.
	Store string `koanf:"store"`

	// SQLitePath is the database file used by the sqlite store.
	SQLitePath string `koanf:"sqlite_path"`

	// MaxRequestBytes caps request bodies.
	MaxRequestBytes int64 `koanf:"max_request_bytes"`

	// MetricsPrefix is prepended to every metric name.
	MetricsPrefix string `koanf:"metrics_prefix"`

	// MetricsRefresh is the system metrics sampling period; zero keeps the default.
	MetricsRefresh time.Duration `koanf:"metrics_refresh"`

	// MetricsBuckets overrides the latency histogram buckets, in milliseconds.
	MetricsBuckets []float64 `koanf:"metrics_buckets"`

	// MetricsLabels are constant labels attached to every metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "json",
		Addr:                ":9080",
		ConfidenceFloor:     model.DefaultConfidenceFloor,
		Enable3PTEstimation: true,
		SmoothingWindowS:    1.0,
		DefaultTeam:         string(model.TeamA),
		QueueSize:           1024,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          50_000,
		Store:               StoreMemory,
		SQLitePath:          "hoopfuse.db",
		MaxRequestBytes:     32 << 20,
	}
}

// FusionOptions returns the run options configured for every request.
func (c *Config) FusionOptions() model.Options {
	return model.Options{
		Enable3PTEstimation: c.Enable3PTEstimation,
		EnableVisualScoring: c.EnableVisualScoring,
		ConfidenceFloor:     c.ConfidenceFloor,
	}
}

// MetricsOptions returns the metrics manager options for this process.
func (c *Config) MetricsOptions() []metrics.Option {
	return []metrics.Option{
		metrics.WithMetricPrefix(c.MetricsPrefix),
		metrics.WithRefreshInterval(c.MetricsRefresh),
		metrics.WithLatencyBuckets(c.MetricsBuckets),
		metrics.WithConstLabels(c.MetricsLabels),
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr", "must not be empty")
	case math.IsNaN(c.ConfidenceFloor) || c.ConfidenceFloor < 0 || c.ConfidenceFloor > 1:
		return invalid("confidence_floor", "must be within [0,1]")
	case !(c.SmoothingWindowS > 0):
		return invalid("smoothing_window_s", "must be positive")
	case c.DefaultTeam == "":
		return invalid("default_team", "must not be empty")
	case c.QueueSize <= 0:
		return invalid("queue_size", "must be positive")
	case c.WorkerCount <= 0:
		return invalid("worker_count", "must be positive")
	case c.Store != StoreMemory && c.Store != StoreSQLite:
		return invalid("store", fmt.Sprintf("unknown value %q", c.Store))
	case c.Store == StoreSQLite && c.SQLitePath == "":
		return invalid("sqlite_path", "must not be empty")
	case c.MaxRequestBytes <= 0:
		return invalid("max_request_bytes", "must be positive")
	case c.MetricsRefresh < 0:
		return invalid("metrics_refresh", "must not be negative")
	case !increasing(c.MetricsBuckets):
		return invalid("metrics_buckets", "must be strictly increasing")
	}
	return nil
}

func increasing(buckets []float64) bool {
	for i := 1; i < len(buckets); i++ {
		if !(buckets[i] > buckets[i-1]) {
			return false
		}
	}
	return true
}
