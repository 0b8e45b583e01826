package loadtest

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/hoopfuse/internal/domain/fusion"
	"github.com/okian/hoopfuse/internal/domain/model"
	"github.com/okian/hoopfuse/internal/ingest"
	"github.com/okian/hoopfuse/internal/synth"
	"github.com/okian/hoopfuse/pkg/logger"
)

// game is one generated clip with the event ids a local run produced.
type game struct {
	id       string
	signals  *model.Signals
	expected []string
}

// Run executes the complete load test: health check, generation, concurrent
// submission, polling and verification.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	cfg := config.withDefaults()
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("loadtest")

	log.Info(ctx, "starting load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("games", cfg.Games),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
	)

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := client.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	games, err := generate(ctx, cfg)
	if err != nil {
		return stats, fmt.Errorf("game generation failed: %w", err)
	}
	stats.Games = len(games)

	accepted, err := submit(ctx, cfg, client, games, stats)
	if err != nil {
		return stats, fmt.Errorf("submission failed: %w", err)
	}

	if err := await(ctx, cfg, client, accepted, stats); err != nil {
		return stats, fmt.Errorf("result polling failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(ctx, "final statistics",
		logger.Int("games", stats.Games),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("completed", stats.Completed),
		logger.Int("failed", stats.Failed),
		logger.Int("mismatched", stats.Mismatched),
		logger.Int("unfinished", stats.Unfinished),
		logger.Duration("duration", stats.Duration),
		logger.Float64("gamesPerSecond", stats.GamesPerSecond()),
	)
	return stats, nil
}

// generate builds every game and its expected event ids.
func generate(ctx context.Context, cfg Config) ([]game, error) {
	engine := fusion.New()
	games := make([]game, cfg.Games)
	for i := range games {
		seed := cfg.Seed + uint64(i)
		local := synth.Game(seed, cfg.Plays).Build()
		if _, err := ingest.Sanitize(ctx, local); err != nil {
			return nil, err
		}
		events, err := engine.Fuse(ctx, local, model.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("local fusion of game %d: %w", seed, err)
		}
		games[i] = game{
			id:       fmt.Sprintf("loadtest-%d", seed),
			signals:  synth.Game(seed, cfg.Plays).Build(),
			expected: ids(events),
		}
	}
	return games, nil
}

// submit posts every game with bounded concurrency, retrying on 429.
func submit(ctx context.Context, cfg Config, client *httpClient, games []game, stats *Stats) ([]game, error) {
	var (
		mu       sync.Mutex
		accepted []game
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, gm := range games {
		g.Go(func() error {
			body := jobRequest{JobID: gm.id, Signals: gm.signals, Options: model.DefaultOptions()}
			for attempt := 0; ; attempt++ {
				status, ack, err := client.submit(gctx, body)
				if err != nil {
					return err
				}
				mu.Lock()
				switch {
				case status == http.StatusAccepted:
					stats.Accepted++
					accepted = append(accepted, gm)
				case status == http.StatusOK && ack.Duplicate:
					stats.Duplicate++
					accepted = append(accepted, gm)
				case status == http.StatusTooManyRequests && attempt < cfg.Retries:
					mu.Unlock()
					if err := sleep(gctx, cfg.PollInterval); err != nil {
						return err
					}
					continue
				case status == http.StatusTooManyRequests:
					stats.Rejected++
				default:
					stats.Failed++
				}
				mu.Unlock()
				return nil
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.SortFunc(accepted, func(a, b game) int { return strings.Compare(a.id, b.id) })
	return accepted, nil
}

// await polls every accepted job until it finishes or the wait expires.
func await(ctx context.Context, cfg Config, client *httpClient, games []game, stats *Stats) error {
	deadline := time.Now().Add(cfg.Wait)
	pending := games
	for len(pending) > 0 {
		var next []game
		for _, gm := range pending {
			r, err := client.result(ctx, gm.id)
			if err != nil {
				return err
			}
			if !r.Status.Terminal() {
				next = append(next, gm)
				continue
			}
			if r.Error != "" {
				stats.Failed++
				continue
			}
			stats.Completed++
			if !slices.Equal(ids(r.Events), gm.expected) {
				stats.Mismatched++
				logger.Get().Named("loadtest").Warn(ctx, "result differs from local run", logger.String("job_id", gm.id))
			}
		}
		pending = next
		if len(pending) == 0 {
			break
		}
		if time.Now().After(deadline) {
			stats.Unfinished = len(pending)
			break
		}
		if err := sleep(ctx, cfg.PollInterval); err != nil {
			return err
		}
	}
	return nil
}

func ids(events []model.GameEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
