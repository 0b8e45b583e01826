// Package fusion runs the detectors, smoothing and filtering over one clip.
package fusion

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/hoopfuse/internal/domain/dedupe"
	"github.com/okian/hoopfuse/internal/domain/detector"
	"github.com/okian/hoopfuse/internal/domain/finalize"
	"github.com/okian/hoopfuse/internal/domain/model"
	"github.com/okian/hoopfuse/pkg/logger"
	"github.com/okian/hoopfuse/pkg/metrics"
)

// Run outcomes recorded in metrics.
const (
	statusOK      = "ok"
	statusInvalid = "invalid"
	statusFailed  = "failed"
)

// Engine fuses signal streams into game events. It holds no per-clip state and
// may be shared between goroutines.
type Engine struct {
	log         logger.Logger
	defaultTeam model.TeamID
	window      float64
	hook        func(detector.InsufficientSignal)
}

// Report is the full outcome of one run.
type Report struct {
	// Events is the final, filtered and ordered output.
	Events []model.GameEvent
	// Raw holds every detector event after clamping, before smoothing.
	Raw       []model.GameEvent
	Merged    int
	Dropped   int
	Fallbacks []detector.InsufficientSignal
	Elapsed   time.Duration
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		defaultTeam: model.TeamA,
		window:      dedupe.DefaultWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get().Named("fusion")
	}
	return e
}

// Fuse returns the chronologically sorted events for one clip. Invalid options
// or clip metadata yield a *model.ConfigurationError; sparse or empty streams
// never fail.
func (e *Engine) Fuse(ctx context.Context, s *model.Signals, opts model.Options) ([]model.GameEvent, error) {
	r, err := e.Run(ctx, s, opts)
	if err != nil {
		return nil, err
	}
	return r.Events, nil
}

// Run is Fuse with the intermediate results.
func (e *Engine) Run(ctx context.Context, s *model.Signals, opts model.Options) (*Report, error) {
	start := time.Now()
	if err := opts.Validate(); err != nil {
		metrics.RecordFusionRun(statusInvalid, msSince(start))
		return nil, err
	}
	if err := s.ValidateClip(); err != nil {
		metrics.RecordFusionRun(statusInvalid, msSince(start))
		return nil, err
	}

	r := &Report{}
	d := detector.New(
		detector.WithLogger(e.log.Named("detector")),
		detector.WithDefaultTeam(e.defaultTeam),
		detector.WithInsufficientSignalHook(func(w detector.InsufficientSignal) {
			r.Fallbacks = append(r.Fallbacks, w)
			if e.hook != nil {
				e.hook(w)
			}
		}),
	)

	clip := sortedClip(s)
	raw, err := e.detect(ctx, d, clip, opts)
	if err != nil {
		metrics.RecordFusionRun(statusFailed, msSince(start))
		return nil, fmt.Errorf("fuse: %w", err)
	}
	r.Raw = clampToClip(raw, clip.ClipDuration())

	smoother := dedupe.NewTemporalSmoother(dedupe.WithWindow(e.window), dedupe.WithLogger(e.log.Named("smoother")))
	smoothed, merged := smoother.Smooth(ctx, r.Raw)
	r.Events, r.Dropped = finalize.Apply(smoothed, opts.ConfidenceFloor)
	r.Merged = merged
	r.Elapsed = time.Since(start)

	e.record(r)
	e.log.Info(ctx, "fusion complete",
		logger.Int("raw", len(r.Raw)),
		logger.Int("merged", r.Merged),
		logger.Float64("window", smoother.Window()),
		logger.Int("dropped", r.Dropped),
		logger.Int("events", len(r.Events)),
		logger.Int("fallbacks", len(r.Fallbacks)),
		logger.Duration("elapsed", r.Elapsed),
	)
	return r, nil
}

// detect runs the rules in dependency order. Rules that only read shots,
// scores and misses run concurrently; each writes its own slot and the slots
// are joined in a fixed order so the output does not depend on scheduling.
func (e *Engine) detect(ctx context.Context, d *detector.Detector, s *model.Signals, opts model.Options) ([]model.GameEvent, error) {
	shots := d.Shots(ctx, s)

	var attempts []model.GameEvent
	if opts.Enable3PTEstimation {
		shots, attempts = d.ThreePoint(ctx, s, shots)
	}
	shots, fouls := d.FoulShots(ctx, s, shots)

	var scores []model.GameEvent
	switch {
	case opts.EnableVisualScoring:
		scores = d.ScoresFromVisual(ctx, s, shots)
	case len(s.ScoreReadings) == 0 && len(shots) > 0:
		// Visual scoring is opt-in; without readings every attempt counts as missed.
		d.Report(ctx, detector.InsufficientSignal{
			Detector: "score",
			Reason:   "no scoreboard readings",
			Fallback: detector.SourceMissed,
		})
	default:
		scores = d.ScoresFromOCR(ctx, s, shots, fouls)
	}
	missed := d.MissedShots(ctx, shots, scores)
	possessions := detector.Possessions(s)

	const (
		slotRebounds = iota
		slotTurnovers
		slotBlocks
		slotPasses
		slotDribbles
		slotRim
		slotCount
	)
	slots := make([][]model.GameEvent, slotCount)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slots[slotRebounds] = d.Rebounds(gctx, s, missed)
		return nil
	})
	g.Go(func() error {
		slots[slotTurnovers] = d.Turnovers(gctx, s, possessions, shots, missed, scores)
		return nil
	})
	g.Go(func() error {
		slots[slotBlocks] = d.Blocks(gctx, s, shots)
		return nil
	})
	g.Go(func() error {
		passes := d.Passes(gctx, possessions)
		slots[slotPasses] = append(passes, d.Assists(gctx, passes, scores)...)
		return nil
	})
	g.Go(func() error {
		slots[slotDribbles] = d.Dribbles(gctx, s)
		return nil
	})
	g.Go(func() error {
		slots[slotRim] = d.RimAttempts(gctx, s, shots)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []model.GameEvent
	for _, group := range [][]model.GameEvent{shots, attempts, fouls, scores, missed} {
		all = append(all, group...)
	}
	for _, group := range slots {
		all = append(all, group...)
	}
	return all, nil
}

func (e *Engine) record(r *Report) {
	perKind := make(map[model.EventKind]int)
	for _, ev := range r.Events {
		perKind[ev.Kind]++
	}
	for _, kind := range model.AllKinds {
		metrics.RecordEventsEmitted(string(kind), perKind[kind])
	}
	metrics.RecordEventsMerged(r.Merged)
	metrics.RecordEventsDropped(r.Dropped)
	metrics.RecordFusionRun(statusOK, float64(r.Elapsed)/float64(time.Millisecond))
}

// sortedClip copies the signal bundle with every stream ordered by time.
func sortedClip(s *model.Signals) *model.Signals {
	c := *s
	c.Persons = s.Persons.SortedCopy()
	c.Balls = s.Balls.SortedCopy()
	c.Poses = s.Poses.SortedCopy()
	c.Hoops = s.Hoops.SortedCopy()
	return &c
}

// clampToClip moves events past the end of the clip onto its last instant.
func clampToClip(events []model.GameEvent, duration float64) []model.GameEvent {
	out := make([]model.GameEvent, len(events))
	for i, ev := range events {
		if ev.Timestamp > duration {
			ev = ev.WithTimestamp(duration).WithNotes("clamped to clip end")
		}
		out[i] = ev
	}
	return out
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
