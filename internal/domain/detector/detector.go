// Package detector turns sorted signal streams into candidate game events.
//
// Each rule lives in its own method and returns an empty slice on empty input.
// Rules never fail: when the evidence they prefer is missing they switch to a
// degraded strategy and report an InsufficientSignal.
package detector

import (
	"context"
	"math"
	"sync"

	"github.com/okian/hoopfuse/internal/domain/geometry"
	"github.com/okian/hoopfuse/internal/domain/model"
	"github.com/okian/hoopfuse/pkg/logger"
	"github.com/okian/hoopfuse/pkg/metrics"
)

// Provenance tags written to GameEvent.Source.
const (
	SourcePoseBall        = "pose+ball-heuristic"
	SourceBallTrajectory  = "ball-trajectory-fallback"
	SourcePersonPresence  = "person-presence-fallback"
	SourceOCR             = "ocr-scoreboard"
	SourceVisual          = "visual-hoop-crossing"
	SourceStatistical     = "statistical-estimate"
	SourceMissed          = "shot-without-score"
	SourceBallProximity   = "ball-proximity"
	SourceHoopRegion      = "hoop-region-inferred"
	SourcePossession      = "possession-tracking"
	SourceGameFlow        = "game-flow-inference"
	SourcePosition        = "position-heuristic"
	SourcePoseProximity   = "pose-proximity"
	SourceHoopProximity   = "hoop-proximity"
	SourceBallOscillation = "ball-oscillation"
	SourceIsolatedShooter = "isolated-shooter"
	SourcePassBeforeScore = "pass-before-score"
)

// Shared geometry and timing constants.
const (
	// hoopRegionMaxY is the normalized vertical cut for the hoop region (top 40% of the frame).
	hoopRegionMaxY = 0.4
	// personFrameTolerance bounds how far a person frame may be from a ball frame.
	personFrameTolerance = 0.25
	// possessionRadius is the ball-to-player distance for possession, in pixels.
	possessionRadius = 100.0
)

// Detector runs the event rules over one clip.
type Detector struct {
	mu          sync.Mutex
	log         logger.Logger
	defaultTeam model.TeamID
	hook        func(InsufficientSignal)
	record      func(detector, fallback string)
}

// New creates a Detector. Without WithLogger it logs through the global logger.
func New(opts ...Option) *Detector {
	d := &Detector{
		defaultTeam: model.TeamA,
		record:      metrics.RecordFallback,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.Get().Named("detector")
	}
	return d
}

// DefaultTeam returns the team used when attribution fails.
func (d *Detector) DefaultTeam() model.TeamID { return d.defaultTeam }

// insufficient reports a fallback activation to the log, the metrics sink and the hook.
// Detectors may run concurrently, so delivery is serialized.
func (d *Detector) insufficient(ctx context.Context, w InsufficientSignal) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.log.Warn(ctx, "insufficient signal, using fallback",
		logger.String("detector", w.Detector),
		logger.String("reason", w.Reason),
		logger.String("fallback", w.Fallback),
	)
	d.record(w.Detector, w.Fallback)
	if d.hook != nil {
		d.hook(w)
	}
}

// emit builds an event and logs instead of failing when the parameters are rejected.
func (d *Detector) emit(ctx context.Context, out []model.GameEvent, kind model.EventKind, p model.EventParams) []model.GameEvent {
	e, err := model.NewEvent(kind, p)
	if err != nil {
		d.log.Error(ctx, "dropping malformed event", logger.String("kind", string(kind)), logger.Error(err))
		return out
	}
	return append(out, e)
}

func bestBall(dets []model.BallDetection) (model.BallDetection, bool) {
	best := -1
	for i, b := range dets {
		if best < 0 || b.Confidence > dets[best].Confidence {
			best = i
		}
	}
	if best < 0 {
		return model.BallDetection{}, false
	}
	return dets[best], true
}

// bestHoop returns the most confident hoop detection in frames.
func bestHoop(frames model.Stream[model.HoopRegion]) (model.HoopRegion, bool) {
	var best model.HoopRegion
	found := false
	for _, f := range frames {
		for _, h := range f.Detections {
			if !found || h.Confidence > best.Confidence {
				best, found = h, true
			}
		}
	}
	return best, found
}

// nearestPerson finds the closest person within radius of p; teamOnly skips untagged people.
func nearestPerson(persons []model.PersonDetection, p model.Point, radius float64, teamOnly bool) (model.PersonDetection, float64, bool) {
	bestDist := math.Inf(1)
	best := -1
	for i, person := range persons {
		if teamOnly && !person.TeamID.Known() {
			continue
		}
		if dist := geometry.Distance(person.Box.Center(), p); dist <= radius && dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best < 0 {
		return model.PersonDetection{}, 0, false
	}
	return persons[best], bestDist, true
}

func inHoopRegion(box model.BBox, frameHeight float64) bool {
	return geometry.Normalize(box.Center(), 0, frameHeight).Y < hoopRegionMaxY
}

// boxCenter returns the center of an event's box; events without one are skipped by spatial rules.
func boxCenter(e model.GameEvent) (model.Point, bool) {
	if e.Box == nil {
		return model.Point{}, false
	}
	return e.Box.Center(), true
}

func boxPtr(b model.BBox) *model.BBox { return &b }

// Report delivers a fallback decided by the caller, such as a scoring strategy switch.
func (d *Detector) Report(ctx context.Context, w InsufficientSignal) {
	d.insufficient(ctx, w)
}
