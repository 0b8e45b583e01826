package detector

import (
	"context"
	"math"

	"github.com/okian/hoopfuse/internal/domain/confidence"
	"github.com/okian/hoopfuse/internal/domain/geometry"
	"github.com/okian/hoopfuse/internal/domain/model"
)

const (
	blockWindow       = 0.3
	blockRadius       = 150.0
	blockKeypointConf = 0.3

	rimWindow          = 1.0
	dunkHorizontal     = 80.0
	layupHoopWidths    = 2.5
	rimHoopWeight      = 0.3
	rimShotWeight      = 0.2
	rimClosenessWeight = 0.5

	foulIsolation      = 200.0
	foulBallWindow     = 1.0
	foulMinBallFrames  = 3
	foulMaxBallTravel  = 20.0
	foulIsolationScale = 400.0
)

// Blocks looks for an opposing player with both wrists above the shoulders
// close to the shooter at release. At most one block per shot.
func (d *Detector) Blocks(ctx context.Context, s *model.Signals, shots []model.GameEvent) []model.GameEvent {
	if s == nil {
		return nil
	}
	var out []model.GameEvent
	for _, shot := range shots {
		center, ok := boxCenter(shot)
		if !ok || !shot.TeamID.Known() {
			continue
		}
		var (
			best     model.PoseFrame
			bestTS   float64
			bestDist = math.Inf(1)
			bestConf float64
		)
		for _, f := range s.Poses.Window(shot.Timestamp-blockWindow, shot.Timestamp+blockWindow) {
			for _, p := range f.Detections {
				if !p.TeamID.Known() || p.TeamID == shot.TeamID {
					continue
				}
				up, kpConf := p.WristsAboveShoulders(blockKeypointConf)
				if !up {
					continue
				}
				if dist := geometry.Distance(p.Box.Center(), center); dist <= blockRadius && dist < bestDist {
					best, bestTS, bestDist, bestConf = p, f.Timestamp, dist, kpConf
				}
			}
		}
		if math.IsInf(bestDist, 1) {
			continue
		}
		out = d.emit(ctx, out, model.KindBlock, model.EventParams{
			TeamID:    best.TeamID,
			PlayerID:  best.PlayerID,
			Timestamp: bestTS,
			Confidence: confidence.Combine([]confidence.Signal{
				{Value: confidence.Closeness(bestDist, blockRadius), Weight: 0.5},
				{Value: bestConf, Weight: 0.5},
			}),
			Source: SourcePoseProximity,
			Box:    boxPtr(best.Box),
		})
	}
	return out
}

// RimAttempts classifies shots taken at the rim: a dunk when the shooter is
// under the hoop with the top of the box at or above the hoop bottom, a layup
// when the shooter is within a few hoop widths.
func (d *Detector) RimAttempts(ctx context.Context, s *model.Signals, shots []model.GameEvent) []model.GameEvent {
	if s == nil {
		return nil
	}
	var out []model.GameEvent
	for _, shot := range shots {
		center, ok := boxCenter(shot)
		if !ok {
			continue
		}
		hoop, ok := bestHoop(s.Hoops.Window(shot.Timestamp-rimWindow, shot.Timestamp+rimWindow))
		if !ok {
			continue
		}
		hc := hoop.Box.Center()
		p := shot.Params()
		p.Source = SourceHoopProximity
		p.Notes = ""
		p.ShotType = model.Shot2PT

		dx := math.Abs(center.X - hc.X)
		if dx <= dunkHorizontal && shot.Box.Y <= hoop.Box.Bottom() {
			p.Confidence = rimConfidence(dx, 2*dunkHorizontal, hoop, shot)
			out = d.emit(ctx, out, model.KindDunk, p)
			continue
		}
		reach := layupHoopWidths * hoop.Box.W
		if dist := geometry.Distance(center, hc); dist <= reach {
			p.Confidence = rimConfidence(dist, 2*reach, hoop, shot)
			out = d.emit(ctx, out, model.KindLayup, p)
		}
	}
	return out
}

func rimConfidence(dist, radius float64, hoop model.HoopRegion, shot model.GameEvent) float64 {
	return confidence.Combine([]confidence.Signal{
		{Value: confidence.Closeness(dist, radius), Weight: rimClosenessWeight},
		{Value: hoop.Confidence, Weight: rimHoopWeight},
		{Value: shot.Confidence, Weight: rimShotWeight},
	})
}

// FoulShots finds attempts by an isolated shooter with a near-stationary ball
// just before release. It returns the shots with those attempts re-tagged 1pt
// and the foul_shot events.
func (d *Detector) FoulShots(ctx context.Context, s *model.Signals, shots []model.GameEvent) ([]model.GameEvent, []model.GameEvent) {
	if s == nil || len(shots) == 0 {
		return shots, nil
	}
	tagged := make([]model.GameEvent, len(shots))
	var out []model.GameEvent
	for i, shot := range shots {
		tagged[i] = shot
		center, ok := boxCenter(shot)
		if !ok || !shot.TeamID.Known() {
			continue
		}
		isolation, ok := isolationScore(s, shot, center)
		if !ok {
			continue
		}
		stillness, ok := ballStillness(s.Balls, shot.Timestamp)
		if !ok {
			continue
		}
		tagged[i] = shot.WithShotType(model.Shot1PT)
		p := shot.Params()
		p.Source = SourceIsolatedShooter
		p.Notes = ""
		p.ShotType = model.Shot1PT
		p.Confidence = confidence.Combine([]confidence.Signal{
			{Value: isolation, Weight: 0.4},
			{Value: stillness, Weight: 0.3},
			{Value: shot.Confidence, Weight: 0.3},
		})
		out = d.emit(ctx, out, model.KindFoulShot, p)
	}
	return tagged, out
}

// isolationScore fails when an opponent stands within foulIsolation of the
// shooter; otherwise it grows with the distance to the closest opponent.
func isolationScore(s *model.Signals, shot model.GameEvent, center model.Point) (float64, bool) {
	pf, ok := s.Persons.Nearest(shot.Timestamp, personFrameTolerance)
	if !ok {
		return 1, true
	}
	nearest := math.Inf(1)
	for _, p := range pf.Detections {
		if !p.TeamID.Known() || p.TeamID == shot.TeamID {
			continue
		}
		nearest = math.Min(nearest, geometry.Distance(p.Box.Center(), center))
	}
	if nearest <= foulIsolation {
		return 0, false
	}
	return confidence.Clamp(nearest / foulIsolationScale), true
}

// ballStillness scores how little the ball moved in the second before ts.
func ballStillness(balls model.Stream[model.BallDetection], ts float64) (float64, bool) {
	var first model.Point
	seen := 0
	travel := 0.0
	for _, f := range balls.Window(ts-foulBallWindow, ts) {
		if f.Timestamp >= ts {
			break
		}
		b, ok := bestBall(f.Detections)
		if !ok {
			continue
		}
		c := b.Box.Center()
		if seen == 0 {
			first = c
		}
		travel = math.Max(travel, geometry.Distance(first, c))
		seen++
	}
	if seen < foulMinBallFrames || travel >= foulMaxBallTravel {
		return 0, false
	}
	return 1 - travel/foulMaxBallTravel, true
}
