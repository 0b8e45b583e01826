package detector

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/okian/hoopfuse/internal/domain/confidence"
	"github.com/okian/hoopfuse/internal/domain/geometry"
	"github.com/okian/hoopfuse/internal/domain/model"
)

const (
	shotBallWindow     = 0.5
	shotBallRadius     = 150.0
	motionAboveShooter = 0.8
	motionNearShooter  = 0.4
	poseWeight         = 0.65
	motionWeight       = 0.35
	shotBonus          = 0.1
	shotFloor          = 0.3
	teamMatchRadius    = 50.0

	trajectoryMinFrames = 5
	trajectoryRise      = 15.0
	trajectoryDebounce  = 1.0
	trajectoryCap       = 0.55
	// trajectoryRiseScale maps a frame-to-frame rise in pixels onto [0,1].
	trajectoryRiseScale = 50.0

	presenceStride     = 15
	presenceConfidence = 0.35
)

// Shots emits shot_attempt events from pose-derived candidates. Without
// candidates it synthesizes attempts from ball trajectory spikes, or from
// sampled player presence when ball data is sparse too.
func (d *Detector) Shots(ctx context.Context, s *model.Signals) []model.GameEvent {
	if s == nil {
		return nil
	}
	if len(s.ShotCandidates) == 0 {
		return d.fallbackShots(ctx, s)
	}

	candidates := slices.Clone(s.ShotCandidates)
	slices.SortStableFunc(candidates, func(a, b model.ShotCandidate) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})

	var out []model.GameEvent
	for _, c := range candidates {
		center := c.Box.Center()
		pose := c.Confidence
		if pose == 0 {
			pose = c.ArmElevation
		}
		motion := ballMotion(s.Balls.Window(c.Timestamp-shotBallWindow, c.Timestamp+shotBallWindow), center)

		conf := confidence.Combine([]confidence.Signal{
			{Value: pose, Weight: poseWeight},
			{Value: motion, Weight: motionWeight},
		}, confidence.WithCorroborationBonus(shotBonus))

		team, player := d.resolveShooter(s, c)
		out = d.emit(ctx, out, model.KindShotAttempt, model.EventParams{
			TeamID:     team,
			PlayerID:   player,
			Timestamp:  c.Timestamp,
			Confidence: math.Max(conf, shotFloor),
			Source:     SourcePoseBall,
			Box:        boxPtr(c.Box),
		})
	}
	return out
}

// ballMotion scores how well the ball near the shooter matches a release.
func ballMotion(frames model.Stream[model.BallDetection], shooter model.Point) float64 {
	best := 0.0
	for _, f := range frames {
		for _, b := range f.Detections {
			bc := b.Box.Center()
			if geometry.Distance(bc, shooter) > shotBallRadius {
				continue
			}
			if bc.Y < shooter.Y {
				return motionAboveShooter
			}
			best = motionNearShooter
		}
	}
	return best
}

// resolveShooter attributes a candidate: its own tag, then the nearest tagged
// pose, then the nearest tagged person, then the default team.
func (d *Detector) resolveShooter(s *model.Signals, c model.ShotCandidate) (model.TeamID, string) {
	player := c.PlayerID
	if c.TeamID.Known() {
		return c.TeamID, player
	}
	center := c.Box.Center()

	if f, ok := s.Poses.Nearest(c.Timestamp, shotBallWindow); ok {
		bestDist := math.Inf(1)
		var match *model.PoseFrame
		for i := range f.Detections {
			p := &f.Detections[i]
			if !p.TeamID.Known() {
				continue
			}
			if dist := geometry.CenterDistance(p.Box, c.Box); dist <= teamMatchRadius && dist < bestDist {
				bestDist, match = dist, p
			}
		}
		if match != nil {
			if player == "" {
				player = match.PlayerID
			}
			return match.TeamID, player
		}
	}

	if f, ok := s.Persons.Nearest(c.Timestamp, shotBallWindow); ok {
		if p, _, ok := nearestPerson(f.Detections, center, teamMatchRadius, true); ok {
			if player == "" {
				player = p.PlayerID
			}
			return p.TeamID, player
		}
	}
	return d.defaultTeam, player
}

func (d *Detector) fallbackShots(ctx context.Context, s *model.Signals) []model.GameEvent {
	if s.Balls.CountWithDetections() >= trajectoryMinFrames {
		d.insufficient(ctx, InsufficientSignal{
			Detector: "shot",
			Reason:   "no pose shot candidates",
			Fallback: SourceBallTrajectory,
		})
		return d.trajectoryShots(ctx, s)
	}

	if !hasTaggedPerson(s.Persons) {
		return nil
	}
	d.insufficient(ctx, InsufficientSignal{
		Detector: "shot",
		Reason:   "no pose shot candidates and sparse ball data",
		Fallback: SourcePersonPresence,
	})
	return d.presenceShots(ctx, s)
}

// trajectoryShots finds frame-to-frame ball rises and credits the nearest person.
func (d *Detector) trajectoryShots(ctx context.Context, s *model.Signals) []model.GameEvent {
	frames := s.Balls.WithDetections()
	var out []model.GameEvent
	lastSpike := math.Inf(-1)
	for i := 1; i < len(frames); i++ {
		prev, _ := bestBall(frames[i-1].Detections)
		cur, _ := bestBall(frames[i].Detections)
		rise := prev.Box.Center().Y - cur.Box.Center().Y
		ts := frames[i].Timestamp
		if rise <= trajectoryRise || ts-lastSpike < trajectoryDebounce {
			continue
		}
		lastSpike = ts

		team, player := d.defaultTeam, ""
		var box *model.BBox
		if pf, ok := s.Persons.Nearest(ts, shotBallWindow); ok {
			if p, _, ok := nearestPerson(pf.Detections, cur.Box.Center(), math.Inf(1), false); ok {
				if p.TeamID.Known() {
					team = p.TeamID
				}
				player = p.PlayerID
				box = boxPtr(p.Box)
			}
		}

		conf := confidence.Combine([]confidence.Signal{
			{Value: cur.Confidence, Weight: 0.5},
			{Value: rise / trajectoryRiseScale, Weight: 0.5},
		})
		out = d.emit(ctx, out, model.KindShotAttempt, model.EventParams{
			TeamID:     team,
			PlayerID:   player,
			Timestamp:  ts,
			Confidence: math.Min(trajectoryCap, math.Max(conf, shotFloor)),
			Source:     SourceBallTrajectory,
			Notes:      "synthetic candidate from ball rise",
			Box:        box,
		})
	}
	return out
}

// presenceShots samples one tagged player every presenceStride frames, cycling left to right.
func (d *Detector) presenceShots(ctx context.Context, s *model.Signals) []model.GameEvent {
	var out []model.GameEvent
	turn := 0
	for i := 0; i < len(s.Persons); i += presenceStride {
		var tagged []model.PersonDetection
		for _, p := range s.Persons[i].Detections {
			if p.TeamID.Known() {
				tagged = append(tagged, p)
			}
		}
		if len(tagged) == 0 {
			continue
		}
		slices.SortStableFunc(tagged, func(a, b model.PersonDetection) int {
			return cmp.Compare(a.Box.X, b.Box.X)
		})
		p := tagged[turn%len(tagged)]
		turn++
		out = d.emit(ctx, out, model.KindShotAttempt, model.EventParams{
			TeamID:     p.TeamID,
			PlayerID:   p.PlayerID,
			Timestamp:  s.Persons[i].Timestamp,
			Confidence: presenceConfidence,
			Source:     SourcePersonPresence,
			Notes:      "synthetic candidate from player presence",
			Box:        boxPtr(p.Box),
		})
	}
	return out
}

func hasTaggedPerson(frames model.Stream[model.PersonDetection]) bool {
	for _, f := range frames {
		for _, p := range f.Detections {
			if p.TeamID.Known() {
				return true
			}
		}
	}
	return false
}
