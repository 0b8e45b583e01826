package detector

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/okian/hoopfuse/internal/domain/confidence"
	"github.com/okian/hoopfuse/internal/domain/model"
)

const (
	dribbleFrames        = 10
	dribbleReversals     = 3
	dribbleMinStep       = 5.0
	dribbleMinStdDev     = 4.0
	dribbleOwnerShare    = 0.7
	dribbleReversalScale = 6.0
)

// Dribbles scans consecutive, non-overlapping windows of ball frames for a
// bouncing ball that stays with one player.
func (d *Detector) Dribbles(ctx context.Context, s *model.Signals) []model.GameEvent {
	if s == nil {
		return nil
	}
	frames := s.Balls.WithDetections()
	var out []model.GameEvent
	for start := 0; start+dribbleFrames <= len(frames); start += dribbleFrames {
		window := frames[start : start+dribbleFrames]

		heights := make([]float64, len(window))
		for i, f := range window {
			b, _ := bestBall(f.Detections)
			heights[i] = b.Box.Center().Y
		}
		reversals := countReversals(heights)
		if reversals < dribbleReversals || stat.StdDev(heights, nil) < dribbleMinStdDev {
			continue
		}

		owner, share, ok := dominantHolder(s, window)
		if !ok || share < dribbleOwnerShare {
			continue
		}
		out = d.emit(ctx, out, model.KindDribble, model.EventParams{
			TeamID:    owner.TeamID,
			PlayerID:  owner.PlayerID,
			Timestamp: window[0].Timestamp,
			Confidence: confidence.Combine([]confidence.Signal{
				{Value: math.Min(1, float64(reversals)/dribbleReversalScale), Weight: 0.5},
				{Value: share, Weight: 0.5},
			}),
			Source: SourceBallOscillation,
			Box:    boxPtr(owner.Box),
		})
	}
	return out
}

// countReversals counts direction changes between vertical steps of at least dribbleMinStep.
func countReversals(heights []float64) int {
	reversals := 0
	dir := 0
	for i := 1; i < len(heights); i++ {
		step := heights[i] - heights[i-1]
		if math.Abs(step) < dribbleMinStep {
			continue
		}
		next := 1
		if step < 0 {
			next = -1
		}
		if dir != 0 && next != dir {
			reversals++
		}
		dir = next
	}
	return reversals
}

// dominantHolder returns the tagged player nearest the ball in most frames and their share.
func dominantHolder(s *model.Signals, window model.Stream[model.BallDetection]) (model.PersonDetection, float64, bool) {
	type holder struct {
		person model.PersonDetection
		count  int
	}
	counts := make(map[string]*holder)
	var order []string
	for _, f := range window {
		b, _ := bestBall(f.Detections)
		pf, ok := s.Persons.Nearest(f.Timestamp, personFrameTolerance)
		if !ok {
			continue
		}
		p, _, ok := nearestPerson(pf.Detections, b.Box.Center(), possessionRadius, true)
		if !ok {
			continue
		}
		key := string(p.TeamID) + "/" + p.PlayerID
		h, seen := counts[key]
		if !seen {
			h = &holder{person: p}
			counts[key] = h
			order = append(order, key)
		}
		h.count++
	}
	if len(order) == 0 {
		return model.PersonDetection{}, 0, false
	}
	best := counts[order[0]]
	for _, key := range order[1:] {
		if counts[key].count > best.count {
			best = counts[key]
		}
	}
	return best.person, float64(best.count) / float64(len(window)), true
}
