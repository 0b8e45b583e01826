package detector

import (
	"context"

	"github.com/okian/hoopfuse/internal/domain/confidence"
	"github.com/okian/hoopfuse/internal/domain/model"
)

const (
	reboundFrom          = 0.2
	reboundTo            = 2.0
	reboundRadius        = 150.0
	reboundMinBallFrames = 2
	reboundHoopFrom      = 0.3
	reboundHoopTo        = 1.5
	reboundInferredConf  = 0.45

	closenessWeight = 0.6
	personWeight    = 0.4
)

// Rebounds finds who recovers the ball after each missed shot. With too few
// ball frames in the window it credits the first tagged player seen near the hoop.
func (d *Detector) Rebounds(ctx context.Context, s *model.Signals, missed []model.GameEvent) []model.GameEvent {
	if s == nil {
		return nil
	}
	var out []model.GameEvent
	for _, miss := range missed {
		balls := openWindow(s.Balls, miss.Timestamp+reboundFrom, miss.Timestamp+reboundTo)
		if balls.CountWithDetections() < reboundMinBallFrames {
			out = d.inferRebound(ctx, out, s, miss)
			continue
		}
		out = d.trackRebound(ctx, out, s, miss, balls)
	}
	return out
}

func (d *Detector) trackRebound(ctx context.Context, out []model.GameEvent, s *model.Signals, miss model.GameEvent, balls model.Stream[model.BallDetection]) []model.GameEvent {
	for _, f := range balls {
		b, ok := bestBall(f.Detections)
		if !ok {
			continue
		}
		pf, ok := s.Persons.Nearest(f.Timestamp, personFrameTolerance)
		if !ok {
			continue
		}
		p, dist, ok := nearestPerson(pf.Detections, b.Box.Center(), reboundRadius, true)
		if !ok {
			continue
		}
		conf := confidence.Combine([]confidence.Signal{
			{Value: confidence.Closeness(dist, reboundRadius), Weight: closenessWeight},
			{Value: p.Confidence, Weight: personWeight},
		})
		return d.emit(ctx, out, reboundKind(miss.TeamID, p.TeamID), model.EventParams{
			TeamID:     p.TeamID,
			PlayerID:   p.PlayerID,
			Timestamp:  f.Timestamp,
			Confidence: conf,
			Source:     SourceBallProximity,
			Box:        boxPtr(p.Box),
		})
	}
	return out
}

func (d *Detector) inferRebound(ctx context.Context, out []model.GameEvent, s *model.Signals, miss model.GameEvent) []model.GameEvent {
	for _, f := range openWindow(s.Persons, miss.Timestamp+reboundHoopFrom, miss.Timestamp+reboundHoopTo) {
		for _, p := range f.Detections {
			if !p.TeamID.Known() || !inHoopRegion(p.Box, s.FrameHeight) {
				continue
			}
			d.insufficient(ctx, InsufficientSignal{
				Detector: "rebound",
				Reason:   "sparse ball data after missed shot",
				Fallback: SourceHoopRegion,
			})
			return d.emit(ctx, out, reboundKind(miss.TeamID, p.TeamID), model.EventParams{
				TeamID:     p.TeamID,
				PlayerID:   p.PlayerID,
				Timestamp:  f.Timestamp,
				Confidence: reboundInferredConf,
				Source:     SourceHoopRegion,
				Notes:      "inferred from player position near the hoop",
				Box:        boxPtr(p.Box),
			})
		}
	}
	return out
}

func reboundKind(shooter, rebounder model.TeamID) model.EventKind {
	if shooter == rebounder {
		return model.KindOffensiveRebound
	}
	return model.KindDefensiveRebound
}

// openWindow returns the frames strictly inside (from, to).
func openWindow[T any](s model.Stream[T], from, to float64) model.Stream[T] {
	w := s.Window(from, to)
	for len(w) > 0 && w[0].Timestamp <= from {
		w = w[1:]
	}
	for len(w) > 0 && w[len(w)-1].Timestamp >= to {
		w = w[:len(w)-1]
	}
	return w
}
