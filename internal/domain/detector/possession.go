package detector

import (
	"context"

	"github.com/okian/hoopfuse/internal/domain/confidence"
	"github.com/okian/hoopfuse/internal/domain/model"
)

const (
	stealGap               = 1.5
	stealBase              = 0.65
	stealClosenessBonus    = 0.1
	turnoverConfidence     = 0.65
	possessionMinFrames    = 10
	gameFlowMinGap         = 3.0
	gameFlowMaxGap         = 15.0
	gameFlowConfidence     = 0.45
	possessionPersonWeight = 0.4
	// shotHandoff is how long before losing the ball a shot still explains the change.
	shotHandoff = 1.0
)

// Possession is one ball frame attributed to a tagged player.
type Possession struct {
	Timestamp  float64
	TeamID     model.TeamID
	PlayerID   string
	Closeness  float64
	Confidence float64
	Box        model.BBox
}

// Possessions attributes each ball frame to the nearest tagged player within
// possessionRadius. Frames without a holder are skipped.
func Possessions(s *model.Signals) []Possession {
	if s == nil {
		return nil
	}
	var out []Possession
	for _, f := range s.Balls {
		b, ok := bestBall(f.Detections)
		if !ok {
			continue
		}
		pf, ok := s.Persons.Nearest(f.Timestamp, personFrameTolerance)
		if !ok {
			continue
		}
		p, dist, ok := nearestPerson(pf.Detections, b.Box.Center(), possessionRadius, true)
		if !ok {
			continue
		}
		closeness := confidence.Closeness(dist, possessionRadius)
		out = append(out, Possession{
			Timestamp: f.Timestamp,
			TeamID:    p.TeamID,
			PlayerID:  p.PlayerID,
			Closeness: closeness,
			Confidence: confidence.Combine([]confidence.Signal{
				{Value: closeness, Weight: closenessWeight},
				{Value: p.Confidence, Weight: possessionPersonWeight},
			}),
			Box: p.Box,
		})
	}
	return out
}

// Turnovers emits steal and turnover events from team changes in possession.
// With too little ball data it infers turnovers from the shot sequence instead.
func (d *Detector) Turnovers(ctx context.Context, s *model.Signals, possessions []Possession, shots, missed, scores []model.GameEvent) []model.GameEvent {
	if s == nil {
		return nil
	}
	if s.Balls.CountWithDetections() < possessionMinFrames {
		if len(missed) == 0 {
			return nil
		}
		d.insufficient(ctx, InsufficientSignal{
			Detector: "turnover",
			Reason:   "too few ball frames for possession tracking",
			Fallback: SourceGameFlow,
		})
		return d.gameFlowTurnovers(ctx, shots, missed, scores)
	}

	var out []model.GameEvent
	for i := 1; i < len(possessions); i++ {
		prev, cur := possessions[i-1], possessions[i]
		if prev.TeamID == cur.TeamID {
			continue
		}
		// After a shot the ball changes hands through a rebound or an inbound.
		if shotBy(shots, prev.TeamID, prev.Timestamp-shotHandoff, cur.Timestamp) {
			continue
		}
		if cur.Timestamp-prev.Timestamp < stealGap {
			out = d.emit(ctx, out, model.KindSteal, model.EventParams{
				TeamID:     cur.TeamID,
				PlayerID:   cur.PlayerID,
				Timestamp:  cur.Timestamp,
				Confidence: stealBase + stealClosenessBonus*cur.Closeness,
				Source:     SourcePossession,
				Box:        boxPtr(cur.Box),
			})
			continue
		}
		out = d.emit(ctx, out, model.KindTurnover, model.EventParams{
			TeamID:     prev.TeamID,
			PlayerID:   prev.PlayerID,
			Timestamp:  cur.Timestamp,
			Confidence: turnoverConfidence,
			Source:     SourcePossession,
			Box:        boxPtr(prev.Box),
		})
	}
	return out
}

// gameFlowTurnovers pairs each miss with the next opposing shot 3-15 s later
// when no score happened in between.
func (d *Detector) gameFlowTurnovers(ctx context.Context, shots, missed, scores []model.GameEvent) []model.GameEvent {
	var out []model.GameEvent
	for _, miss := range missed {
		next, ok := nextOpposingShot(shots, miss)
		if !ok {
			continue
		}
		gap := next.Timestamp - miss.Timestamp
		if gap < gameFlowMinGap || gap > gameFlowMaxGap || anyBetween(scores, miss.Timestamp, next.Timestamp) {
			continue
		}
		out = d.emit(ctx, out, model.KindTurnover, model.EventParams{
			TeamID:     miss.TeamID,
			PlayerID:   miss.PlayerID,
			Timestamp:  miss.Timestamp + gap/2,
			Confidence: gameFlowConfidence,
			Source:     SourceGameFlow,
			Notes:      "inferred from missed shot followed by opposing attempt",
		})
	}
	return out
}

func nextOpposingShot(shots []model.GameEvent, miss model.GameEvent) (model.GameEvent, bool) {
	for _, shot := range shots {
		if shot.Timestamp > miss.Timestamp && shot.TeamID.Known() && shot.TeamID != miss.TeamID {
			return shot, true
		}
	}
	return model.GameEvent{}, false
}

func shotBy(shots []model.GameEvent, team model.TeamID, from, to float64) bool {
	for _, shot := range shots {
		if shot.TeamID == team && shot.Timestamp >= from && shot.Timestamp <= to {
			return true
		}
	}
	return false
}

func anyBetween(events []model.GameEvent, from, to float64) bool {
	for _, e := range events {
		if e.Timestamp > from && e.Timestamp < to {
			return true
		}
	}
	return false
}
