package detector

import (
	"context"

	"github.com/okian/hoopfuse/internal/domain/confidence"
	"github.com/okian/hoopfuse/internal/domain/model"
)

const (
	passWindow   = 2.0
	assistWindow = 2.0
)

// Passes emits a pass when possession moves between two identified players of
// the same team within passWindow. The event is credited to the passer at the
// moment of reception.
func (d *Detector) Passes(ctx context.Context, possessions []Possession) []model.GameEvent {
	var out []model.GameEvent
	for i := 1; i < len(possessions); i++ {
		from, to := possessions[i-1], possessions[i]
		if from.TeamID != to.TeamID || from.PlayerID == "" || to.PlayerID == "" || from.PlayerID == to.PlayerID {
			continue
		}
		if to.Timestamp-from.Timestamp >= passWindow {
			continue
		}
		out = d.emit(ctx, out, model.KindPass, model.EventParams{
			TeamID:    from.TeamID,
			PlayerID:  from.PlayerID,
			Timestamp: to.Timestamp,
			Confidence: confidence.Combine([]confidence.Signal{
				{Value: from.Confidence, Weight: 0.5},
				{Value: to.Confidence, Weight: 0.5},
			}),
			Source: SourcePossession,
			Notes:  "to " + to.PlayerID,
		})
	}
	return out
}

// Assists credits the latest same-team pass shortly before each score, unless
// the passer is the scorer.
func (d *Detector) Assists(ctx context.Context, passes, scores []model.GameEvent) []model.GameEvent {
	var out []model.GameEvent
	for _, sc := range scores {
		var match *model.GameEvent
		for i := range passes {
			p := &passes[i]
			if p.TeamID != sc.TeamID || p.Timestamp >= sc.Timestamp || p.Timestamp < sc.Timestamp-assistWindow {
				continue
			}
			if sc.PlayerID != "" && p.PlayerID == sc.PlayerID {
				continue
			}
			if match == nil || p.Timestamp >= match.Timestamp {
				match = p
			}
		}
		if match == nil {
			continue
		}
		out = d.emit(ctx, out, model.KindAssist, model.EventParams{
			TeamID:    sc.TeamID,
			PlayerID:  match.PlayerID,
			Timestamp: sc.Timestamp,
			Confidence: confidence.Combine([]confidence.Signal{
				{Value: match.Confidence, Weight: 0.5},
				{Value: sc.Confidence, Weight: 0.5},
			}),
			Source: SourcePassBeforeScore,
		})
	}
	return out
}
