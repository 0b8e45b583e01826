package detector

import (
	"context"

	"github.com/okian/hoopfuse/internal/domain/confidence"
	"github.com/okian/hoopfuse/internal/domain/model"
)

const (
	missWindow = 2.0
	missFactor = 0.85
)

// MissedShots emits a missed_shot for every attempt with no same-team score in
// the following two seconds.
func (d *Detector) MissedShots(ctx context.Context, shots, scores []model.GameEvent) []model.GameEvent {
	var out []model.GameEvent
	for _, shot := range shots {
		if scoredAfter(scores, shot) {
			continue
		}
		p := shot.Params()
		p.Confidence = confidence.Scale(shot.Confidence, missFactor)
		p.Source = SourceMissed
		p.Notes = ""
		out = d.emit(ctx, out, model.KindMissedShot, p)
	}
	return out
}

func scoredAfter(scores []model.GameEvent, shot model.GameEvent) bool {
	for _, sc := range scores {
		if sc.TeamID == shot.TeamID && sc.Timestamp > shot.Timestamp && sc.Timestamp <= shot.Timestamp+missWindow {
			return true
		}
	}
	return false
}
