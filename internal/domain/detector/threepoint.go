package detector

import (
	"context"
	"math"

	"github.com/okian/hoopfuse/internal/domain/geometry"
	"github.com/okian/hoopfuse/internal/domain/model"
)

// Three-point estimation thresholds on the shooter's normalized frame position.
const (
	deepY          = 0.7
	deepConfidence = 0.75
	farY           = 0.6
	farConfidence  = 0.65
	cornerY        = 0.55
	cornerOffset   = 0.25
	cornerBonus    = 0.6
	threePointCut  = 0.35
	longDistanceY  = 0.45
	longDistanceK  = 0.6
)

// threePointConfidence estimates how likely a shot from box was behind the arc.
// Further from the hoop means lower in the frame for a baseline camera.
func threePointConfidence(box model.BBox, width, height float64) (conf float64, ny float64) {
	n := geometry.Normalize(box.Center(), width, height)
	offset := math.Abs(n.X - 0.5)
	switch {
	case n.Y > deepY:
		return deepConfidence, n.Y
	case n.Y > farY:
		return farConfidence, n.Y
	case n.Y > cornerY && offset > cornerOffset:
		return cornerBonus, n.Y
	}
	return 0, n.Y
}

// ThreePoint classifies shots by distance. It returns the shots with three-point
// attempts re-tagged 3pt, and the three_point_attempt and long_distance_attempt events.
func (d *Detector) ThreePoint(ctx context.Context, s *model.Signals, shots []model.GameEvent) ([]model.GameEvent, []model.GameEvent) {
	if s == nil || len(shots) == 0 {
		return shots, nil
	}
	tagged := make([]model.GameEvent, len(shots))
	var out []model.GameEvent
	for i, shot := range shots {
		tagged[i] = shot
		if shot.Box == nil {
			continue
		}
		conf, ny := threePointConfidence(*shot.Box, s.FrameWidth, s.FrameHeight)
		p := shot.Params()
		p.Source = SourcePosition
		p.Notes = ""
		switch {
		case conf > threePointCut:
			tagged[i] = shot.WithShotType(model.Shot3PT)
			p.Confidence = conf
			p.ShotType = model.Shot3PT
			out = d.emit(ctx, out, model.KindThreePointAttempt, p)
		case ny > longDistanceY:
			p.Confidence = longDistanceK * ny
			p.ShotType = model.ShotNone
			out = d.emit(ctx, out, model.KindLongDistanceAttempt, p)
		}
	}
	return tagged, out
}
