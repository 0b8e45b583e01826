package detector

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/hoopfuse/internal/domain/confidence"
	"github.com/okian/hoopfuse/internal/domain/model"
)

const (
	hoopAlignWindow     = 2.0
	crossingWindow      = 2.0
	crossingFactor      = 0.75
	estimateMadePercent = 40
	estimateConfidence  = 0.45
	estimateDelay       = 0.5
)

// ScoresFromVisual confirms shots by a ball dropping through the lower half of
// a nearby hoop. When the clip has no ball or no hoop data at all, a
// deterministic estimator marks a fixed share of shots as made.
func (d *Detector) ScoresFromVisual(ctx context.Context, s *model.Signals, shots []model.GameEvent) []model.GameEvent {
	if s == nil || len(shots) == 0 {
		return nil
	}
	if s.Balls.CountWithDetections() == 0 || s.Hoops.CountWithDetections() == 0 {
		d.insufficient(ctx, InsufficientSignal{
			Detector: "score",
			Reason:   "no ball or hoop detections in clip",
			Fallback: SourceStatistical,
		})
		return d.estimateScores(ctx, shots)
	}

	var out []model.GameEvent
	for _, shot := range shots {
		hoop, ok := bestHoop(s.Hoops.Window(shot.Timestamp-hoopAlignWindow, shot.Timestamp+hoopAlignWindow))
		if !ok {
			continue
		}
		ts, ok := ballCrossing(s.Balls, hoop.Box, shot.Timestamp)
		if !ok {
			continue
		}
		st := shotTypeOrDefault(shot.ShotType)
		out = d.emit(ctx, out, model.KindScore, model.EventParams{
			TeamID:     shot.TeamID,
			PlayerID:   shot.PlayerID,
			Timestamp:  ts,
			Confidence: confidence.Scale(hoop.Confidence, crossingFactor),
			Source:     SourceVisual,
			ScoreDelta: st.Points(),
			ShotType:   st,
		})
	}
	return out
}

// ballCrossing finds the first frame in (t, t+crossingWindow] where the ball is
// inside the hoop's lower half and lower than in the previous frame.
func ballCrossing(balls model.Stream[model.BallDetection], hoop model.BBox, t float64) (float64, bool) {
	target := hoop.LowerHalf()
	var prevY float64
	havePrev := false
	for _, f := range balls.Window(t, t+crossingWindow) {
		b, ok := bestBall(f.Detections)
		if !ok {
			continue
		}
		c := b.Box.Center()
		if f.Timestamp > t && havePrev && c.Y > prevY && target.Contains(c) {
			return f.Timestamp, true
		}
		prevY, havePrev = c.Y, true
	}
	return 0, false
}

func (d *Detector) estimateScores(ctx context.Context, shots []model.GameEvent) []model.GameEvent {
	var out []model.GameEvent
	for _, shot := range shots {
		if !estimatedMade(shot.Timestamp) {
			continue
		}
		st := shotTypeOrDefault(shot.ShotType)
		out = d.emit(ctx, out, model.KindScore, model.EventParams{
			TeamID:     shot.TeamID,
			PlayerID:   shot.PlayerID,
			Timestamp:  shot.Timestamp + estimateDelay,
			Confidence: estimateConfidence,
			Source:     SourceStatistical,
			ScoreDelta: st.Points(),
			ShotType:   st,
			Notes:      "statistical estimate, not visually confirmed",
		})
	}
	return out
}

// estimatedMade selects shots by hashing the timestamp bits, so the same clip
// always yields the same estimate.
func estimatedMade(ts float64) bool {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(ts))
	return xxhash.Sum64(buf[:])%100 < estimateMadePercent
}

func shotTypeOrDefault(st model.ShotType) model.ShotType {
	if st == model.ShotNone {
		return model.Shot2PT
	}
	return st
}
