package detector

import (
	"github.com/okian/hoopfuse/internal/domain/model"
	"github.com/okian/hoopfuse/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// recorder collects fallback activations for assertions.
type recorder struct {
	warnings []InsufficientSignal
}

func (r *recorder) fallbacks() []string {
	out := make([]string, len(r.warnings))
	for i, w := range r.warnings {
		out[i] = w.Fallback
	}
	return out
}

func newTestDetector(r *recorder, opts ...Option) *Detector {
	base := []Option{
		WithRecorder(func(string, string) {}),
		WithInsufficientSignalHook(func(w InsufficientSignal) { r.warnings = append(r.warnings, w) }),
	}
	return New(append(base, opts...)...)
}

func testClip() *model.Signals {
	return &model.Signals{FPS: 10, FrameWidth: 1280, FrameHeight: 720}
}

// boxAt builds a w x h box centered on (cx, cy).
func boxAt(cx, cy, w, h float64) model.BBox {
	return model.BBox{X: cx - w/2, Y: cy - h/2, W: w, H: h}
}

func ballAt(ts, cx, cy float64) model.DetectionFrame[model.BallDetection] {
	return model.DetectionFrame[model.BallDetection]{
		FrameIndex: int(ts * 10),
		Timestamp:  ts,
		Detections: []model.BallDetection{{Box: boxAt(cx, cy, 20, 20), Confidence: 0.9}},
	}
}

func personAt(team model.TeamID, player string, cx, cy float64) model.PersonDetection {
	return model.PersonDetection{Box: boxAt(cx, cy, 60, 160), Confidence: 0.9, TeamID: team, PlayerID: player}
}

func personsAt(ts float64, persons ...model.PersonDetection) model.DetectionFrame[model.PersonDetection] {
	return model.DetectionFrame[model.PersonDetection]{FrameIndex: int(ts * 10), Timestamp: ts, Detections: persons}
}

func shotAt(team model.TeamID, player string, ts, cx, cy float64) model.GameEvent {
	b := boxAt(cx, cy, 60, 160)
	return mustEvent(model.KindShotAttempt, model.EventParams{
		TeamID:     team,
		PlayerID:   player,
		Timestamp:  ts,
		Confidence: 0.7,
		Source:     SourcePoseBall,
		Box:        &b,
	})
}

func scoreAt(team model.TeamID, player string, ts float64) model.GameEvent {
	return mustEvent(model.KindScore, model.EventParams{
		TeamID:     team,
		PlayerID:   player,
		Timestamp:  ts,
		Confidence: 0.8,
		Source:     SourceOCR,
		ScoreDelta: 2,
		ShotType:   model.Shot2PT,
	})
}

func kinds(events []model.GameEvent) []model.EventKind {
	out := make([]model.EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func mustEvent(kind model.EventKind, p model.EventParams) model.GameEvent {
	e, err := model.NewEvent(kind, p)
	if err != nil {
		panic(err)
	}
	return e
}
