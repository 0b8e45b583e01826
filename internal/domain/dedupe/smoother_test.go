package dedupe_test

import (
	"context"
	"math"
	"testing"

	dedupe "github.com/okian/hoopfuse/internal/domain/dedupe"
	"github.com/okian/hoopfuse/internal/domain/model"
	"github.com/okian/hoopfuse/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func event(kind model.EventKind, team model.TeamID, ts, conf float64, source string) model.GameEvent {
	return mustEvent(kind, model.EventParams{TeamID: team, Timestamp: ts, Confidence: conf, Source: source})
}

func TestTemporalSmoother(t *testing.T) {
	ctx := context.Background()

	Convey("Given two close shot attempts by the same team", t, func() {
		s := dedupe.NewTemporalSmoother()
		in := []model.GameEvent{
			event(model.KindShotAttempt, model.TeamA, 1.0, 0.6, "pose+ball-heuristic"),
			event(model.KindShotAttempt, model.TeamA, 1.3, 0.55, "pose+ball-heuristic"),
		}

		out, merged := s.Smooth(ctx, in)

		Convey("Then they merge at the median with the mean confidence", func() {
			So(merged, ShouldEqual, 1)
			So(len(out), ShouldEqual, 1)
			So(out[0].Kind, ShouldEqual, model.KindShotAttempt)
			So(out[0].Timestamp, ShouldAlmostEqual, 1.15, 1e-9)
			So(out[0].Confidence, ShouldAlmostEqual, 0.575, 1e-9)
			So(out[0].Source, ShouldEqual, "pose+ball-heuristic")
			So(out[0].Notes, ShouldContainSubstring, "merged 2 detections")
		})

		Convey("Then the input is left untouched", func() {
			So(in[0].Timestamp, ShouldEqual, 1.0)
			So(in[1].Timestamp, ShouldEqual, 1.3)
		})

		Convey("Then smoothing again changes nothing", func() {
			again, merged := s.Smooth(ctx, out)
			So(merged, ShouldEqual, 0)
			So(again, ShouldResemble, out)
		})
	})

	Convey("Given events that differ in kind, team or time", t, func() {
		s := dedupe.NewTemporalSmoother()
		in := []model.GameEvent{
			event(model.KindShotAttempt, model.TeamA, 1.0, 0.6, "a"),
			event(model.KindShotAttempt, model.TeamB, 1.1, 0.6, "a"),
			event(model.KindPass, model.TeamA, 1.2, 0.6, "a"),
			event(model.KindShotAttempt, model.TeamA, 2.1, 0.6, "a"),
		}

		Convey("Then nothing is merged", func() {
			out, merged := s.Smooth(ctx, in)
			So(merged, ShouldEqual, 0)
			So(out, ShouldResemble, in)
		})
	})

	Convey("Given a chain of detections each within the window of the next", t, func() {
		s := dedupe.NewTemporalSmoother()
		in := []model.GameEvent{
			event(model.KindDribble, model.TeamA, 0, 0.5, "a"),
			event(model.KindDribble, model.TeamA, 1.0, 0.7, "b"),
			event(model.KindDribble, model.TeamA, 1.5, 0.9, "a+c"),
			event(model.KindDribble, model.TeamA, 2.4, 0.4, "d"),
		}

		out, merged := s.Smooth(ctx, in)

		Convey("Then no two survivors are within the window", func() {
			So(merged, ShouldBeGreaterThan, 0)
			for i := range out {
				for j := i + 1; j < len(out); j++ {
					So(math.Abs(out[i].Timestamp-out[j].Timestamp), ShouldBeGreaterThan, s.Window())
				}
			}
		})

		Convey("Then sources are unioned in first-seen order", func() {
			So(len(out), ShouldEqual, 2)
			So(out[0].Source, ShouldEqual, "a+b")
			So(out[1].Source, ShouldEqual, "a+c+d")
			So(out[1].Timestamp, ShouldAlmostEqual, 1.95, 1e-9)
		})

		Convey("Then the result is stable under a second pass", func() {
			again, n := s.Smooth(ctx, out)
			So(n, ShouldEqual, 0)
			So(again, ShouldResemble, out)
		})
	})

	Convey("Given duplicate scores with different typing", t, func() {
		s := dedupe.NewTemporalSmoother()
		weak := mustEvent(model.KindScore, model.EventParams{
			TeamID: model.TeamB, Timestamp: 6, Confidence: 0.5, Source: "statistical-estimate", ScoreDelta: 2, ShotType: model.Shot2PT,
		})
		strong := mustEvent(model.KindScore, model.EventParams{
			TeamID: model.TeamB, PlayerID: "9", Timestamp: 6.4, Confidence: 0.9, Source: "ocr-scoreboard", ScoreDelta: 3, ShotType: model.Shot3PT,
		})

		out, _ := s.Smooth(ctx, []model.GameEvent{weak, strong})

		Convey("Then the merged score takes the most confident typing", func() {
			So(len(out), ShouldEqual, 1)
			So(out[0].ScoreDelta, ShouldEqual, 3)
			So(out[0].ShotType, ShouldEqual, model.Shot3PT)
			So(out[0].PlayerID, ShouldEqual, "9")
			So(out[0].Source, ShouldEqual, "statistical-estimate+ocr-scoreboard")
		})
	})

	Convey("Given a narrower window", t, func() {
		s := dedupe.NewTemporalSmoother(dedupe.WithWindow(0.2), dedupe.WithWindow(-1))
		in := []model.GameEvent{
			event(model.KindShotAttempt, model.TeamA, 1.0, 0.6, "a"),
			event(model.KindShotAttempt, model.TeamA, 1.3, 0.55, "a"),
		}

		Convey("Then events further apart than the window are kept", func() {
			So(s.Window(), ShouldEqual, 0.2)
			out, merged := s.Smooth(ctx, in)
			So(merged, ShouldEqual, 0)
			So(len(out), ShouldEqual, 2)
		})
	})

	Convey("Given no events", t, func() {
		out, merged := dedupe.NewTemporalSmoother().Smooth(ctx, nil)
		So(out, ShouldBeEmpty)
		So(merged, ShouldEqual, 0)
	})
}

func mustEvent(kind model.EventKind, p model.EventParams) model.GameEvent {
	e, err := model.NewEvent(kind, p)
	if err != nil {
		panic(err)
	}
	return e
}
