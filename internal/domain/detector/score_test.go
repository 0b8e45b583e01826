package detector

import (
	"context"
	"testing"

	"github.com/okian/hoopfuse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func readings(rs ...[3]float64) []model.ScoreReading {
	out := make([]model.ScoreReading, len(rs))
	for i, r := range rs {
		out[i] = model.ScoreReading{Timestamp: r[0], TeamA: int(r[1]), TeamB: int(r[2]), Confidence: 0.9}
	}
	return out
}

func TestScoresFromOCR(t *testing.T) {
	ctx := context.Background()

	Convey("Given a two point jump after an untyped teamA shot", t, func() {
		d := newTestDetector(&recorder{})
		s := testClip()
		s.ScoreReadings = readings([3]float64{5, 0, 0}, [3]float64{6, 2, 0}, [3]float64{7, 2, 0})
		shots := []model.GameEvent{shotAt(model.TeamA, "12", 5.5, 640, 400)}

		scores := d.ScoresFromOCR(ctx, s, shots, nil)

		Convey("Then one confirmed 2pt score is attributed to teamA", func() {
			So(len(scores), ShouldEqual, 1)
			sc := scores[0]
			So(sc.Kind, ShouldEqual, model.KindScore)
			So(sc.TeamID, ShouldEqual, model.TeamA)
			So(sc.ScoreDelta, ShouldEqual, 2)
			So(sc.ShotType, ShouldEqual, model.Shot2PT)
			So(sc.PlayerID, ShouldEqual, "12")
			So(sc.Timestamp, ShouldEqual, 6)
			So(sc.Confidence, ShouldAlmostEqual, 1.0, 1e-9)
		})
	})

	Convey("Given a low-confidence board change", t, func() {
		shots := []model.GameEvent{shotAt(model.TeamA, "12", 5.5, 640, 400)}
		dim := func(rs []model.ScoreReading) []model.ScoreReading {
			for i := range rs {
				rs[i].Confidence = 0.5
			}
			return rs
		}

		single := testClip()
		single.ScoreReadings = dim(readings([3]float64{5, 0, 0}, [3]float64{6, 2, 0}))
		confirmed := testClip()
		confirmed.ScoreReadings = dim(readings([3]float64{5, 0, 0}, [3]float64{6, 2, 0}, [3]float64{7, 2, 0}))

		a := newTestDetector(&recorder{}).ScoresFromOCR(ctx, single, shots, nil)
		b := newTestDetector(&recorder{}).ScoresFromOCR(ctx, confirmed, shots, nil)

		Convey("Then a confirming reading adds a flat 0.1", func() {
			So(len(a), ShouldEqual, 1)
			So(len(b), ShouldEqual, 1)
			So(a[0].Confidence, ShouldAlmostEqual, 0.73, 1e-9)
			So(b[0].Confidence-a[0].Confidence, ShouldAlmostEqual, 0.1, 1e-9)
		})
	})

	Convey("Given noisy readings", t, func() {
		d := newTestDetector(&recorder{})
		s := testClip()
		s.ScoreReadings = readings(
			[3]float64{1, 0, 0},
			[3]float64{2, 5, 0},
			[3]float64{3, 7, 2},
			[3]float64{4, 6, 2},
		)

		Convey("Then jumps above three, simultaneous rises and drops are ignored", func() {
			So(d.ScoresFromOCR(ctx, s, nil, nil), ShouldBeEmpty)
		})
	})

	Convey("Given readings out of order", t, func() {
		d := newTestDetector(&recorder{})
		s := testClip()
		s.ScoreReadings = readings([3]float64{9, 0, 3}, [3]float64{8, 0, 0})

		Convey("Then they are sorted before differencing", func() {
			scores := d.ScoresFromOCR(ctx, s, nil, nil)
			So(len(scores), ShouldEqual, 1)
			So(scores[0].TeamID, ShouldEqual, model.TeamB)
			So(scores[0].ShotType, ShouldEqual, model.Shot3PT)
			So(scores[0].ScoreDelta, ShouldEqual, 3)
		})
	})

	Convey("Given fewer than two readings", t, func() {
		s := testClip()
		s.ScoreReadings = readings([3]float64{1, 2, 0})
		So(newTestDetector(&recorder{}).ScoresFromOCR(ctx, s, nil, nil), ShouldBeEmpty)
	})

	Convey("Given players crowding the hoop when the board changes", t, func() {
		d := newTestDetector(&recorder{})
		s := testClip()
		s.ScoreReadings = readings([3]float64{5, 0, 0}, [3]float64{6, 2, 0})
		s.Persons = model.Stream[model.PersonDetection]{
			personsAt(6, personAt(model.TeamB, "1", 500, 150), personAt(model.TeamB, "2", 600, 150), personAt(model.TeamB, "3", 700, 150)),
		}

		Convey("Then a clear majority overrides the scoreboard team", func() {
			scores := d.ScoresFromOCR(ctx, s, nil, nil)
			So(scores[0].TeamID, ShouldEqual, model.TeamB)
			So(scores[0].Notes, ShouldEqual, "team from hoop-region vote")
		})

		Convey("Then a split vote falls back to the scoreboard team", func() {
			s.Persons[0].Detections = append(s.Persons[0].Detections,
				personAt(model.TeamA, "4", 800, 150), personAt(model.TeamA, "5", 900, 150), personAt(model.TeamA, "6", 1000, 150))
			scores := d.ScoresFromOCR(ctx, s, nil, nil)
			So(scores[0].TeamID, ShouldEqual, model.TeamA)
			So(scores[0].Notes, ShouldEqual, "team from scoreboard")
		})
	})
}

func TestScoreTyping(t *testing.T) {
	Convey("Given score typing", t, func() {
		three := shotAt(model.TeamA, "3", 9, 640, 650).WithShotType(model.Shot3PT)
		two := shotAt(model.TeamA, "2", 9, 640, 400)
		free := shotAt(model.TeamA, "1", 9, 640, 400).WithShotType(model.Shot1PT)
		foul := mustEvent(model.KindFoulShot, model.EventParams{TeamID: model.TeamA, Timestamp: 9, ShotType: model.Shot1PT})

		Convey("Then a 3pt-tagged shot types the score 3pt", func() {
			st, conf, player := typeScore([]model.GameEvent{three}, nil, model.TeamA, 10, 3)
			So(st, ShouldEqual, model.Shot3PT)
			So(conf, ShouldEqual, typedFromThreeShot)
			So(player, ShouldEqual, "3")
		})

		Convey("Then an untyped shot types a two point score", func() {
			st, conf, _ := typeScore([]model.GameEvent{two}, nil, model.TeamA, 10, 2)
			So(st, ShouldEqual, model.Shot2PT)
			So(conf, ShouldEqual, typedFromShot)
		})

		Convey("Then a disagreeing shot falls back to the raw delta", func() {
			st, conf, _ := typeScore([]model.GameEvent{two}, nil, model.TeamA, 10, 3)
			So(st, ShouldEqual, model.Shot3PT)
			So(conf, ShouldEqual, typedFromDelta3)
		})

		Convey("Then a shot outside the look-back window is ignored", func() {
			st, conf, player := typeScore([]model.GameEvent{two}, nil, model.TeamA, 13, 2)
			So(st, ShouldEqual, model.Shot2PT)
			So(conf, ShouldEqual, typedFromDelta2)
			So(player, ShouldBeEmpty)
		})

		Convey("Then one point scores use the foul shot path", func() {
			st, conf, _ := typeScore([]model.GameEvent{free}, nil, model.TeamA, 10, 1)
			So(st, ShouldEqual, model.Shot1PT)
			So(conf, ShouldEqual, typedFromFoulShot)

			st, conf, _ = typeScore(nil, []model.GameEvent{foul}, model.TeamA, 10, 1)
			So(st, ShouldEqual, model.Shot1PT)
			So(conf, ShouldEqual, typedFromFoulShot)

			st, conf, _ = typeScore(nil, nil, model.TeamA, 10, 1)
			So(st, ShouldEqual, model.Shot1PT)
			So(conf, ShouldEqual, typedFromDelta1)
		})
	})
}

func TestScoresFromVisual(t *testing.T) {
	ctx := context.Background()
	hoop := model.HoopRegion{Box: model.BBox{X: 600, Y: 100, W: 80, H: 60}, Confidence: 0.8}

	Convey("Given a ball dropping through the hoop after a shot", t, func() {
		r := &recorder{}
		d := newTestDetector(r)
		s := testClip()
		s.Hoops = model.Stream[model.HoopRegion]{{Timestamp: 1, Detections: []model.HoopRegion{hoop}}}
		s.Balls = model.Stream[model.BallDetection]{
			ballAt(1.0, 640, 50),
			ballAt(1.1, 640, 120),
			ballAt(1.2, 640, 145),
		}
		shots := []model.GameEvent{shotAt(model.TeamA, "8", 1, 640, 400)}

		scores := d.ScoresFromVisual(ctx, s, shots)

		Convey("Then a visual score is emitted at the crossing", func() {
			So(len(scores), ShouldEqual, 1)
			So(scores[0].Timestamp, ShouldEqual, 1.2)
			So(scores[0].Confidence, ShouldAlmostEqual, 0.6, 1e-9)
			So(scores[0].ShotType, ShouldEqual, model.Shot2PT)
			So(scores[0].ScoreDelta, ShouldEqual, 2)
			So(scores[0].PlayerID, ShouldEqual, "8")
			So(scores[0].Source, ShouldEqual, SourceVisual)
			So(r.warnings, ShouldBeEmpty)
		})

		Convey("Then a 3pt-tagged shot keeps its type", func() {
			scores := d.ScoresFromVisual(ctx, s, []model.GameEvent{shots[0].WithShotType(model.Shot3PT)})
			So(scores[0].ScoreDelta, ShouldEqual, 3)
		})

		Convey("Then a ball rising through the hoop is not a score", func() {
			s.Balls = model.Stream[model.BallDetection]{ballAt(1.1, 640, 150), ballAt(1.2, 640, 135)}
			So(d.ScoresFromVisual(ctx, s, shots), ShouldBeEmpty)
		})
	})

	Convey("Given many shots and no ball data", t, func() {
		r := &recorder{}
		d := newTestDetector(r)
		s := testClip()
		var shots []model.GameEvent
		for i := 0; i < 200; i++ {
			shots = append(shots, shotAt(model.TeamB, "", float64(i)*1.7, 640, 400))
		}

		first := d.ScoresFromVisual(ctx, s, shots)
		second := d.ScoresFromVisual(ctx, s, shots)

		Convey("Then about forty percent are estimated made, deterministically", func() {
			So(len(first), ShouldBeBetween, 50, 110)
			So(second, ShouldResemble, first)
			for _, sc := range first {
				So(sc.Confidence, ShouldEqual, estimateConfidence)
				So(sc.Source, ShouldEqual, SourceStatistical)
				So(sc.Notes, ShouldContainSubstring, "not visually confirmed")
			}
			So(r.fallbacks(), ShouldResemble, []string{SourceStatistical, SourceStatistical})
		})
	})

	Convey("Given the estimator selection", t, func() {
		So(estimatedMade(12.5), ShouldEqual, estimatedMade(12.5))
	})

	Convey("Given no shots", t, func() {
		So(newTestDetector(&recorder{}).ScoresFromVisual(ctx, testClip(), nil), ShouldBeEmpty)
	})
}
