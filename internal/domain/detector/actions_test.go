package detector

import (
	"context"
	"testing"

	"github.com/okian/hoopfuse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// raisedArms builds a pose centered on (cx, cy) with both wrists above the shoulders.
func raisedArms(team model.TeamID, player string, cx, cy float64) model.PoseFrame {
	kps := make([]model.Keypoint, model.KeypointCount)
	kps[model.KeypointLeftShoulder] = model.Keypoint{X: cx - 20, Y: cy - 40, Confidence: 0.9}
	kps[model.KeypointRightShoulder] = model.Keypoint{X: cx + 20, Y: cy - 40, Confidence: 0.9}
	kps[model.KeypointLeftWrist] = model.Keypoint{X: cx - 25, Y: cy - 90, Confidence: 0.8}
	kps[model.KeypointRightWrist] = model.Keypoint{X: cx + 25, Y: cy - 90, Confidence: 0.8}
	return model.PoseFrame{Keypoints: kps, Box: boxAt(cx, cy, 60, 160), TeamID: team, PlayerID: player}
}

func TestBlocks(t *testing.T) {
	ctx := context.Background()
	d := newTestDetector(&recorder{})
	shot := shotAt(model.TeamA, "4", 5, 600, 400)

	Convey("Given a defender contesting with both arms up", t, func() {
		s := testClip()
		s.Poses = model.Stream[model.PoseFrame]{{
			Timestamp: 5.1,
			Detections: []model.PoseFrame{
				raisedArms(model.TeamB, "33", 700, 380),
				raisedArms(model.TeamB, "34", 650, 380),
			},
		}}

		blocks := d.Blocks(ctx, s, []model.GameEvent{shot})

		Convey("Then the closest defender is credited once", func() {
			So(len(blocks), ShouldEqual, 1)
			So(blocks[0].Kind, ShouldEqual, model.KindBlock)
			So(blocks[0].TeamID, ShouldEqual, model.TeamB)
			So(blocks[0].PlayerID, ShouldEqual, "34")
			So(blocks[0].Timestamp, ShouldEqual, 5.1)
			So(blocks[0].Confidence, ShouldBeGreaterThan, 0)
		})
	})

	Convey("Given only a teammate with raised arms", t, func() {
		s := testClip()
		s.Poses = model.Stream[model.PoseFrame]{{Timestamp: 5, Detections: []model.PoseFrame{raisedArms(model.TeamA, "5", 620, 400)}}}
		So(d.Blocks(ctx, s, []model.GameEvent{shot}), ShouldBeEmpty)
	})

	Convey("Given a defender with arms down", t, func() {
		s := testClip()
		p := raisedArms(model.TeamB, "33", 620, 400)
		p.Keypoints[model.KeypointLeftWrist].Y = 500
		s.Poses = model.Stream[model.PoseFrame]{{Timestamp: 5, Detections: []model.PoseFrame{p}}}
		So(d.Blocks(ctx, s, []model.GameEvent{shot}), ShouldBeEmpty)
	})
}

func TestRimAttempts(t *testing.T) {
	ctx := context.Background()
	d := newTestDetector(&recorder{})

	Convey("Given a hoop and shots at different distances", t, func() {
		s := testClip()
		s.Hoops = model.Stream[model.HoopRegion]{{
			Timestamp:  2,
			Detections: []model.HoopRegion{{Box: model.BBox{X: 600, Y: 100, W: 80, H: 60}, Confidence: 0.9}},
		}}
		shots := []model.GameEvent{
			shotAt(model.TeamA, "1", 2, 650, 200),
			shotAt(model.TeamA, "2", 2.5, 700, 300),
			shotAt(model.TeamA, "3", 2.5, 1000, 500),
			shotAt(model.TeamA, "4", 9, 650, 200),
		}

		events := d.RimAttempts(ctx, s, shots)

		Convey("Then the player under the rim dunks and the nearby one lays up", func() {
			So(kinds(events), ShouldResemble, []model.EventKind{model.KindDunk, model.KindLayup})
			So(events[0].PlayerID, ShouldEqual, "1")
			So(events[1].PlayerID, ShouldEqual, "2")
			So(events[0].ShotType, ShouldEqual, model.Shot2PT)
			So(events[0].Source, ShouldEqual, SourceHoopProximity)
		})
	})
}

func TestFoulShots(t *testing.T) {
	ctx := context.Background()
	d := newTestDetector(&recorder{})
	shot := shotAt(model.TeamA, "10", 3, 640, 500)

	stillBall := model.Stream[model.BallDetection]{
		ballAt(2.1, 640, 420),
		ballAt(2.4, 642, 421),
		ballAt(2.7, 641, 419),
	}

	Convey("Given an isolated shooter holding a still ball", t, func() {
		s := testClip()
		s.Balls = stillBall
		s.Persons = model.Stream[model.PersonDetection]{personsAt(3, personAt(model.TeamB, "1", 1000, 500))}

		tagged, fouls := d.FoulShots(ctx, s, []model.GameEvent{shot})

		Convey("Then a 1pt foul shot is emitted and the shot re-tagged", func() {
			So(len(fouls), ShouldEqual, 1)
			So(fouls[0].Kind, ShouldEqual, model.KindFoulShot)
			So(fouls[0].ShotType, ShouldEqual, model.Shot1PT)
			So(fouls[0].PlayerID, ShouldEqual, "10")
			So(tagged[0].ShotType, ShouldEqual, model.Shot1PT)
			So(shot.ShotType, ShouldEqual, model.ShotNone)
		})
	})

	Convey("Given a defender close to the shooter", t, func() {
		s := testClip()
		s.Balls = stillBall
		s.Persons = model.Stream[model.PersonDetection]{personsAt(3, personAt(model.TeamB, "1", 700, 500))}
		tagged, fouls := d.FoulShots(ctx, s, []model.GameEvent{shot})
		So(fouls, ShouldBeEmpty)
		So(tagged[0].ShotType, ShouldEqual, model.ShotNone)
	})

	Convey("Given a moving ball", t, func() {
		s := testClip()
		s.Balls = model.Stream[model.BallDetection]{ballAt(2.1, 600, 420), ballAt(2.4, 640, 420), ballAt(2.7, 680, 420)}
		_, fouls := d.FoulShots(ctx, s, []model.GameEvent{shot})
		So(fouls, ShouldBeEmpty)
	})

	Convey("Given too few ball frames", t, func() {
		s := testClip()
		s.Balls = stillBall[:2]
		_, fouls := d.FoulShots(ctx, s, []model.GameEvent{shot})
		So(fouls, ShouldBeEmpty)
	})
}

func TestDribbles(t *testing.T) {
	ctx := context.Background()
	d := newTestDetector(&recorder{})

	Convey("Given reversal counting", t, func() {
		So(countReversals([]float64{0, 10, 0, 10, 0}), ShouldEqual, 3)
		So(countReversals([]float64{0, 2, 0, 2, 0}), ShouldEqual, 0)
		So(countReversals([]float64{0, 10, 20, 30}), ShouldEqual, 0)
	})

	Convey("Given a ball bouncing next to one player", t, func() {
		s := testClip()
		for i := 0; i < 10; i++ {
			ts := float64(i) / 10
			y := 400.0
			if i%2 == 1 {
				y = 420
			}
			s.Balls = append(s.Balls, ballAt(ts, 500, y))
			s.Persons = append(s.Persons, personsAt(ts, personAt(model.TeamB, "3", 520, 400)))
		}

		dribbles := d.Dribbles(ctx, s)

		Convey("Then one dribble is credited to that player", func() {
			So(len(dribbles), ShouldEqual, 1)
			So(dribbles[0].TeamID, ShouldEqual, model.TeamB)
			So(dribbles[0].PlayerID, ShouldEqual, "3")
			So(dribbles[0].Timestamp, ShouldEqual, 0)
			So(dribbles[0].Source, ShouldEqual, SourceBallOscillation)
		})

		Convey("Then a steady ball is not a dribble", func() {
			for i := range s.Balls {
				s.Balls[i] = ballAt(s.Balls[i].Timestamp, 500, 400)
			}
			So(d.Dribbles(ctx, s), ShouldBeEmpty)
		})
	})

	Convey("Given fewer than ten ball frames", t, func() {
		s := testClip()
		s.Balls = model.Stream[model.BallDetection]{ballAt(0, 500, 400), ballAt(0.1, 500, 420)}
		So(d.Dribbles(ctx, s), ShouldBeEmpty)
	})
}
