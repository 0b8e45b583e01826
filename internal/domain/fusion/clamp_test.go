package fusion

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hoopfuse/internal/domain/model"
)

func TestClampToClip(t *testing.T) {
	Convey("Given events inside and past a 10 s clip", t, func() {
		inside, err := model.NewEvent(model.KindShotAttempt, model.EventParams{TeamID: model.TeamA, Timestamp: 4, Confidence: 0.7, Source: "candidate"})
		So(err, ShouldBeNil)
		late, err := model.NewEvent(model.KindMissedShot, model.EventParams{TeamID: model.TeamB, Timestamp: 10.4, Confidence: 0.5, Source: "shot-without-score"})
		So(err, ShouldBeNil)

		out := clampToClip([]model.GameEvent{inside, late}, 10)

		Convey("Then only the late event moves and is annotated", func() {
			So(out[0], ShouldResemble, inside)
			So(out[1].Timestamp, ShouldEqual, 10)
			So(out[1].Notes, ShouldContainSubstring, "clamped to clip end")
		})
	})
}
