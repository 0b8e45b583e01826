package finalize_test

import (
	"fmt"
	"testing"

	"github.com/okian/hoopfuse/internal/domain/finalize"
	"github.com/okian/hoopfuse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func ev(kind model.EventKind, ts, conf float64) model.GameEvent {
	return mustEvent(kind, model.EventParams{TeamID: model.TeamA, Timestamp: ts, Confidence: conf})
}

func TestApply(t *testing.T) {
	Convey("Given unsorted events around the floor", t, func() {
		in := []model.GameEvent{
			ev(model.KindPass, 3, 0.9),
			ev(model.KindDribble, 1, 0.29),
			ev(model.KindShotAttempt, 2, 0.3),
			ev(model.KindSteal, 2, 0.5),
			ev(model.KindBlock, 0.5, 0.8),
		}

		for _, floor := range []float64{0.3, 0.45} {
			kept, dropped := finalize.Apply(in, floor)

			Convey("Then no kept event is below the floor "+fmt.Sprintf("(floor %.2f)", floor), func() {
				for _, e := range kept {
					So(e.Confidence, ShouldBeGreaterThanOrEqualTo, floor)
				}
				So(len(kept)+dropped, ShouldEqual, len(in))
			})

			Convey("Then kept events are ordered by time "+fmt.Sprintf("(floor %.2f)", floor), func() {
				for i := 1; i < len(kept); i++ {
					So(kept[i].Timestamp, ShouldBeGreaterThanOrEqualTo, kept[i-1].Timestamp)
				}
			})
		}

		Convey("Then the floor is inclusive and ties keep input order", func() {
			kept, dropped := finalize.Apply(in, 0.3)
			So(dropped, ShouldEqual, 1)
			So(len(kept), ShouldEqual, 4)
			So(kept[1].Kind, ShouldEqual, model.KindShotAttempt)
			So(kept[2].Kind, ShouldEqual, model.KindSteal)
			So(in[0].Kind, ShouldEqual, model.KindPass)
		})

		Convey("Then a zero floor keeps everything", func() {
			kept, dropped := finalize.Apply(in, 0)
			So(dropped, ShouldEqual, 0)
			So(len(kept), ShouldEqual, len(in))
		})
	})

	Convey("Given no events", t, func() {
		kept, dropped := finalize.Apply(nil, 0.3)
		So(kept, ShouldBeEmpty)
		So(dropped, ShouldEqual, 0)
	})
}

func mustEvent(kind model.EventKind, p model.EventParams) model.GameEvent {
	e, err := model.NewEvent(kind, p)
	if err != nil {
		panic(err)
	}
	return e
}
