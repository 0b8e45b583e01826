package synth

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGame(t *testing.T) {
	Convey("Given a random game", t, func() {
		a := Game(17, 8).Build()

		Convey("Then it is a valid clip long enough for every play", func() {
			So(a.ValidateClip(), ShouldBeNil)
			So(a.Duration, ShouldBeGreaterThanOrEqualTo, 5+7*7)
			So(len(a.Persons), ShouldEqual, a.FrameCount)
		})

		Convey("Then the same seed replays the same game", func() {
			So(cmp.Diff(a, Game(17, 8).Build()), ShouldBeEmpty)
		})

		Convey("Then another seed scripts a different game", func() {
			So(cmp.Equal(a, Game(18, 8).Build()), ShouldBeFalse)
		})
	})
}
