package api

import (
	"errors"
	"io"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestErrors(t *testing.T) {
	Convey("Given operation-tagged errors", t, func() {
		kind := NewKind("api.fuse", ErrBackpressure)
		wrapped := WrapKind("api.fuse", ErrBadRequest, io.ErrUnexpectedEOF)
		plain := Wrap("api.get_job", io.EOF)

		Convey("Then the kind and the cause both match", func() {
			So(errors.Is(kind, ErrBackpressure), ShouldBeTrue)
			So(errors.Is(wrapped, ErrBadRequest), ShouldBeTrue)
			So(errors.Is(wrapped, io.ErrUnexpectedEOF), ShouldBeTrue)
			So(errors.Is(plain, io.EOF), ShouldBeTrue)
		})

		Convey("Then the message starts with the operation", func() {
			So(kind.Error(), ShouldEqual, "api.fuse: backpressure")
			So(wrapped.Error(), ShouldEqual, "api.fuse: bad request: unexpected EOF")
			So(plain.Error(), ShouldEqual, "api.get_job: EOF")
		})

		Convey("Then wrapping nil stays nil", func() {
			So(Wrap("op", nil), ShouldBeNil)
		})
	})
}
