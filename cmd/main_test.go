package main

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/hoopfuse/internal/config"
)

func TestRun(t *testing.T) {
	convey.Convey("Given an invalid environment", t, func() {
		_ = os.Setenv("HOOPFUSE_STORE", "postgres")
		defer func() { _ = os.Unsetenv("HOOPFUSE_STORE") }()

		convey.Convey("Then run fails before serving", func() {
			err := run(context.Background())
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given an unknown log format", t, func() {
		_ = os.Setenv("HOOPFUSE_LOG_FORMAT", "xml")
		defer func() { _ = os.Unsetenv("HOOPFUSE_LOG_FORMAT") }()

		convey.Convey("Then run reports it", func() {
			err := run(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "unknown log format")
		})
	})

	convey.Convey("Given a valid environment and a short-lived context", t, func() {
		_ = os.Setenv("HOOPFUSE_ADDR", "127.0.0.1:0")
		_ = os.Setenv("HOOPFUSE_LOG_LEVEL", "loud")
		_ = os.Setenv("HOOPFUSE_WORKER_COUNT", "1")
		defer func() {
			_ = os.Unsetenv("HOOPFUSE_ADDR")
			_ = os.Unsetenv("HOOPFUSE_LOG_LEVEL")
			_ = os.Unsetenv("HOOPFUSE_WORKER_COUNT")
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		convey.Convey("Then the server starts, falls back to info and stops cleanly", func() {
			convey.So(run(ctx), convey.ShouldBeNil)
		})
	})
}
