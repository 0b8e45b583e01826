package loadtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/hoopfuse/internal/app"
	"github.com/okian/hoopfuse/internal/config"
	"github.com/okian/hoopfuse/internal/server"
	"github.com/okian/hoopfuse/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func startService(t *testing.T, queueSize int) *httptest.Server {
	t.Helper()
	cfg := config.New()
	cfg.WorkerCount = 2
	cfg.QueueSize = queueSize
	cfg.DedupeSize = 1000

	svc := service.New(service.FromConfig(cfg)...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(server.NewHandler(svc, cfg))
	t.Cleanup(func() {
		ts.Close()
		svc.Stop()
	})
	return ts
}

func TestRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	Convey("Given a running service", t, func() {
		ts := startService(t, 64)

		Convey("When a small load test runs", func() {
			stats, err := Run(ctx, &Config{
				BaseURL:      ts.URL,
				Games:        6,
				Plays:        4,
				Seed:         100,
				Workers:      3,
				PollInterval: 10 * time.Millisecond,
				Wait:         30 * time.Second,
			})

			Convey("Then every game completes with the locally computed events", func() {
				So(err, ShouldBeNil)
				So(stats.Games, ShouldEqual, 6)
				So(stats.Accepted, ShouldEqual, 6)
				So(stats.Completed, ShouldEqual, 6)
				So(stats.Mismatched, ShouldEqual, 0)
				So(stats.Unfinished, ShouldEqual, 0)
				So(stats.GamesPerSecond(), ShouldBeGreaterThan, 0)
			})

			Convey("Then running the same seeds again only finds duplicates", func() {
				again, err := Run(ctx, &Config{BaseURL: ts.URL, Games: 6, Plays: 4, Seed: 100, PollInterval: 10 * time.Millisecond})
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldEqual, 6)
				So(again.Accepted, ShouldEqual, 0)
				So(again.Completed, ShouldEqual, 6)
			})
		})
	})

	Convey("Given an unreachable service", t, func() {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()

		Convey("Then the health check fails", func() {
			_, err := Run(ctx, &Config{BaseURL: ts.URL, Games: 1, Timeout: time.Second})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "health check")
		})
	})
}

func TestConfigDefaults(t *testing.T) {
	Convey("Given an empty config", t, func() {
		cfg := (&Config{Retries: -3}).withDefaults()

		Convey("Then every knob has a usable value", func() {
			So(cfg.Games, ShouldEqual, 20)
			So(cfg.Plays, ShouldEqual, 6)
			So(cfg.Workers, ShouldEqual, 4)
			So(cfg.Timeout, ShouldEqual, 30*time.Second)
			So(cfg.PollInterval, ShouldEqual, 100*time.Millisecond)
			So(cfg.Wait, ShouldEqual, 2*time.Minute)
			So(cfg.Retries, ShouldEqual, 0)
		})
	})

	Convey("Given no elapsed time", t, func() {
		So((&Stats{Completed: 3}).GamesPerSecond(), ShouldEqual, 0)
	})
}
