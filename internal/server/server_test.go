package server

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/hoopfuse/internal/config"
	"github.com/okian/hoopfuse/pkg/logger"
	"github.com/okian/hoopfuse/pkg/metrics"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestRun(t *testing.T) {
	convey.Convey("Given a server on an ephemeral port", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.WorkerCount = 1
		cfg.MetricsPrefix = "edge"
		cfg.MetricsRefresh = 2 * time.Second
		cfg.MetricsLabels = map[string]string{"site": "arena"}

		ctx, cancel := context.WithCancel(context.Background())
		ready := make(chan string, 1)
		stopped := make(chan struct{})
		var runErr error
		go func() {
			runErr = Run(ctx, cfg, ready)
			close(stopped)
		}()

		var addr string
		select {
		case addr = <-ready:
		case <-stopped:
			t.Fatalf("server exited early: %v", runErr)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not start")
		}

		convey.Convey("When the routes are called", func() {
			health, err := http.Get("http://" + addr + "/healthz")
			convey.So(err, convey.ShouldBeNil)
			_ = health.Body.Close()

			fuse, err := http.Post("http://"+addr+"/fuse", "application/json",
				strings.NewReader(`{"signals":{"fps":10,"frameWidth":1280,"frameHeight":720}}`))
			convey.So(err, convey.ShouldBeNil)
			body, _ := io.ReadAll(fuse.Body)
			_ = fuse.Body.Close()

			docs, err := http.Get("http://" + addr + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			_ = docs.Body.Close()

			convey.Convey("Then each answers", func() {
				convey.So(health.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(fuse.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(string(body), convey.ShouldContainSubstring, `"events":[]`)
				convey.So(docs.StatusCode, convey.ShouldEqual, http.StatusOK)
			})

			convey.Convey("Then metrics follow the configured naming", func() {
				convey.So(metrics.Global().RefreshInterval(), convey.ShouldEqual, 2*time.Second)
				families, err := metrics.GetRegistry().Gather()
				convey.So(err, convey.ShouldBeNil)
				var labelled bool
				for _, f := range families {
					if f.GetName() != "hoopfuse_fusion_edge_duration_milliseconds" {
						continue
					}
					for _, l := range f.GetMetric()[0].GetLabel() {
						labelled = labelled || (l.GetName() == "site" && l.GetValue() == "arena")
					}
				}
				convey.So(labelled, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			cancel()

			convey.Convey("Then the server shuts down cleanly", func() {
				select {
				case <-stopped:
					convey.So(runErr, convey.ShouldBeNil)
				case <-time.After(10 * time.Second):
					convey.So("server still running", convey.ShouldBeEmpty)
				}
			})
		})

		cancel()
		<-stopped
	})
}
