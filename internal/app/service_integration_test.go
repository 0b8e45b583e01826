package service_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hoopfuse/internal/adapters/mq/queue"
	"github.com/okian/hoopfuse/internal/adapters/repository"
	service "github.com/okian/hoopfuse/internal/app"
	"github.com/okian/hoopfuse/internal/domain/model"
	"github.com/okian/hoopfuse/internal/synth"
)

func game(seed uint64) *model.Signals {
	return synth.NewClip(seed).
		Made("teamA", "4", 5, 2).
		Missed("teamB", "21", 12, "teamA", "7").
		Made("teamA", "11", 18, 3).
		FreeThrow("teamB", "23", 25, true).
		Build()
}

func waitDone(ctx context.Context, svc *service.Service, id string) (repository.Result, error) {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		r, err := svc.Result(ctx, id)
		if err != nil {
			return r, err
		}
		if r.Status.Terminal() {
			return r, nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return repository.Result{}, fmt.Errorf("job %s did not finish", id)
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(100),
			service.WithDedupeSize(500),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a clip is submitted asynchronously", func() {
			id, dup, err := svc.Submit(ctx, "", game(11), model.DefaultOptions())
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)
			So(id, ShouldNotBeEmpty)

			Convey("Then the stored events match a synchronous run", func() {
				r, err := waitDone(ctx, svc, id)
				So(err, ShouldBeNil)
				So(r.Status, ShouldEqual, repository.StatusDone)

				want, err := svc.Fuse(ctx, game(11), model.DefaultOptions())
				So(err, ShouldBeNil)
				So(cmp.Diff(want, r.Events), ShouldBeEmpty)
				So(svc.GetStats()["storedResults"], ShouldEqual, 1)
			})
		})

		Convey("When the same job id is submitted twice", func() {
			_, firstDup, first := svc.Submit(ctx, "match-1", game(3), model.DefaultOptions())
			id, secondDup, second := svc.Submit(ctx, "match-1", game(3), model.DefaultOptions())

			Convey("Then the second submission is reported as a duplicate", func() {
				So(first, ShouldBeNil)
				So(firstDup, ShouldBeFalse)
				So(second, ShouldBeNil)
				So(secondDup, ShouldBeTrue)
				So(id, ShouldEqual, "match-1")
			})
		})

		Convey("When the options are invalid", func() {
			opts := model.DefaultOptions()
			opts.ConfidenceFloor = 2
			_, _, err := svc.Submit(ctx, "bad-floor", game(3), opts)

			Convey("Then nothing is queued", func() {
				So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
				_, getErr := svc.Result(ctx, "bad-floor")
				So(errors.Is(getErr, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When an unknown job is requested", func() {
			_, err := svc.Result(ctx, "nope")

			Convey("Then it is not found", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service with a tiny queue and one worker", t, func() {
		svc := service.New(service.WithWorkerCount(1), service.WithQueueSize(1))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		clip := game(5)

		Convey("When jobs arrive faster than they are fused", func() {
			var rejected string
			for i := 0; i < 200 && rejected == ""; i++ {
				id := fmt.Sprintf("burst-%d", i)
				if _, _, err := svc.Submit(ctx, id, clip, model.DefaultOptions()); errors.Is(err, queue.ErrFull) {
					rejected = id
				}
			}

			Convey("Then the queue pushes back and the id stays reusable", func() {
				So(rejected, ShouldNotBeEmpty)
				r, err := svc.Result(ctx, rejected)
				So(err, ShouldBeNil)
				So(r.Status, ShouldEqual, repository.StatusFailed)

				_, dup, _ := svc.Submit(ctx, rejected, clip, model.DefaultOptions())
				So(dup, ShouldBeFalse)
			})
		})
	})

	Convey("Given a service backed by sqlite", t, func() {
		path := filepath.Join(t.TempDir(), "jobs.db")
		svc := service.New(service.WithWorkerCount(1), service.WithSQLite(path))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)

		id, _, err := svc.Submit(ctx, "persisted", game(8), model.DefaultOptions())
		So(err, ShouldBeNil)
		r, err := waitDone(ctx, svc, id)
		So(err, ShouldBeNil)
		svc.Stop()

		Convey("Then the result survives a restart", func() {
			again := service.New(service.WithSQLite(path))
			So(again.Start(ctx), ShouldBeNil)
			defer again.Stop()

			got, err := again.Result(ctx, "persisted")
			So(err, ShouldBeNil)
			So(got.Status, ShouldEqual, repository.StatusDone)
			So(cmp.Diff(r.Events, got.Events), ShouldBeEmpty)
		})
	})
}
