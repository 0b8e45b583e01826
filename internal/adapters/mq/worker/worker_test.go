package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	queue "github.com/okian/hoopfuse/internal/adapters/mq/queue"
	worker "github.com/okian/hoopfuse/internal/adapters/mq/worker"
	"github.com/okian/hoopfuse/internal/adapters/repository"
	model "github.com/okian/hoopfuse/internal/domain/model"
	logging "github.com/okian/hoopfuse/pkg/logger"
)

type mockQueue struct {
	jobs chan queue.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Job {
	return mq.jobs
}

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

func (mq *mockQueue) add(id string) {
	mq.jobs <- queue.Job{ID: id, Signals: &model.Signals{FPS: 10}, Options: model.DefaultOptions(), Submitted: time.Now()}
}

// mockFuser fails jobs listed in errs and emits one score otherwise.
type mockFuser struct {
	mu    sync.Mutex
	errs  map[string]error
	delay time.Duration
	calls int
}

func (f *mockFuser) Fuse(ctx context.Context, s *model.Signals, opts model.Options) ([]model.GameEvent, error) {
	f.mu.Lock()
	f.calls++
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.errs[fmt.Sprint(s.FPS)]; ok {
		return nil, err
	}
	return []model.GameEvent{mustEvent(model.KindScore, model.EventParams{
		TeamID: model.TeamA, Timestamp: 1, Confidence: 0.9, Source: "ocr", ScoreDelta: 2, ShotType: model.Shot2PT,
	})}, nil
}

type mockWriter struct {
	mu      sync.Mutex
	results map[string]repository.Result
	err     error
}

func newMockWriter() *mockWriter {
	return &mockWriter{results: make(map[string]repository.Result)}
}

func (w *mockWriter) Save(ctx context.Context, r repository.Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.results[r.JobID] = r
	return nil
}

func (w *mockWriter) get(id string) (repository.Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.results[id]
	return r, ok
}

func (w *mockWriter) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.results)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a running InMemoryWorker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		fuser := &mockFuser{errs: map[string]error{"0": errors.New("fps must be positive")}}
		writer := newMockWriter()
		w := worker.NewInMemoryWorker(q, fuser, writer, worker.WithName("test-worker"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a job succeeds", func() {
			q.add("job-1")

			convey.Convey("Then a done result with the events is stored", func() {
				convey.So(waitFor(func() bool { _, ok := writer.get("job-1"); return ok }), convey.ShouldBeTrue)
				r, _ := writer.get("job-1")
				convey.So(r.Status, convey.ShouldEqual, repository.StatusDone)
				convey.So(r.Events, convey.ShouldHaveLength, 1)
				convey.So(r.CompletedAt.IsZero(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the fusion fails", func() {
			q.jobs <- queue.Job{ID: "job-2", Signals: &model.Signals{}, Submitted: time.Now()}

			convey.Convey("Then a failed result carries the error", func() {
				convey.So(waitFor(func() bool { _, ok := writer.get("job-2"); return ok }), convey.ShouldBeTrue)
				r, _ := writer.get("job-2")
				convey.So(r.Status, convey.ShouldEqual, repository.StatusFailed)
				convey.So(r.Error, convey.ShouldEqual, "fps must be positive")
				convey.So(r.Events, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer shutdownCancel()

			convey.Convey("Then it stops gracefully and twice is harmless", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a worker with a job timeout", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		writer := newMockWriter()
		w := worker.NewInMemoryWorker(q, &mockFuser{delay: time.Second}, writer, worker.WithJobTimeout(20*time.Millisecond))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)
		q.add("slow")

		convey.Convey("Then the slow job fails with a deadline error", func() {
			convey.So(waitFor(func() bool { _, ok := writer.get("slow"); return ok }), convey.ShouldBeTrue)
			r, _ := writer.get("slow")
			convey.So(r.Status, convey.ShouldEqual, repository.StatusFailed)
			convey.So(r.Error, convey.ShouldEqual, context.DeadlineExceeded.Error())
		})
	})

	convey.Convey("Given the queue is closed", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		w := worker.NewInMemoryWorker(q, &mockFuser{}, newMockWriter())
		done := make(chan struct{})
		go func() {
			w.Run(context.Background())
			close(done)
		}()
		_ = q.Close()

		convey.Convey("Then the worker returns", func() {
			select {
			case <-done:
				convey.So(true, convey.ShouldBeTrue)
			case <-time.After(time.Second):
				convey.So("worker still running", convey.ShouldBeEmpty)
			}
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a worker pool", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		fuser := &mockFuser{errs: map[string]error{"0": errors.New("bad clip")}}
		writer := newMockWriter()

		convey.Convey("When created with a non-positive count", func() {
			pool := worker.NewPool(0, q, fuser, writer)

			convey.Convey("Then it falls back to one worker per CPU", func() {
				convey.So(pool.Stats().Workers, convey.ShouldBeGreaterThan, 0)
				convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When started and fed jobs", func() {
			pool := worker.NewPool(3, q, fuser, writer)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			pool.Start(ctx)

			for i := 0; i < 5; i++ {
				q.add(fmt.Sprintf("job-%d", i))
			}
			q.jobs <- queue.Job{ID: "bad", Signals: &model.Signals{}, Submitted: time.Now()}

			convey.Convey("Then every job gets a result and the counters agree", func() {
				convey.So(waitFor(func() bool { return pool.Stats().Processed == 6 }), convey.ShouldBeTrue)
				convey.So(writer.len(), convey.ShouldEqual, 6)
				convey.So(pool.Stats(), convey.ShouldResemble, worker.Stats{Workers: 3, Processed: 6, Failed: 1})
			})

			convey.Convey("Then shutdown drains and closes the queue", func() {
				convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
				convey.So(writer.len(), convey.ShouldEqual, 6)
			})
		})

		convey.Convey("When the result store fails", func() {
			writer.err = errors.New("disk full")
			pool := worker.NewPool(1, q, fuser, writer)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			pool.Start(ctx)
			q.add("job-x")

			convey.Convey("Then the job counts as failed", func() {
				convey.So(waitFor(func() bool { return pool.Stats().Failed == 1 }), convey.ShouldBeTrue)
			})
		})
	})
}

func TestWorkerConcurrency(t *testing.T) {
	convey.Convey("Given many jobs on a real queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		writer := newMockWriter()
		pool := worker.NewPool(4, q, &mockFuser{delay: time.Millisecond}, writer)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		for i := 0; i < 50; i++ {
			err := q.Enqueue(ctx, queue.Job{ID: fmt.Sprintf("job-%d", i), Signals: &model.Signals{FPS: 10}, Submitted: time.Now()})
			convey.So(err, convey.ShouldBeNil)
		}

		convey.Convey("Then shutdown processes every queued job exactly once", func() {
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
			convey.So(writer.len(), convey.ShouldEqual, 50)
			convey.So(pool.Stats().Processed, convey.ShouldEqual, 50)
		})
	})
}

func mustEvent(kind model.EventKind, p model.EventParams) model.GameEvent {
	e, err := model.NewEvent(kind, p)
	if err != nil {
		panic(err)
	}
	return e
}
