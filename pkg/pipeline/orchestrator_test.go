package pipeline_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/pipeline"
	"github.com/m-mizutani/devlens/pkg/repository/memory"
	"github.com/m-mizutani/devlens/pkg/utils/metrics"
	"github.com/m-mizutani/gt"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type record struct {
	ID int
}

func (x *record) Validate() error {
	if x.ID == 3 {
		return errors.New("id 3 is not allowed")
	}
	return nil
}

func (x *record) Key() string {
	return strconv.Itoa(x.ID)
}

// processFunc adapts a function to interfaces.ItemProcessor.
type processFunc[I, O any] func(ctx context.Context, item I) ([]O, error)

func (f processFunc[I, O]) Process(ctx context.Context, item I) ([]O, error) {
	return f(ctx, item)
}

func toRecord(ctx context.Context, item int) ([]*record, error) {
	return []*record{{ID: item}}, nil
}

type sleepRecorder struct {
	waits []time.Duration
}

func (x *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	x.waits = append(x.waits, d)
	return nil
}

func TestOrchestratorRerunCountsDuplicates(t *testing.T) {
	sink := memory.NewSink[*record]()
	run := func() *model.RunReport {
		src := memory.NewPagedSource([]int{1, 2, 4, 5, 6}, 2)
		orch := pipeline.New[int, *record]("job-1", src, processFunc[int, *record](toRecord), sink,
			pipeline.WithMaxSkips(2),
		)
		return gt.R1(orch.Run(context.Background())).NoError(t)
	}

	first := run()
	gt.V(t, first.Written).Equal(5)
	gt.V(t, first.Duplicates).Equal(0)

	second := run()
	gt.V(t, second.Status).Equal(types.RunStatusCompleted)
	gt.V(t, second.Written).Equal(0)
	gt.V(t, second.Duplicates).Equal(5)
	gt.V(t, second.Skipped).Equal(0)
	gt.A(t, sink.Items()).Length(5)
}

func TestOrchestratorRejectedItem(t *testing.T) {
	src := memory.NewPagedSource([]int{1, 2, 3, 4, 5}, 2)
	sink := memory.NewSink[*record]()
	m := metrics.New()

	orch := pipeline.New[int, *record]("job-1", src, processFunc[int, *record](toRecord), sink, pipeline.WithMetrics(m))
	report := gt.R1(orch.Run(context.Background())).NoError(t)

	gt.V(t, report.Status).Equal(types.RunStatusCompleted)
	gt.V(t, orch.State()).Equal(types.StateCompleted)
	gt.V(t, report.Read).Equal(5)
	gt.V(t, report.Processed).Equal(5)
	gt.V(t, report.Written).Equal(4)
	gt.V(t, report.Skipped).Equal(1)
	gt.V(t, report.Chunks).Equal(3)
	gt.A(t, report.Skips).Length(1)
	gt.V(t, report.Skips[0].Stage).Equal(types.StateWriting)
	gt.V(t, report.Skips[0].Cursor).Equal(model.Cursor("2"))
	gt.V(t, report.Skips[0].Index).Equal(0)

	var ids []int
	for _, r := range sink.Items() {
		ids = append(ids, r.ID)
	}
	gt.V(t, ids).Equal([]int{1, 2, 4, 5})

	gt.NoError(t, testutil.GatherAndCompare(m.Gatherer(), strings.NewReader(`
# HELP devlens_pipeline_items_written_total Items persisted
# TYPE devlens_pipeline_items_written_total counter
devlens_pipeline_items_written_total{job="job-1"} 4
`), "devlens_pipeline_items_written_total"))
}

func TestOrchestratorRetry(t *testing.T) {
	t.Run("transient read failure is retried with backoff", func(t *testing.T) {
		inner := memory.NewPagedSource([]int{1, 2}, 10)
		failures := 2
		src := pageFunc[int](func(ctx context.Context, cursor model.Cursor) (*model.PagedBatch[int], error) {
			if failures > 0 {
				failures--
				return nil, types.ErrUnavailable
			}
			return inner.GetNextPage(ctx, cursor)
		})
		rec := &sleepRecorder{}
		sink := memory.NewSink[*record]()

		orch := pipeline.New[int, *record]("job", src, processFunc[int, *record](toRecord), sink,
			pipeline.WithBackoff(100*time.Millisecond, 150*time.Millisecond),
			pipeline.WithSleep(rec.sleep),
		)
		report := gt.R1(orch.Run(context.Background())).NoError(t)

		gt.V(t, report.Retries).Equal(2)
		gt.V(t, report.Written).Equal(2)
		gt.V(t, rec.waits).Equal([]time.Duration{100 * time.Millisecond, 150 * time.Millisecond})
	})

	t.Run("retries are bounded", func(t *testing.T) {
		src := pageFunc[int](func(ctx context.Context, cursor model.Cursor) (*model.PagedBatch[int], error) {
			return nil, types.ErrTransientProvider
		})
		rec := &sleepRecorder{}

		orch := pipeline.New[int, *record]("job", src, processFunc[int, *record](toRecord), memory.NewSink[*record](),
			pipeline.WithMaxRetries(2),
			pipeline.WithSleep(rec.sleep),
		)
		report, err := orch.Run(context.Background())
		gt.True(t, errors.Is(err, types.ErrTransientProvider))
		gt.V(t, report.Status).Equal(types.RunStatusFailed)
		gt.V(t, report.Retries).Equal(2)
		gt.A(t, rec.waits).Length(2)
	})

	t.Run("persistent failure is not retried", func(t *testing.T) {
		calls := 0
		src := pageFunc[int](func(ctx context.Context, cursor model.Cursor) (*model.PagedBatch[int], error) {
			calls++
			return nil, types.ErrPersistentProvider
		})

		orch := pipeline.New[int, *record]("job", src, processFunc[int, *record](toRecord), memory.NewSink[*record]())
		report, err := orch.Run(context.Background())
		gt.True(t, errors.Is(err, types.ErrPersistentProvider))
		gt.V(t, report.Status).Equal(types.RunStatusFailed)
		gt.V(t, report.LastError).NotNil()
		gt.V(t, calls).Equal(1)
	})

	t.Run("write failure fails the run", func(t *testing.T) {
		src := memory.NewPagedSource([]int{1}, 10)
		store := storeFunc[*record](func(ctx context.Context, items []*record) (*model.SaveResult, error) {
			return nil, errors.New("disk full")
		})

		orch := pipeline.New[int, *record]("job", src, processFunc[int, *record](toRecord), store)
		report, err := orch.Run(context.Background())
		gt.Error(t, err)
		gt.V(t, report.State).Equal(types.StateFailed)
		gt.V(t, report.Reason).Equal("chunk failed")
	})
}

func TestOrchestratorSkips(t *testing.T) {
	failOdd := processFunc[int, *record](func(ctx context.Context, item int) ([]*record, error) {
		if item%2 == 1 {
			return []*record{{ID: item * 10}}, errors.New("odd item")
		}
		return []*record{{ID: item}}, nil
	})

	t.Run("outputs returned with an error are kept", func(t *testing.T) {
		sink := memory.NewSink[*record]()
		orch := pipeline.New[int, *record]("job", memory.NewPagedSource([]int{1, 2}, 10), failOdd, sink)
		report := gt.R1(orch.Run(context.Background())).NoError(t)

		gt.V(t, report.Skipped).Equal(1)
		gt.V(t, report.Processed).Equal(1)
		gt.V(t, report.Written).Equal(2)
		gt.V(t, report.Skips[0].Stage).Equal(types.StateProcessing)
	})

	t.Run("transient processing failure is skipped without retry", func(t *testing.T) {
		calls := 0
		flaky := processFunc[int, *record](func(ctx context.Context, item int) ([]*record, error) {
			calls++
			if item == 1 {
				return nil, types.ErrTransientProvider
			}
			return []*record{{ID: item}}, nil
		})
		rec := &sleepRecorder{}

		orch := pipeline.New[int, *record]("job", memory.NewPagedSource([]int{1, 2}, 10), flaky, memory.NewSink[*record](),
			pipeline.WithSleep(rec.sleep),
		)
		report := gt.R1(orch.Run(context.Background())).NoError(t)

		gt.V(t, calls).Equal(2)
		gt.V(t, report.Retries).Equal(0)
		gt.V(t, report.Skipped).Equal(1)
		gt.V(t, report.Written).Equal(1)
		gt.A(t, rec.waits).Length(0)
	})

	t.Run("skip limit exceeded", func(t *testing.T) {
		orch := pipeline.New[int, *record]("job", memory.NewPagedSource([]int{1, 3, 5, 7}, 2), failOdd, memory.NewSink[*record](),
			pipeline.WithMaxSkips(1),
		)
		report, err := orch.Run(context.Background())
		gt.Error(t, err)
		gt.V(t, report.Status).Equal(types.RunStatusFailed)
		gt.V(t, report.Reason).Equal("skip limit exceeded")
		gt.V(t, report.Chunks).Equal(1)
	})
}

func TestOrchestratorCancel(t *testing.T) {
	t.Run("cancel before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		src := memory.NewPagedSource([]int{1, 2}, 1)
		orch := pipeline.New[int, *record]("job", src, processFunc[int, *record](toRecord), memory.NewSink[*record]())
		report, err := orch.Run(ctx)
		gt.True(t, errors.Is(err, types.ErrCancelled))
		gt.V(t, report.Status).Equal(types.RunStatusCancelled)
		gt.A(t, src.Requests()).Length(0)
	})

	t.Run("started chunk is finished", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		proc := processFunc[int, *record](func(c context.Context, item int) ([]*record, error) {
			cancel()
			gt.NoError(t, c.Err())
			return []*record{{ID: item}}, nil
		})
		sink := memory.NewSink[*record]()
		orch := pipeline.New[int, *record]("job", memory.NewPagedSource([]int{1, 2, 4, 5}, 2), proc, sink)
		report, err := orch.Run(ctx)

		gt.True(t, errors.Is(err, types.ErrCancelled))
		gt.V(t, report.Written).Equal(2)
		gt.A(t, sink.Items()).Length(2)
		gt.V(t, report.LastCursor).Equal(model.Cursor(""))
	})
}

func TestOrchestratorCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCheckpointStore()
	gt.NoError(t, store.PutCheckpoint(ctx, &model.Checkpoint{JobID: "job", RunID: "prev", Cursor: "2"}))

	src := memory.NewPagedSource([]int{1, 2, 4, 5, 6}, 2)
	sink := memory.NewSink[*record]()
	orch := pipeline.New[int, *record]("job", src, processFunc[int, *record](toRecord), sink,
		pipeline.WithCheckpointStore(store),
	)
	report := gt.R1(orch.Run(ctx)).NoError(t)

	gt.V(t, src.Requests()).Equal([]model.Cursor{"2", "4"})
	gt.V(t, report.Written).Equal(3)

	cp := gt.R1(store.GetCheckpoint(ctx, "job")).NoError(t)
	gt.True(t, cp.Completed)
	gt.V(t, cp.RunID).Equal(report.RunID)
	gt.V(t, cp.Cursor).Equal(model.Cursor("4"))
	gt.V(t, cp.Written).Equal(3)

	t.Run("completed checkpoint starts over", func(t *testing.T) {
		src := memory.NewPagedSource([]int{7}, 2)
		orch := pipeline.New[int, *record]("job", src, processFunc[int, *record](toRecord), memory.NewSink[*record](),
			pipeline.WithCheckpointStore(store),
		)
		gt.R1(orch.Run(ctx)).NoError(t)
		gt.V(t, src.Requests()).Equal([]model.Cursor{""})
	})
}

func TestOrchestratorInvalidOption(t *testing.T) {
	orch := pipeline.New[int, *record]("job", memory.NewPagedSource([]int{1}, 1), processFunc[int, *record](toRecord), memory.NewSink[*record](),
		pipeline.WithMaxRetries(-1),
	)
	report, err := orch.Run(context.Background())
	gt.True(t, errors.Is(err, types.ErrInvalidOption))
	gt.V(t, report.Status).Equal(types.RunStatusFailed)
}
