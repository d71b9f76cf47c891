package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Orchestrator drives one run of read, process and write over a paged source.
// Chunks are handled sequentially; cancellation is observed between chunks
// so a started chunk is always finished.
type Orchestrator[I, O any] struct {
	jobID     types.JobID
	source    interfaces.BatchService[I]
	processor interfaces.ItemProcessor[I, O]
	writer    *ChunkWriter[O]
	opts      options

	mutex sync.RWMutex
	state types.PipelineState
}

func New[I, O any](
	jobID types.JobID,
	source interfaces.BatchService[I],
	processor interfaces.ItemProcessor[I, O],
	store interfaces.PersistenceStore[O],
	opts ...Option,
) *Orchestrator[I, O] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Orchestrator[I, O]{
		jobID:     jobID,
		source:    source,
		processor: processor,
		writer:    NewChunkWriter(store),
		opts:      o,
		state:     types.StateIdle,
	}
}

// State returns the current state of the state machine.
func (x *Orchestrator[I, O]) State() types.PipelineState {
	x.mutex.RLock()
	defer x.mutex.RUnlock()
	return x.state
}

func (x *Orchestrator[I, O]) setState(r *runner, state types.PipelineState) {
	x.mutex.Lock()
	x.state = state
	x.mutex.Unlock()
	r.report.State = state
}

type runner struct {
	opts   options
	report *model.RunReport
	logger *slog.Logger
}

func (x *runner) skip(stage types.PipelineState, cursor model.Cursor, index int, reason string) {
	x.report.Skipped++
	x.report.Skips = append(x.report.Skips, model.SkipRecord{
		Stage:  stage,
		Cursor: cursor,
		Index:  index,
		Reason: reason,
	})
	x.opts.metrics.Skipped(string(x.report.JobID), 1)
	x.logger.Warn("item skipped", "stage", stage, "cursor", cursor, "index", index, "reason", reason)
}

func (x *runner) overSkipLimit() bool {
	return x.report.Skipped > x.opts.maxSkips
}

// Run executes the pipeline until the source is exhausted, a failure occurs or
// ctx is cancelled. The report is always returned; the error is nil only when
// the run completed.
func (x *Orchestrator[I, O]) Run(ctx context.Context) (*model.RunReport, error) {
	report := &model.RunReport{
		RunID:     types.NewRunID(),
		JobID:     x.jobID,
		State:     types.StateIdle,
		StartedAt: logging.CtxTime(ctx),
	}
	logger := logging.From(ctx).With("job_id", x.jobID, "run_id", report.RunID)
	ctx = logging.With(ctx, logger)

	r := &runner{opts: x.opts, report: report, logger: logger}
	if err := x.opts.validate(); err != nil {
		return x.fail(ctx, r, err, "invalid option")
	}

	reader := NewPagedReader(x.source)
	if err := x.resume(ctx, r, reader); err != nil {
		return x.fail(ctx, r, err, "failed to load checkpoint")
	}

	logger.Info("pipeline run started", "cursor", reader.Cursor())

	var last bool
	for !last {
		if err := ctx.Err(); err != nil {
			return x.cancel(ctx, r)
		}

		var err error
		last, err = x.chunk(context.WithoutCancel(ctx), r, reader)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return x.fail(ctx, r, err, "chunk failed")
		}
		if r.overSkipLimit() {
			return x.fail(ctx, r, goerr.New("skip limit exceeded",
				goerr.V("skipped", report.Skipped),
				goerr.V("max_skips", x.opts.maxSkips),
			), "skip limit exceeded")
		}
	}

	// the source ended with an empty page, the last chunk did not close the checkpoint
	if !last {
		if err := x.putCheckpoint(context.WithoutCancel(ctx), r, report.LastCursor, true); err != nil {
			return x.fail(ctx, r, err, "failed to save checkpoint")
		}
	}

	x.setState(r, types.StateCompleted)
	report.Status = types.RunStatusCompleted
	report.FinishedAt = logging.CtxTime(ctx)
	x.opts.metrics.Finished(string(x.jobID), string(report.Status))
	logger.Info("pipeline run completed", "report", report)
	return report, nil
}

// chunk reads, processes and writes one page. It returns true when the page
// was the last one.
func (x *Orchestrator[I, O]) chunk(ctx context.Context, r *runner, reader *PagedReader[I]) (bool, error) {
	started := time.Now()
	report := r.report
	jobID := string(x.jobID)

	x.setState(r, types.StateReading)
	batch, err := withRetry(ctx, r, "read", reader.Read)
	if err != nil {
		return false, err
	}
	report.Read += len(batch.Items)
	report.LastCursor = batch.Cursor
	x.opts.metrics.Read(jobID, len(batch.Items))

	x.setState(r, types.StateProcessing)
	var outputs []O
	processed := 0
	for i, item := range batch.Items {
		// not retried: a transient failure inside an item is one skip
		out, err := x.processor.Process(ctx, item)
		outputs = append(outputs, out...)
		if err != nil {
			r.skip(types.StateProcessing, batch.Cursor, i, err.Error())
			continue
		}
		processed++
	}
	report.Processed += processed
	x.opts.metrics.Processed(jobID, processed)

	x.setState(r, types.StateWriting)
	result, err := withRetry(ctx, r, "write", func(ctx context.Context) (*model.SaveResult, error) {
		return x.writer.Write(ctx, outputs)
	})
	if err != nil {
		return false, err
	}
	for _, rej := range result.Rejected {
		r.skip(types.StateWriting, batch.Cursor, rej.Index, rej.Reason)
	}
	report.Written += result.Saved
	report.Duplicates += len(result.Duplicates)
	report.Chunks++
	x.opts.metrics.Written(jobID, result.Saved)
	x.opts.metrics.Duplicated(jobID, len(result.Duplicates))

	next := batch.NextCursor
	if batch.IsLast {
		next = batch.Cursor
	}
	if err := x.putCheckpoint(ctx, r, next, batch.IsLast); err != nil {
		return false, err
	}

	x.opts.metrics.ObserveChunk(jobID, time.Since(started).Seconds())
	r.logger.Debug("chunk written",
		"cursor", batch.Cursor,
		"items", len(batch.Items),
		"outputs", len(outputs),
		"saved", result.Saved,
		"duplicates", len(result.Duplicates),
		"rejected", len(result.Rejected),
	)
	return batch.IsLast, nil
}

func (x *Orchestrator[I, O]) resume(ctx context.Context, r *runner, reader *PagedReader[I]) error {
	if x.opts.checkpoints == nil {
		return nil
	}

	cp, err := withRetry(ctx, r, "get checkpoint", func(ctx context.Context) (*model.Checkpoint, error) {
		return x.opts.checkpoints.GetCheckpoint(ctx, x.jobID)
	})
	if err != nil {
		return err
	}
	if cp == nil || cp.Completed || cp.Cursor == "" {
		return nil
	}

	reader.Resume(cp.Cursor)
	r.report.LastCursor = cp.Cursor
	r.logger.Info("resuming from checkpoint", "cursor", cp.Cursor, "previous_run_id", cp.RunID)
	return nil
}

func (x *Orchestrator[I, O]) putCheckpoint(ctx context.Context, r *runner, cursor model.Cursor, completed bool) error {
	if x.opts.checkpoints == nil {
		return nil
	}

	cp := &model.Checkpoint{
		JobID:     x.jobID,
		RunID:     r.report.RunID,
		Cursor:    cursor,
		Completed: completed,
		Read:      r.report.Read,
		Written:   r.report.Written,
		Skipped:   r.report.Skipped,
		UpdatedAt: logging.CtxTime(ctx),
	}
	_, err := withRetry(ctx, r, "put checkpoint", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, x.opts.checkpoints.PutCheckpoint(ctx, cp)
	})
	return err
}

func (x *Orchestrator[I, O]) fail(ctx context.Context, r *runner, cause error, reason string) (*model.RunReport, error) {
	report := r.report
	x.setState(r, types.StateFailed)
	report.Status = types.RunStatusFailed
	report.Reason = reason
	report.LastError = cause
	report.FinishedAt = logging.CtxTime(ctx)
	x.opts.metrics.Finished(string(x.jobID), string(report.Status))
	r.logger.Error("pipeline run failed", "report", report, "error", cause)

	return report, goerr.Wrap(cause, "pipeline run failed",
		goerr.V("job_id", x.jobID),
		goerr.V("run_id", report.RunID),
		goerr.V("reason", reason),
		goerr.V("last_cursor", report.LastCursor),
		goerr.V("skipped", report.Skipped),
		goerr.V("retries", report.Retries),
	)
}

func (x *Orchestrator[I, O]) cancel(ctx context.Context, r *runner) (*model.RunReport, error) {
	report := r.report
	x.setState(r, types.StateFailed)
	report.Status = types.RunStatusCancelled
	report.Reason = "cancelled"
	report.LastError = ctx.Err()
	report.FinishedAt = logging.CtxTime(ctx)
	x.opts.metrics.Finished(string(x.jobID), string(report.Status))
	r.logger.Warn("pipeline run cancelled", "report", report)

	return report, goerr.Wrap(types.ErrCancelled, "pipeline run cancelled",
		goerr.V("job_id", x.jobID),
		goerr.V("run_id", report.RunID),
		goerr.V("last_cursor", report.LastCursor),
	)
}
