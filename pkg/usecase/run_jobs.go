package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

// RunJobs runs independent jobs concurrently. Every job is validated before
// any starts. A failing job does not cancel the others; reports are returned
// in job order and the error lists every failed job.
func (x *UseCase) RunJobs(ctx context.Context, jobs []*model.Job) ([]*model.RunReport, error) {
	seen := map[types.JobID]struct{}{}
	for _, job := range jobs {
		if err := job.Validate(); err != nil {
			return nil, err
		}
		if _, ok := seen[job.ID]; ok {
			return nil, goerr.Wrap(types.ErrConfiguration, "duplicated job id", goerr.V("job_id", job.ID))
		}
		seen[job.ID] = struct{}{}
	}

	reports := make([]*model.RunReport, len(jobs))
	var (
		mutex  sync.Mutex
		failed []types.JobID
		errs   []error
	)

	var eg errgroup.Group
	if x.concurrency > 0 {
		eg.SetLimit(x.concurrency)
	}
	for i, job := range jobs {
		eg.Go(func() error {
			report, err := x.RunJob(ctx, job)
			reports[i] = report
			if err != nil {
				mutex.Lock()
				failed = append(failed, job.ID)
				errs = append(errs, err)
				mutex.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait()

	logger := logging.From(ctx)
	for _, report := range reports {
		if report != nil {
			logger.Info("Job finished", slog.Any("report", report))
		}
	}

	if len(failed) > 0 {
		return reports, goerr.Wrap(errors.Join(errs...), "some jobs failed",
			goerr.V("failed_jobs", failed),
			goerr.V("total_jobs", len(jobs)),
		)
	}
	return reports, nil
}
