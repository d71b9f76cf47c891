package pipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
)

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// newBackOff returns a deterministic exponential schedule doubling from
// initial up to limit.
func newBackOff(initial, limit time.Duration) *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     initial,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         limit,
	}
	b.Reset()
	return b
}

// withRetry runs fn and retries it while it fails with a transient error. The
// wait goes through the configured sleep so a run can be driven without real
// delays.
func withRetry[T any](ctx context.Context, x *runner, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	schedule := newBackOff(x.opts.initialBackoff, x.opts.maxBackoff)

	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil || !types.IsTransient(err) || attempt >= x.opts.maxRetries {
			return v, err
		}

		wait := schedule.NextBackOff()
		x.report.Retries++
		x.opts.metrics.Retried(string(x.report.JobID))
		logging.From(ctx).Warn("retrying transient failure",
			"op", op,
			"attempt", attempt+1,
			"wait", wait,
			"error", err,
		)

		if err := x.opts.sleep(ctx, wait); err != nil {
			var zero T
			return zero, err
		}
	}
}
