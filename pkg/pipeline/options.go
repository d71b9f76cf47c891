package pipeline

import (
	"context"
	"time"

	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/utils/metrics"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = time.Second
	DefaultMaxBackoff     = 30 * time.Second
	DefaultMaxSkips       = 100
)

type SleepFunc func(ctx context.Context, d time.Duration) error

type options struct {
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	maxSkips       int
	checkpoints    interfaces.CheckpointStore
	metrics        *metrics.Pipeline
	sleep          SleepFunc
}

func defaultOptions() options {
	return options{
		maxRetries:     DefaultMaxRetries,
		initialBackoff: DefaultInitialBackoff,
		maxBackoff:     DefaultMaxBackoff,
		maxSkips:       DefaultMaxSkips,
		sleep:          sleep,
	}
}

func (x options) validate() error {
	if x.maxRetries < 0 {
		return goerr.Wrap(types.ErrInvalidOption, "max retries must not be negative", goerr.V("max_retries", x.maxRetries))
	}
	if x.maxSkips < 0 {
		return goerr.Wrap(types.ErrInvalidOption, "max skips must not be negative", goerr.V("max_skips", x.maxSkips))
	}
	if x.initialBackoff < 0 || x.maxBackoff < x.initialBackoff {
		return goerr.Wrap(types.ErrInvalidOption, "invalid backoff range",
			goerr.V("initial", x.initialBackoff),
			goerr.V("max", x.maxBackoff),
		)
	}
	return nil
}

type Option func(*options)

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		o.maxRetries = n
	}
}

// WithBackoff sets the first retry delay and its cap. The delay doubles per attempt.
func WithBackoff(initial, limit time.Duration) Option {
	return func(o *options) {
		o.initialBackoff = initial
		o.maxBackoff = limit
	}
}

// WithMaxSkips sets the number of skipped items a run tolerates.
func WithMaxSkips(n int) Option {
	return func(o *options) {
		o.maxSkips = n
	}
}

func WithCheckpointStore(store interfaces.CheckpointStore) Option {
	return func(o *options) {
		o.checkpoints = store
	}
}

func WithMetrics(m *metrics.Pipeline) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(o *options) {
		o.sleep = fn
	}
}
