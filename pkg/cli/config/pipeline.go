package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/infra/provider"
	"github.com/m-mizutani/devlens/pkg/infra/ratelimit"
	"github.com/m-mizutani/devlens/pkg/percentile"
	"github.com/m-mizutani/devlens/pkg/pipeline"
	"github.com/m-mizutani/devlens/pkg/usecase"
	"github.com/urfave/cli/v3"
)

type Pipeline struct {
	maxRetries         int
	initialBackoff     time.Duration
	maxBackoff         time.Duration
	maxSkips           int
	pageSize           int
	concurrency        int
	activeBranchWindow time.Duration
	percentiles        []float64
	providerRPS        float64
	providerBurst      int
}

func (x *Pipeline) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "max-retries",
			Usage:       "Retries of a transient failure per operation",
			Category:    "Pipeline",
			Value:       pipeline.DefaultMaxRetries,
			Sources:     cli.EnvVars("DEVLENS_MAX_RETRIES"),
			Destination: &x.maxRetries,
		},
		&cli.DurationFlag{
			Name:        "initial-backoff",
			Usage:       "First retry delay, doubled per attempt",
			Category:    "Pipeline",
			Value:       pipeline.DefaultInitialBackoff,
			Sources:     cli.EnvVars("DEVLENS_INITIAL_BACKOFF"),
			Destination: &x.initialBackoff,
		},
		&cli.DurationFlag{
			Name:        "max-backoff",
			Usage:       "Upper bound of a retry delay",
			Category:    "Pipeline",
			Value:       pipeline.DefaultMaxBackoff,
			Sources:     cli.EnvVars("DEVLENS_MAX_BACKOFF"),
			Destination: &x.maxBackoff,
		},
		&cli.IntFlag{
			Name:        "max-skips",
			Usage:       "Skipped items tolerated by a run before it fails",
			Category:    "Pipeline",
			Value:       pipeline.DefaultMaxSkips,
			Sources:     cli.EnvVars("DEVLENS_MAX_SKIPS"),
			Destination: &x.maxSkips,
		},
		&cli.IntFlag{
			Name:        "page-size",
			Usage:       "Items per chunk of jobs without their own page size",
			Category:    "Pipeline",
			Value:       50,
			Sources:     cli.EnvVars("DEVLENS_PAGE_SIZE"),
			Destination: &x.pageSize,
		},
		&cli.IntFlag{
			Name:        "concurrency",
			Usage:       "Jobs running at once, 0 for no limit",
			Category:    "Pipeline",
			Sources:     cli.EnvVars("DEVLENS_CONCURRENCY"),
			Destination: &x.concurrency,
		},
		&cli.DurationFlag{
			Name:        "active-branch-window",
			Usage:       "A branch is active when its head commit is newer than this",
			Category:    "Pipeline",
			Value:       90 * 24 * time.Hour,
			Sources:     cli.EnvVars("DEVLENS_ACTIVE_BRANCH_WINDOW"),
			Destination: &x.activeBranchWindow,
		},
		&cli.FloatSliceFlag{
			Name:        "percentile",
			Usage:       "Percentiles of benchmark jobs without their own",
			Category:    "Pipeline",
			Value:       percentile.DefaultPercentiles,
			Sources:     cli.EnvVars("DEVLENS_PERCENTILES"),
			Destination: &x.percentiles,
		},
		&cli.FloatFlag{
			Name:        "provider-rps",
			Usage:       "Requests per second per provider account, 0 for provider defaults",
			Category:    "Pipeline",
			Sources:     cli.EnvVars("DEVLENS_PROVIDER_RPS"),
			Destination: &x.providerRPS,
		},
		&cli.IntFlag{
			Name:        "provider-burst",
			Usage:       "Request burst per provider account",
			Category:    "Pipeline",
			Value:       10,
			Sources:     cli.EnvVars("DEVLENS_PROVIDER_BURST"),
			Destination: &x.providerBurst,
		},
	}
}

func (x *Pipeline) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("MaxRetries", x.maxRetries),
		slog.Duration("InitialBackoff", x.initialBackoff),
		slog.Duration("MaxBackoff", x.maxBackoff),
		slog.Int("MaxSkips", x.maxSkips),
		slog.Int("PageSize", x.pageSize),
		slog.Int("Concurrency", x.concurrency),
		slog.Duration("ActiveBranchWindow", x.activeBranchWindow),
		slog.Any("Percentiles", x.percentiles),
		slog.Float64("ProviderRPS", x.providerRPS),
		slog.Int("ProviderBurst", x.providerBurst),
	)
}

// UseCaseOptions returns the run options of every job.
func (x *Pipeline) UseCaseOptions() []usecase.Option {
	return []usecase.Option{
		usecase.WithPageSize(x.pageSize),
		usecase.WithPercentiles(x.percentiles),
		usecase.WithConcurrency(x.concurrency),
		usecase.WithPipelineOptions(
			pipeline.WithMaxRetries(x.maxRetries),
			pipeline.WithBackoff(x.initialBackoff, x.maxBackoff),
			pipeline.WithMaxSkips(x.maxSkips),
		),
	}
}

// RateLimits builds the registry shared by every provider adapter.
func (x *Pipeline) RateLimits() *ratelimit.Registry {
	if x.providerRPS <= 0 {
		return ratelimit.New()
	}
	limit := ratelimit.Limit{PerSecond: x.providerRPS, Burst: x.providerBurst}
	return ratelimit.New(
		ratelimit.WithLimit(types.ProviderGitHub, limit),
		ratelimit.WithLimit(types.ProviderBitbucket, limit),
		ratelimit.WithDefaultLimit(limit),
	)
}

// FactoryOptions returns the adapter factory options of this configuration.
func (x *Pipeline) FactoryOptions() []provider.Option {
	return []provider.Option{
		provider.WithActiveBranchWindow(x.activeBranchWindow),
		provider.WithRateLimits(x.RateLimits()),
	}
}
