package usecase

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/infra/httpclient"
	"github.com/m-mizutani/devlens/pkg/infra/usage"
	"github.com/m-mizutani/devlens/pkg/pipeline"
	"github.com/m-mizutani/devlens/pkg/processor"
	"github.com/m-mizutani/devlens/pkg/repository/bqsink"
	"github.com/m-mizutani/devlens/pkg/repository/memory"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultScmRecordTable       types.BQTableID = "scm_records"
	DefaultBenchmarkTable       types.BQTableID = "kpi_benchmarks"
	DefaultUsageStatisticsTable types.BQTableID = "ai_usage_statistics"
)

// RunJob validates the job, assembles its source, processor and sink, and runs
// one pipeline. The report is returned whenever the pipeline was started.
func (x *UseCase) RunJob(ctx context.Context, job *model.Job) (*model.RunReport, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	logging.From(ctx).Info("Starting job",
		slog.String("job_id", job.ID.String()),
		slog.String("kind", string(job.Kind)),
		slog.String("sink", string(job.Sink)),
	)

	switch job.Kind {
	case types.JobKindScmScan:
		return x.RunScmScan(ctx, job)
	case types.JobKindBenchmark:
		return x.RunBenchmark(ctx, job)
	case types.JobKindUsageStatistics:
		return x.RunUsageStatistics(ctx, job)
	}
	return nil, goerr.Wrap(types.ErrConfiguration, "unknown job kind", goerr.V("job_id", job.ID), goerr.V("kind", job.Kind))
}

// RunScmScan walks processor items and writes the commits and pull requests
// of every configured provider.
func (x *UseCase) RunScmScan(ctx context.Context, job *model.Job) (*model.RunReport, error) {
	configs := x.clients.ToolConfigStore()
	if configs == nil {
		return nil, goerr.Wrap(types.ErrConfiguration, "scm scan requires a tool config store", goerr.V("job_id", job.ID))
	}
	for _, cfg := range job.ToolConfigs {
		if err := configs.PutToolConfig(ctx, cfg); err != nil {
			return nil, goerr.Wrap(err, "failed to register tool config", goerr.V("job_id", job.ID), goerr.V("tool_config_id", cfg.ID))
		}
	}

	var source interfaces.BatchService[*model.ProcessorItem]
	switch {
	case len(job.Items) > 0:
		source = memory.NewPagedSource(job.Items, x.pageSizeOf(job))
	case x.clients.ProcessorItems() != nil:
		source = x.clients.ProcessorItems().ProcessorItems(x.pageSizeOf(job))
	default:
		return nil, goerr.Wrap(types.ErrConfiguration, "scm scan has no items and no processor item store", goerr.V("job_id", job.ID))
	}

	store, err := selectSink(x, job, DefaultScmRecordTable,
		interfaces.Database.ScmRecords,
		func(bq interfaces.BigQuery) interfaces.PersistenceStore[*model.ScmRecord] { return bqsink.NewScmRecordSink(bq) },
	)
	if err != nil {
		return nil, err
	}

	proc := processor.NewScmScan(configs, x.clients.AdapterFactory())
	return pipeline.New(job.ID, source, proc, store, x.pipelineOptions()...).Run(ctx)
}

// RunBenchmark computes percentile benchmarks of every KPI sample group.
func (x *UseCase) RunBenchmark(ctx context.Context, job *model.Job) (*model.RunReport, error) {
	db := x.clients.Database()
	if db == nil {
		return nil, goerr.Wrap(types.ErrConfiguration, "benchmark requires a database", goerr.V("job_id", job.ID))
	}

	ps := job.Percentiles
	if len(ps) == 0 {
		ps = x.percentiles
	}
	proc, err := processor.NewBenchmark(ps)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid benchmark job", goerr.V("job_id", job.ID))
	}

	store, err := selectSink(x, job, DefaultBenchmarkTable,
		interfaces.Database.KpiBenchmarks,
		func(bq interfaces.BigQuery) interfaces.PersistenceStore[*model.KpiBenchmarkValues] { return bqsink.NewBenchmarkSink(bq) },
	)
	if err != nil {
		return nil, err
	}

	source := db.KpiSampleGroups(x.pageSizeOf(job))
	return pipeline.New(job.ID, source, proc, store, x.pipelineOptions()...).Run(ctx)
}

// RunUsageStatistics pages an AI usage export and stores aggregated statistics.
func (x *UseCase) RunUsageStatistics(ctx context.Context, job *model.Job) (*model.RunReport, error) {
	client := httpclient.NewClient(x.clients.HTTPClient().Transport)
	source, err := usage.New(client, job.UsageEndpoint, usage.WithPageSize(x.pageSizeOf(job)))
	if err != nil {
		return nil, goerr.Wrap(err, "invalid usage statistics job", goerr.V("job_id", job.ID))
	}

	store, err := selectSink(x, job, DefaultUsageStatisticsTable,
		interfaces.Database.UsageStatistics,
		func(bq interfaces.BigQuery) interfaces.PersistenceStore[*model.AIUsageStatistics] { return bqsink.NewUsageStatisticsSink(bq) },
	)
	if err != nil {
		return nil, err
	}

	return pipeline.New(job.ID, source, processor.NewUsageStatistics(), store, x.pipelineOptions()...).Run(ctx)
}

func (x *UseCase) pageSizeOf(job *model.Job) int {
	if job.PageSize > 0 {
		return job.PageSize
	}
	return x.pageSize
}

func (x *UseCase) pipelineOptions() []pipeline.Option {
	opts := []pipeline.Option{pipeline.WithMetrics(x.clients.Metrics())}
	if store := x.clients.CheckpointStore(); store != nil {
		opts = append(opts, pipeline.WithCheckpointStore(store))
	}
	return append(opts, x.pipeline...)
}

// tableSelector is implemented by BigQuery clients bound to a dataset.
type tableSelector interface {
	Table(tableID types.BQTableID) interfaces.BigQuery
}

func selectSink[T any](
	x *UseCase,
	job *model.Job,
	defaultTable types.BQTableID,
	fromDB func(interfaces.Database) interfaces.PersistenceStore[T],
	fromBQ func(interfaces.BigQuery) interfaces.PersistenceStore[T],
) (interfaces.PersistenceStore[T], error) {
	switch job.Sink {
	case types.SinkPostgres:
		db := x.clients.Database()
		if db == nil {
			return nil, goerr.Wrap(types.ErrConfiguration, "postgres sink is not configured", goerr.V("job_id", job.ID))
		}
		return fromDB(db), nil

	case types.SinkBigQuery:
		bq := x.clients.BigQuery()
		if bq == nil {
			return nil, goerr.Wrap(types.ErrConfiguration, "bigquery sink is not configured", goerr.V("job_id", job.ID))
		}
		table := job.Table
		if table == "" {
			table = defaultTable
		}
		if ts, ok := bq.(tableSelector); ok {
			bq = ts.Table(table)
		}
		return fromBQ(bq), nil
	}

	return nil, goerr.Wrap(types.ErrConfiguration, "unknown sink", goerr.V("job_id", job.ID), goerr.V("sink", job.Sink))
}
