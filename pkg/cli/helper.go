package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m-mizutani/devlens/pkg/cli/config"
	"github.com/m-mizutani/devlens/pkg/infra"
	"github.com/m-mizutani/devlens/pkg/infra/provider"
	"github.com/m-mizutani/devlens/pkg/repository/memory"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gots/slice"
	"github.com/urfave/cli/v3"
)

// backends groups the config of every external service a job may use.
type backends struct {
	pipeline  config.Pipeline
	postgres  config.Postgres
	firestore config.Firestore
	bigQuery  config.BigQuery
	githubApp config.GitHubApp
	sentry    config.Sentry
}

func (x *backends) Flags() []cli.Flag {
	return slice.Flatten(
		x.pipeline.Flags(),
		x.postgres.Flags(),
		x.firestore.Flags(),
		x.bigQuery.Flags(),
		x.githubApp.Flags(),
		x.sentry.Flags(),
	)
}

func (x *backends) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("Pipeline", &x.pipeline),
		slog.Any("Postgres", &x.postgres),
		slog.Any("Firestore", &x.firestore),
		slog.Any("BigQuery", &x.bigQuery),
		slog.Any("GitHubApp", x.githubApp),
		slog.Any("Sentry", &x.sentry),
	)
}

// clients connects every configured backend. Without Firestore, checkpoints
// and tool configurations are kept in memory for the process lifetime; a
// configured PostgreSQL takes over checkpoints.
func (x *backends) clients(ctx context.Context) (*infra.Clients, func(), error) {
	var closers []func() error
	closeAll := func() {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		if err := errors.Join(errs...); err != nil {
			logging.From(ctx).Warn("failed to close clients", "error", err)
		}
	}

	if err := x.sentry.Configure(ctx); err != nil {
		return nil, nil, err
	}

	options := []infra.Option{
		infra.WithCheckpointStore(memory.NewCheckpointStore()),
		infra.WithToolConfigStore(memory.NewToolConfigStore()),
	}
	factoryOptions := x.pipeline.FactoryOptions()

	ghApp, err := x.githubApp.New()
	if err != nil {
		return nil, nil, err
	}
	if ghApp != nil {
		options = append(options, infra.WithGitHubApp(ghApp))
		factoryOptions = append(factoryOptions, provider.WithGitHubApp(ghApp))
	}
	options = append(options, infra.WithAdapterFactory(provider.NewFactory(factoryOptions...)))

	fsClient, err := x.firestore.NewClient(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create firestore client")
	}
	if fsClient != nil {
		closers = append(closers, fsClient.Close)
		options = append(options,
			infra.WithCheckpointStore(fsClient),
			infra.WithToolConfigStore(fsClient),
			infra.WithProcessorItems(fsClient),
		)
	}

	db, err := x.postgres.Open(ctx)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	if db != nil {
		closers = append(closers, db.Close)
		options = append(options, infra.WithDatabase(db))
		if fsClient == nil {
			options = append(options, infra.WithCheckpointStore(db))
		}
	}

	bqClient, err := x.bigQuery.NewClient(ctx)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	if bqClient != nil {
		closers = append(closers, bqClient.Close)
		options = append(options, infra.WithBigQuery(bqClient))
	}

	return infra.New(options...), closeAll, nil
}
