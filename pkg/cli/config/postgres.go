package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/devlens/pkg/repository/postgres"
	"github.com/m-mizutani/devlens/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

type Postgres struct {
	dsn     string `masq:"secret"`
	migrate bool
}

func (x *Postgres) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "postgres-dsn",
			Usage:       "PostgreSQL connection string (optional)",
			Category:    "PostgreSQL",
			Sources:     cli.EnvVars("DEVLENS_POSTGRES_DSN"),
			Destination: &x.dsn,
		},
		&cli.BoolFlag{
			Name:        "postgres-migrate",
			Usage:       "Create tables before running",
			Category:    "PostgreSQL",
			Value:       true,
			Sources:     cli.EnvVars("DEVLENS_POSTGRES_MIGRATE"),
			Destination: &x.migrate,
		},
	}
}

func (x *Postgres) Enabled() bool {
	return x.dsn != ""
}

func (x *Postgres) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("DSN.len", len(x.dsn)),
		slog.Bool("Migrate", x.migrate),
	)
}

// Open returns nil without error when no DSN is configured.
func (x *Postgres) Open(ctx context.Context) (*postgres.Client, error) {
	if !x.Enabled() {
		return nil, nil
	}

	client, err := postgres.Open(ctx, x.dsn)
	if err != nil {
		return nil, err
	}

	if x.migrate {
		if err := client.Migrate(ctx); err != nil {
			safe.Close(client)
			return nil, goerr.Wrap(err, "failed to migrate postgres")
		}
	}
	return client, nil
}
