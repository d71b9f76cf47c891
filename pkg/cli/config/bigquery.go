package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/infra/bq"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/option"
)

type BigQuery struct {
	projectID                 types.GoogleProjectID
	datasetID                 types.BQDatasetID
	impersonateServiceAccount string
}

func (x *BigQuery) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "bigquery-project-id",
			Usage:       "BigQuery project ID (optional)",
			Category:    "BigQuery",
			Sources:     cli.EnvVars("DEVLENS_BIGQUERY_PROJECT_ID"),
			Destination: (*string)(&x.projectID),
		},
		&cli.StringFlag{
			Name:        "bigquery-dataset-id",
			Usage:       "BigQuery dataset ID",
			Category:    "BigQuery",
			Sources:     cli.EnvVars("DEVLENS_BIGQUERY_DATASET_ID"),
			Destination: (*string)(&x.datasetID),
		},
		&cli.StringFlag{
			Name:        "bigquery-impersonate-service-account",
			Usage:       "Service account to impersonate for BigQuery",
			Category:    "BigQuery",
			Sources:     cli.EnvVars("DEVLENS_BIGQUERY_IMPERSONATE_SERVICE_ACCOUNT"),
			Destination: &x.impersonateServiceAccount,
		},
	}
}

func (x *BigQuery) Enabled() bool {
	return x.projectID != ""
}

func (x *BigQuery) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("ProjectID", x.projectID),
		slog.Any("DatasetID", x.datasetID),
		slog.Any("ImpersonateServiceAccount", x.impersonateServiceAccount),
	)
}

// NewClient returns nil without error when no project is configured. The
// client is bound to the dataset; jobs select their own table.
func (x *BigQuery) NewClient(ctx context.Context) (*bq.Client, error) {
	if !x.Enabled() {
		return nil, nil
	}
	if x.datasetID == "" {
		return nil, goerr.Wrap(types.ErrConfiguration, "bigquery dataset ID is required", goerr.V("projectID", x.projectID))
	}

	var options []option.ClientOption
	if x.impersonateServiceAccount != "" {
		ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
			TargetPrincipal: x.impersonateServiceAccount,
			Scopes: []string{
				"https://www.googleapis.com/auth/bigquery",
				"https://www.googleapis.com/auth/cloud-platform",
			},
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create impersonated token source", goerr.V("serviceAccount", x.impersonateServiceAccount))
		}
		options = append(options, option.WithTokenSource(ts))
	}

	return bq.New(ctx, x.projectID, x.datasetID, "scm_records", options...)
}
