package interfaces

//go:generate moq -out ../mock/infra.go -pkg mock . BigQuery GitHubApp ProviderAdapter

import (
	"context"
	"net/http"

	"cloud.google.com/go/bigquery"

	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
)

type BigQueryInsertOption func(*BigQueryInsertConfig)

type BigQueryInsertConfig struct {
	EnableRetry bool
}

func WithRetry(retry bool) BigQueryInsertOption {
	return func(c *BigQueryInsertConfig) {
		c.EnableRetry = retry
	}
}

type BigQuery interface {
	Insert(ctx context.Context, schema bigquery.Schema, data any, opts ...BigQueryInsertOption) error

	GetMetadata(ctx context.Context) (*bigquery.TableMetadata, error)
	UpdateTable(ctx context.Context, md bigquery.TableMetadataToUpdate, eTag string) error
	CreateTable(ctx context.Context, md *bigquery.TableMetadata) error
}

// GitHubApp issues HTTP clients authenticated as an App installation.
type GitHubApp interface {
	HTTPClient(installID types.GitHubAppInstallID) (*http.Client, error)
	InstallationID(ctx context.Context, owner string) (types.GitHubAppInstallID, error)
}

// ProviderAdapter fetches source-control data of one provider through a
// uniform contract. Errors wrap types.ErrTransientProvider or
// types.ErrPersistentProvider.
type ProviderAdapter interface {
	Kind() types.ProviderKind

	// FetchRepositories pages through the provider listing and returns every
	// repository matching the request filter.
	FetchRepositories(ctx context.Context, req *model.ScanRequest) (*model.RepositoryList, error)

	// SetActiveBranches replaces the active branch set of each repository. A
	// failing repository gets an empty set and is reported, the others are
	// still processed.
	SetActiveBranches(ctx context.Context, req *model.ScanRequest, repos []*model.Repository) []*model.RepositoryFailure

	FetchCommits(ctx context.Context, req *model.ScanRequest, repo *model.Repository, branch types.BranchName) ([]*model.Commit, error)
	FetchPullRequests(ctx context.Context, req *model.ScanRequest, repo *model.Repository) ([]*model.PullRequest, error)
}

// AdapterFactory resolves the adapter variant of a scan request.
type AdapterFactory interface {
	CreateScmAdapter(ctx context.Context, req *model.ScanRequest) (ProviderAdapter, error)
}
