package infra

import (
	"net/http"

	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/infra/provider"
	"github.com/m-mizutani/devlens/pkg/utils/metrics"
)

type Clients struct {
	githubApp      interfaces.GitHubApp
	httpClient     *http.Client
	bqClient       interfaces.BigQuery
	factory        interfaces.AdapterFactory
	database       interfaces.Database
	processorItems interfaces.ProcessorItemSource
	checkpoints    interfaces.CheckpointStore
	toolConfigs    interfaces.ToolConfigStore
	metrics        *metrics.Pipeline
}

type Option func(*Clients)

func New(options ...Option) *Clients {
	client := &Clients{
		httpClient: http.DefaultClient,
		metrics:    metrics.Default(),
	}

	for _, opt := range options {
		opt(client)
	}

	if client.factory == nil {
		client.factory = provider.NewFactory(provider.WithGitHubApp(client.githubApp))
	}

	return client
}

func (x *Clients) GitHubApp() interfaces.GitHubApp {
	return x.githubApp
}
func (x *Clients) HTTPClient() *http.Client {
	return x.httpClient
}
func (x *Clients) BigQuery() interfaces.BigQuery {
	return x.bqClient
}
func (x *Clients) AdapterFactory() interfaces.AdapterFactory {
	return x.factory
}
func (x *Clients) Database() interfaces.Database {
	return x.database
}
func (x *Clients) ProcessorItems() interfaces.ProcessorItemSource {
	return x.processorItems
}
func (x *Clients) CheckpointStore() interfaces.CheckpointStore {
	return x.checkpoints
}
func (x *Clients) ToolConfigStore() interfaces.ToolConfigStore {
	return x.toolConfigs
}
func (x *Clients) Metrics() *metrics.Pipeline {
	return x.metrics
}

func WithGitHubApp(client interfaces.GitHubApp) Option {
	return func(x *Clients) {
		x.githubApp = client
	}
}

// WithHTTPClient sets the client of non-provider APIs such as the AI usage
// export.
func WithHTTPClient(client *http.Client) Option {
	return func(x *Clients) {
		x.httpClient = client
	}
}

func WithBigQuery(client interfaces.BigQuery) Option {
	return func(x *Clients) {
		x.bqClient = client
	}
}

// WithAdapterFactory replaces the default factory, which is built from the
// GitHub App client.
func WithAdapterFactory(factory interfaces.AdapterFactory) Option {
	return func(x *Clients) {
		x.factory = factory
	}
}

func WithDatabase(db interfaces.Database) Option {
	return func(x *Clients) {
		x.database = db
	}
}

func WithProcessorItems(source interfaces.ProcessorItemSource) Option {
	return func(x *Clients) {
		x.processorItems = source
	}
}

func WithCheckpointStore(store interfaces.CheckpointStore) Option {
	return func(x *Clients) {
		x.checkpoints = store
	}
}

func WithToolConfigStore(store interfaces.ToolConfigStore) Option {
	return func(x *Clients) {
		x.toolConfigs = store
	}
}

func WithMetrics(m *metrics.Pipeline) Option {
	return func(x *Clients) {
		x.metrics = m
	}
}
