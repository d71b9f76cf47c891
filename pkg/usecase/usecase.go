package usecase

import (
	"github.com/m-mizutani/devlens/pkg/infra"
	"github.com/m-mizutani/devlens/pkg/pipeline"
)

const defaultPageSize = 50

type UseCase struct {
	clients     *infra.Clients
	pipeline    []pipeline.Option
	pageSize    int
	percentiles []float64
	concurrency int
}

type Option func(*UseCase)

// WithPipelineOptions sets retry, backoff and skip options applied to every run.
func WithPipelineOptions(options ...pipeline.Option) Option {
	return func(x *UseCase) {
		x.pipeline = append(x.pipeline, options...)
	}
}

// WithPageSize sets the page size of jobs that do not configure their own.
func WithPageSize(n int) Option {
	return func(x *UseCase) {
		x.pageSize = n
	}
}

// WithPercentiles sets the percentiles of benchmark jobs that do not configure
// their own.
func WithPercentiles(ps []float64) Option {
	return func(x *UseCase) {
		x.percentiles = ps
	}
}

// WithConcurrency bounds how many jobs RunJobs runs at once. Zero means no
// bound.
func WithConcurrency(n int) Option {
	return func(x *UseCase) {
		x.concurrency = n
	}
}

func New(clients *infra.Clients, options ...Option) *UseCase {
	uc := &UseCase{
		clients:  clients,
		pageSize: defaultPageSize,
	}
	for _, opt := range options {
		opt(uc)
	}
	return uc
}
