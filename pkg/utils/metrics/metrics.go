package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline holds the counters of pipeline runs, labeled by job ID. A nil
// *Pipeline is valid and records nothing.
type Pipeline struct {
	registry *prometheus.Registry

	itemsRead      *prometheus.CounterVec
	itemsProcessed *prometheus.CounterVec
	itemsSkipped   *prometheus.CounterVec
	itemsWritten   *prometheus.CounterVec
	itemsDuplicate *prometheus.CounterVec
	retries        *prometheus.CounterVec
	runs           *prometheus.CounterVec
	chunkDuration  *prometheus.HistogramVec
}

// New creates pipeline metrics on an independent registry.
func New() *Pipeline {
	m := &Pipeline{
		registry: prometheus.NewRegistry(),
		itemsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devlens_pipeline_items_read_total",
			Help: "Items read from batch services",
		}, []string{"job"}),
		itemsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devlens_pipeline_items_processed_total",
			Help: "Items transformed by processors",
		}, []string{"job"}),
		itemsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devlens_pipeline_items_skipped_total",
			Help: "Items skipped by processing errors or write rejections",
		}, []string{"job"}),
		itemsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devlens_pipeline_items_written_total",
			Help: "Items persisted",
		}, []string{"job"}),
		itemsDuplicate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devlens_pipeline_items_duplicate_total",
			Help: "Items already stored and left unchanged",
		}, []string{"job"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devlens_pipeline_retries_total",
			Help: "Retried transient failures",
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devlens_pipeline_runs_total",
			Help: "Finished pipeline runs by status",
		}, []string{"job", "status"}),
		chunkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "devlens_pipeline_chunk_seconds",
			Help:    "Duration of one read-process-write chunk",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"job"}),
	}

	m.registry.MustRegister(
		m.itemsRead, m.itemsProcessed, m.itemsSkipped, m.itemsWritten,
		m.itemsDuplicate, m.retries, m.runs, m.chunkDuration,
	)
	return m
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Pipeline
)

// Default returns the process-wide pipeline metrics served by the metrics endpoint.
func Default() *Pipeline {
	defaultOnce.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

func (x *Pipeline) Read(job string, n int) {
	if x == nil {
		return
	}
	x.itemsRead.WithLabelValues(job).Add(float64(n))
}

func (x *Pipeline) Processed(job string, n int) {
	if x == nil {
		return
	}
	x.itemsProcessed.WithLabelValues(job).Add(float64(n))
}

func (x *Pipeline) Skipped(job string, n int) {
	if x == nil {
		return
	}
	x.itemsSkipped.WithLabelValues(job).Add(float64(n))
}

func (x *Pipeline) Written(job string, n int) {
	if x == nil {
		return
	}
	x.itemsWritten.WithLabelValues(job).Add(float64(n))
}

func (x *Pipeline) Duplicated(job string, n int) {
	if x == nil {
		return
	}
	x.itemsDuplicate.WithLabelValues(job).Add(float64(n))
}

func (x *Pipeline) Retried(job string) {
	if x == nil {
		return
	}
	x.retries.WithLabelValues(job).Inc()
}

func (x *Pipeline) Finished(job, status string) {
	if x == nil {
		return
	}
	x.runs.WithLabelValues(job, status).Inc()
}

func (x *Pipeline) ObserveChunk(job string, seconds float64) {
	if x == nil {
		return
	}
	x.chunkDuration.WithLabelValues(job).Observe(seconds)
}

// Gatherer exposes the registry for inspection.
func (x *Pipeline) Gatherer() prometheus.Gatherer {
	return x.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (x *Pipeline) Handler() http.Handler {
	return promhttp.HandlerFor(x.registry, promhttp.HandlerOpts{})
}
