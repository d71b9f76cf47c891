package model

import (
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Job is one configured pipeline run.
type Job struct {
	ID       types.JobID    `json:"id"`
	Kind     types.JobKind  `json:"kind"`
	Sink     types.SinkKind `json:"sink"`
	PageSize int            `json:"page_size,omitempty"`

	// Table overrides the BigQuery table of a bigquery sink.
	Table types.BQTableID `json:"table,omitempty"`

	// Items are scan targets of a scm_scan job. Without them the targets
	// are paged from the processor item store.
	Items []*ProcessorItem `json:"items,omitempty"`

	// ToolConfigs are registered to the tool config store before the run.
	ToolConfigs []*ToolConfig `json:"tool_configs,omitempty"`

	// Percentiles of a benchmark job.
	Percentiles []float64 `json:"percentiles,omitempty"`

	// UsageEndpoint is the export API a usage_statistics job reads from.
	UsageEndpoint string `json:"usage_endpoint,omitempty"`
}

func (x *Job) Validate() error {
	if x.ID == "" {
		return goerr.Wrap(types.ErrConfiguration, "job id is empty")
	}
	if x.PageSize < 0 {
		return goerr.Wrap(types.ErrConfiguration, "page size must not be negative", goerr.V("job_id", x.ID), goerr.V("page_size", x.PageSize))
	}

	switch x.Sink {
	case types.SinkPostgres, types.SinkBigQuery:
	default:
		return goerr.Wrap(types.ErrConfiguration, "unknown sink", goerr.V("job_id", x.ID), goerr.V("sink", x.Sink))
	}

	switch x.Kind {
	case types.JobKindScmScan:
		for _, cfg := range x.ToolConfigs {
			if cfg == nil || cfg.ID == "" {
				return goerr.Wrap(types.ErrConfiguration, "tool config without id", goerr.V("job_id", x.ID))
			}
		}
	case types.JobKindBenchmark:
	case types.JobKindUsageStatistics:
		if x.UsageEndpoint == "" {
			return goerr.Wrap(types.ErrConfiguration, "usage endpoint is required", goerr.V("job_id", x.ID))
		}
	default:
		return goerr.Wrap(types.ErrConfiguration, "unknown job kind", goerr.V("job_id", x.ID), goerr.V("kind", x.Kind))
	}
	return nil
}
