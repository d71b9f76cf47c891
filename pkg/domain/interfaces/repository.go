package interfaces

import (
	"context"

	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
)

//go:generate moq -out ../mock/repository.go -pkg mock . CheckpointStore ToolConfigStore

// BatchService serves one page of a dataset per call. The empty cursor asks for
// the first page.
type BatchService[T any] interface {
	GetNextPage(ctx context.Context, cursor model.Cursor) (*model.PagedBatch[T], error)
}

// PersistenceStore saves a chunk of items. Expected per-item failures are
// reported in SaveResult, an error means the chunk could not be written at all.
type PersistenceStore[T any] interface {
	SaveAll(ctx context.Context, items []T) (*model.SaveResult, error)
}

// CheckpointStore keeps the last written position of a job. Get returns nil
// without error when the job has no checkpoint.
type CheckpointStore interface {
	GetCheckpoint(ctx context.Context, jobID types.JobID) (*model.Checkpoint, error)
	PutCheckpoint(ctx context.Context, cp *model.Checkpoint) error
}

// ToolConfigStore resolves the tool configuration of a processor item.
type ToolConfigStore interface {
	GetToolConfig(ctx context.Context, id types.ToolConfigID) (*model.ToolConfig, error)
	PutToolConfig(ctx context.Context, cfg *model.ToolConfig) error
}

// ItemProcessor transforms one input item into zero or more outputs. Outputs
// returned together with an error are kept, the error is recorded as a skip.
type ItemProcessor[I, O any] interface {
	Process(ctx context.Context, item I) ([]O, error)
}

// ProcessorItemSource pages the configured scan targets.
type ProcessorItemSource interface {
	ProcessorItems(pageSize int) BatchService[*model.ProcessorItem]
}

// Database is the relational store holding KPI samples and the normalized
// outputs of every job kind.
type Database interface {
	KpiSampleGroups(pageSize int) BatchService[*model.KpiSampleGroup]
	ScmRecords() PersistenceStore[*model.ScmRecord]
	KpiBenchmarks() PersistenceStore[*model.KpiBenchmarkValues]
	UsageStatistics() PersistenceStore[*model.AIUsageStatistics]
}
