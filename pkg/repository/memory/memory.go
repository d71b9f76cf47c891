package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
)

// PagedSource serves a fixed dataset in pages. The cursor is the decimal
// offset of the first item of the page.
type PagedSource[T any] struct {
	items    []T
	pageSize int

	mu       sync.Mutex
	requests []model.Cursor
}

var _ interfaces.BatchService[int] = (*PagedSource[int])(nil)

func NewPagedSource[T any](items []T, pageSize int) *PagedSource[T] {
	if pageSize < 1 {
		pageSize = 1
	}
	return &PagedSource[T]{items: items, pageSize: pageSize}
}

func (x *PagedSource[T]) GetNextPage(ctx context.Context, cursor model.Cursor) (*model.PagedBatch[T], error) {
	x.mu.Lock()
	x.requests = append(x.requests, cursor)
	x.mu.Unlock()

	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(string(cursor))
		if err != nil || n < 0 || n > len(x.items) {
			return nil, goerr.Wrap(repository.ErrInvalidInput, "invalid cursor", goerr.V("cursor", cursor))
		}
		offset = n
	}

	end := min(offset+x.pageSize, len(x.items))
	batch := &model.PagedBatch[T]{
		Items:     append([]T{}, x.items[offset:end]...),
		LevelName: "memory",
		Cursor:    cursor,
		IsLast:    end >= len(x.items),
	}
	if !batch.IsLast {
		batch.NextCursor = model.Cursor(strconv.Itoa(end))
	}
	return batch, nil
}

// Requests returns the cursors requested so far, in order.
func (x *PagedSource[T]) Requests() []model.Cursor {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]model.Cursor{}, x.requests...)
}

type validator interface {
	Validate() error
}

type keyer interface {
	Key() string
}

type revisioner interface {
	Revision() string
}

type stored struct {
	index    int
	revision string
}

// Sink keeps saved items in memory. Items implementing Validate are rejected
// when invalid. An item whose Key is already stored is a duplicate, unless it
// carries a different Revision and replaces the stored one.
type Sink[T any] struct {
	mu    sync.RWMutex
	items []T
	keys  map[string]stored
}

var _ interfaces.PersistenceStore[int] = (*Sink[int])(nil)

func NewSink[T any]() *Sink[T] {
	return &Sink[T]{keys: map[string]stored{}}
}

func (x *Sink[T]) SaveAll(ctx context.Context, items []T) (*model.SaveResult, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	result := &model.SaveResult{}
	for i, item := range items {
		if v, ok := any(item).(validator); ok {
			if err := v.Validate(); err != nil {
				result.Reject(i, err.Error())
				continue
			}
		}
		if k, ok := any(item).(keyer); ok {
			key := k.Key()
			var revision string
			if r, ok := any(item).(revisioner); ok {
				revision = r.Revision()
			}

			if prev, exists := x.keys[key]; exists {
				if prev.revision == revision {
					result.Duplicate(i)
					continue
				}
				x.items[prev.index] = item
				x.keys[key] = stored{index: prev.index, revision: revision}
				result.Saved++
				continue
			}
			x.keys[key] = stored{index: len(x.items), revision: revision}
		}

		x.items = append(x.items, item)
		result.Saved++
	}

	return result, nil
}

// Items returns saved items in save order.
func (x *Sink[T]) Items() []T {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]T{}, x.items...)
}

type checkpointStore struct {
	mu          sync.RWMutex
	checkpoints map[types.JobID]model.Checkpoint
}

func NewCheckpointStore() interfaces.CheckpointStore {
	return &checkpointStore{
		checkpoints: make(map[types.JobID]model.Checkpoint),
	}
}

func (r *checkpointStore) GetCheckpoint(ctx context.Context, jobID types.JobID) (*model.Checkpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cp, ok := r.checkpoints[jobID]
	if !ok {
		return nil, nil
	}
	return &cp, nil
}

func (r *checkpointStore) PutCheckpoint(ctx context.Context, cp *model.Checkpoint) error {
	if cp.JobID == "" {
		return goerr.Wrap(repository.ErrInvalidInput, "job ID is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkpoints[cp.JobID] = *cp
	return nil
}

type toolConfigStore struct {
	mu      sync.RWMutex
	configs map[types.ToolConfigID]*model.ToolConfig
}

func NewToolConfigStore() interfaces.ToolConfigStore {
	return &toolConfigStore{
		configs: make(map[types.ToolConfigID]*model.ToolConfig),
	}
}

func (r *toolConfigStore) GetToolConfig(ctx context.Context, id types.ToolConfigID) (*model.ToolConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[id]
	if !ok {
		return nil, goerr.Wrap(repository.ErrNotFound, "tool config not found", goerr.V("id", id))
	}
	return copyToolConfig(cfg), nil
}

func (r *toolConfigStore) PutToolConfig(ctx context.Context, cfg *model.ToolConfig) error {
	if cfg.ID == "" {
		return goerr.Wrap(repository.ErrInvalidInput, "tool config ID is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.ID] = copyToolConfig(cfg)
	return nil
}

func copyToolConfig(cfg *model.ToolConfig) *model.ToolConfig {
	copied := *cfg
	copied.Include = append([]string(nil), cfg.Include...)
	copied.Exclude = append([]string(nil), cfg.Exclude...)
	return &copied
}

// Database keeps KPI samples and job outputs in memory.
type Database struct {
	mu      sync.Mutex
	samples []model.KpiSample

	scmRecords *Sink[*model.ScmRecord]
	benchmarks *Sink[*model.KpiBenchmarkValues]
	usage      *Sink[*model.AIUsageStatistics]
}

var _ interfaces.Database = (*Database)(nil)

func NewDatabase() *Database {
	return &Database{
		scmRecords: NewSink[*model.ScmRecord](),
		benchmarks: NewSink[*model.KpiBenchmarkValues](),
		usage:      NewSink[*model.AIUsageStatistics](),
	}
}

func (x *Database) InsertKpiSamples(ctx context.Context, samples []model.KpiSample) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.samples = append(x.samples, samples...)
	return nil
}

// KpiSampleGroups pages a snapshot of the samples grouped at call time.
func (x *Database) KpiSampleGroups(pageSize int) interfaces.BatchService[*model.KpiSampleGroup] {
	x.mu.Lock()
	defer x.mu.Unlock()
	return NewPagedSource(model.GroupKpiSamples(x.samples), pageSize)
}

func (x *Database) ScmRecords() interfaces.PersistenceStore[*model.ScmRecord] {
	return x.scmRecords
}

func (x *Database) KpiBenchmarks() interfaces.PersistenceStore[*model.KpiBenchmarkValues] {
	return x.benchmarks
}

func (x *Database) UsageStatistics() interfaces.PersistenceStore[*model.AIUsageStatistics] {
	return x.usage
}

func (x *Database) SavedScmRecords() []*model.ScmRecord {
	return x.scmRecords.Items()
}

func (x *Database) SavedBenchmarks() []*model.KpiBenchmarkValues {
	return x.benchmarks.Items()
}

func (x *Database) SavedUsageStatistics() []*model.AIUsageStatistics {
	return x.usage.Items()
}

// ProcessorItemSource serves a fixed list of processor items.
type ProcessorItemSource struct {
	items []*model.ProcessorItem
}

var _ interfaces.ProcessorItemSource = (*ProcessorItemSource)(nil)

func NewProcessorItemSource(items ...*model.ProcessorItem) *ProcessorItemSource {
	return &ProcessorItemSource{items: items}
}

func (x *ProcessorItemSource) ProcessorItems(pageSize int) interfaces.BatchService[*model.ProcessorItem] {
	return NewPagedSource(x.items, pageSize)
}
