package pipeline

import (
	"context"

	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// ChunkWriter persists processed chunks. Per-item rejections and duplicates
// are reported in the result, only an unrecoverable store failure is returned
// as error.
type ChunkWriter[T any] struct {
	store interfaces.PersistenceStore[T]
}

func NewChunkWriter[T any](store interfaces.PersistenceStore[T]) *ChunkWriter[T] {
	return &ChunkWriter[T]{store: store}
}

func (x *ChunkWriter[T]) Write(ctx context.Context, chunk []T) (*model.SaveResult, error) {
	if len(chunk) == 0 {
		return &model.SaveResult{}, nil
	}

	result, err := x.store.SaveAll(ctx, chunk)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to save chunk", goerr.V("size", len(chunk)))
	}
	if result == nil {
		return nil, goerr.New("persistence store returned no result", goerr.V("size", len(chunk)))
	}
	if result.Saved+len(result.Duplicates)+len(result.Rejected) > len(chunk) {
		return nil, goerr.New("persistence store reported more items than given",
			goerr.V("size", len(chunk)),
			goerr.V("saved", result.Saved),
			goerr.V("duplicates", len(result.Duplicates)),
			goerr.V("rejected", len(result.Rejected)),
		)
	}

	logger := logging.From(ctx)
	for _, r := range result.Rejected {
		logger.Warn("item rejected by store", "index", r.Index, "reason", r.Reason)
	}
	if len(result.Duplicates) > 0 {
		logger.Info("duplicate items skipped", "count", len(result.Duplicates), "indexes", result.Duplicates)
	}

	return result, nil
}
