package pipeline

import (
	"context"
	"io"

	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// PagedReader reads a BatchService page by page, strictly forward. Read
// returns io.EOF after the last page.
type PagedReader[T any] struct {
	service interfaces.BatchService[T]
	cursor  model.Cursor
	seen    map[model.Cursor]struct{}
	done    bool
}

func NewPagedReader[T any](service interfaces.BatchService[T]) *PagedReader[T] {
	return &PagedReader[T]{
		service: service,
		seen:    map[model.Cursor]struct{}{},
	}
}

// Resume positions the reader at cursor, typically the cursor of a checkpoint.
// It must be called before the first Read.
func (x *PagedReader[T]) Resume(cursor model.Cursor) {
	x.cursor = cursor
}

// Cursor returns the cursor the next Read will request.
func (x *PagedReader[T]) Cursor() model.Cursor {
	return x.cursor
}

// Read fetches the next page. A failed fetch does not move the reader, so the
// same cursor can be requested again.
func (x *PagedReader[T]) Read(ctx context.Context) (*model.PagedBatch[T], error) {
	if x.done {
		return nil, io.EOF
	}
	if _, ok := x.seen[x.cursor]; ok {
		return nil, goerr.Wrap(types.ErrPersistentProvider, "cursor requested twice", goerr.V("cursor", x.cursor))
	}

	batch, err := x.service.GetNextPage(ctx, x.cursor)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get next page", goerr.V("cursor", x.cursor))
	}
	if batch == nil {
		return nil, goerr.Wrap(types.ErrPersistentProvider, "batch service returned no page", goerr.V("cursor", x.cursor))
	}

	x.seen[x.cursor] = struct{}{}
	batch.Cursor = x.cursor

	if batch.IsLast {
		x.done = true
		if len(batch.Items) == 0 {
			return nil, io.EOF
		}
		return batch, nil
	}

	if batch.NextCursor == "" {
		return nil, goerr.Wrap(types.ErrPersistentProvider, "non-last page without next cursor", goerr.V("cursor", x.cursor))
	}
	if _, ok := x.seen[batch.NextCursor]; ok {
		return nil, goerr.Wrap(types.ErrPersistentProvider, "next cursor was already read",
			goerr.V("cursor", x.cursor),
			goerr.V("next_cursor", batch.NextCursor),
		)
	}

	x.cursor = batch.NextCursor
	return batch, nil
}
