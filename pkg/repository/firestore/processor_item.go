package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

// PutProcessorItems registers processor items, in batches of 500 (Firestore limit).
func (x *Client) PutProcessorItems(ctx context.Context, items []*model.ProcessorItem) error {
	collection := x.client.Collection(collectionProcessorItem)

	for i := 0; i < len(items); i += batchSize {
		end := min(i+batchSize, len(items))

		batch := x.client.Batch()
		for _, item := range items[i:end] {
			docID, err := ToDocID(string(item.ID))
			if err != nil {
				return err
			}
			batch.Set(collection.Doc(docID), item)
		}

		if _, err := batch.Commit(ctx); err != nil {
			return wrapErr(err, "failed to batch put processor items",
				goerr.V("batchStart", i),
				goerr.V("batchEnd", end),
			)
		}
	}

	return nil
}

// ProcessorItems returns a BatchService paging processor items in document ID
// order. The cursor is the ID of the last item of the previous page.
func (x *Client) ProcessorItems(pageSize int) interfaces.BatchService[*model.ProcessorItem] {
	if pageSize < 1 {
		pageSize = 100
	}
	return &processorItemSource{client: x.client, pageSize: pageSize}
}

type processorItemSource struct {
	client   *firestore.Client
	pageSize int
}

func (x *processorItemSource) GetNextPage(ctx context.Context, cursor model.Cursor) (*model.PagedBatch[*model.ProcessorItem], error) {
	query := x.client.Collection(collectionProcessorItem).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Limit(x.pageSize + 1)
	if cursor != "" {
		query = query.StartAfter(string(cursor))
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var items []*model.ProcessorItem
	var lastID string
	more := false
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, wrapErr(err, "failed to iterate processor items", goerr.V("cursor", cursor))
		}
		if len(items) == x.pageSize {
			// one extra document only tells that another page exists
			more = true
			break
		}

		var item model.ProcessorItem
		if err := snap.DataTo(&item); err != nil {
			return nil, goerr.Wrap(err, "failed to decode processor item", goerr.V("docID", snap.Ref.ID))
		}
		items = append(items, &item)
		lastID = snap.Ref.ID
	}

	batch := &model.PagedBatch[*model.ProcessorItem]{
		Items:     items,
		LevelName: collectionProcessorItem,
		Cursor:    cursor,
		IsLast:    true,
	}
	if more {
		batch.IsLast = false
		batch.NextCursor = model.Cursor(lastID)
	}
	return batch, nil
}
