package bqsink

import (
	"context"
	"sync"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/bqs"
	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Sink appends items to one BigQuery table. The table is created, or its
// schema merged, on the first write. T is the domain item and R the row
// written for it.
type Sink[T any, R any] struct {
	bq       interfaces.BigQuery
	template any
	toRow    func(T) (R, error)

	mu      sync.Mutex
	schema  bigquery.Schema
	updated bool
}

func newSink[T any, R any](bq interfaces.BigQuery, template any, toRow func(T) (R, error)) *Sink[T, R] {
	return &Sink[T, R]{bq: bq, template: template, toRow: toRow}
}

// SaveAll implements interfaces.PersistenceStore. Invalid items are rejected
// and a key already seen in the same chunk is a duplicate. BigQuery has no
// unique constraint, so keys are not checked against earlier chunks.
func (x *Sink[T, R]) SaveAll(ctx context.Context, items []T) (*model.SaveResult, error) {
	result := &model.SaveResult{}
	seen := map[string]struct{}{}
	var rows []R

	for i, item := range items {
		if v, ok := any(item).(interface{ Validate() error }); ok {
			if err := v.Validate(); err != nil {
				result.Reject(i, err.Error())
				continue
			}
		}
		if k, ok := any(item).(interface{ Key() string }); ok {
			if _, dup := seen[k.Key()]; dup {
				result.Duplicate(i)
				continue
			}
			seen[k.Key()] = struct{}{}
		}

		row, err := x.toRow(item)
		if err != nil {
			result.Reject(i, err.Error())
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return result, nil
	}

	schema, updated, err := x.prepare(ctx)
	if err != nil {
		return nil, err
	}

	if err := x.bq.Insert(ctx, schema, rows, interfaces.WithRetry(updated)); err != nil {
		return nil, goerr.Wrap(err, "failed to insert rows to BigQuery", goerr.V("rows", len(rows)))
	}
	result.Saved = len(rows)

	logging.From(ctx).Debug("rows inserted to BigQuery", "rows", len(rows), "rejected", len(result.Rejected))
	return result, nil
}

func (x *Sink[T, R]) prepare(ctx context.Context) (bigquery.Schema, bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.schema != nil {
		return x.schema, x.updated, nil
	}

	schema, updated, err := createOrUpdateTable(ctx, x.bq, x.template)
	if err != nil {
		return nil, false, err
	}
	x.schema, x.updated = schema, updated
	return schema, updated, nil
}

func createOrUpdateTable(ctx context.Context, bq interfaces.BigQuery, template any) (schema bigquery.Schema, schemaUpdated bool, err error) {
	schema, err = bqs.Infer(template)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to infer row schema")
	}

	metaData, err := bq.GetMetadata(ctx)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to get BigQuery table metadata")
	}
	if metaData == nil {
		if err := bq.CreateTable(ctx, &bigquery.TableMetadata{
			Schema: schema,
		}); err != nil {
			return nil, false, goerr.Wrap(err, "failed to create BigQuery table")
		}

		return schema, false, nil
	}

	if bqs.Equal(metaData.Schema, schema) {
		return schema, false, nil
	}

	mergedSchema, err := bqs.Merge(metaData.Schema, schema)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to merge BigQuery schema")
	}
	if err := bq.UpdateTable(ctx, bigquery.TableMetadataToUpdate{
		Schema: mergedSchema,
	}, metaData.ETag); err != nil {
		return nil, false, goerr.Wrap(err, "failed to update BigQuery table")
	}

	logging.From(ctx).Info("BigQuery table schema updated", "fields", len(mergedSchema))
	return mergedSchema, true, nil
}
