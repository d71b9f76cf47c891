package postgres

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// benchmarks are immutable, a second write of the same computation is a duplicate
const insertKpiBenchmark = `INSERT INTO kpi_benchmark (
	kpi_id, granularity, sample_size, percentile_values, computed_at
) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (kpi_id, granularity, computed_at) DO NOTHING`

type kpiBenchmarkStore struct {
	db *Client
}

func (x *Client) KpiBenchmarks() interfaces.PersistenceStore[*model.KpiBenchmarkValues] {
	return &kpiBenchmarkStore{db: x}
}

func (x *kpiBenchmarkStore) SaveAll(ctx context.Context, items []*model.KpiBenchmarkValues) (*model.SaveResult, error) {
	return saveAll(ctx, x.db.db, inserter[*model.KpiBenchmarkValues]{
		table: "kpi_benchmark",
		query: insertKpiBenchmark,
		args: func(v *model.KpiBenchmarkValues) ([]any, error) {
			raw, err := json.Marshal(v.PercentileValues)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to marshal percentile values", goerr.V("key", v.Key()))
			}
			return []any{string(v.KpiID), string(v.Granularity), v.SampleSize, string(raw), v.ComputedAt}, nil
		},
	}, items)
}
