package postgres

import (
	"context"
	"net/url"

	"github.com/lib/pq"
	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/repository"
	"github.com/m-mizutani/devlens/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
)

const (
	selectKpiGroupsFirst = `SELECT kpi_id, granularity, array_agg(value ORDER BY value)
FROM kpi_sample
GROUP BY kpi_id, granularity
ORDER BY kpi_id, granularity
LIMIT $1`

	selectKpiGroupsAfter = `SELECT kpi_id, granularity, array_agg(value ORDER BY value)
FROM kpi_sample
WHERE (kpi_id, granularity) > ($1, $2)
GROUP BY kpi_id, granularity
ORDER BY kpi_id, granularity
LIMIT $3`

	insertKpiSample = `INSERT INTO kpi_sample (kpi_id, granularity, value) VALUES ($1, $2, $3)`
)

// KpiSampleGroups returns a BatchService paging KPI samples grouped by KPI and
// granularity. The cursor is the key of the last group of the previous page.
func (x *Client) KpiSampleGroups(pageSize int) interfaces.BatchService[*model.KpiSampleGroup] {
	if pageSize < 1 {
		pageSize = 100
	}
	return &kpiGroupSource{db: x, pageSize: pageSize}
}

type kpiGroupSource struct {
	db       *Client
	pageSize int
}

func encodeGroupCursor(kpiID types.KpiID, gran types.Granularity) model.Cursor {
	return model.Cursor(url.Values{"kpi": {string(kpiID)}, "granularity": {string(gran)}}.Encode())
}

func decodeGroupCursor(cursor model.Cursor) (types.KpiID, types.Granularity, error) {
	v, err := url.ParseQuery(string(cursor))
	if err != nil || !v.Has("kpi") || !v.Has("granularity") {
		return "", "", goerr.Wrap(repository.ErrInvalidInput, "invalid KPI group cursor", goerr.V("cursor", cursor))
	}
	return types.KpiID(v.Get("kpi")), types.Granularity(v.Get("granularity")), nil
}

func (x *kpiGroupSource) GetNextPage(ctx context.Context, cursor model.Cursor) (*model.PagedBatch[*model.KpiSampleGroup], error) {
	var query string
	var args []any
	if cursor == "" {
		query, args = selectKpiGroupsFirst, []any{x.pageSize + 1}
	} else {
		kpiID, gran, err := decodeGroupCursor(cursor)
		if err != nil {
			return nil, err
		}
		query, args = selectKpiGroupsAfter, []any{string(kpiID), string(gran), x.pageSize + 1}
	}

	rows, err := x.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "failed to query KPI sample groups", goerr.V("cursor", cursor))
	}
	defer safe.Close(rows)

	var groups []*model.KpiSampleGroup
	more := false
	for rows.Next() {
		if len(groups) == x.pageSize {
			more = true
			break
		}

		var kpiID, gran string
		var values pq.Float64Array
		if err := rows.Scan(&kpiID, &gran, &values); err != nil {
			return nil, goerr.Wrap(err, "failed to scan KPI sample group")
		}
		groups = append(groups, &model.KpiSampleGroup{
			KpiID:       types.KpiID(kpiID),
			Granularity: types.Granularity(gran),
			Values:      []float64(values),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "failed to iterate KPI sample groups", goerr.V("cursor", cursor))
	}

	batch := &model.PagedBatch[*model.KpiSampleGroup]{
		Items:     groups,
		LevelName: "kpi_sample",
		Cursor:    cursor,
		IsLast:    !more,
	}
	if more {
		last := groups[len(groups)-1]
		batch.NextCursor = encodeGroupCursor(last.KpiID, last.Granularity)
	}
	return batch, nil
}

// InsertKpiSamples loads raw samples, mainly for seeding and tests.
func (x *Client) InsertKpiSamples(ctx context.Context, samples []model.KpiSample) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, "failed to begin transaction")
	}
	defer safe.Rollback(tx)

	for _, s := range samples {
		if _, err := tx.ExecContext(ctx, insertKpiSample, string(s.KpiID), string(s.Granularity), s.Value); err != nil {
			return classify(err, "failed to insert KPI sample", goerr.V("kpiID", s.KpiID))
		}
	}

	if err := tx.Commit(); err != nil {
		return classify(err, "failed to commit KPI samples")
	}
	return nil
}
