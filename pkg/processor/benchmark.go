package processor

import (
	"context"

	"github.com/m-mizutani/devlens/pkg/domain/interfaces"
	"github.com/m-mizutani/devlens/pkg/domain/model"
	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/percentile"
	"github.com/m-mizutani/devlens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Benchmark turns a KPI sample group into its percentile values.
type Benchmark struct {
	percentiles []float64
}

var _ interfaces.ItemProcessor[*model.KpiSampleGroup, *model.KpiBenchmarkValues] = (*Benchmark)(nil)

// NewBenchmark creates a processor computing ps, or percentile.DefaultPercentiles
// when ps is empty.
func NewBenchmark(ps []float64) (*Benchmark, error) {
	if len(ps) == 0 {
		ps = percentile.DefaultPercentiles
	}
	for _, p := range ps {
		if _, err := percentile.Percentile([]float64{0}, p); err != nil {
			return nil, goerr.Wrap(types.ErrConfiguration, "invalid benchmark percentile", goerr.V("p", p))
		}
	}
	return &Benchmark{percentiles: append([]float64{}, ps...)}, nil
}

func (x *Benchmark) Process(ctx context.Context, group *model.KpiSampleGroup) ([]*model.KpiBenchmarkValues, error) {
	if len(group.Values) == 0 {
		logging.From(ctx).Debug("empty KPI group, no benchmark",
			"kpi_id", group.KpiID,
			"granularity", group.Granularity,
		)
		return nil, nil
	}

	values, err := percentile.Compute(group.Values, x.percentiles)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to compute percentiles",
			goerr.V("kpi_id", group.KpiID),
			goerr.V("granularity", group.Granularity),
		)
	}

	return []*model.KpiBenchmarkValues{
		{
			KpiID:            group.KpiID,
			Granularity:      group.Granularity,
			SampleSize:       len(group.Values),
			PercentileValues: values,
			ComputedAt:       logging.CtxTime(ctx),
		},
	}, nil
}
