package model

import (
	"sort"
	"time"

	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// KpiSample is one numeric observation of a KPI.
type KpiSample struct {
	KpiID       types.KpiID
	Granularity types.Granularity
	Value       float64
}

// KpiSampleGroup holds every sample of one KPI at one granularity.
type KpiSampleGroup struct {
	KpiID       types.KpiID
	Granularity types.Granularity
	Values      []float64
}

// GroupKpiSamples groups samples by KPI and granularity, ordered by key.
func GroupKpiSamples(samples []KpiSample) []*KpiSampleGroup {
	type key struct {
		kpi  types.KpiID
		gran types.Granularity
	}
	groups := map[key]*KpiSampleGroup{}
	for _, s := range samples {
		k := key{kpi: s.KpiID, gran: s.Granularity}
		g, ok := groups[k]
		if !ok {
			g = &KpiSampleGroup{KpiID: s.KpiID, Granularity: s.Granularity}
			groups[k] = g
		}
		g.Values = append(g.Values, s.Value)
	}

	result := make([]*KpiSampleGroup, 0, len(groups))
	for _, g := range groups {
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].KpiID != result[j].KpiID {
			return result[i].KpiID < result[j].KpiID
		}
		return result[i].Granularity < result[j].Granularity
	})
	return result
}

// KpiBenchmarkValues is the percentile set of one KPI group. Immutable once written.
type KpiBenchmarkValues struct {
	KpiID            types.KpiID        `json:"kpi_id" bigquery:"kpi_id"`
	Granularity      types.Granularity  `json:"granularity" bigquery:"granularity"`
	SampleSize       int                `json:"sample_size" bigquery:"sample_size"`
	PercentileValues map[string]float64 `json:"percentile_values" bigquery:"percentile_values"`
	ComputedAt       time.Time          `json:"computed_at" bigquery:"computed_at"`
}

func (x *KpiBenchmarkValues) Validate() error {
	if x.KpiID == "" {
		return goerr.Wrap(types.ErrValidation, "kpi ID is empty")
	}
	if x.Granularity == "" {
		return goerr.Wrap(types.ErrValidation, "granularity is empty", goerr.V("kpi_id", x.KpiID))
	}
	if len(x.PercentileValues) == 0 {
		return goerr.Wrap(types.ErrValidation, "no percentile values", goerr.V("kpi_id", x.KpiID))
	}
	return nil
}

func (x *KpiBenchmarkValues) Key() string {
	return string(x.KpiID) + ":" + string(x.Granularity)
}
