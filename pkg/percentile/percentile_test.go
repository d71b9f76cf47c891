package percentile_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/devlens/pkg/percentile"
	"github.com/m-mizutani/gt"
)

func TestPercentile(t *testing.T) {
	testCases := map[string]struct {
		values []float64
		p      float64
		want   float64
	}{
		"p75 of four": {
			values: []float64{10, 20, 30, 40},
			p:      75,
			want:   30,
		},
		"p50 of unsorted": {
			values: []float64{40, 10, 30, 20},
			p:      50,
			want:   20,
		},
		"p100 is max": {
			values: []float64{3, 1, 2},
			p:      100,
			want:   3,
		},
		"small p is min": {
			values: []float64{5, 7, 9},
			p:      0.1,
			want:   5,
		},
		"single value": {
			values: []float64{42},
			p:      90,
			want:   42,
		},
		"p99.9 of ten": {
			values: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			p:      99.9,
			want:   10,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got := gt.R1(percentile.Percentile(tc.values, tc.p)).NoError(t)
			gt.V(t, got).Equal(tc.want)
		})
	}
}

func TestPercentileRankBoundary(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i + 1)
	}

	for _, p := range []float64{1, 7, 14, 28, 50, 55, 56, 57, 99, 100} {
		got := gt.R1(percentile.Percentile(values, p)).NoError(t)
		gt.V(t, got).Equal(p)

		labels := gt.R1(percentile.Compute(values, []float64{p})).NoError(t)
		gt.V(t, labels[percentile.Label(p)]).Equal(p)
	}
}

func TestPercentileDoesNotMutateInput(t *testing.T) {
	values := []float64{40, 10, 30, 20}
	gt.R1(percentile.Percentile(values, 50)).NoError(t)
	gt.V(t, values).Equal([]float64{40, 10, 30, 20})

	gt.R1(percentile.Compute(values, percentile.DefaultPercentiles)).NoError(t)
	gt.V(t, values).Equal([]float64{40, 10, 30, 20})
}

func TestPercentileInvalidArgument(t *testing.T) {
	_, err := percentile.Percentile(nil, 50)
	gt.True(t, errors.Is(err, types.ErrInvalidArgument))

	for _, p := range []float64{0, -1, 100.5} {
		_, err := percentile.Percentile([]float64{1, 2}, p)
		gt.True(t, errors.Is(err, types.ErrInvalidArgument))
	}

	_, err = percentile.Compute([]float64{1}, []float64{50, 120})
	gt.True(t, errors.Is(err, types.ErrInvalidArgument))
}

func TestCompute(t *testing.T) {
	got := gt.R1(percentile.Compute([]float64{10, 20, 30, 40}, []float64{50, 75, 90, 99.9})).NoError(t)
	gt.V(t, got).Equal(map[string]float64{
		"p50":   20,
		"p75":   30,
		"p90":   40,
		"p99.9": 40,
	})
}

func TestLabel(t *testing.T) {
	gt.V(t, percentile.Label(50)).Equal("p50")
	gt.V(t, percentile.Label(99.9)).Equal("p99.9")
}
