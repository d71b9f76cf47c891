package percentile

import (
	"math"
	"sort"
	"strconv"

	"github.com/m-mizutani/devlens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultPercentiles is the percentile set of a benchmark when none is configured.
var DefaultPercentiles = []float64{50, 75, 90}

// Percentile returns the nearest-rank p-th percentile of values. values is not
// modified. p must be in (0, 100].
func Percentile(values []float64, p float64) (float64, error) {
	if len(values) == 0 {
		return 0, goerr.Wrap(types.ErrInvalidArgument, "no values for percentile", goerr.V("p", p))
	}
	if err := validate(p); err != nil {
		return 0, err
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return nearestRank(sorted, p), nil
}

// Compute returns the percentile values of ps keyed by Label. values is sorted
// once and not modified.
func Compute(values []float64, ps []float64) (map[string]float64, error) {
	if len(values) == 0 {
		return nil, goerr.Wrap(types.ErrInvalidArgument, "no values for percentile")
	}
	for _, p := range ps {
		if err := validate(p); err != nil {
			return nil, err
		}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	result := make(map[string]float64, len(ps))
	for _, p := range ps {
		result[Label(p)] = nearestRank(sorted, p)
	}
	return result, nil
}

// Label formats a percentile as "p50", "p99.9".
func Label(p float64) string {
	return "p" + strconv.FormatFloat(p, 'f', -1, 64)
}

func validate(p float64) error {
	if math.IsNaN(p) || p <= 0 || p > 100 {
		return goerr.Wrap(types.ErrInvalidArgument, "percentile out of range", goerr.V("p", p))
	}
	return nil
}

func nearestRank(sorted []float64, p float64) float64 {
	n := len(sorted)
	// p*n is exact for integer p, dividing first is not
	rank := int(math.Ceil(p * float64(n) / 100))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}
