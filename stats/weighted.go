// Package stats holds the weighted reductions used to combine forecasts and the outlier
// detection used when fitting trends.
package stats

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/aouyang1/go-rollcast/errkind"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNoValues         = fmt.Errorf("no values to aggregate, %w", errkind.ErrValue)
	ErrWeightsMismatch  = fmt.Errorf("input features do not match number of weights, %w", errkind.ErrValue)
	ErrNegativeWeight   = fmt.Errorf("weights must be non-negative, %w", errkind.ErrValue)
	ErrZeroWeight       = fmt.Errorf("weights must not sum to zero, %w", errkind.ErrValue)
	ErrNonPositiveValue = fmt.Errorf("geometric mean requires positive values, %w", errkind.ErrValue)
	ErrInvalidAxis      = fmt.Errorf("axis must be ByColumn or ByRow, %w", errkind.ErrValue)
	ErrInvalidPercent   = fmt.Errorf("percentile must be within [0, 100], %w", errkind.ErrValue)
)

// WeightedPercentile returns the value of x at the p-th weighted percentile, p in [0, 100].
// The values are sorted and the first one whose cumulative weight reaches p percent of the
// total weight is chosen, so the result is always one of the inputs. Leading zero weight
// values never satisfy p=0. A nil w weighs every value equally.
func WeightedPercentile(x, w []float64, p float64) (float64, error) {
	w, err := checkWeights(x, w)
	if err != nil {
		return 0, err
	}
	if p < 0 || p > 100 || math.IsNaN(p) {
		return 0, fmt.Errorf("got %.3f, %w", p, ErrInvalidPercent)
	}

	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return x[order[i]] < x[order[j]]
	})

	cdf := make([]float64, len(x))
	for i, idx := range order {
		cdf[i] = w[idx]
	}
	floats.CumSum(cdf, cdf)

	target := p / 100 * cdf[len(cdf)-1]
	if target == 0 {
		target = math.Nextafter(target, target+1)
	}
	idx := sort.SearchFloat64s(cdf, target)
	idx = min(max(idx, 0), len(x)-1)
	return x[order[idx]], nil
}

// WeightedMedian is the 50th weighted percentile
func WeightedMedian(x, w []float64) (float64, error) {
	return WeightedPercentile(x, w, 50)
}

// WeightedMin is the smallest value carrying positive weight
func WeightedMin(x, w []float64) (float64, error) {
	return WeightedPercentile(x, w, 0)
}

// WeightedMax is the 100th weighted percentile
func WeightedMax(x, w []float64) (float64, error) {
	return WeightedPercentile(x, w, 100)
}

// WeightedMean is sum(w*x)/sum(w)
func WeightedMean(x, w []float64) (float64, error) {
	w, err := checkWeights(x, w)
	if err != nil {
		return 0, err
	}
	return stat.Mean(x, w), nil
}

// WeightedGeometricMean is exp(sum(w*log(x))/sum(w)). Every value must be positive.
func WeightedGeometricMean(x, w []float64) (float64, error) {
	w, err := checkWeights(x, w)
	if err != nil {
		return 0, err
	}
	for _, v := range x {
		if v <= 0 || math.IsNaN(v) {
			return 0, fmt.Errorf("got %.3f, %w", v, ErrNonPositiveValue)
		}
	}
	return stat.GeometricMean(x, w), nil
}

func checkWeights(x, w []float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, ErrNoValues
	}
	if w == nil {
		w = make([]float64, len(x))
		floats.AddConst(1.0, w)
		return w, nil
	}
	if len(w) != len(x) {
		return nil, fmt.Errorf("got %d features and %d weights, %w", len(x), len(w), ErrWeightsMismatch)
	}
	if slices.ContainsFunc(w, func(v float64) bool { return v < 0 || math.IsNaN(v) }) {
		return nil, ErrNegativeWeight
	}
	if floats.Sum(w) == 0 {
		return nil, ErrZeroWeight
	}
	return w, nil
}

// Aggregation names a weighted reduction
type Aggregation string

const (
	Mean          Aggregation = "mean"
	Median        Aggregation = "median"
	Min           Aggregation = "min"
	Max           Aggregation = "max"
	GeometricMean Aggregation = "gmean"
)

var ErrUnknownAggregation = fmt.Errorf("unknown aggregation, %w", errkind.ErrConfiguration)

// Func returns the weighted reduction named by a
func (a Aggregation) Func() (func(x, w []float64) (float64, error), error) {
	switch a {
	case Mean:
		return WeightedMean, nil
	case Median:
		return WeightedMedian, nil
	case Min:
		return WeightedMin, nil
	case Max:
		return WeightedMax, nil
	case GeometricMean:
		return WeightedGeometricMean, nil
	default:
		return nil, fmt.Errorf("got %q, %w", string(a), ErrUnknownAggregation)
	}
}

// Axis selects the direction a matrix is reduced in
type Axis int

const (
	// ByColumn reduces each column to one value, weights are per row
	ByColumn Axis = iota
	// ByRow reduces each row to one value, weights are per column
	ByRow
)

// Reduce applies the aggregation along axis of m. The weights, if given, must have one entry
// per element of the reduced direction.
func Reduce(m mat.Matrix, axis Axis, w []float64, agg Aggregation) ([]float64, error) {
	fn, err := agg.Func()
	if err != nil {
		return nil, err
	}
	r, c := m.Dims()

	var vecs [][]float64
	switch axis {
	case ByColumn:
		vecs = make([][]float64, c)
		for j := range vecs {
			vecs[j] = mat.Col(nil, j, m)
		}
	case ByRow:
		vecs = make([][]float64, r)
		for i := range vecs {
			vecs[i] = mat.Row(nil, i, m)
		}
	default:
		return nil, fmt.Errorf("got %d, %w", axis, ErrInvalidAxis)
	}

	res := make([]float64, len(vecs))
	for i, v := range vecs {
		res[i], err = fn(v, w)
		if err != nil {
			return nil, fmt.Errorf("unable to reduce position %d with %s, %w", i, agg, err)
		}
	}
	return res, nil
}
