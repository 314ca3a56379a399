// Package forecastertest checks that a forecaster honors the Forecaster contract. Every model
// test runs its forecaster through Run.
package forecastertest

import (
	"fmt"
	"math"
	"testing"
	"time"

	forecaster "github.com/aouyang1/go-rollcast"
	"github.com/aouyang1/go-rollcast/errkind"
	"github.com/aouyang1/go-rollcast/horizon"
	"github.com/aouyang1/go-rollcast/metrics"
	"github.com/aouyang1/go-rollcast/timedataset"
	"github.com/aouyang1/go-rollcast/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a new unfitted forecaster
type Factory func() forecaster.Forecaster

// Horizons used for horizon dependent checks
var Horizons = []horizon.Horizon{
	horizon.MustRelative(1),
	horizon.MustRelative(2, 5),
}

var (
	stepLengths    = []int{1, 5}
	initialWindows = []int{1, 5}
)

const (
	seriesLen = 50
	trainSize = 0.75
)

// Run checks the forecaster returned by factory against every part of the contract that
// applies to its capabilities
func Run(t *testing.T, name string, factory Factory) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		caps := factory().Capabilities()

		t.Run("not fitted", func(t *testing.T) { checkNotFitted(t, factory) })
		t.Run("invalid type", func(t *testing.T) { checkInvalidType(t, factory) })
		if caps.YInputType == forecaster.Multivariate {
			t.Run("univariate input", func(t *testing.T) { checkMultivariateOnly(t, factory) })
		}
		t.Run("missing horizon", func(t *testing.T) { checkMissingHorizon(t, factory) })
		if caps.RequiresFHInFit {
			t.Run("different horizon", func(t *testing.T) { checkDifferentHorizon(t, factory) })
		}

		for _, nCols := range numColumns(caps.YInputType) {
			t.Run(fmt.Sprintf("%d column(s)", nCols), func(t *testing.T) {
				t.Run("cutoff and observed", func(t *testing.T) { checkCutoffAndObserved(t, factory, nCols) })
				t.Run("refit", func(t *testing.T) { checkRefit(t, factory, nCols) })
				t.Run("hierarchical", func(t *testing.T) { checkHierarchical(t, factory, nCols) })
				t.Run("fitted params", func(t *testing.T) { checkFittedParams(t, factory, nCols) })
				for _, fh := range Horizons {
					t.Run("fh="+fh.String(), func(t *testing.T) {
						t.Run("horizon attribute", func(t *testing.T) { checkHorizonAttribute(t, factory, nCols, fh) })
						t.Run("predict index", func(t *testing.T) { checkPredictIndex(t, factory, nCols, fh) })
						t.Run("absolute horizon", func(t *testing.T) { checkAbsoluteHorizon(t, factory, nCols, fh) })
						t.Run("intervals", func(t *testing.T) { checkIntervals(t, factory, nCols, fh) })
						t.Run("quantiles", func(t *testing.T) { checkQuantiles(t, factory, nCols, fh) })
						t.Run("score", func(t *testing.T) { checkScore(t, factory, nCols, fh) })
						t.Run("update predict single", func(t *testing.T) { checkUpdatePredictSingle(t, factory, nCols, fh) })
						if !caps.RequiresFHInFit {
							t.Run("residuals", func(t *testing.T) { checkResiduals(t, factory, nCols, fh) })
						}
						checkUpdatePredict(t, factory, nCols, fh)
					})
				}
			})
		}
	})
}

func numColumns(y forecaster.YInputType) []int {
	switch y {
	case forecaster.Multivariate:
		return []int{2}
	case forecaster.Both:
		return []int{1, 2}
	default:
		return []int{1}
	}
}

// Series returns the train and test parts of a deterministic positive series
func Series(t *testing.T, nCols int) (*timedataset.Frame, *timedataset.Frame) {
	t.Helper()
	opt := timedataset.NewDefaultSeriesOptions()
	opt.N = seriesLen
	opt.Columns = nCols
	y, err := timedataset.MakeSeries(opt)
	require.NoError(t, err)
	train, test, err := y.TemporalSplit(trainSize)
	require.NoError(t, err)
	return train, test
}

func fitted(t *testing.T, factory Factory, y any, fh horizon.Horizon) forecaster.Forecaster {
	t.Helper()
	f := factory()
	require.NoError(t, f.Fit(y, fh))
	return f
}

// expectedIndex is the prediction time of every step from the cutoff
func expectedIndex(t *testing.T, cutoff time.Time, freq time.Duration, fh horizon.Horizon) []time.Time {
	t.Helper()
	res, err := fh.ToAbsolute(cutoff, freq)
	require.NoError(t, err)
	return res
}

func unixNano(t []time.Time) []int64 {
	res := make([]int64, len(t))
	for i, ts := range t {
		res[i] = ts.UnixNano()
	}
	return res
}

func freqOf(t *testing.T, y interface{ Freq() (time.Duration, error) }) time.Duration {
	t.Helper()
	freq, err := y.Freq()
	require.NoError(t, err)
	return freq
}

func requireFinite(t *testing.T, r *forecaster.Results) {
	t.Helper()
	for i, row := range r.Values {
		for c, v := range row {
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "row %d column %d is %f", i, c, v)
		}
	}
}

func checkNotFitted(t *testing.T, factory Factory) {
	train, test := Series(t, 2)
	f := factory()
	assert.False(t, f.IsFitted())
	assert.True(t, f.Cutoff().IsZero())
	assert.True(t, f.Horizon().IsEmpty())
	assert.Nil(t, f.Observed())

	fh := horizon.MustRelative(1)
	_, err := f.Predict(fh)
	assert.ErrorIs(t, err, errkind.ErrNotFitted)

	err = f.Update(test, false)
	assert.ErrorIs(t, err, errkind.ErrNotFitted)

	cv := &window.ExpandingWindow{FH: fh, InitialWindow: 1, StepLength: 1}
	_, err = f.UpdatePredict(test, cv, false)
	assert.ErrorIs(t, err, errkind.ErrNotFitted)

	_, err = f.UpdatePredictSingle(test, fh, false)
	assert.ErrorIs(t, err, errkind.ErrNotFitted)

	_, err = f.Score(train, fh)
	assert.ErrorIs(t, err, errkind.ErrNotFitted)

	_, err = f.PredictResiduals(test)
	assert.ErrorIs(t, err, errkind.ErrNotFitted)

	_, err = f.FittedParams()
	if !errkind.IsUnsupported(err) {
		assert.ErrorIs(t, err, errkind.ErrNotFitted)
	}
}

func checkInvalidType(t *testing.T, factory Factory) {
	f := factory()
	err := f.Fit([]float64{1, 2, 3}, horizon.MustRelative(1))
	require.ErrorIs(t, err, errkind.ErrType)
	assert.Contains(t, err.Error(), "type")
	assert.False(t, f.IsFitted())
}

func checkMultivariateOnly(t *testing.T, factory Factory) {
	train, _ := Series(t, 1)
	f := factory()
	err := f.Fit(train, horizon.MustRelative(1))
	require.ErrorIs(t, err, errkind.ErrValue)
	assert.Contains(t, err.Error(), "two or more variables")
	assert.False(t, f.IsFitted())
}

func checkMissingHorizon(t *testing.T, factory Factory) {
	train, _ := Series(t, numColumns(factory().Capabilities().YInputType)[0])
	f := factory()
	err := f.Fit(train, horizon.Horizon{})
	if f.Capabilities().RequiresFHInFit {
		assert.ErrorIs(t, err, errkind.ErrConfiguration)
		assert.False(t, f.IsFitted())
		return
	}
	require.NoError(t, err)
	_, err = f.Predict(horizon.Horizon{})
	assert.ErrorIs(t, err, errkind.ErrConfiguration)
}

func checkDifferentHorizon(t *testing.T, factory Factory) {
	train, _ := Series(t, numColumns(factory().Capabilities().YInputType)[0])
	f := fitted(t, factory, train, horizon.MustRelative(1, 2))
	_, err := f.Predict(horizon.MustRelative(1, 3))
	assert.ErrorIs(t, err, errkind.ErrConfiguration)

	// the stored horizon is kept
	_, err = f.Predict(horizon.Horizon{})
	assert.NoError(t, err)
}

func checkCutoffAndObserved(t *testing.T, factory Factory, nCols int) {
	train, test := Series(t, nCols)
	f := fitted(t, factory, train, horizon.MustRelative(1))
	assert.True(t, f.IsFitted())
	assert.Equal(t, train.Index().EndTime().UnixNano(), f.Cutoff().UnixNano())
	assertObserved(t, train, f.Observed())

	require.NoError(t, f.Update(test, false))
	assert.Equal(t, test.Index().EndTime().UnixNano(), f.Cutoff().UnixNano())
	all, err := train.Append(test)
	require.NoError(t, err)
	assertObserved(t, all, f.Observed())

	// data that does not continue the index is rejected
	f = fitted(t, factory, train, horizon.MustRelative(1))
	err = f.Update(test.Slice(1, test.Len()), false)
	assert.ErrorIs(t, err, errkind.ErrValue)
}

func assertObserved(t *testing.T, expected *timedataset.Frame, p *timedataset.Panel) {
	t.Helper()
	require.NotNil(t, p)
	require.Len(t, p.Frames, 1)
	assert.Equal(t, unixNano(expected.T), unixNano(p.Frames[0].T))
	assert.Equal(t, expected.Columns, p.Frames[0].Columns)
	assert.Equal(t, expected.Values, p.Frames[0].Values)
}

func checkRefit(t *testing.T, factory Factory, nCols int) {
	train, test := Series(t, nCols)
	f := fitted(t, factory, train, horizon.MustRelative(1))
	require.NoError(t, f.Update(test, true))
	require.NoError(t, f.Fit(train, horizon.MustRelative(1)))
	assert.Equal(t, train.Index().EndTime().UnixNano(), f.Cutoff().UnixNano())
	assertObserved(t, train, f.Observed())
}

func checkHorizonAttribute(t *testing.T, factory Factory, nCols int, fh horizon.Horizon) {
	train, _ := Series(t, nCols)
	f := fitted(t, factory, train, fh)
	assert.True(t, fh.Equal(f.Horizon()))

	_, err := f.Predict(horizon.Horizon{})
	require.NoError(t, err)
	assert.True(t, fh.Equal(f.Horizon()))

	if f.Capabilities().RequiresFHInFit {
		return
	}
	f = fitted(t, factory, train, horizon.Horizon{})
	assert.True(t, f.Horizon().IsEmpty())
	_, err = f.Predict(fh)
	require.NoError(t, err)
	assert.True(t, fh.Equal(f.Horizon()))
}

func checkPredictIndex(t *testing.T, factory Factory, nCols int, fh horizon.Horizon) {
	train, _ := Series(t, nCols)
	f := fitted(t, factory, train, fh)
	res, err := f.Predict(fh)
	require.NoError(t, err)

	expected := expectedIndex(t, f.Cutoff(), freqOf(t, train), fh)
	assert.Equal(t, unixNano(expected), unixNano(res.Index()))
	assert.Equal(t, train.Columns, res.Columns)
	require.Len(t, res.Values, fh.Len())
	for _, row := range res.Values {
		assert.Len(t, row, nCols)
	}
	requireFinite(t, res)
}

func checkAbsoluteHorizon(t *testing.T, factory Factory, nCols int, fh horizon.Horizon) {
	train, _ := Series(t, nCols)
	f := fitted(t, factory, train, fh)
	rel, err := f.Predict(fh)
	require.NoError(t, err)

	abs, err := horizon.NewAbsolute(expectedIndex(t, f.Cutoff(), freqOf(t, train), fh)...)
	require.NoError(t, err)
	res, err := f.Predict(abs)
	require.NoError(t, err)
	assert.Equal(t, unixNano(rel.Index()), unixNano(res.Index()))
	assert.InDeltaSlice(t, flatten(rel), flatten(res), 1e-9)
}

func flatten(r *forecaster.Results) []float64 {
	var res []float64
	for _, row := range r.Values {
		res = append(res, row...)
	}
	return res
}

func checkIntervals(t *testing.T, factory Factory, nCols int, fh horizon.Horizon) {
	train, _ := Series(t, nCols)
	f := fitted(t, factory, train, fh)
	coverage := []float64{0.5, 0.9}

	intervals, err := f.PredictInterval(fh, coverage...)
	if !f.Capabilities().PredInt {
		require.ErrorIs(t, err, errkind.ErrUnsupported)
		assert.Contains(t, err.Error(), "prediction intervals")
		return
	}
	require.NoError(t, err)
	require.Len(t, intervals, len(coverage))

	expected := unixNano(expectedIndex(t, f.Cutoff(), freqOf(t, train), fh))
	for i, in := range intervals {
		assert.Equal(t, coverage[i], in.Coverage)
		assert.Equal(t, expected, unixNano(in.Lower.Index()))
		assert.Equal(t, expected, unixNano(in.Upper.Index()))
		for r := range in.Lower.Values {
			for c := range in.Lower.Values[r] {
				assert.LessOrEqual(t, in.Lower.Values[r][c], in.Upper.Values[r][c])
			}
		}
	}

	_, err = f.PredictInterval(fh, 1.5)
	assert.ErrorIs(t, err, errkind.ErrValue)
}

func checkQuantiles(t *testing.T, factory Factory, nCols int, fh horizon.Horizon) {
	train, _ := Series(t, nCols)
	f := fitted(t, factory, train, fh)
	alpha := []float64{0.95, 0.05, 0.5}

	q, err := f.PredictQuantiles(fh, alpha...)
	if !f.Capabilities().PredInt {
		require.ErrorIs(t, err, errkind.ErrUnsupported)
		assert.Contains(t, err.Error(), "prediction intervals")
		return
	}
	require.NoError(t, err)
	assert.Equal(t, []float64{0.05, 0.5, 0.95}, q.Alpha)
	require.Len(t, q.Results, 3)

	for a := 1; a < len(q.Results); a++ {
		lower, upper := q.Results[a-1], q.Results[a]
		for r := range lower.Values {
			for c := range lower.Values[r] {
				assert.LessOrEqual(t, lower.Values[r][c], upper.Values[r][c])
			}
		}
	}

	_, err = f.PredictQuantiles(fh, 0)
	assert.ErrorIs(t, err, errkind.ErrValue)
}

func checkScore(t *testing.T, factory Factory, nCols int, fh horizon.Horizon) {
	train, test := Series(t, nCols)
	f := fitted(t, factory, train, fh)
	score, err := f.Score(test, fh)
	require.NoError(t, err)

	pred, err := f.Predict(fh)
	require.NoError(t, err)
	var predicted, actual []float64
	for i, row := range pred.Values {
		pos := int(pred.T[i].Sub(test.T[0]) / freqOf(t, test))
		for c := range row {
			predicted = append(predicted, row[c])
			actual = append(actual, test.Values[c][pos])
		}
	}
	expected, err := metrics.MAPE(predicted, actual)
	require.NoError(t, err)
	assert.InDelta(t, expected, score, 1e-12)
	assert.GreaterOrEqual(t, score, 0.0)
}

func checkUpdatePredictSingle(t *testing.T, factory Factory, nCols int, fh horizon.Horizon) {
	for _, updateParams := range []bool{true, false} {
		train, test := Series(t, nCols)
		f := fitted(t, factory, train, fh)
		res, err := f.UpdatePredictSingle(test, fh, updateParams)
		require.NoError(t, err)
		assert.Equal(t, test.Index().EndTime().UnixNano(), f.Cutoff().UnixNano())
		expected := expectedIndex(t, test.Index().EndTime(), freqOf(t, test), fh)
		assert.Equal(t, unixNano(expected), unixNano(res.Index()))
		requireFinite(t, res)
	}
}

func checkResiduals(t *testing.T, factory Factory, nCols int, fh horizon.Horizon) {
	train, test := Series(t, nCols)
	f := fitted(t, factory, train, fh)
	maxStep, err := fh.Max()
	require.NoError(t, err)
	actual := test.Slice(0, maxStep)

	res, err := f.PredictResiduals(actual)
	require.NoError(t, err)
	assert.True(t, fh.Equal(f.Horizon()))
	assert.Equal(t, unixNano(actual.T), unixNano(res.Index()))

	pred, err := f.Predict(horizon.MustRelative(steps(maxStep)...))
	require.NoError(t, err)
	for i, row := range res.Values {
		for c, v := range row {
			assert.InDelta(t, actual.Values[c][i]-pred.Values[i][c], v, 1e-9)
		}
	}
}

func steps(n int) []int {
	res := make([]int, n)
	for i := range res {
		res[i] = i + 1
	}
	return res
}

func checkHierarchical(t *testing.T, factory Factory, nCols int) {
	opt := timedataset.NewDefaultSeriesOptions()
	opt.Columns = nCols
	keys := []string{"a", "b"}
	p, err := timedataset.MakePanel(keys, opt)
	require.NoError(t, err)

	fh := horizon.MustRelative(1, 2)
	f := fitted(t, factory, p, fh)
	res, err := f.Predict(fh)
	require.NoError(t, err)
	require.Equal(t, len(keys)*fh.Len(), res.Len())
	assert.Equal(t, []string{"a", "a", "b", "b"}, res.Keys)

	expected := unixNano(expectedIndex(t, f.Cutoff(), freqOf(t, p), fh))
	for _, k := range keys {
		assert.Equal(t, expected, unixNano(res.Entity(k).Index()))
	}
	requireFinite(t, res)
}

func checkFittedParams(t *testing.T, factory Factory, nCols int) {
	train, _ := Series(t, nCols)
	f := fitted(t, factory, train, horizon.MustRelative(1))
	params, err := f.FittedParams()
	if errkind.IsUnsupported(err) {
		return
	}
	require.NoError(t, err)
	assert.NotEmpty(t, params)
	for name, v := range params {
		assert.False(t, math.IsNaN(v), "parameter %s is NaN", name)
	}
}

// checkUpdatePredict runs every combination of step length, initial window and parameter
// updates and compares the predicted times with ExpectedUpdatePredictIndex
func checkUpdatePredict(t *testing.T, factory Factory, nCols int, fh horizon.Horizon) {
	for _, updateParams := range []bool{true, false} {
		for _, stepLength := range stepLengths {
			if updateParams && stepLength != 1 {
				continue
			}
			for _, initialWindow := range initialWindows {
				name := fmt.Sprintf("update predict step=%d window=%d update_params=%t", stepLength, initialWindow, updateParams)
				t.Run(name, func(t *testing.T) {
					train, test := Series(t, nCols)
					f := fitted(t, factory, train, fh)
					cv := &window.ExpandingWindow{FH: fh, InitialWindow: initialWindow, StepLength: stepLength}

					res, err := f.UpdatePredict(test, cv, updateParams)
					require.NoError(t, err)

					expected, err := window.ExpectedUpdatePredictIndex(test, fh, stepLength, initialWindow)
					require.NoError(t, err)
					assert.Equal(t, unixNano(expected), unixNano(res.Index()))
					for _, p := range res.Predictions {
						requireFinite(t, p)
					}
				})
			}
		}
	}
}
