package forecaster_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	forecaster "github.com/aouyang1/go-rollcast"
	"github.com/aouyang1/go-rollcast/errkind"
	"github.com/aouyang1/go-rollcast/horizon"
	"github.com/aouyang1/go-rollcast/models"
	"github.com/aouyang1/go-rollcast/timedataset"
	"github.com/aouyang1/go-rollcast/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errUpdate = errors.New("update failed")

// constant predicts the same value for every column and step
type constant struct {
	caps       forecaster.Capabilities
	value      float64
	failUpdate bool
	cols       int
}

func (c *constant) Name() string                          { return "constant" }
func (c *constant) Capabilities() forecaster.Capabilities { return c.caps }

func (c *constant) Clone() forecaster.Model {
	return &constant{caps: c.caps, value: c.value, failUpdate: c.failUpdate}
}

func (c *constant) Fit(y *timedataset.Frame, _ horizon.Horizon) error {
	c.cols = len(y.Columns)
	return nil
}

func (c *constant) Update(_ *timedataset.Frame, _ bool) error {
	if c.failUpdate {
		return errUpdate
	}
	return nil
}

func (c *constant) Predict(fh horizon.Horizon) ([][]float64, error) {
	res := make([][]float64, c.cols)
	for i := range res {
		res[i] = make([]float64, fh.Len())
		for s := range res[i] {
			res[i][s] = c.value
		}
	}
	return res, nil
}

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func daily(t *testing.T, values ...[]float64) *timedataset.Frame {
	t.Helper()
	columns := []string{timedataset.DefaultColumn}
	if len(values) > 1 {
		columns = []string{"a", "b", "c"}[:len(values)]
	}
	ts := make([]time.Time, len(values[0]))
	for i := range ts {
		ts[i] = start.AddDate(0, 0, i)
	}
	f, err := timedataset.NewFrame(ts, columns, values, 24*time.Hour)
	require.NoError(t, err)
	return f
}

func panel(t *testing.T, columns int) *timedataset.Panel {
	t.Helper()
	opt := timedataset.NewDefaultSeriesOptions()
	opt.Columns = columns
	p, err := timedataset.MakePanel([]string{"east", "west"}, opt)
	require.NoError(t, err)
	return p
}

func TestNew(t *testing.T) {
	testData := map[string]struct {
		model forecaster.Model
		err   error
	}{
		"nil model": {
			model: nil,
			err:   forecaster.ErrNilModel,
		},
		"intervals without quantiles": {
			model: &constant{caps: forecaster.Capabilities{PredInt: true}},
			err:   forecaster.ErrQuantileCapability,
		},
		"valid": {
			model: &constant{},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			f, err := forecaster.New(td.model, nil)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				assert.ErrorIs(t, err, errkind.ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.False(t, f.IsFitted())
		})
	}
}

func TestVectorization(t *testing.T) {
	testData := map[string]struct {
		y          any
		yInputType forecaster.YInputType
		models     int64
		rows       int
		keys       []string
	}{
		"univariate on one column": {
			y:          daily(t, []float64{1, 2, 3}),
			yInputType: forecaster.Univariate,
			models:     1,
			rows:       2,
			keys:       []string{"", ""},
		},
		"univariate per column": {
			y:          daily(t, []float64{1, 2, 3}, []float64{4, 5, 6}),
			yInputType: forecaster.Univariate,
			models:     2,
			rows:       2,
			keys:       []string{"", ""},
		},
		"univariate per entity and column": {
			y:          panel(t, 2),
			yInputType: forecaster.Univariate,
			models:     4,
			rows:       4,
			keys:       []string{"east", "east", "west", "west"},
		},
		"multivariate per entity": {
			y:          panel(t, 2),
			yInputType: forecaster.Multivariate,
			models:     2,
			rows:       4,
			keys:       []string{"east", "east", "west", "west"},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			f, err := forecaster.New(
				&constant{caps: forecaster.Capabilities{YInputType: td.yInputType}, value: 3},
				&forecaster.Options{Logger: zap.New(core)},
			)
			require.NoError(t, err)

			fh := horizon.MustRelative(1, 2)
			require.NoError(t, f.Fit(td.y, fh))
			fitted := logs.FilterMessage("fitted").All()
			require.Len(t, fitted, 1)
			assert.Equal(t, td.models, fitted[0].ContextMap()["models"])
			assert.Equal(t, "constant", fitted[0].ContextMap()["forecaster"])

			res, err := f.Predict(fh)
			require.NoError(t, err)
			assert.Equal(t, td.rows, res.Len())
			assert.Equal(t, td.keys, res.Keys)
			for _, row := range res.Values {
				for _, v := range row {
					assert.Equal(t, 3.0, v)
				}
			}
		})
	}
}

func TestFittedParams(t *testing.T) {
	testData := map[string]struct {
		model    forecaster.Model
		y        any
		expected []string
	}{
		"single series": {
			model:    must(models.NewNaive(nil)),
			y:        daily(t, []float64{1, 2, 3}),
			expected: []string{"last", "sigma"},
		},
		"model sees all columns": {
			model:    must(models.NewNaive(nil)),
			y:        daily(t, []float64{1, 2, 3}, []float64{4, 5, 6}),
			expected: []string{"a__last", "a__sigma", "b__last", "b__sigma"},
		},
		"model per column": {
			model:    must(models.NewTrend(nil)),
			y:        daily(t, []float64{1, 2, 3}, []float64{4, 5, 6}),
			expected: []string{"a__coef_1", "a__intercept", "a__sigma", "b__coef_1", "b__intercept", "b__sigma"},
		},
		"model per entity": {
			model:    must(models.NewNaive(nil)),
			y:        panel(t, 1),
			expected: []string{"east__last", "east__sigma", "west__last", "west__sigma"},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			f := must(forecaster.New(td.model, nil))
			require.NoError(t, f.Fit(td.y, horizon.Horizon{}))
			params, err := f.FittedParams()
			require.NoError(t, err)

			var keys []string
			for k := range params {
				keys = append(keys, k)
			}
			assert.ElementsMatch(t, td.expected, keys)
		})
	}
}

func TestFittedParamsUnsupported(t *testing.T) {
	f := must(forecaster.New(&constant{}, nil))
	require.NoError(t, f.Fit(daily(t, []float64{1, 2}), horizon.Horizon{}))
	_, err := f.FittedParams()
	require.True(t, errkind.IsUnsupported(err))
	assert.Contains(t, err.Error(), "fitted parameters")
}

func TestUpdateFailureResets(t *testing.T) {
	f := must(forecaster.New(&constant{failUpdate: true}, nil))
	require.NoError(t, f.Fit(daily(t, []float64{1, 2, 3}), horizon.MustRelative(1)))

	next := daily(t, []float64{1, 2, 3, 4}).Slice(3, 4)
	err := f.Update(next, false)
	assert.ErrorIs(t, err, errUpdate)
	assert.False(t, f.IsFitted())

	_, err = f.Predict(horizon.MustRelative(1))
	assert.ErrorIs(t, err, forecaster.ErrNotFitted)
}

func TestUpdateRejectsMismatchedData(t *testing.T) {
	y := daily(t, []float64{1, 2, 3, 4})
	testData := map[string]struct {
		update any
		err    error
	}{
		"gap":            {update: y.Slice(3, 4).Copy(), err: timedataset.ErrNonContiguous},
		"other columns":  {update: daily(t, []float64{1, 2}, []float64{3, 4}), err: timedataset.ErrColumnMismatch},
		"other entities": {update: panel(t, 1), err: timedataset.ErrEntityMismatch},
		"unknown type":   {update: "y", err: timedataset.ErrUnsupportedType},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			f := must(forecaster.New(must(models.NewNaive(nil)), nil))
			require.NoError(t, f.Fit(y.Slice(0, 2), horizon.MustRelative(1)))
			err := f.Update(td.update, false)
			assert.ErrorIs(t, err, td.err)
			assert.True(t, f.IsFitted())
			assert.Equal(t, y.T[1].UnixNano(), f.Cutoff().UnixNano())
		})
	}
}

func TestUpdateSinglePoint(t *testing.T) {
	y := daily(t, []float64{1, 2, 4, 7, 11})
	f := must(forecaster.New(must(models.NewNaive(nil)), nil))
	require.NoError(t, f.Fit(y.Slice(0, 3), horizon.MustRelative(1)))

	for i := 3; i < y.Len(); i++ {
		next, err := timedataset.NewUnivariateDataset(y.T[i:i+1], y.Values[0][i:i+1])
		require.NoError(t, err)
		require.NoError(t, f.Update(next, false))
		assert.Equal(t, y.T[i].UnixNano(), f.Cutoff().UnixNano())
	}

	res, err := f.Predict(horizon.Horizon{})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{11}}, res.Values)
	assert.Equal(t, y.T[4].AddDate(0, 0, 1).UnixNano(), res.T[0].UnixNano())

	gap, err := timedataset.NewUnivariateDataset([]time.Time{y.T[4].AddDate(0, 0, 2)}, []float64{12})
	require.NoError(t, err)
	assert.ErrorIs(t, f.Update(gap, false), timedataset.ErrNonContiguous)

	unfitted := must(forecaster.New(must(models.NewNaive(nil)), nil))
	err = unfitted.Fit(gap, horizon.MustRelative(1))
	assert.ErrorIs(t, err, timedataset.ErrCannotInferFreq)
}

func TestPredictResiduals(t *testing.T) {
	y := daily(t, []float64{1, 2, 4, 7, 8, 9})
	f := must(forecaster.New(must(models.NewNaive(nil)), nil))
	require.NoError(t, f.Fit(y.Slice(0, 4), horizon.MustRelative(3)))

	res, err := f.PredictResiduals(y.Slice(4, 6))
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1}, {2}}, res.Values)
	assert.True(t, horizon.MustRelative(3).Equal(f.Horizon()))

	_, err = f.PredictResiduals(y.Slice(2, 6))
	assert.ErrorIs(t, err, errkind.ErrConfiguration)
}

func TestScore(t *testing.T) {
	y := daily(t, []float64{1, 2, 4, 7, 7, 14})
	f := must(forecaster.New(must(models.NewNaive(nil)), nil))
	require.NoError(t, f.Fit(y.Slice(0, 4), horizon.Horizon{}))

	score, err := f.Score(y.Slice(4, 6), horizon.MustRelative(1, 2))
	require.NoError(t, err)
	assert.InDelta(t, 0.25, score, 1e-9)

	_, err = f.Score(y.Slice(4, 5), horizon.MustRelative(1, 2))
	assert.ErrorIs(t, err, forecaster.ErrMissingActual)
}

func TestUpdatePredictErrors(t *testing.T) {
	y := daily(t, []float64{1, 2, 4, 7, 7, 14})
	fh := horizon.MustRelative(1)
	testData := map[string]struct {
		y   any
		cv  window.Splitter
		err error
	}{
		"no splitter": {
			y:   y.Slice(3, 6),
			err: forecaster.ErrNoSplitter,
		},
		"data before the cutoff": {
			y:   y,
			cv:  &window.ExpandingWindow{FH: fh, InitialWindow: 1, StepLength: 1},
			err: forecaster.ErrCutoffBehind,
		},
		"invalid window": {
			y:   y.Slice(3, 6),
			cv:  &window.ExpandingWindow{FH: fh, InitialWindow: 0, StepLength: 1},
			err: window.ErrInvalidInitialWindow,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			f := must(forecaster.New(must(models.NewNaive(nil)), nil))
			require.NoError(t, f.Fit(y.Slice(0, 3), fh))
			_, err := f.UpdatePredict(td.y, td.cv, false)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestUpdatePredictValues(t *testing.T) {
	y := daily(t, []float64{1, 2, 4, 7, 7, 14})
	fh := horizon.MustRelative(1, 2)
	f := must(forecaster.New(must(models.NewNaive(nil)), nil))
	require.NoError(t, f.Fit(y.Slice(0, 2), fh))

	cv := &window.ExpandingWindow{FH: fh, InitialWindow: 1, StepLength: 1}
	res, err := f.UpdatePredict(y.Slice(2, 6), cv, false)
	require.NoError(t, err)

	// cutoffs are the third and fourth points, the last from which both steps are observed
	require.Len(t, res.Cutoffs, 2)
	assert.Equal(t, y.T[2].UnixNano(), res.Cutoffs[0].UnixNano())
	assert.Equal(t, [][]float64{{4}, {4}}, res.Predictions[0].Values)
	assert.Equal(t, [][]float64{{7}, {7}}, res.Predictions[1].Values)
	assert.Equal(t, y.T[3].UnixNano(), f.Cutoff().UnixNano())

	latest := res.Latest()
	assert.Equal(t, [][]float64{{4}, {7}, {7}}, latest.Values)
}

func TestLineUpdatePredict(t *testing.T) {
	y := daily(t, []float64{1, 2, 4, 7, 7, 14})
	fh := horizon.MustRelative(1, 2)
	f := must(forecaster.New(must(models.NewNaive(nil)), nil))
	require.NoError(t, f.Fit(y.Slice(0, 2), fh))
	res, err := f.UpdatePredict(y.Slice(2, 6), &window.ExpandingWindow{FH: fh, InitialWindow: 1, StepLength: 1}, false)
	require.NoError(t, err)

	line, err := forecaster.LineUpdatePredict(f.Observed(), "", timedataset.DefaultColumn, res)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, forecaster.RenderPage(&buf, line))
	assert.Contains(t, buf.String(), "Update Predict")

	_, err = forecaster.LineUpdatePredict(f.Observed(), "north", timedataset.DefaultColumn, res)
	assert.ErrorIs(t, err, timedataset.ErrEntityMismatch)
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
