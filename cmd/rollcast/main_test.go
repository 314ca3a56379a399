package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aouyang1/go-rollcast/config"
	"github.com/aouyang1/go-rollcast/errkind"
	"github.com/aouyang1/go-rollcast/report"
	"github.com/aouyang1/go-rollcast/stats"
	"github.com/aouyang1/go-rollcast/timedataset"
	"github.com/aouyang1/go-rollcast/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReadCSV(t *testing.T) {
	testData := map[string]struct {
		input    string
		columns  []string
		values   [][]float64
		expected error
	}{
		"valid": {
			input: "time,a,b\n" +
				"2024-01-01T00:00:00Z,1,2.5\n" +
				"2024-01-02T00:00:00Z,,3\n" +
				"2024-01-03T00:00:00Z,4,NaN\n",
			columns: []string{"a", "b"},
			values:  [][]float64{{1, math.NaN(), 4}, {2.5, 3, math.NaN()}},
		},
		"empty":        {input: "", expected: ErrNoRows},
		"header only":  {input: "time,y\n", expected: ErrNoRows},
		"no columns":   {input: "time\n2024-01-01T00:00:00Z\n", expected: ErrNoValueColumns},
		"bad value":    {input: "time,y\n2024-01-01T00:00:00Z,x\n2024-01-02T00:00:00Z,1\n", expected: strconv.ErrSyntax},
		"not a series": {input: "time,y\n2024-01-02T00:00:00Z,1\n2024-01-01T00:00:00Z,2\n", expected: timedataset.ErrNonMontonic},
		"irregular": {
			input: "time,y\n" +
				"2024-01-01T00:00:00Z,1\n" +
				"2024-01-02T00:00:00Z,2\n" +
				"2024-01-03T00:00:00Z,3\n" +
				"2024-01-05T00:00:00Z,4\n",
			expected: timedataset.ErrIrregularFreq,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			f, err := readCSV(strings.NewReader(td.input))
			if td.expected != nil {
				assert.ErrorIs(t, err, td.expected)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.columns, f.Columns)
			assert.Equal(t, 3, f.Len())
			for c := range td.values {
				for i, v := range td.values[c] {
					if math.IsNaN(v) {
						assert.True(t, math.IsNaN(f.Values[c][i]))
						continue
					}
					assert.Equal(t, v, f.Values[c][i])
				}
			}
		})
	}

	_, err := readCSV(strings.NewReader("time,y\nyesterday,1\n"))
	var parseErr *time.ParseError
	assert.ErrorAs(t, err, &parseErr)

	_, err = readCSV(strings.NewReader(testData["irregular"].input))
	assert.ErrorContains(t, err, "most common spacing is 24h0m0s")
}

func TestDropNan(t *testing.T) {
	testData := map[string]struct {
		input    string
		start    time.Time
		values   []float64
		expected error
	}{
		"leading and trailing": {
			input: "time,y\n" +
				"2024-01-01T00:00:00Z,\n" +
				"2024-01-02T00:00:00Z,1\n" +
				"2024-01-03T00:00:00Z,2\n" +
				"2024-01-04T00:00:00Z,3\n" +
				"2024-01-05T00:00:00Z,NaN\n",
			start:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			values: []float64{1, 2, 3},
		},
		"nothing missing": {
			input:  "time,y\n2024-01-01T00:00:00Z,1\n2024-01-02T00:00:00Z,2\n",
			start:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			values: []float64{1, 2},
		},
		"gap": {
			input: "time,y\n" +
				"2024-01-01T00:00:00Z,1\n" +
				"2024-01-02T00:00:00Z,\n" +
				"2024-01-03T00:00:00Z,3\n" +
				"2024-01-04T00:00:00Z,4\n",
			expected: timedataset.ErrIrregularFreq,
		},
		"all missing": {
			input:    "time,y\n2024-01-01T00:00:00Z,\n2024-01-02T00:00:00Z,\n",
			expected: ErrNoRows,
		},
		"two columns": {
			input:    "time,a,b\n2024-01-01T00:00:00Z,1,\n2024-01-02T00:00:00Z,2,3\n",
			expected: ErrDropNanColumns,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			f, err := readCSV(strings.NewReader(td.input))
			require.NoError(t, err)

			res, err := dropNan(f)
			if td.expected != nil {
				assert.ErrorIs(t, err, td.expected)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"y"}, res.Columns)
			assert.Equal(t, td.start, res.T[0])
			assert.Equal(t, [][]float64{td.values}, res.Values)

			freq, err := res.Freq()
			require.NoError(t, err)
			assert.Equal(t, 24*time.Hour, freq)
		})
	}
}

func TestBuildModel(t *testing.T) {
	testData := map[string]struct {
		modify   func(mc *config.ModelConfig)
		expected string
		err      error
	}{
		"naive":         {func(mc *config.ModelConfig) {}, "naive_last", nil},
		"naive drift":   {func(mc *config.ModelConfig) { mc.Naive.Strategy = "drift" }, "naive_drift", nil},
		"trend":         {func(mc *config.ModelConfig) { mc.Name = "trend" }, "trend", nil},
		"direct":        {func(mc *config.ModelConfig) { mc.Name = "direct" }, "direct", nil},
		"pooled drift":  {func(mc *config.ModelConfig) { mc.Name = "pooled_drift" }, "pooled_drift", nil},
		"ensemble":      {func(mc *config.ModelConfig) { mc.Name = "ensemble" }, "ensemble_mean", nil},
		"log":           {func(mc *config.ModelConfig) { mc.Name, mc.Log = "trend", true }, "log_trend", nil},
		"unknown":       {func(mc *config.ModelConfig) { mc.Name = "arima" }, "", config.ErrUnknownModel},
		"bad degree":    {func(mc *config.ModelConfig) { mc.Name, mc.Trend.Degree = "trend", -1 }, "", errkind.ErrConfiguration},
		"nested":        {func(mc *config.ModelConfig) { mc.Name, mc.Ensemble.Members = "ensemble", []string{"ensemble"} }, "", config.ErrUnknownModel},
		"bad aggregate": {func(mc *config.ModelConfig) { mc.Name, mc.Ensemble.Aggregation = "ensemble", "mode" }, "", stats.ErrUnknownAggregation},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			mc := config.Default().Model
			td.modify(&mc)
			m, err := buildModel(mc)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, m.Name())
		})
	}
}

func TestBuildSplitter(t *testing.T) {
	wc := config.Default().Window
	cv, err := buildSplitter(wc)
	require.NoError(t, err)
	assert.IsType(t, &window.ExpandingWindow{}, cv)

	wc.WindowLength = 5
	cv, err = buildSplitter(wc)
	require.NoError(t, err)
	require.IsType(t, &window.SlidingWindow{}, cv)
	assert.Equal(t, 5, cv.(*window.SlidingWindow).WindowLength)

	wc.FH = []int{0}
	_, err = buildSplitter(wc)
	assert.Error(t, err)
}

func TestConfigCmd(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ROLLCAST_MODEL_NAME", "trend")

	out, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "name: trend")
	assert.Contains(t, out, "train_size: 0.5")

	_, err = execute(t, "config", "--log-level", "loud")
	assert.ErrorIs(t, err, config.ErrUnknownLogLevel)
}

func TestSimulate(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "simulate", "--n", "400", "--columns", "2", "--holiday-factor", "0.01")
	require.NoError(t, err)

	f, err := readCSV(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 400, f.Len())
	assert.Equal(t, []string{"y0", "y1"}, f.Columns)

	// default level is 100 with noise 5, so holidays stand out
	christmas := slices.IndexFunc(f.T, time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC).Equal)
	require.GreaterOrEqual(t, christmas, 0)
	assert.Less(t, f.Values[0][christmas], 10.0)
	assert.Greater(t, f.Values[0][christmas+1], 10.0)
}

func TestSimulateEffects(t *testing.T) {
	// 14 daily points from Monday 2024-01-01 at level 100 with noise 5, so a lift of 1000 splits
	// the points around 500
	lifted := func(f *timedataset.Frame, i int) bool { return f.Values[0][i] > 500 }
	testData := map[string]struct {
		args  []string
		check func(t *testing.T, f *timedataset.Frame)
		fails bool
		err   error
	}{
		"weekend": {
			args: []string{"--weekend-lift", "1000"},
			check: func(t *testing.T, f *timedataset.Frame) {
				for i, ts := range f.T {
					weekend := ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday
					assert.Equal(t, weekend, lifted(f, i), ts)
				}
			},
		},
		"changepoint": {
			args: []string{"--change-time", "2024-01-08T00:00:00Z", "--change-bias", "1000", "--change-slope", "0.01"},
			check: func(t *testing.T, f *timedataset.Frame) {
				for i := range f.T {
					assert.Equal(t, i >= 7, lifted(f, i), i)
				}
				// 0.01 per minute is 14.4 per day
				assert.Greater(t, f.Values[0][13]-f.Values[0][7], 14.4*6-40)
			},
		},
		"event": {
			args: []string{"--event-start", "2024-01-03T00:00:00Z", "--event-end", "2024-01-04T00:00:00Z", "--event-lift", "1000"},
			check: func(t *testing.T, f *timedataset.Frame) {
				for i := range f.T {
					assert.Equal(t, i == 2 || i == 3, lifted(f, i), i)
				}
			},
		},
		"season": {
			args: []string{"--season-amp", "1000", "--season-period", "96h"},
			check: func(t *testing.T, f *timedataset.Frame) {
				// the 4 day wave is at its trough on 2024-01-01 and its peak two days later
				assert.Greater(t, f.Values[0][2]-f.Values[0][0], 1500.0)
				assert.Greater(t, f.Values[0][6]-f.Values[0][4], 1500.0)
			},
		},
		"season without period": {
			args:  []string{"--season-amp", "1000"},
			fails: true,
			err:   config.ErrInvalidSimulate,
		},
		"unparsable change time": {
			args:  []string{"--change-time", "next week"},
			fails: true,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			args := append([]string{"simulate", "--n", "14", "--holiday-factor", "1"}, td.args...)
			out, err := execute(t, args...)
			if td.fails {
				require.Error(t, err)
				if td.err != nil {
					assert.ErrorIs(t, err, td.err)
				}
				return
			}
			require.NoError(t, err)

			f, err := readCSV(strings.NewReader(out))
			require.NoError(t, err)
			require.Equal(t, 14, f.Len())
			td.check(t, f)
		})
	}
}

func TestBacktest(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	single := filepath.Join(dir, "single.csv")
	_, err := execute(t, "simulate", "--n", "60", "-o", single)
	require.NoError(t, err)
	multi := filepath.Join(dir, "multi.csv")
	_, err = execute(t, "simulate", "--n", "60", "--columns", "2", "-o", multi)
	require.NoError(t, err)

	testData := map[string]struct {
		args    []string
		model   string
		cutoffs int
	}{
		"naive": {
			args:    []string{"--data", single, "--fh", "1,2"},
			model:   "naive_last",
			cutoffs: 28,
		},
		"trend with updates": {
			args:    []string{"--data", single, "--model", "trend", "--step-length", "5", "--update-params"},
			model:   "trend",
			cutoffs: 6,
		},
		"log direct": {
			args:    []string{"--data", single, "--model", "direct", "--log", "--fh", "1,3"},
			model:   "log_direct",
			cutoffs: 27,
		},
		"ensemble sliding": {
			args:    []string{"--data", single, "--model", "ensemble", "--window-length", "10", "--step-length", "10"},
			model:   "ensemble_mean",
			cutoffs: 2,
		},
		"pooled drift": {
			args:    []string{"--data", multi, "--model", "pooled_drift", "--train-size", "0.75"},
			model:   "pooled_drift",
			cutoffs: 14,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			reportPath := filepath.Join(t.TempDir(), "report.json")
			plotPath := filepath.Join(t.TempDir(), "plot.html")
			args := append([]string{"backtest", "-o", reportPath, "--plot", plotPath}, td.args...)
			_, err := execute(t, args...)
			require.NoError(t, err)

			rf, err := os.Open(reportPath)
			require.NoError(t, err)
			defer rf.Close()
			r, err := report.Read(rf)
			require.NoError(t, err)

			assert.Equal(t, td.model, r.Model)
			assert.Len(t, r.Cutoffs, td.cutoffs)
			require.NotNil(t, r.Scores)
			assert.False(t, math.IsNaN(r.Scores.MAPE))

			plot, err := os.ReadFile(plotPath)
			require.NoError(t, err)
			assert.Contains(t, string(plot), "echarts")
		})
	}
}

func TestBacktestErrors(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := execute(t, "backtest")
	assert.ErrorIs(t, err, ErrNoDataPath)

	_, err = execute(t, "backtest", "--data", "missing.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = execute(t, "backtest", "--data", "missing.csv", "--train-size", "1.5")
	assert.ErrorIs(t, err, config.ErrInvalidTrainSize)

	multi := "multi.csv"
	_, err = execute(t, "simulate", "--n", "20", "--columns", "2", "-o", multi)
	require.NoError(t, err)
	_, err = execute(t, "backtest", "--data", multi, "--drop-nan")
	assert.ErrorIs(t, err, ErrDropNanColumns)
}
