package timedataset

import (
	"testing"
	"time"

	"github.com/rickar/cal/v2/us"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestSeries(t *testing.T) {
	numPnts := 7
	s := Series(GenerateConstY(numPnts, 1))

	res := s.Add(GenerateConstY(numPnts, 2))
	require.Equal(t, Series([]float64{3, 3, 3, 3, 3, 3, 3}), res)

	// 1970-01-01 is a Thursday
	tSeries := make([]time.Time, numPnts)
	for i := range tSeries {
		tSeries[i] = time.Date(1970, 1, 1+i, 0, 0, 0, 0, time.UTC)
	}

	s.MaskWithWeekend(tSeries)
	assert.Equal(t, Series([]float64{0, 0, 3, 3, 0, 0, 0}), s)

	s.Add(GenerateConstY(numPnts, 1))
	s.MaskWithTimeRange(
		time.Date(1970, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(1970, 1, 5, 0, 0, 0, 0, time.UTC),
		tSeries,
	)
	assert.Equal(t, Series([]float64{0, 0, 4, 4, 1, 0, 0}), s)
}

func TestGenerateChange(t *testing.T) {
	tSeries := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 10, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 20, 0, 0, time.UTC),
	}
	res := GenerateChange(tSeries, tSeries[1], 5, 0.5)
	assert.Equal(t, Series([]float64{0, 5, 10}), res)
}

func TestScaleOnHolidays(t *testing.T) {
	start := time.Date(2024, 12, 23, 0, 0, 0, 0, time.UTC)
	tSeries := make([]time.Time, 5)
	for i := range tSeries {
		tSeries[i] = start.Add(time.Duration(i) * 24 * time.Hour)
	}

	s := GenerateConstY(len(tSeries), 10).ScaleOnHolidays(tSeries, 0.5, us.ChristmasDay)
	assert.Equal(t, Series([]float64{10, 10, 5, 10, 10}), s)
}

func TestMakeSeries(t *testing.T) {
	testData := map[string]struct {
		opt     *SeriesOptions
		columns []string
		length  int
		freq    time.Duration
		err     error
	}{
		"default": {
			columns: []string{DefaultColumn},
			length:  50,
			freq:    24 * time.Hour,
		},
		"multivariate hourly": {
			opt: &SeriesOptions{
				N:       100,
				Columns: 2,
				Start:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
				Freq:    time.Hour,
				Seed:    7,
				Level:   -3,
				Noise:   2,
			},
			columns: []string{"y0", "y1"},
			length:  100,
			freq:    time.Hour,
		},
		"no points": {
			opt: &SeriesOptions{Columns: 1, Freq: time.Hour},
			err: ErrNoTrainingData,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			f, err := MakeSeries(td.opt)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.columns, f.Columns)
			assert.Equal(t, td.length, f.Len())

			freq, err := f.Freq()
			require.NoError(t, err)
			assert.Equal(t, td.freq, freq)

			for _, v := range f.Values {
				assert.Greater(t, floats.Min(v), 0.0)
			}

			again, err := MakeSeries(td.opt)
			require.NoError(t, err)
			assert.Equal(t, f, again)
		})
	}
}

func TestMakeSeriesEffects(t *testing.T) {
	// 2024-01-01 is a Monday and day 19723 since the epoch, so a 4 day wave starts at its trough
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return start.AddDate(0, 0, d) }

	testData := map[string]struct {
		modify   func(opt *SeriesOptions)
		expected []float64
		err      error
	}{
		"level only": {
			modify:   func(opt *SeriesOptions) {},
			expected: []float64{10, 10, 10, 10, 10, 10, 10},
		},
		"season": {
			modify: func(opt *SeriesOptions) {
				opt.SeasonAmp = 2
				opt.SeasonPeriod = 4 * 24 * time.Hour
			},
			expected: []float64{8, 10, 12, 10, 8, 10, 12},
		},
		"changepoint": {
			modify: func(opt *SeriesOptions) {
				opt.ChangeTime = day(2)
				opt.ChangeBias = 5
				opt.ChangeSlope = 1.0 / (24 * 60)
			},
			expected: []float64{10, 10, 15, 16, 17, 18, 19},
		},
		"weekend": {
			modify:   func(opt *SeriesOptions) { opt.WeekendLift = 3 },
			expected: []float64{10, 10, 10, 10, 10, 13, 13},
		},
		"event": {
			modify: func(opt *SeriesOptions) {
				opt.EventStart = day(1)
				opt.EventEnd = day(3)
				opt.EventLift = -4
			},
			expected: []float64{10, 6, 6, 6, 10, 10, 10},
		},
		"shifted positive": {
			modify: func(opt *SeriesOptions) {
				opt.EventStart = day(1)
				opt.EventEnd = day(1)
				opt.EventLift = -15
			},
			expected: []float64{16, 1, 16, 16, 16, 16, 16},
		},
		"season without period": {
			modify: func(opt *SeriesOptions) { opt.SeasonAmp = 2 },
			err:    ErrInvalidSeason,
		},
		"event ends before start": {
			modify: func(opt *SeriesOptions) {
				opt.EventStart = day(3)
				opt.EventEnd = day(1)
				opt.EventLift = 1
			},
			err: ErrInvalidEvent,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt := &SeriesOptions{
				N:       7,
				Columns: 1,
				Start:   start,
				Freq:    24 * time.Hour,
				Level:   10,
			}
			td.modify(opt)
			f, err := MakeSeries(opt)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.InDeltaSlice(t, td.expected, f.Values[0], 1e-9)
		})
	}
}

func TestMakePanel(t *testing.T) {
	p, err := MakePanel([]string{"a", "b"}, nil)
	require.NoError(t, err)
	assert.True(t, p.IsHierarchical())
	assert.Equal(t, 50, p.Len())
	assert.NotEqual(t, p.Frames[0].Values, p.Frames[1].Values)
}
