package timedataset

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/aouyang1/go-rollcast/errkind"
	"github.com/rickar/cal/v2"
	"gonum.org/v1/gonum/floats"
)

// Series is a chainable slice of values used to compose synthetic data
type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

// MaskWithWeekend zeroes every value outside of Saturday and Sunday
func (s Series) MaskWithWeekend(t []time.Time) Series {
	n := len(s)
	for i := 0; i < n; i++ {
		switch t[i].Weekday() {
		case time.Saturday, time.Sunday:
			continue
		default:
			s[i] = 0.0
		}
	}
	return s
}

// MaskWithTimeRange zeroes every value outside of [start, end]
func (s Series) MaskWithTimeRange(start, end time.Time, t []time.Time) Series {
	n := len(s)
	for i := 0; i < n; i++ {
		if t[i].Before(start) || t[i].After(end) {
			s[i] = 0.0
		}
	}
	return s
}

// ScaleOnHolidays multiplies every value falling on the observed date of any of the holidays
// by factor. Dates are compared in the location of each time point.
func (s Series) ScaleOnHolidays(t []time.Time, factor float64, hols ...*cal.Holiday) Series {
	years := make(map[int]struct{})
	observed := make(map[string]struct{})
	for i := 0; i < len(t); i++ {
		year := t[i].Year()
		if _, exists := years[year]; exists {
			continue
		}
		years[year] = struct{}{}
		for _, hol := range hols {
			_, obs := hol.Calc(year)
			observed[obs.Format(time.DateOnly)] = struct{}{}
		}
	}
	for i := 0; i < len(s); i++ {
		if _, exists := observed[t[i].Format(time.DateOnly)]; exists {
			s[i] *= factor
		}
	}
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

func GenerateWaveY(t []time.Time, amp, periodSec, order, timeOffset float64) Series {
	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		val := amp * math.Sin(2.0*math.Pi*order/periodSec*(float64(t[i].Unix())+timeOffset))
		y = append(y, val)
	}
	return Series(y)
}

// GenerateNoise draws normal noise whose scale oscillates around noiseScale. A nil rng uses
// the global source.
func GenerateNoise(rng *rand.Rand, t []time.Time, noiseScale, amp, periodSec, order, timeOffset float64) Series {
	normFloat := rand.NormFloat64
	if rng != nil {
		normFloat = rng.NormFloat64
	}
	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		scale := (noiseScale + amp*math.Sin(2.0*math.Pi*order/periodSec*(float64(t[i].Unix())+timeOffset)))
		y = append(y, normFloat()*scale)
	}
	return Series(y)
}

// GenerateChange is zero before chpt and bias plus slope per minute since chpt from then on
func GenerateChange(t []time.Time, chpt time.Time, bias, slope float64) Series {
	n := len(t)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		if t[i].After(chpt) || t[i].Equal(chpt) {
			jump := bias + slope*t[i].Sub(chpt).Minutes()
			y[i] = jump
		}
	}
	return Series(y)
}

var (
	ErrInvalidSeason = fmt.Errorf("seasonal amplitude needs a positive period, %w", errkind.ErrConfiguration)
	ErrInvalidEvent  = fmt.Errorf("event must not end before it starts, %w", errkind.ErrConfiguration)
)

// SeriesOptions configures MakeSeries. The zero value of each effect leaves the series
// unchanged.
type SeriesOptions struct {
	N       int
	Columns int
	Start   time.Time
	Freq    time.Duration
	Seed    uint64
	Level   float64
	Noise   float64

	// SeasonAmp is the amplitude of a sine wave repeating every SeasonPeriod
	SeasonAmp    float64
	SeasonPeriod time.Duration

	// From ChangeTime on, values are lifted by ChangeBias plus ChangeSlope per minute since
	// ChangeTime. A zero ChangeTime adds no change.
	ChangeTime  time.Time
	ChangeBias  float64
	ChangeSlope float64

	// WeekendLift is added to values on Saturday and Sunday
	WeekendLift float64

	// EventLift is added to values between EventStart and EventEnd inclusive
	EventStart time.Time
	EventEnd   time.Time
	EventLift  float64
}

// NewDefaultSeriesOptions returns 50 daily points of a single column starting 2000-01-01
func NewDefaultSeriesOptions() *SeriesOptions {
	return &SeriesOptions{
		N:       50,
		Columns: 1,
		Start:   time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		Freq:    24 * time.Hour,
		Seed:    42,
		Level:   10.0,
		Noise:   1.0,
	}
}

// MakeSeries returns a deterministic, strictly positive random frame. A single column is named
// DefaultColumn, multiple columns are named y0, y1, ... When the effects push a column to zero
// or below, the whole column is shifted up so its minimum is 1.
func MakeSeries(opt *SeriesOptions) (*Frame, error) {
	if opt == nil {
		opt = NewDefaultSeriesOptions()
	}
	if opt.N <= 0 || opt.Columns <= 0 {
		return nil, ErrNoTrainingData
	}
	if opt.SeasonAmp != 0 && opt.SeasonPeriod <= 0 {
		return nil, fmt.Errorf("got period %s, %w", opt.SeasonPeriod, ErrInvalidSeason)
	}
	if opt.EventLift != 0 && opt.EventEnd.Before(opt.EventStart) {
		return nil, fmt.Errorf("got %s to %s, %w", opt.EventStart, opt.EventEnd, ErrInvalidEvent)
	}
	rng := rand.New(rand.NewPCG(opt.Seed, opt.Seed^0x9e3779b97f4a7c15))

	t := make([]time.Time, opt.N)
	for i := range t {
		t[i] = opt.Start.Add(time.Duration(i) * opt.Freq)
	}
	effects := seriesEffects(t, opt)

	columns := make([]string, opt.Columns)
	values := make([][]float64, opt.Columns)
	for c := range columns {
		columns[c] = DefaultColumn
		if opt.Columns > 1 {
			columns[c] = fmt.Sprintf("y%d", c)
		}
		y := GenerateConstY(opt.N, opt.Level).
			Add(GenerateNoise(rng, t, opt.Noise, 0, 1, 0, 0)).
			Add(effects)
		if minY := floats.Min(y); minY <= 0 {
			floats.AddConst(1.0-minY, y)
		}
		values[c] = y
	}
	return NewFrame(t, columns, values, opt.Freq)
}

// seriesEffects sums the deterministic effects shared by every column
func seriesEffects(t []time.Time, opt *SeriesOptions) Series {
	effects := GenerateConstY(len(t), 0)
	if opt.SeasonAmp != 0 {
		effects.Add(GenerateWaveY(t, opt.SeasonAmp, opt.SeasonPeriod.Seconds(), 1, 0))
	}
	if !opt.ChangeTime.IsZero() {
		effects.Add(GenerateChange(t, opt.ChangeTime, opt.ChangeBias, opt.ChangeSlope))
	}
	if opt.WeekendLift != 0 {
		effects.Add(GenerateConstY(len(t), opt.WeekendLift).MaskWithWeekend(t))
	}
	if opt.EventLift != 0 {
		effects.Add(GenerateConstY(len(t), opt.EventLift).MaskWithTimeRange(opt.EventStart, opt.EventEnd, t))
	}
	return effects
}

// MakePanel returns a hierarchical panel with one MakeSeries frame per key, each drawn from a
// different seed.
func MakePanel(keys []string, opt *SeriesOptions) (*Panel, error) {
	if opt == nil {
		opt = NewDefaultSeriesOptions()
	}
	frames := make([]*Frame, len(keys))
	for i := range keys {
		entityOpt := *opt
		entityOpt.Seed = opt.Seed + uint64(i) + 1
		f, err := MakeSeries(&entityOpt)
		if err != nil {
			return nil, err
		}
		frames[i] = f
	}
	return NewPanel(keys, frames)
}
