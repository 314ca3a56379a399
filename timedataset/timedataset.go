// Package timedataset contains the series containers accepted by forecasters: a univariate
// TimeDataset, a multivariate Frame sharing one fixed-frequency index and a hierarchical Panel
// of frames.
package timedataset

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/go-rollcast/errkind"
)

var (
	ErrNoTrainingData     = fmt.Errorf("no training data, %w", errkind.ErrValue)
	ErrNonMontonic        = fmt.Errorf("time feature is not monotonic, %w", errkind.ErrValue)
	ErrDatasetLenMismatch = fmt.Errorf("time feature has a different length than observations, %w", errkind.ErrValue)
	ErrCannotInferFreq    = fmt.Errorf("cannot infer frequency from fewer than 2 time points, %w", errkind.ErrConfiguration)
	ErrIrregularFreq      = fmt.Errorf("time index does not have a fixed frequency, %w", errkind.ErrConfiguration)
	ErrUnsupportedType    = fmt.Errorf("unsupported series input type, %w", errkind.ErrType)
)

// TimeDataset represents a time series storing a slice of time points and values.
// Both must be of the same length.
type TimeDataset struct {
	T []time.Time
	Y []float64
}

// NewUnivariateDataset returns an instance of a TimeDataset given a time and value slice.
func NewUnivariateDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if len(y) == 0 {
		return nil, ErrNoTrainingData
	}
	if len(t) != len(y) {
		return nil, fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}

	if err := checkIncreasing(t); err != nil {
		return nil, err
	}

	tSeries := make([]time.Time, len(t))
	ySeries := make([]float64, len(t))
	copy(tSeries, t)
	copy(ySeries, y)
	td := &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}

	return td, nil
}

func checkIncreasing(t []time.Time) error {
	for i := 1; i < len(t); i++ {
		if !t[i].After(t[i-1]) {
			return fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMontonic)
		}
	}
	return nil
}

// Copy returns a deep copy of the dataset
func (td *TimeDataset) Copy() *TimeDataset {
	tSeries := make([]time.Time, len(td.T))
	ySeries := make([]float64, len(td.T))
	copy(tSeries, td.T)
	copy(ySeries, td.Y)
	return &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}
}

// DropNan returns a new dataset without the points whose value is NaN
func (td *TimeDataset) DropNan() *TimeDataset {
	if td == nil {
		return nil
	}
	tSeries := make([]time.Time, 0, len(td.T))
	ySeries := make([]float64, 0, len(td.Y))
	for i := 0; i < len(td.T); i++ {
		if math.IsNaN(td.Y[i]) {
			continue
		}
		tSeries = append(tSeries, td.T[i])
		ySeries = append(ySeries, td.Y[i])
	}
	return &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}
}

// Index returns the time index of the dataset
func (td *TimeDataset) Index() TimeSlice {
	return TimeSlice(td.T)
}

// Freq returns the fixed frequency of the dataset's time index
func (td *TimeDataset) Freq() (time.Duration, error) {
	return TimeSlice(td.T).FixedFreq()
}

// Frame converts the dataset into a single column frame named "y". A single point dataset
// becomes a frame of unknown frequency, which can extend observed data but not be fitted on.
func (td *TimeDataset) Frame() (*Frame, error) {
	if td == nil {
		return nil, ErrNoTrainingData
	}
	freq, err := td.Freq()
	if err != nil && !errors.Is(err, ErrCannotInferFreq) {
		return nil, err
	}
	return newFrame(td.T, []string{DefaultColumn}, [][]float64{td.Y}, freq, false)
}
