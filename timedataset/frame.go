package timedataset

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/aouyang1/go-rollcast/errkind"
)

// DefaultColumn names the value column of a univariate series
const DefaultColumn = "y"

var (
	ErrNoColumns        = fmt.Errorf("frame has no columns, %w", errkind.ErrValue)
	ErrDuplicateColumn  = fmt.Errorf("duplicate column name, %w", errkind.ErrValue)
	ErrColumnMismatch   = fmt.Errorf("columns do not match, %w", errkind.ErrValue)
	ErrUnknownColumn    = fmt.Errorf("unknown column, %w", errkind.ErrValue)
	ErrFreqMismatch     = fmt.Errorf("frequency does not match time index, %w", errkind.ErrConfiguration)
	ErrNonContiguous    = fmt.Errorf("appended data does not continue the time index, %w", errkind.ErrValue)
	ErrInvalidTrainSize = fmt.Errorf("train size must be in (0, 1), %w", errkind.ErrConfiguration)
)

// Frame is a multivariate series where every column shares one strictly increasing time index
// with a fixed frequency. Values are stored column major.
type Frame struct {
	T       []time.Time
	Columns []string
	Values  [][]float64

	freq time.Duration
}

// NewFrame validates and copies the inputs into a frame. When freq is zero it is inferred from
// the time index, which then needs at least two points.
func NewFrame(t []time.Time, columns []string, values [][]float64, freq time.Duration) (*Frame, error) {
	return newFrame(t, columns, values, freq, true)
}

// newFrame builds a frame. Without requireFreq a single point frame may have an unknown
// frequency, which Append accepts and Freq reports as ErrCannotInferFreq.
func newFrame(t []time.Time, columns []string, values [][]float64, freq time.Duration, requireFreq bool) (*Frame, error) {
	if len(t) == 0 {
		return nil, ErrNoTrainingData
	}
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	if len(columns) != len(values) {
		return nil, fmt.Errorf("%d column names for %d value columns, %w", len(columns), len(values), ErrColumnMismatch)
	}
	seen := make(map[string]struct{}, len(columns))
	for i, col := range columns {
		if _, exists := seen[col]; exists {
			return nil, fmt.Errorf("column %q, %w", col, ErrDuplicateColumn)
		}
		seen[col] = struct{}{}
		if len(values[i]) != len(t) {
			return nil, fmt.Errorf(
				"time feature has length of %d, but column %q has a length of %d, %w",
				len(t), col, len(values[i]), ErrDatasetLenMismatch,
			)
		}
	}
	if err := checkIncreasing(t); err != nil {
		return nil, err
	}

	inferred, err := TimeSlice(t).FixedFreq()
	switch {
	case errors.Is(err, ErrCannotInferFreq):
		if freq <= 0 && requireFreq {
			return nil, err
		}
	case err != nil:
		return nil, err
	case freq == 0:
		freq = inferred
	case freq != inferred:
		return nil, fmt.Errorf("expected %s, but index has %s, %w", freq, inferred, ErrFreqMismatch)
	}

	f := &Frame{
		T:       slices.Clone(t),
		Columns: slices.Clone(columns),
		Values:  make([][]float64, len(values)),
		freq:    freq,
	}
	for i, v := range values {
		f.Values[i] = slices.Clone(v)
	}
	return f, nil
}

// Len returns the number of time points
func (f *Frame) Len() int {
	return len(f.T)
}

// Index returns the time index of the frame
func (f *Frame) Index() TimeSlice {
	return TimeSlice(f.T)
}

// Freq returns the fixed frequency of the frame
func (f *Frame) Freq() (time.Duration, error) {
	if f.freq <= 0 {
		return 0, ErrCannotInferFreq
	}
	return f.freq, nil
}

// Column returns the values of the named column
func (f *Frame) Column(name string) ([]float64, error) {
	idx := slices.Index(f.Columns, name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q, %w", name, ErrUnknownColumn)
	}
	return f.Values[idx], nil
}

// SelectColumn returns a single column frame sharing no memory with f
func (f *Frame) SelectColumn(name string) (*Frame, error) {
	v, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	return &Frame{
		T:       slices.Clone(f.T),
		Columns: []string{name},
		Values:  [][]float64{slices.Clone(v)},
		freq:    f.freq,
	}, nil
}

// Copy returns a deep copy of the frame
func (f *Frame) Copy() *Frame {
	return f.Slice(0, f.Len())
}

// Slice returns a copy of the rows in [i, j)
func (f *Frame) Slice(i, j int) *Frame {
	out := &Frame{
		T:       slices.Clone(f.T[i:j]),
		Columns: slices.Clone(f.Columns),
		Values:  make([][]float64, len(f.Values)),
		freq:    f.freq,
	}
	for c, v := range f.Values {
		out.Values[c] = slices.Clone(v[i:j])
	}
	return out
}

// Append returns a new frame with other's rows after f's rows. other must have the same
// columns and start exactly one period after f ends.
func (f *Frame) Append(other *Frame) (*Frame, error) {
	if !slices.Equal(f.Columns, other.Columns) {
		return nil, fmt.Errorf("expected %v, but got %v, %w", f.Columns, other.Columns, ErrColumnMismatch)
	}
	if other.Len() == 0 {
		return f.Copy(), nil
	}
	next := f.Index().EndTime().Add(f.freq)
	if !other.T[0].Equal(next) {
		return nil, fmt.Errorf("expected next time %s, but got %s, %w", next, other.T[0], ErrNonContiguous)
	}
	if other.freq > 0 && other.freq != f.freq {
		return nil, fmt.Errorf("expected %s, but got %s, %w", f.freq, other.freq, ErrFreqMismatch)
	}

	out := &Frame{
		T:       append(slices.Clone(f.T), other.T...),
		Columns: slices.Clone(f.Columns),
		Values:  make([][]float64, len(f.Values)),
		freq:    f.freq,
	}
	for c := range f.Values {
		out.Values[c] = append(slices.Clone(f.Values[c]), other.Values[c]...)
	}
	return out, nil
}

// TemporalSplit splits the frame into a leading train and trailing test part where the
// train part holds floor(n * trainSize) points.
func (f *Frame) TemporalSplit(trainSize float64) (*Frame, *Frame, error) {
	if trainSize <= 0 || trainSize >= 1 {
		return nil, nil, ErrInvalidTrainSize
	}
	nTrain := int(math.Floor(float64(f.Len()) * trainSize))
	if nTrain == 0 || nTrain == f.Len() {
		return nil, nil, fmt.Errorf("%d points cannot be split with train size %.2f, %w", f.Len(), trainSize, ErrInvalidTrainSize)
	}
	return f.Slice(0, nTrain), f.Slice(nTrain, f.Len()), nil
}
