package window

import (
	"github.com/aouyang1/go-rollcast/horizon"
)

// Split is one training window and the test positions predicted from its cutoff. Positions
// index into the series the splitter was applied to and the training window is
// [TrainStart, Cutoff].
type Split struct {
	TrainStart int
	Cutoff     int
	Test       []int
}

// Splitter yields the cutoff positions of a rolling-origin evaluation over a series of n points
type Splitter interface {
	Horizon() horizon.Horizon
	Cutoffs(n int) ([]int, error)
	Split(n int) ([]Split, error)
}

// ExpandingWindow places the first cutoff after InitialWindow points and every following one
// StepLength points later. Training windows always start at the first point.
type ExpandingWindow struct {
	FH            horizon.Horizon
	InitialWindow int
	StepLength    int
}

func (w *ExpandingWindow) Horizon() horizon.Horizon {
	return w.FH
}

// Cutoffs returns every cutoff position from which the whole horizon stays inside the series
func (w *ExpandingWindow) Cutoffs(n int) ([]int, error) {
	if err := (Spec{InitialWindow: w.InitialWindow, StepLength: w.StepLength}).Validate(); err != nil {
		return nil, err
	}
	maxStep, err := checkHorizon(w.FH)
	if err != nil {
		return nil, err
	}
	return cutoffs(w.InitialWindow-1, w.StepLength, maxStep, n), nil
}

func (w *ExpandingWindow) Split(n int) ([]Split, error) {
	c, err := w.Cutoffs(n)
	if err != nil {
		return nil, err
	}
	return splits(c, w.FH, func(int) int { return 0 }), nil
}

// SlidingWindow keeps training windows of WindowLength points. Without StartWithWindow the
// first cutoff is the first point and the early windows are truncated.
type SlidingWindow struct {
	FH              horizon.Horizon
	WindowLength    int
	StepLength      int
	StartWithWindow bool
}

func (w *SlidingWindow) Horizon() horizon.Horizon {
	return w.FH
}

func (w *SlidingWindow) Cutoffs(n int) ([]int, error) {
	if w.WindowLength <= 0 {
		return nil, ErrInvalidWindowLength
	}
	if w.StepLength <= 0 {
		return nil, ErrInvalidStepLength
	}
	maxStep, err := checkHorizon(w.FH)
	if err != nil {
		return nil, err
	}
	first := 0
	if w.StartWithWindow {
		first = w.WindowLength - 1
	}
	return cutoffs(first, w.StepLength, maxStep, n), nil
}

func (w *SlidingWindow) Split(n int) ([]Split, error) {
	c, err := w.Cutoffs(n)
	if err != nil {
		return nil, err
	}
	return splits(c, w.FH, func(cutoff int) int {
		return max(0, cutoff-w.WindowLength+1)
	}), nil
}

func cutoffs(first, step, maxStep, n int) []int {
	res := []int{}
	for c := first; c+maxStep <= n-1; c += step {
		res = append(res, c)
	}
	return res
}

func splits(cutoffs []int, fh horizon.Horizon, trainStart func(int) int) []Split {
	steps := fh.Steps()
	res := make([]Split, 0, len(cutoffs))
	for _, c := range cutoffs {
		test := make([]int, 0, len(steps))
		for _, s := range steps {
			test = append(test, c+s)
		}
		res = append(res, Split{
			TrainStart: trainStart(c),
			Cutoff:     c,
			Test:       test,
		})
	}
	return res
}
