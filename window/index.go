package window

import (
	"fmt"
	"slices"
	"time"

	"github.com/aouyang1/go-rollcast/horizon"
	"github.com/aouyang1/go-rollcast/timedataset"
)

// ExpectedUpdatePredictIndex computes, without running any forecaster, the ascending and
// duplicate free timestamps at which an expanding window update-and-predict run over y must
// emit predictions.
//
// Candidate cutoffs run from the initialWindow-th point to the last point at the series
// frequency. Only cutoffs whose whole horizon ends within the series are kept, and of those
// every stepLength-th one starting from the first. Each kept cutoff contributes
// cutoff + step*freq for every horizon step.
func ExpectedUpdatePredictIndex(y Indexed, fh horizon.Horizon, stepLength, initialWindow int) ([]time.Time, error) {
	spec := Spec{InitialWindow: initialWindow, StepLength: stepLength}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	maxStep, err := checkHorizon(fh)
	if err != nil {
		return nil, err
	}

	index := y.Index()
	if len(index) == 0 {
		return nil, timedataset.ErrNoTrainingData
	}
	freq, err := y.Freq()
	if err != nil {
		return nil, fmt.Errorf("%w, %w", ErrNoFrequency, err)
	}

	maxDelta, err := horizon.StepDuration(maxStep, freq)
	if err != nil {
		return nil, err
	}
	candidates, err := candidateCutoffs(index, freq, initialWindow)
	if err != nil {
		return nil, err
	}

	end := index.EndTime()
	var retained []time.Time
	for _, c := range candidates {
		if c.Add(maxDelta).After(end) {
			continue
		}
		retained = append(retained, c)
	}

	steps := fh.Steps()
	pred := make([]time.Time, 0, len(retained)*len(steps))
	for i := 0; i < len(retained); i += stepLength {
		for _, step := range steps {
			pred = append(pred, retained[i].Add(time.Duration(step)*freq))
		}
	}

	slices.SortFunc(pred, time.Time.Compare)
	return slices.CompactFunc(pred, time.Time.Equal), nil
}

// candidateCutoffs returns every point from the initialWindow-th one to the end of the index
// at frequency freq
func candidateCutoffs(index timedataset.TimeSlice, freq time.Duration, initialWindow int) ([]time.Time, error) {
	offset, err := horizon.StepDuration(initialWindow-1, freq)
	if err != nil {
		return nil, fmt.Errorf("unable to place first cutoff, %w", err)
	}
	return timedataset.DateRange(index.StartTime().Add(offset), index.EndTime(), freq)
}
