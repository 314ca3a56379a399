package models

import (
	"fmt"
	"math"
	"strconv"

	forecaster "github.com/aouyang1/go-rollcast"
	"github.com/aouyang1/go-rollcast/horizon"
	"github.com/aouyang1/go-rollcast/timedataset"
	"gonum.org/v1/gonum/stat"
)

// Direct fits one estimator per horizon step: the mean change of the series over that many
// steps. It can only predict the horizon it was fitted for.
type Direct struct {
	steps  []int
	deltas map[int]float64
	last   float64
}

func NewDirect() *Direct {
	return &Direct{}
}

func (d *Direct) Name() string {
	return "direct"
}

func (d *Direct) Capabilities() forecaster.Capabilities {
	return forecaster.Capabilities{
		RequiresFHInFit: true,
		YInputType:      forecaster.Univariate,
	}
}

func (d *Direct) Clone() forecaster.Model {
	return NewDirect()
}

func (d *Direct) Fit(y *timedataset.Frame, fh horizon.Horizon) error {
	if fh.IsEmpty() {
		return forecaster.ErrHorizonRequired
	}
	values, err := univariate(y)
	if err != nil {
		return err
	}
	deltas, err := meanChanges(values, fh.Steps())
	if err != nil {
		return err
	}
	last, err := lastValid(values)
	if err != nil {
		return err
	}
	d.steps = fh.Steps()
	d.deltas = deltas
	d.last = last
	return nil
}

// meanChanges returns the mean of y[t+step]-y[t] for every step
func meanChanges(y []float64, steps []int) (map[int]float64, error) {
	res := make(map[int]float64, len(steps))
	for _, step := range steps {
		var changes []float64
		for t := 0; t+step < len(y); t++ {
			change := y[t+step] - y[t]
			if math.IsNaN(change) {
				continue
			}
			changes = append(changes, change)
		}
		if len(changes) == 0 {
			return nil, fmt.Errorf("no pair of observations %d steps apart, %w", step, ErrInsufficientData)
		}
		res[step] = stat.Mean(changes, nil)
	}
	return res, nil
}

// Update moves the level to the latest observation and re-estimates the per step changes when
// updateParams is set
func (d *Direct) Update(y *timedataset.Frame, updateParams bool) error {
	if d.deltas == nil {
		return ErrModelNotFitted
	}
	values, err := univariate(y)
	if err != nil {
		return err
	}
	if updateParams {
		deltas, err := meanChanges(values, d.steps)
		if err != nil {
			return err
		}
		d.deltas = deltas
	}
	last, err := lastValid(values)
	if err != nil {
		return err
	}
	d.last = last
	return nil
}

func (d *Direct) Predict(fh horizon.Horizon) ([][]float64, error) {
	if d.deltas == nil {
		return nil, ErrModelNotFitted
	}
	steps := fh.Steps()
	res := make([]float64, len(steps))
	for i, step := range steps {
		delta, exists := d.deltas[step]
		if !exists {
			return nil, fmt.Errorf("step %d, %w", step, ErrStepNotFitted)
		}
		res[i] = d.last + delta
	}
	return [][]float64{res}, nil
}

func (d *Direct) FittedParams() (map[string]float64, error) {
	if d.deltas == nil {
		return nil, ErrModelNotFitted
	}
	res := make(map[string]float64, len(d.deltas))
	for step, delta := range d.deltas {
		res["delta_"+strconv.Itoa(step)] = delta
	}
	return res, nil
}
