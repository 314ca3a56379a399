package models

import (
	"fmt"

	forecaster "github.com/aouyang1/go-rollcast"
	"github.com/aouyang1/go-rollcast/horizon"
	"github.com/aouyang1/go-rollcast/timedataset"
)

// PooledDrift extends every column from its latest value with one drift shared by all columns,
// the mean of the per column drifts
type PooledDrift struct {
	fitted bool
	last   []float64
	drift  float64
}

func NewPooledDrift() *PooledDrift {
	return &PooledDrift{}
}

func (p *PooledDrift) Name() string {
	return "pooled_drift"
}

func (p *PooledDrift) Capabilities() forecaster.Capabilities {
	return forecaster.Capabilities{
		YInputType: forecaster.Multivariate,
	}
}

func (p *PooledDrift) Clone() forecaster.Model {
	return NewPooledDrift()
}

func (p *PooledDrift) Fit(y *timedataset.Frame, _ horizon.Horizon) error {
	if y == nil || y.Len() == 0 {
		return timedataset.ErrNoTrainingData
	}
	if len(y.Columns) < 2 {
		return fmt.Errorf("got %d column(s), %w", len(y.Columns), forecaster.ErrMultivariateOnly)
	}
	if err := p.estimate(y); err != nil {
		return err
	}
	p.fitted = true
	return nil
}

func (p *PooledDrift) estimate(y *timedataset.Frame) error {
	var drift float64
	last := make([]float64, len(y.Columns))
	for c, values := range y.Values {
		v := dropNaN(values)
		if len(v) == 0 {
			return fmt.Errorf("column %q, %w", y.Columns[c], ErrInsufficientData)
		}
		last[c] = v[len(v)-1]
		if len(v) > 1 {
			drift += (v[len(v)-1] - v[0]) / float64(len(v)-1)
		}
	}
	p.last = last
	p.drift = drift / float64(len(y.Columns))
	return nil
}

// Update moves every column to its latest value and re-estimates the drift when updateParams is
// set
func (p *PooledDrift) Update(y *timedataset.Frame, updateParams bool) error {
	if !p.fitted {
		return ErrModelNotFitted
	}
	if len(y.Columns) != len(p.last) {
		return fmt.Errorf("expected %d columns, but got %d, %w", len(p.last), len(y.Columns), timedataset.ErrColumnMismatch)
	}
	if updateParams {
		return p.estimate(y)
	}
	for c, values := range y.Values {
		last, err := lastValid(values)
		if err != nil {
			return err
		}
		p.last[c] = last
	}
	return nil
}

func (p *PooledDrift) Predict(fh horizon.Horizon) ([][]float64, error) {
	if !p.fitted {
		return nil, ErrModelNotFitted
	}
	steps := fh.Steps()
	res := make([][]float64, len(p.last))
	for c, last := range p.last {
		res[c] = make([]float64, len(steps))
		for s, step := range steps {
			res[c][s] = last + float64(step)*p.drift
		}
	}
	return res, nil
}

func (p *PooledDrift) FittedParams() (map[string]float64, error) {
	if !p.fitted {
		return nil, ErrModelNotFitted
	}
	return map[string]float64{"drift": p.drift}, nil
}
