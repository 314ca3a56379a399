package models

import (
	"fmt"
	"strconv"

	forecaster "github.com/aouyang1/go-rollcast"
	"github.com/aouyang1/go-rollcast/errkind"
	"github.com/aouyang1/go-rollcast/horizon"
	"github.com/aouyang1/go-rollcast/stats"
	"github.com/aouyang1/go-rollcast/timedataset"
	"gonum.org/v1/gonum/mat"
)

// EnsembleOptions configures how member forecasts are combined
type EnsembleOptions struct {
	Aggregation stats.Aggregation `json:"aggregation" mapstructure:"aggregation"`

	// Weights holds one weight per member. Empty weights every member equally.
	Weights []float64 `json:"weights" mapstructure:"weights"`
}

func NewDefaultEnsembleOptions() *EnsembleOptions {
	return &EnsembleOptions{
		Aggregation: stats.Mean,
	}
}

// Ensemble fits every member on the same univariate series and combines their point forecasts
// step by step with a weighted aggregation
type Ensemble struct {
	opt     *EnsembleOptions
	members []forecaster.Model
	fitted  bool
}

func NewEnsemble(opt *EnsembleOptions, members ...forecaster.Model) (*Ensemble, error) {
	if opt == nil {
		opt = NewDefaultEnsembleOptions()
	}
	if len(members) == 0 {
		return nil, ErrNoMembers
	}
	if _, err := opt.Aggregation.Func(); err != nil {
		return nil, err
	}
	if len(opt.Weights) > 0 && len(opt.Weights) != len(members) {
		return nil, fmt.Errorf("got %d weights for %d members, %w", len(opt.Weights), len(members), ErrWeightsLenMismatch)
	}
	for _, m := range members {
		if m == nil {
			return nil, forecaster.ErrNilModel
		}
		if m.Capabilities().YInputType == forecaster.Multivariate {
			return nil, fmt.Errorf("member %s, %w", m.Name(), ErrMemberVariates)
		}
	}
	return &Ensemble{opt: opt, members: members}, nil
}

func (e *Ensemble) Name() string {
	return "ensemble_" + string(e.opt.Aggregation)
}

func (e *Ensemble) Capabilities() forecaster.Capabilities {
	caps := forecaster.Capabilities{YInputType: forecaster.Univariate}
	for _, m := range e.members {
		if m.Capabilities().RequiresFHInFit {
			caps.RequiresFHInFit = true
		}
	}
	return caps
}

func (e *Ensemble) Clone() forecaster.Model {
	opt := *e.opt
	opt.Weights = append([]float64(nil), e.opt.Weights...)
	members := make([]forecaster.Model, len(e.members))
	for i, m := range e.members {
		members[i] = m.Clone()
	}
	return &Ensemble{opt: &opt, members: members}
}

func (e *Ensemble) Fit(y *timedataset.Frame, fh horizon.Horizon) error {
	if _, err := univariate(y); err != nil {
		return err
	}
	for i, m := range e.members {
		if err := m.Fit(y, fh); err != nil {
			return fmt.Errorf("unable to fit member %d %s, %w", i, m.Name(), err)
		}
	}
	e.fitted = true
	return nil
}

func (e *Ensemble) Update(y *timedataset.Frame, updateParams bool) error {
	if !e.fitted {
		return ErrModelNotFitted
	}
	for i, m := range e.members {
		if err := m.Update(y, updateParams); err != nil {
			return fmt.Errorf("unable to update member %d %s, %w", i, m.Name(), err)
		}
	}
	return nil
}

func (e *Ensemble) Predict(fh horizon.Horizon) ([][]float64, error) {
	if !e.fitted {
		return nil, ErrModelNotFitted
	}
	steps := fh.Len()
	pred := mat.NewDense(len(e.members), steps, nil)
	for i, m := range e.members {
		out, err := m.Predict(fh)
		if err != nil {
			return nil, fmt.Errorf("unable to predict member %d %s, %w", i, m.Name(), err)
		}
		if len(out) != 1 || len(out[0]) != steps {
			return nil, fmt.Errorf("member %d %s, %w", i, m.Name(), forecaster.ErrModelOutput)
		}
		pred.SetRow(i, out[0])
	}

	var weights []float64
	if len(e.opt.Weights) > 0 {
		weights = e.opt.Weights
	}
	res, err := stats.Reduce(pred, stats.ByColumn, weights, e.opt.Aggregation)
	if err != nil {
		return nil, fmt.Errorf("unable to combine member forecasts, %w", err)
	}
	return [][]float64{res}, nil
}

// FittedParams returns the parameters of every member exposing them, prefixed by the member
// position and name
func (e *Ensemble) FittedParams() (map[string]float64, error) {
	if !e.fitted {
		return nil, ErrModelNotFitted
	}
	res := make(map[string]float64)
	for i, m := range e.members {
		pm, ok := m.(forecaster.ParamsModel)
		if !ok {
			continue
		}
		params, err := pm.FittedParams()
		if errkind.IsUnsupported(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		prefix := strconv.Itoa(i) + "_" + m.Name() + "__"
		for name, v := range params {
			res[prefix+name] = v
		}
	}
	return res, nil
}
