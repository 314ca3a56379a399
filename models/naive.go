package models

import (
	"fmt"
	"math"

	forecaster "github.com/aouyang1/go-rollcast"
	"github.com/aouyang1/go-rollcast/horizon"
	"github.com/aouyang1/go-rollcast/timedataset"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Strategy selects how the naive model extrapolates
type Strategy string

const (
	// StrategyLast repeats the latest observation
	StrategyLast Strategy = "last"
	// StrategyMean repeats the mean of the observations
	StrategyMean Strategy = "mean"
	// StrategyDrift extends the line between the first and latest observation
	StrategyDrift Strategy = "drift"
)

// NaiveOptions configures the naive model
type NaiveOptions struct {
	Strategy Strategy `json:"strategy" mapstructure:"strategy"`

	// WindowLength limits the mean, drift and residual spread to the most recent observations.
	// 0 uses every observation.
	WindowLength int `json:"window_length" mapstructure:"window_length"`
}

func NewDefaultNaiveOptions() *NaiveOptions {
	return &NaiveOptions{
		Strategy: StrategyLast,
	}
}

// Validate returns the default options when o is nil
func (o *NaiveOptions) Validate() (*NaiveOptions, error) {
	if o == nil {
		return NewDefaultNaiveOptions(), nil
	}
	switch o.Strategy {
	case StrategyLast, StrategyMean, StrategyDrift:
	default:
		return nil, fmt.Errorf("got %q, %w", string(o.Strategy), ErrUnknownStrategy)
	}
	if o.WindowLength < 0 {
		return nil, fmt.Errorf("got %d, %w", o.WindowLength, ErrNegativeWindow)
	}
	return o, nil
}

// Naive forecasts every column from its latest value, its mean or its drift. Quantiles assume
// Gaussian one-step residuals whose spread grows with the horizon as for a random walk.
type Naive struct {
	opt *NaiveOptions

	fitted  bool
	columns []string
	n       []int
	last    []float64
	mean    []float64
	drift   []float64
	sigma   []float64
}

func NewNaive(opt *NaiveOptions) (*Naive, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Naive{opt: opt}, nil
}

func (n *Naive) Name() string {
	return "naive_" + string(n.opt.Strategy)
}

func (n *Naive) Capabilities() forecaster.Capabilities {
	return forecaster.Capabilities{
		PredInt:    true,
		YInputType: forecaster.Both,
	}
}

func (n *Naive) Clone() forecaster.Model {
	opt := *n.opt
	return &Naive{opt: &opt}
}

func (n *Naive) Fit(y *timedataset.Frame, _ horizon.Horizon) error {
	if y == nil || y.Len() == 0 {
		return timedataset.ErrNoTrainingData
	}
	cols := len(y.Columns)
	n.columns = append([]string(nil), y.Columns...)
	n.n = make([]int, cols)
	n.last = make([]float64, cols)
	n.mean = make([]float64, cols)
	n.drift = make([]float64, cols)
	n.sigma = make([]float64, cols)
	if err := n.estimate(y); err != nil {
		return err
	}
	n.fitted = true
	return nil
}

func (n *Naive) estimate(y *timedataset.Frame) error {
	for c, values := range y.Values {
		v := tail(dropNaN(values), n.opt.WindowLength)
		if len(v) == 0 {
			return fmt.Errorf("column %q, %w", y.Columns[c], ErrInsufficientData)
		}
		n.n[c] = len(v)
		n.last[c] = v[len(v)-1]
		n.mean[c] = stat.Mean(v, nil)
		n.drift[c] = 0
		if len(v) > 1 {
			n.drift[c] = (v[len(v)-1] - v[0]) / float64(len(v)-1)
		}
		n.sigma[c] = n.residualSpread(v, c)
	}
	return nil
}

func (n *Naive) residualSpread(v []float64, c int) float64 {
	var res []float64
	switch n.opt.Strategy {
	case StrategyMean:
		res = make([]float64, len(v))
		for i := range v {
			res[i] = v[i] - n.mean[c]
		}
	case StrategyDrift:
		for i := 1; i < len(v); i++ {
			res = append(res, v[i]-v[i-1]-n.drift[c])
		}
	default:
		for i := 1; i < len(v); i++ {
			res = append(res, v[i]-v[i-1])
		}
	}
	if len(res) < 2 {
		return 0
	}
	return stat.StdDev(res, nil)
}

// Update always moves the level to the latest observations. Mean, drift and spread are only
// re-estimated when updateParams is set.
func (n *Naive) Update(y *timedataset.Frame, updateParams bool) error {
	if !n.fitted {
		return ErrModelNotFitted
	}
	if len(y.Columns) != len(n.columns) {
		return fmt.Errorf("expected %d columns, but got %d, %w", len(n.columns), len(y.Columns), timedataset.ErrColumnMismatch)
	}
	if updateParams {
		return n.estimate(y)
	}
	for c, values := range y.Values {
		last, err := lastValid(values)
		if err != nil {
			return err
		}
		n.last[c] = last
	}
	return nil
}

func (n *Naive) point(c, step int) float64 {
	switch n.opt.Strategy {
	case StrategyMean:
		return n.mean[c]
	case StrategyDrift:
		return n.last[c] + float64(step)*n.drift[c]
	default:
		return n.last[c]
	}
}

// scale is the growth of the residual spread h steps ahead
func (n *Naive) scale(c, step int) float64 {
	h := float64(step)
	t := float64(n.n[c])
	switch n.opt.Strategy {
	case StrategyMean:
		return math.Sqrt(1 + 1/t)
	case StrategyDrift:
		return math.Sqrt(h * (1 + h/t))
	default:
		return math.Sqrt(h)
	}
}

func (n *Naive) Predict(fh horizon.Horizon) ([][]float64, error) {
	if !n.fitted {
		return nil, ErrModelNotFitted
	}
	steps := fh.Steps()
	res := make([][]float64, len(n.columns))
	for c := range res {
		res[c] = make([]float64, len(steps))
		for s, step := range steps {
			res[c][s] = n.point(c, step)
		}
	}
	return res, nil
}

func (n *Naive) PredictQuantiles(fh horizon.Horizon, alpha []float64) ([][][]float64, error) {
	if !n.fitted {
		return nil, ErrModelNotFitted
	}
	steps := fh.Steps()
	res := make([][][]float64, len(alpha))
	for a, al := range alpha {
		z := distuv.UnitNormal.Quantile(al)
		res[a] = make([][]float64, len(n.columns))
		for c := range n.columns {
			res[a][c] = make([]float64, len(steps))
			for s, step := range steps {
				res[a][c][s] = n.point(c, step) + z*n.sigma[c]*n.scale(c, step)
			}
		}
	}
	return res, nil
}

func (n *Naive) FittedParams() (map[string]float64, error) {
	if !n.fitted {
		return nil, ErrModelNotFitted
	}
	res := make(map[string]float64)
	for c := range n.columns {
		res[paramName(n.columns, c, "last")] = n.last[c]
		res[paramName(n.columns, c, "sigma")] = n.sigma[c]
		switch n.opt.Strategy {
		case StrategyMean:
			res[paramName(n.columns, c, "mean")] = n.mean[c]
		case StrategyDrift:
			res[paramName(n.columns, c, "drift")] = n.drift[c]
		}
	}
	return res, nil
}
