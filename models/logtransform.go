package models

import (
	"fmt"
	"math"

	forecaster "github.com/aouyang1/go-rollcast"
	"github.com/aouyang1/go-rollcast/errkind"
	"github.com/aouyang1/go-rollcast/horizon"
	"github.com/aouyang1/go-rollcast/timedataset"
)

// LogTransform fits the inner model on the natural log of a strictly positive series and
// exponentiates its forecasts. Quantiles map through the exponential unchanged.
type LogTransform struct {
	inner forecaster.Model
}

func NewLogTransform(inner forecaster.Model) (*LogTransform, error) {
	if inner == nil {
		return nil, forecaster.ErrNilModel
	}
	return &LogTransform{inner: inner}, nil
}

func (l *LogTransform) Name() string {
	return "log_" + l.inner.Name()
}

func (l *LogTransform) Capabilities() forecaster.Capabilities {
	return l.inner.Capabilities()
}

func (l *LogTransform) Clone() forecaster.Model {
	return &LogTransform{inner: l.inner.Clone()}
}

func logFrame(y *timedataset.Frame) (*timedataset.Frame, error) {
	if y == nil || y.Len() == 0 {
		return nil, timedataset.ErrNoTrainingData
	}
	out := y.Copy()
	for c, values := range out.Values {
		for i, v := range values {
			if math.IsNaN(v) {
				continue
			}
			if v <= 0 {
				return nil, fmt.Errorf("column %q at %s has %.3f, %w", y.Columns[c], y.T[i], v, ErrNonPositiveValue)
			}
			values[i] = math.Log(v)
		}
	}
	return out, nil
}

func exp(v [][]float64) [][]float64 {
	for _, row := range v {
		for i := range row {
			row[i] = math.Exp(row[i])
		}
	}
	return v
}

func (l *LogTransform) Fit(y *timedataset.Frame, fh horizon.Horizon) error {
	ly, err := logFrame(y)
	if err != nil {
		return err
	}
	return l.inner.Fit(ly, fh)
}

func (l *LogTransform) Update(y *timedataset.Frame, updateParams bool) error {
	ly, err := logFrame(y)
	if err != nil {
		return err
	}
	return l.inner.Update(ly, updateParams)
}

func (l *LogTransform) Predict(fh horizon.Horizon) ([][]float64, error) {
	pred, err := l.inner.Predict(fh)
	if err != nil {
		return nil, err
	}
	return exp(pred), nil
}

func (l *LogTransform) PredictQuantiles(fh horizon.Horizon, alpha []float64) ([][][]float64, error) {
	qm, ok := l.inner.(forecaster.QuantileModel)
	if !ok {
		return nil, errkind.Unsupported(l.Name(), "prediction intervals")
	}
	q, err := qm.PredictQuantiles(fh, alpha)
	if err != nil {
		return nil, err
	}
	for a := range q {
		q[a] = exp(q[a])
	}
	return q, nil
}

// FittedParams returns the parameters of the inner model, which are on the log scale
func (l *LogTransform) FittedParams() (map[string]float64, error) {
	pm, ok := l.inner.(forecaster.ParamsModel)
	if !ok {
		return nil, errkind.Unsupported(l.Name(), "fitted parameters")
	}
	return pm.FittedParams()
}
