// Package report records the outcome of a rolling-origin backtest as JSON
package report

import (
	"fmt"
	"io"
	"time"

	forecaster "github.com/aouyang1/go-rollcast"
	"github.com/aouyang1/go-rollcast/errkind"
	"github.com/aouyang1/go-rollcast/metrics"
	"github.com/aouyang1/go-rollcast/timedataset"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

var ErrNoPredictions = fmt.Errorf("backtest produced no predictions, %w", errkind.ErrValue)

// Window describes the cutoffs of the backtest
type Window struct {
	FH            []int `json:"fh"`
	InitialWindow int   `json:"initial_window"`
	StepLength    int   `json:"step_length"`
	WindowLength  int   `json:"window_length,omitempty"`
	UpdateParams  bool  `json:"update_params"`
}

// Cutoff is the forecast made from one cutoff. MAPE is absent when none of its predicted times
// were observed.
type Cutoff struct {
	Cutoff      time.Time           `json:"cutoff"`
	Predictions *forecaster.Results `json:"predictions"`
	MAPE        *float64            `json:"mape,omitempty"`
}

// Report is the result of one backtest run. Scores compare the latest forecast of every
// predicted time with the observed value.
type Report struct {
	RunID        uuid.UUID               `json:"run_id"`
	Created      time.Time               `json:"created"`
	Model        string                  `json:"model"`
	Capabilities forecaster.Capabilities `json:"capabilities"`
	Window       Window                  `json:"window"`
	Cutoffs      []Cutoff                `json:"cutoffs"`
	Scores       *metrics.Scores         `json:"scores"`
	Params       map[string]float64      `json:"fitted_params,omitempty"`
}

// New builds the report of a backtest from its rolling results and the observed series. Fitted
// parameters are included when the forecaster exposes them.
func New(f forecaster.Forecaster, actual *timedataset.Panel, w Window, res *forecaster.RollingResults) (*Report, error) {
	if res == nil || len(res.Predictions) == 0 {
		return nil, ErrNoPredictions
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("unable to generate run id, %w", err)
	}

	lookup := newActuals(actual)
	r := &Report{
		RunID:        id,
		Created:      time.Now().UTC(),
		Model:        f.Name(),
		Capabilities: f.Capabilities(),
		Window:       w,
		Cutoffs:      make([]Cutoff, 0, len(res.Cutoffs)),
	}
	for i, pred := range res.Predictions {
		c := Cutoff{Cutoff: res.Cutoffs[i], Predictions: pred}
		predicted, observed := lookup.pairs(pred)
		if mape, err := metrics.MAPE(predicted, observed); err == nil {
			c.MAPE = &mape
		}
		r.Cutoffs = append(r.Cutoffs, c)
	}

	predicted, observed := lookup.pairs(res.Latest())
	r.Scores, err = metrics.NewScores(predicted, observed)
	if err != nil {
		return nil, fmt.Errorf("unable to score backtest, %w", err)
	}

	params, err := f.FittedParams()
	switch {
	case errkind.IsUnsupported(err):
	case err != nil:
		return nil, fmt.Errorf("unable to get fitted parameters, %w", err)
	default:
		r.Params = params
	}
	return r, nil
}

// actuals finds the observed value of an entity, time and column
type actuals struct {
	p    *timedataset.Panel
	keys map[string]int
	rows map[int64]int
}

func newActuals(p *timedataset.Panel) *actuals {
	a := &actuals{
		p:    p,
		keys: make(map[string]int, len(p.Keys)),
		rows: make(map[int64]int, p.Len()),
	}
	for e, k := range p.Keys {
		a.keys[k] = e
	}
	for i, ts := range p.Index() {
		a.rows[ts.UnixNano()] = i
	}
	return a
}

// pairs returns the predicted and observed values of every prediction with an observation
func (a *actuals) pairs(r *forecaster.Results) ([]float64, []float64) {
	var predicted, observed []float64
	for i, ts := range r.T {
		e, exists := a.keys[r.Keys[i]]
		if !exists {
			continue
		}
		row, exists := a.rows[ts.UnixNano()]
		if !exists {
			continue
		}
		f := a.p.Frames[e]
		for c, col := range r.Columns {
			values, err := f.Column(col)
			if err != nil {
				continue
			}
			predicted = append(predicted, r.Values[i][c])
			observed = append(observed, values[row])
		}
	}
	return predicted, observed
}

// Write encodes the report as indented JSON
func (r *Report) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("unable to encode report, %w", err)
	}
	return nil
}

// Read decodes a report written by Write
func Read(rd io.Reader) (*Report, error) {
	var r Report
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("unable to decode report, %w", err)
	}
	return &r, nil
}
