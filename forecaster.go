// Package forecaster fits forecasting models to time series, predicts over a forecasting
// horizon and evaluates models over rolling cutoffs.
package forecaster

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aouyang1/go-rollcast/errkind"
	"github.com/aouyang1/go-rollcast/horizon"
	"github.com/aouyang1/go-rollcast/timedataset"
	"github.com/aouyang1/go-rollcast/window"
	"go.uber.org/zap"
)

var (
	ErrNilModel           = fmt.Errorf("no model provided, %w", errkind.ErrConfiguration)
	ErrQuantileCapability = fmt.Errorf("model declares prediction intervals but does not predict quantiles, %w", errkind.ErrConfiguration)
	ErrNotFitted          = fmt.Errorf("forecaster has not been fitted, %w", errkind.ErrNotFitted)
	ErrNoHorizon          = fmt.Errorf("no forecasting horizon passed in fit or predict, %w", errkind.ErrConfiguration)
	ErrHorizonRequired    = fmt.Errorf("forecasting horizon must be passed in fit, %w", errkind.ErrConfiguration)
	ErrHorizonMismatch    = fmt.Errorf("forecasting horizon differs from the one passed in fit, %w", errkind.ErrConfiguration)
	ErrNoSplitter         = fmt.Errorf("no cutoff splitter provided, %w", errkind.ErrConfiguration)
	ErrMultivariateOnly   = fmt.Errorf("forecaster requires two or more variables, %w", errkind.ErrValue)
	ErrInvalidCoverage    = fmt.Errorf("coverage must be in (0, 1), %w", errkind.ErrValue)
	ErrInvalidAlpha       = fmt.Errorf("alpha must be in (0, 1), %w", errkind.ErrValue)
	ErrModelOutput        = fmt.Errorf("model returned predictions of the wrong shape, %w", errkind.ErrValue)
	ErrCutoffBehind       = fmt.Errorf("cutoff precedes the observed data, %w", errkind.ErrValue)
	ErrMissingActual      = fmt.Errorf("no observed value at predicted time, %w", errkind.ErrValue)
)

const DefaultCoverage = 0.9

// DefaultAlpha are the quantiles predicted when none are requested
var DefaultAlpha = []float64{0.05, 0.95}

// Forecaster is the contract every forecaster satisfies. Post-fit operations fail with
// ErrNotFitted until Fit succeeds. Series inputs are any container recognized by
// timedataset.AsPanel.
type Forecaster interface {
	Name() string
	Capabilities() Capabilities
	IsFitted() bool
	Cutoff() time.Time
	Horizon() horizon.Horizon
	Observed() *timedataset.Panel

	Fit(y any, fh horizon.Horizon) error
	Predict(fh horizon.Horizon) (*Results, error)
	PredictInterval(fh horizon.Horizon, coverage ...float64) ([]Interval, error)
	PredictQuantiles(fh horizon.Horizon, alpha ...float64) (*Quantiles, error)
	PredictResiduals(y any) (*Results, error)
	Update(y any, updateParams bool) error
	UpdatePredict(y any, cv window.Splitter, updateParams bool) (*RollingResults, error)
	UpdatePredictSingle(y any, fh horizon.Horizon, updateParams bool) (*Results, error)
	Score(y any, fh horizon.Horizon) (float64, error)
	FittedParams() (map[string]float64, error)
}

// slot is one fitted model and the part of the observed panel it is responsible for. column
// is -1 when the model sees every column at once.
type slot struct {
	entity int
	column int
	model  Model
}

// Base implements Forecaster around a Model. It owns the observed data, the cutoff and the
// forecasting horizon, and vectorizes the model with one clone per entity, and per column for
// univariate models.
//
// A Base is not safe for concurrent use.
type Base struct {
	model  Model
	caps   Capabilities
	logger *zap.Logger

	fitted bool
	y      *timedataset.Panel
	cutoff time.Time
	freq   time.Duration
	fh     horizon.Horizon
	slots  []slot

	// fitSteps is the fit-time horizon resolved against the fit cutoff
	fitSteps horizon.Horizon
}

// New wraps the model in an unfitted forecaster. If no options are provided a default is used.
func New(model Model, opt *Options) (*Base, error) {
	if model == nil {
		return nil, ErrNilModel
	}
	if opt == nil {
		opt = NewDefaultOptions()
	}
	logger := opt.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	caps := model.Capabilities()
	if caps.PredInt {
		if _, ok := model.(QuantileModel); !ok {
			return nil, fmt.Errorf("model %s, %w", model.Name(), ErrQuantileCapability)
		}
	}
	return &Base{
		model:  model,
		caps:   caps,
		logger: logger.With(zap.String("forecaster", model.Name())),
	}, nil
}

func (b *Base) Name() string {
	return b.model.Name()
}

func (b *Base) Capabilities() Capabilities {
	return b.caps
}

func (b *Base) IsFitted() bool {
	return b.fitted
}

// Cutoff returns the last observed time, zero before the first fit
func (b *Base) Cutoff() time.Time {
	return b.cutoff
}

// Horizon returns the stored forecasting horizon, empty until one is passed
func (b *Base) Horizon() horizon.Horizon {
	return b.fh
}

// Observed returns a copy of all data seen since the last fit, nil before the first fit
func (b *Base) Observed() *timedataset.Panel {
	if b.y == nil {
		return nil
	}
	return b.y.Copy()
}

// Fit replaces the observed data with y, sets the cutoff to its last time and fits one model
// per entity, and per column for univariate models.
func (b *Base) Fit(y any, fh horizon.Horizon) error {
	p, err := timedataset.AsPanel(y)
	if err != nil {
		return fmt.Errorf("unable to recognize series, %w", err)
	}
	freq, err := p.Freq()
	if err != nil {
		return fmt.Errorf("unable to determine series frequency, %w", err)
	}
	if b.caps.YInputType == Multivariate && len(p.Columns()) < 2 {
		return fmt.Errorf("got %d column(s), %w", len(p.Columns()), ErrMultivariateOnly)
	}
	if fh.IsEmpty() && b.caps.RequiresFHInFit {
		return fmt.Errorf("model %s, %w", b.Name(), ErrHorizonRequired)
	}

	cutoff := p.Index().EndTime()
	var rel horizon.Horizon
	if !fh.IsEmpty() {
		rel, err = fh.ToRelative(cutoff, freq)
		if err != nil {
			return fmt.Errorf("unable to resolve forecasting horizon, %w", err)
		}
	}

	slots := b.newSlots(p)
	for _, s := range slots {
		f, err := slotFrame(p, s)
		if err != nil {
			return err
		}
		if err := s.model.Fit(f, rel); err != nil {
			return fmt.Errorf("unable to fit %s, %w", b.slotLabel(p, s), err)
		}
	}

	b.fitted = true
	b.y = p.Copy()
	b.cutoff = cutoff
	b.freq = freq
	b.fh = fh
	b.fitSteps = rel
	b.slots = slots

	b.logger.Debug("fitted",
		zap.Time("cutoff", cutoff),
		zap.Int("points", p.Len()),
		zap.Int("entities", len(p.Keys)),
		zap.Int("models", len(slots)),
		zap.Stringer("fh", fh),
	)
	return nil
}

func (b *Base) newSlots(p *timedataset.Panel) []slot {
	var slots []slot
	for e := range p.Keys {
		if b.caps.YInputType != Univariate {
			slots = append(slots, slot{entity: e, column: -1, model: b.model.Clone()})
			continue
		}
		for c := range p.Columns() {
			slots = append(slots, slot{entity: e, column: c, model: b.model.Clone()})
		}
	}
	return slots
}

func slotFrame(p *timedataset.Panel, s slot) (*timedataset.Frame, error) {
	f := p.Frames[s.entity]
	if s.column < 0 {
		return f.Copy(), nil
	}
	return f.SelectColumn(f.Columns[s.column])
}

func (b *Base) slotLabel(p *timedataset.Panel, s slot) string {
	label := b.Name()
	if p.IsHierarchical() {
		label += fmt.Sprintf(" entity %q", p.Keys[s.entity])
	}
	if s.column >= 0 {
		label += fmt.Sprintf(" column %q", p.Columns()[s.column])
	}
	return label
}

// resolveHorizon picks the horizon of a predict call and resolves it against the cutoff
func (b *Base) resolveHorizon(fh horizon.Horizon) (horizon.Horizon, horizon.Horizon, error) {
	if fh.IsEmpty() {
		if b.fh.IsEmpty() {
			return horizon.Horizon{}, horizon.Horizon{}, ErrNoHorizon
		}
		fh = b.fh
	}
	rel, err := fh.ToRelative(b.cutoff, b.freq)
	if err != nil {
		return horizon.Horizon{}, horizon.Horizon{}, fmt.Errorf("unable to resolve forecasting horizon, %w", err)
	}
	if b.caps.RequiresFHInFit && !rel.Equal(b.fitSteps) {
		return horizon.Horizon{}, horizon.Horizon{}, fmt.Errorf("expected %s, but got %s, %w", b.fitSteps, rel, ErrHorizonMismatch)
	}
	return fh, rel, nil
}

// collect runs fn on every slot and gathers its output, indexed by layer, column then step,
// into one array indexed by layer, entity, column then step.
func (b *Base) collect(layers, steps int, fn func(Model) ([][][]float64, error)) ([][][][]float64, error) {
	nCols := len(b.y.Columns())
	res := make([][][][]float64, layers)
	for l := range res {
		res[l] = make([][][]float64, len(b.y.Keys))
		for e := range res[l] {
			res[l][e] = make([][]float64, nCols)
		}
	}

	for _, s := range b.slots {
		out, err := fn(s.model)
		if err != nil {
			return nil, fmt.Errorf("unable to predict %s, %w", b.slotLabel(b.y, s), err)
		}
		want := nCols
		if s.column >= 0 {
			want = 1
		}
		if len(out) != layers {
			return nil, fmt.Errorf("expected %d layers, but got %d, %w", layers, len(out), ErrModelOutput)
		}
		for l, layer := range out {
			if len(layer) != want {
				return nil, fmt.Errorf("expected %d columns, but got %d, %w", want, len(layer), ErrModelOutput)
			}
			for i, v := range layer {
				if len(v) != steps {
					return nil, fmt.Errorf("expected %d steps, but got %d, %w", steps, len(v), ErrModelOutput)
				}
				c := i
				if s.column >= 0 {
					c = s.column
				}
				res[l][s.entity][c] = v
			}
		}
	}
	return res, nil
}

func (b *Base) predict(fh horizon.Horizon) (*Results, horizon.Horizon, error) {
	fh, rel, err := b.resolveHorizon(fh)
	if err != nil {
		return nil, horizon.Horizon{}, err
	}
	times, err := rel.ToAbsolute(b.cutoff, b.freq)
	if err != nil {
		return nil, horizon.Horizon{}, err
	}
	pred, err := b.collect(1, rel.Len(), func(m Model) ([][][]float64, error) {
		out, err := m.Predict(rel)
		if err != nil {
			return nil, err
		}
		return [][][]float64{out}, nil
	})
	if err != nil {
		return nil, horizon.Horizon{}, err
	}
	return newResults(b.y.Keys, b.y.Columns(), times, pred[0]), fh, nil
}

// Predict forecasts fh steps past the cutoff. Without fh the stored horizon is used, otherwise
// fh becomes the stored horizon. Models fitted for a horizon only accept that horizon.
func (b *Base) Predict(fh horizon.Horizon) (*Results, error) {
	if !b.fitted {
		return nil, ErrNotFitted
	}
	res, fh, err := b.predict(fh)
	if err != nil {
		return nil, err
	}
	b.fh = fh
	return res, nil
}

// PredictQuantiles forecasts the alpha quantiles, DefaultAlpha when none are given
func (b *Base) PredictQuantiles(fh horizon.Horizon, alpha ...float64) (*Quantiles, error) {
	if !b.fitted {
		return nil, ErrNotFitted
	}
	if !b.caps.PredInt {
		return nil, errkind.Unsupported(b.Name(), "prediction intervals")
	}
	if len(alpha) == 0 {
		alpha = DefaultAlpha
	}
	alpha = slices.Clone(alpha)
	for _, a := range alpha {
		if !(a > 0 && a < 1) {
			return nil, fmt.Errorf("got %.3f, %w", a, ErrInvalidAlpha)
		}
	}
	slices.Sort(alpha)
	alpha = slices.Compact(alpha)

	fh, rel, err := b.resolveHorizon(fh)
	if err != nil {
		return nil, err
	}
	times, err := rel.ToAbsolute(b.cutoff, b.freq)
	if err != nil {
		return nil, err
	}
	pred, err := b.collect(len(alpha), rel.Len(), func(m Model) ([][][]float64, error) {
		qm, ok := m.(QuantileModel)
		if !ok {
			return nil, errkind.Unsupported(m.Name(), "prediction intervals")
		}
		return qm.PredictQuantiles(rel, alpha)
	})
	if err != nil {
		return nil, err
	}

	q := &Quantiles{
		Alpha:   alpha,
		Results: make([]*Results, len(alpha)),
	}
	for a := range alpha {
		q.Results[a] = newResults(b.y.Keys, b.y.Columns(), times, pred[a])
	}
	b.fh = fh
	return q, nil
}

// PredictInterval forecasts the central interval of every coverage, DefaultCoverage when
// none is given. The bounds are the (1-c)/2 and (1+c)/2 quantiles.
func (b *Base) PredictInterval(fh horizon.Horizon, coverage ...float64) ([]Interval, error) {
	if !b.fitted {
		return nil, ErrNotFitted
	}
	if !b.caps.PredInt {
		return nil, errkind.Unsupported(b.Name(), "prediction intervals")
	}
	if len(coverage) == 0 {
		coverage = []float64{DefaultCoverage}
	}
	alpha := make([]float64, 0, 2*len(coverage))
	for _, c := range coverage {
		if !(c > 0 && c < 1) {
			return nil, fmt.Errorf("got %.3f, %w", c, ErrInvalidCoverage)
		}
		alpha = append(alpha, (1-c)/2, (1+c)/2)
	}

	q, err := b.PredictQuantiles(fh, alpha...)
	if err != nil {
		return nil, err
	}

	res := make([]Interval, 0, len(coverage))
	for _, c := range coverage {
		lower, err := q.Quantile((1 - c) / 2)
		if err != nil {
			return nil, err
		}
		upper, err := q.Quantile((1 + c) / 2)
		if err != nil {
			return nil, err
		}
		res = append(res, Interval{Coverage: c, Lower: lower, Upper: upper})
	}
	return res, nil
}

// PredictResiduals returns y minus the forecast at the times of y, which must all lie after
// the cutoff. The stored horizon is left unchanged.
func (b *Base) PredictResiduals(y any) (*Results, error) {
	if !b.fitted {
		return nil, ErrNotFitted
	}
	p, err := b.asObserved(y)
	if err != nil {
		return nil, err
	}
	fh, err := horizon.NewAbsolute(p.Index()...)
	if err != nil {
		return nil, err
	}
	pred, _, err := b.predict(fh)
	if err != nil {
		return nil, err
	}

	n := p.Len()
	for i := range pred.Values {
		e, s := i/n, i%n
		for c := range pred.Columns {
			pred.Values[i][c] = p.Frames[e].Values[c][s] - pred.Values[i][c]
		}
	}
	return pred, nil
}

// asObserved recognizes y and checks it has the entities and columns of the observed data
func (b *Base) asObserved(y any) (*timedataset.Panel, error) {
	p, err := timedataset.AsPanel(y)
	if err != nil {
		return nil, fmt.Errorf("unable to recognize series, %w", err)
	}
	if !slices.Equal(p.Keys, b.y.Keys) {
		return nil, fmt.Errorf("expected %v, but got %v, %w", b.y.Keys, p.Keys, timedataset.ErrEntityMismatch)
	}
	if !slices.Equal(p.Columns(), b.y.Columns()) {
		return nil, fmt.Errorf("expected %v, but got %v, %w", b.y.Columns(), p.Columns(), timedataset.ErrColumnMismatch)
	}
	return p, nil
}

// FittedParams returns the fitted parameters of every model. When the model is vectorized the
// names are prefixed by the entity and column joined with "__".
func (b *Base) FittedParams() (map[string]float64, error) {
	if !b.fitted {
		return nil, ErrNotFitted
	}
	if _, ok := b.model.(ParamsModel); !ok {
		return nil, errkind.Unsupported(b.Name(), "fitted parameters")
	}

	res := make(map[string]float64)
	for _, s := range b.slots {
		pm, ok := s.model.(ParamsModel)
		if !ok {
			return nil, errkind.Unsupported(s.model.Name(), "fitted parameters")
		}
		params, err := pm.FittedParams()
		if err != nil {
			return nil, fmt.Errorf("unable to get fitted parameters of %s, %w", b.slotLabel(b.y, s), err)
		}
		prefix := b.paramPrefix(s)
		for name, v := range params {
			res[prefix+name] = v
		}
	}
	return res, nil
}

func (b *Base) paramPrefix(s slot) string {
	var parts []string
	if b.y.IsHierarchical() {
		parts = append(parts, b.y.Keys[s.entity])
	}
	if s.column >= 0 && len(b.y.Columns()) > 1 {
		parts = append(parts, b.y.Columns()[s.column])
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "__") + "__"
}
