package models

import (
	"fmt"
	"math"
	"strconv"

	forecaster "github.com/aouyang1/go-rollcast"
	"github.com/aouyang1/go-rollcast/horizon"
	mat_ "github.com/aouyang1/go-rollcast/mat"
	"github.com/aouyang1/go-rollcast/stats"
	"github.com/aouyang1/go-rollcast/timedataset"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// OutlierOptions configures the passes removing outliers from the residual of a fit before the
// next pass
type OutlierOptions struct {
	NumPasses       int     `json:"num_passes" mapstructure:"num_passes"`
	UpperPercentile float64 `json:"upper_percentile" mapstructure:"upper_percentile"`
	LowerPercentile float64 `json:"lower_percentile" mapstructure:"lower_percentile"`
	TukeyFactor     float64 `json:"tukey_factor" mapstructure:"tukey_factor"`
}

// NewDefaultOutlierOptions generates a default set of outlier options
func NewDefaultOutlierOptions() *OutlierOptions {
	return &OutlierOptions{
		NumPasses:       3,
		UpperPercentile: 0.75,
		LowerPercentile: 0.25,
		TukeyFactor:     1.5,
	}
}

func (o *OutlierOptions) Validate() error {
	if o.LowerPercentile < 0 || o.UpperPercentile > 1 || o.LowerPercentile >= o.UpperPercentile {
		return fmt.Errorf("got lower %.3f and upper %.3f, %w", o.LowerPercentile, o.UpperPercentile, ErrInvalidOutlierRange)
	}
	return nil
}

// TrendOptions configures the polynomial trend model
type TrendOptions struct {
	Degree int `json:"degree" mapstructure:"degree"`

	// OutlierOptions enables outlier removal when set
	OutlierOptions *OutlierOptions `json:"outlier_options" mapstructure:"outlier_options"`
}

func NewDefaultTrendOptions() *TrendOptions {
	return &TrendOptions{
		Degree: 1,
	}
}

// Validate returns the default options when o is nil
func (o *TrendOptions) Validate() (*TrendOptions, error) {
	if o == nil {
		return NewDefaultTrendOptions(), nil
	}
	if o.Degree <= 0 {
		return nil, fmt.Errorf("got %d, %w", o.Degree, mat_.ErrInvalidDegree)
	}
	if o.OutlierOptions != nil {
		if err := o.OutlierOptions.Validate(); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Trend regresses a univariate series on a polynomial of its time position and extrapolates it.
// Quantiles assume Gaussian residuals with the spread of the final fit.
type Trend struct {
	opt *TrendOptions

	reg   *OLSRegression
	n     int
	sigma float64
}

func NewTrend(opt *TrendOptions) (*Trend, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Trend{opt: opt}, nil
}

func (t *Trend) Name() string {
	return "trend"
}

func (t *Trend) Capabilities() forecaster.Capabilities {
	return forecaster.Capabilities{
		PredInt:    true,
		YInputType: forecaster.Univariate,
	}
}

func (t *Trend) Clone() forecaster.Model {
	opt := *t.opt
	if t.opt.OutlierOptions != nil {
		outlier := *t.opt.OutlierOptions
		opt.OutlierOptions = &outlier
	}
	return &Trend{opt: &opt}
}

func (t *Trend) Fit(y *timedataset.Frame, _ horizon.Horizon) error {
	values, err := univariate(y)
	if err != nil {
		return err
	}
	if err := t.fitWithOutliers(values); err != nil {
		return err
	}
	t.n = len(values)
	return nil
}

func (t *Trend) fitWithOutliers(values []float64) error {
	y := append([]float64(nil), values...)

	// iterate to remove outliers
	numPasses := 0
	if t.opt.OutlierOptions != nil {
		numPasses = t.opt.OutlierOptions.NumPasses
	}

	var reg *OLSRegression
	var residual []float64
	for i := 0; i <= numPasses; i++ {
		var err error
		reg, residual, err = t.fit(y)
		if err != nil {
			return err
		}

		// break out if no outlier options provided
		if t.opt.OutlierOptions == nil {
			break
		}

		outlierIdxs := stats.DetectOutliers(
			residual,
			t.opt.OutlierOptions.LowerPercentile,
			t.opt.OutlierOptions.UpperPercentile,
			t.opt.OutlierOptions.TukeyFactor,
		)
		// no more outliers detected with outlier options so break early
		if len(outlierIdxs) == 0 {
			break
		}

		// residual positions skip the NaN observations of y
		pos := observedPositions(y)
		for _, idx := range outlierIdxs {
			y[pos[idx]] = math.NaN()
		}
		if len(dropNaN(y)) <= t.opt.Degree {
			break
		}
	}

	t.reg = reg
	t.sigma = 0
	if len(residual) > 1 {
		t.sigma = stat.StdDev(residual, nil)
	}
	return nil
}

func observedPositions(y []float64) []int {
	pos := make([]int, 0, len(y))
	for i, v := range y {
		if !math.IsNaN(v) {
			pos = append(pos, i)
		}
	}
	return pos
}

// fit regresses the observed values of y on their positions and returns the residual of every
// observed value
func (t *Trend) fit(y []float64) (*OLSRegression, []float64, error) {
	pos := observedPositions(y)
	if len(pos) <= t.opt.Degree {
		return nil, nil, fmt.Errorf("%d observations for degree %d, %w", len(pos), t.opt.Degree, ErrInsufficientData)
	}
	x := make([]float64, len(pos))
	target := make([]float64, len(pos))
	for i, p := range pos {
		x[i] = float64(p)
		target[i] = y[p]
	}

	design, err := mat_.Vandermonde(x, t.opt.Degree)
	if err != nil {
		return nil, nil, err
	}
	reg, err := NewOLSRegression(NewDefaultOLSOptions())
	if err != nil {
		return nil, nil, err
	}
	if err := reg.Fit(design, mat.NewDense(len(target), 1, target)); err != nil {
		return nil, nil, fmt.Errorf("unable to fit trend, %w", err)
	}

	pred, err := reg.Predict(design)
	if err != nil {
		return nil, nil, err
	}
	residual := make([]float64, len(target))
	for i := range target {
		residual[i] = target[i] - pred[i]
	}
	return reg, residual, nil
}

// Update extends the time positions to the new observations. The trend is only refitted when
// updateParams is set.
func (t *Trend) Update(y *timedataset.Frame, updateParams bool) error {
	if t.reg == nil {
		return ErrModelNotFitted
	}
	values, err := univariate(y)
	if err != nil {
		return err
	}
	if updateParams {
		if err := t.fitWithOutliers(values); err != nil {
			return err
		}
	}
	t.n = len(values)
	return nil
}

func (t *Trend) Predict(fh horizon.Horizon) ([][]float64, error) {
	if t.reg == nil {
		return nil, ErrModelNotFitted
	}
	steps := fh.Steps()
	x := make([]float64, len(steps))
	for i, step := range steps {
		x[i] = float64(t.n - 1 + step)
	}
	design, err := mat_.Vandermonde(x, t.opt.Degree)
	if err != nil {
		return nil, err
	}
	pred, err := t.reg.Predict(design)
	if err != nil {
		return nil, err
	}
	return [][]float64{pred}, nil
}

func (t *Trend) PredictQuantiles(fh horizon.Horizon, alpha []float64) ([][][]float64, error) {
	pred, err := t.Predict(fh)
	if err != nil {
		return nil, err
	}
	res := make([][][]float64, len(alpha))
	for a, al := range alpha {
		z := distuv.UnitNormal.Quantile(al)
		q := make([]float64, len(pred[0]))
		for s, p := range pred[0] {
			q[s] = p + z*t.sigma
		}
		res[a] = [][]float64{q}
	}
	return res, nil
}

func (t *Trend) FittedParams() (map[string]float64, error) {
	if t.reg == nil {
		return nil, ErrModelNotFitted
	}
	res := map[string]float64{
		"intercept": t.reg.Intercept(),
		"sigma":     t.sigma,
	}
	for i, c := range t.reg.Coef() {
		res["coef_"+strconv.Itoa(i+1)] = c
	}
	return res, nil
}
