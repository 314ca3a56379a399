package forecaster

import (
	"github.com/aouyang1/go-rollcast/horizon"
	"github.com/aouyang1/go-rollcast/timedataset"
)

// YInputType declares how many value columns a model accepts
type YInputType int

const (
	// Univariate models see one column at a time. Multivariate input is vectorized with one
	// model per column.
	Univariate YInputType = iota
	// Multivariate models require two or more columns and see all of them at once
	Multivariate
	// Both accepts any number of columns at once
	Both
)

func (y YInputType) String() string {
	switch y {
	case Univariate:
		return "univariate"
	case Multivariate:
		return "multivariate"
	case Both:
		return "both"
	default:
		return "unknown"
	}
}

// Capabilities are the static properties a model declares
type Capabilities struct {
	// PredInt is set when the model can produce prediction quantiles
	PredInt bool `json:"pred_int"`
	// RequiresFHInFit is set when the model is fitted for one forecasting horizon and can only
	// predict that horizon
	RequiresFHInFit bool       `json:"requires_fh_in_fit"`
	YInputType      YInputType `json:"y_input_type"`
}

// Model is the numerical part of a forecaster. Cutoff, horizon and observed data bookkeeping is
// done by Base, which hands a model only relative positive horizons and the series of the
// entity and columns it is responsible for.
type Model interface {
	Name() string
	Capabilities() Capabilities

	// Fit estimates the model on y. fh is empty unless a horizon was provided.
	Fit(y *timedataset.Frame, fh horizon.Horizon) error
	// Update receives the full observed series after new data was appended. Parameters are
	// only re-estimated when updateParams is set.
	Update(y *timedataset.Frame, updateParams bool) error
	// Predict returns one slice per column with one value per horizon step
	Predict(fh horizon.Horizon) ([][]float64, error)
	// Clone returns an unfitted copy with the same configuration
	Clone() Model
}

// QuantileModel is a model with probabilistic forecasts
type QuantileModel interface {
	Model
	// PredictQuantiles returns values indexed by alpha, column, then horizon step
	PredictQuantiles(fh horizon.Horizon, alpha []float64) ([][][]float64, error)
}

// ParamsModel is a model exposing its fitted parameters
type ParamsModel interface {
	Model
	FittedParams() (map[string]float64, error)
}
