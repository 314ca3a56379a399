// Package metrics scores point forecasts against observed values.
package metrics

import (
	"fmt"
	"math"

	"github.com/aouyang1/go-rollcast/errkind"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Eps is the floor applied to the magnitude of an actual value when it is used as a
// percentage denominator.
var Eps = math.Nextafter(1, 2) - 1

var (
	ErrResLenMismatch = fmt.Errorf("predicted and actual have different lengths, %w", errkind.ErrValue)
	ErrNoValues       = fmt.Errorf("no values to score, %w", errkind.ErrValue)
)

// Scores tracks the fit scores
type Scores struct {
	MSE   float64 `json:"mean_squared_error"`
	MAPE  float64 `json:"mean_absolute_percentage_error"`
	MdAPE float64 `json:"median_absolute_percentage_error"`
	R2    float64 `json:"r_squared"`
}

// NewScores calculates the fit scores given the predicted and actual input slice values
func NewScores(predicted, actual []float64) (*Scores, error) {
	mse, err := MSE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean squared error, %w", err)
	}
	mape, err := MAPE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean absolute percentage error, %w", err)
	}
	mdape, err := MdAPE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute median absolute percentage error, %w", err)
	}
	rs, err := RSquared(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute r-squared, %w", err)
	}

	return &Scores{
		MSE:   mse,
		MAPE:  mape,
		MdAPE: mdape,
		R2:    rs,
	}, nil
}

// MSE computes the mean squared error over the pairs where neither value is NaN.
// A score of 0 means a perfect match with no errors.
func MSE(predicted, actual []float64) (float64, error) {
	if err := checkLen(predicted, actual); err != nil {
		return 0, err
	}

	var mse float64
	var n int
	for i := 0; i < len(actual); i++ {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		mse += math.Pow(actual[i]-predicted[i], 2.0)
		n++
	}
	if n == 0 {
		return 0, ErrNoValues
	}
	return mse / float64(n), nil
}

// MAPE calculates the non-symmetric mean absolute percentage error, the mean of
// |y-yhat| / max(|y|, Eps) over the pairs where neither value is NaN. The result is a
// fraction, not a percentage. A zero actual value produces a very large error instead of
// being skipped.
func MAPE(predicted, actual []float64) (float64, error) {
	ape, err := absPercentageErrors(predicted, actual)
	if err != nil {
		return 0, err
	}
	return stat.Mean(ape, nil), nil
}

// MdAPE is the median of the same absolute percentage errors MAPE averages, less sensitive to
// a few near zero actual values
func MdAPE(predicted, actual []float64) (float64, error) {
	ape, err := absPercentageErrors(predicted, actual)
	if err != nil {
		return 0, err
	}
	return stats.Median(ape)
}

func absPercentageErrors(predicted, actual []float64) ([]float64, error) {
	if err := checkLen(predicted, actual); err != nil {
		return nil, err
	}
	ape := make([]float64, 0, len(actual))
	for i := range actual {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		ape = append(ape, math.Abs(actual[i]-predicted[i])/math.Max(math.Abs(actual[i]), Eps))
	}
	if len(ape) == 0 {
		return nil, ErrNoValues
	}
	return ape, nil
}

// RSquared computes the r squared value between the predicted and actual where 1.0 means perfect
// fit and 0 represents no relationship
func RSquared(predicted, actual []float64) (float64, error) {
	if err := checkLen(predicted, actual); err != nil {
		return 0, err
	}

	predictCopy := make([]float64, 0, len(predicted))
	actualCopy := make([]float64, 0, len(actual))
	for i := 0; i < len(predicted); i++ {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		predictCopy = append(predictCopy, predicted[i])
		actualCopy = append(actualCopy, actual[i])
	}
	if len(actualCopy) == 0 {
		return 0, ErrNoValues
	}
	r2 := stat.RSquaredFrom(predictCopy, actualCopy, nil)
	if math.IsNaN(r2) {
		return 1.0, nil
	}
	return r2, nil
}

func checkLen(predicted, actual []float64) error {
	if len(predicted) != len(actual) {
		return fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	return nil
}
