// Package models holds the forecasting models wrapped by forecaster.Base along with the
// regression they are built on
package models

import (
	"fmt"
	"math"

	"github.com/aouyang1/go-rollcast/timedataset"
)

// dropNaN returns the values of v that are not NaN
func dropNaN(v []float64) []float64 {
	res := make([]float64, 0, len(v))
	for _, val := range v {
		if math.IsNaN(val) {
			continue
		}
		res = append(res, val)
	}
	return res
}

// lastValid returns the latest value of v that is not NaN
func lastValid(v []float64) (float64, error) {
	for i := len(v) - 1; i >= 0; i-- {
		if !math.IsNaN(v[i]) {
			return v[i], nil
		}
	}
	return 0, fmt.Errorf("no observed values, %w", ErrInsufficientData)
}

// tail returns the last n values of v, or all of them when n is 0
func tail(v []float64, n int) []float64 {
	if n <= 0 || n >= len(v) {
		return v
	}
	return v[len(v)-n:]
}

// univariate returns the values of the single column of y
func univariate(y *timedataset.Frame) ([]float64, error) {
	if y == nil || y.Len() == 0 {
		return nil, timedataset.ErrNoTrainingData
	}
	if len(y.Columns) != 1 {
		return nil, fmt.Errorf("expected 1 column, but got %d, %w", len(y.Columns), timedataset.ErrColumnMismatch)
	}
	return y.Values[0], nil
}

// paramName prefixes a parameter with its column when a model sees several columns
func paramName(columns []string, c int, name string) string {
	if len(columns) <= 1 {
		return name
	}
	return columns[c] + "__" + name
}
