// Package mat builds gonum matrices used as regression design matrices
package mat

import (
	"fmt"
	"math"

	"github.com/aouyang1/go-rollcast/errkind"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrColMismatch   = fmt.Errorf("column size mismatch, %w", errkind.ErrValue)
	ErrInvalidDegree = fmt.Errorf("polynomial degree must be positive, %w", errkind.ErrConfiguration)
	ErrNoRows        = fmt.Errorf("no rows to build a matrix from, %w", errkind.ErrValue)
)

// NewDenseFromArray builds a dense matrix from rows of equal length
func NewDenseFromArray(x [][]float64) (*mat.Dense, error) {
	if len(x) == 0 {
		return nil, ErrNoRows
	}
	n := len(x[0])
	data := make([]float64, 0, len(x)*n)
	for i, row := range x {
		if len(row) != n {
			return nil, fmt.Errorf("at row %d expected %d columns, but got %d, %w", i, n, len(row), ErrColMismatch)
		}
		data = append(data, row...)
	}
	if n == 0 {
		return nil, fmt.Errorf("rows have no columns, %w", ErrColMismatch)
	}
	return mat.NewDense(len(x), n, data), nil
}

// Vandermonde returns the design matrix of a polynomial without the constant term, one row per
// x and one column per power 1..degree
func Vandermonde(x []float64, degree int) (*mat.Dense, error) {
	if degree <= 0 {
		return nil, fmt.Errorf("got %d, %w", degree, ErrInvalidDegree)
	}
	rows := make([][]float64, len(x))
	for i, v := range x {
		rows[i] = make([]float64, degree)
		for d := range degree {
			rows[i][d] = math.Pow(v, float64(d+1))
		}
	}
	return NewDenseFromArray(rows)
}
