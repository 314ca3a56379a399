package mat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewDenseFromArray(t *testing.T) {
	testData := map[string]struct {
		err error
		x   [][]float64
		m   int
		n   int
	}{
		"nil input": {
			err: ErrNoRows,
		},
		"empty row": {
			err: ErrColMismatch,
			x:   [][]float64{{}},
		},
		"single element": {
			x: [][]float64{{1}},
			m: 1, n: 1,
		},
		"one row multiple cols": {
			x: [][]float64{{1, 2, 3}},
			m: 1, n: 3,
		},
		"multiple rows one col": {
			x: [][]float64{{1}, {2}, {3}},
			m: 3, n: 1,
		},
		"ragged": {
			err: ErrColMismatch,
			x:   [][]float64{{1, 2}, {3}},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := NewDenseFromArray(td.x)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			m, n := res.Dims()
			assert.Equal(t, td.m, m)
			assert.Equal(t, td.n, n)
			for i := range td.x {
				assert.Equal(t, td.x[i], mat.Row(nil, i, res))
			}
		})
	}
}

func TestVandermonde(t *testing.T) {
	res, err := Vandermonde([]float64{0, 1, 2, 3}, 2)
	require.NoError(t, err)
	expected := mat.NewDense(4, 2, []float64{
		0, 0,
		1, 1,
		2, 4,
		3, 9,
	})
	assert.True(t, mat.Equal(expected, res))

	_, err = Vandermonde([]float64{1}, 0)
	assert.ErrorIs(t, err, ErrInvalidDegree)
}
