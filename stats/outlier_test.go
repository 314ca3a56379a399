package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectOutliers(t *testing.T) {
	testData := map[string]struct {
		y           []float64
		lowerPerc   float64
		upperPerc   float64
		tukeyFactor float64
		expected    []int
	}{
		"single spike": {
			y:           []float64{1, 2, 1, 2, 1, 2, 1, 2, 50, 1},
			lowerPerc:   0.1,
			upperPerc:   0.8,
			tukeyFactor: 1.0,
			expected:    []int{8},
		},
		"upper percentile clipped": {
			y:           []float64{1, 2, 3},
			lowerPerc:   0.0,
			upperPerc:   2.0,
			tukeyFactor: 0.0,
			expected:    []int{0, 2},
		},
		"constant": {
			y:           []float64{3, 3, 3},
			lowerPerc:   0.25,
			upperPerc:   0.75,
			tukeyFactor: 1.0,
		},
		"empty": {},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := DetectOutliers(td.y, td.lowerPerc, td.upperPerc, td.tukeyFactor)
			assert.Equal(t, td.expected, res)
		})
	}
}
