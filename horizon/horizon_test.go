package horizon

import (
	"math"
	"testing"
	"time"

	"github.com/aouyang1/go-rollcast/errkind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRelative(t *testing.T) {
	testData := map[string]struct {
		steps    []int
		expected []int
		err      error
	}{
		"single":              {steps: []int{1}, expected: []int{1}},
		"unsorted duplicates": {steps: []int{5, 2, 5, 1}, expected: []int{1, 2, 5}},
		"empty":               {err: ErrEmptyHorizon},
		"zero step":           {steps: []int{0, 1}, err: ErrNonPositiveStep},
		"negative step":       {steps: []int{3, -1}, err: ErrNonPositiveStep},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			h, err := NewRelative(td.steps...)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				assert.ErrorIs(t, err, errkind.ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.True(t, h.IsRelative())
			assert.Equal(t, td.expected, h.Steps())

			maxStep, err := h.Max()
			require.NoError(t, err)
			assert.Equal(t, td.expected[len(td.expected)-1], maxStep)
		})
	}
}

func TestZeroHorizon(t *testing.T) {
	var h Horizon
	assert.True(t, h.IsEmpty())
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, "[]", h.String())

	_, err := h.Max()
	assert.ErrorIs(t, err, ErrEmptyHorizon)
}

func TestRange(t *testing.T) {
	h, err := Range(3)
	require.NoError(t, err)
	assert.True(t, h.Equal(MustRelative(1, 2, 3)))

	_, err = Range(0)
	assert.ErrorIs(t, err, ErrNonPositiveStep)
}

func TestToRelative(t *testing.T) {
	cutoff := time.Date(2020, 1, 1, 9, 0, 0, 0, time.UTC)
	testData := map[string]struct {
		h        Horizon
		freq     time.Duration
		expected []int
		err      error
	}{
		"relative passes through": {
			h:        MustRelative(2, 1),
			freq:     time.Hour,
			expected: []int{1, 2},
		},
		"absolute on grid": {
			h:        mustAbsolute(t, cutoff.Add(3*time.Hour), cutoff.Add(time.Hour)),
			freq:     time.Hour,
			expected: []int{1, 3},
		},
		"absolute off grid": {
			h:    mustAbsolute(t, cutoff.Add(90*time.Minute)),
			freq: time.Hour,
			err:  ErrOffGrid,
		},
		"absolute at cutoff": {
			h:    mustAbsolute(t, cutoff),
			freq: time.Hour,
			err:  ErrBeforeCutoff,
		},
		"no frequency": {
			h:   mustAbsolute(t, cutoff.Add(time.Hour)),
			err: ErrInvalidFrequency,
		},
		"beyond duration range": {
			h:    mustAbsolute(t, cutoff.AddDate(400, 0, 0)),
			freq: time.Hour,
			err:  ErrStepOverflow,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			h, err := td.h.ToRelative(cutoff, td.freq)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, h.Steps())
		})
	}
}

func TestToAbsolute(t *testing.T) {
	cutoff := time.Date(2020, 1, 1, 9, 0, 0, 0, time.UTC)
	res, err := MustRelative(1, 2).ToAbsolute(cutoff, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{cutoff.Add(time.Hour), cutoff.Add(2 * time.Hour)}, res)

	abs := mustAbsolute(t, cutoff.Add(5*time.Hour))
	res, err = abs.ToAbsolute(cutoff, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{cutoff.Add(5 * time.Hour)}, res)

	_, err = abs.Max()
	assert.ErrorIs(t, err, ErrNotRelative)
	assert.False(t, abs.Equal(MustRelative(5)))

	_, err = MustRelative(1, 1<<42).ToAbsolute(cutoff, time.Hour)
	assert.ErrorIs(t, err, ErrStepOverflow)
	assert.ErrorIs(t, err, errkind.ErrConfiguration)
}

func TestStepDuration(t *testing.T) {
	testData := map[string]struct {
		step     int
		freq     time.Duration
		expected time.Duration
		err      error
	}{
		"zero step":        {step: 0, freq: time.Hour},
		"hours":            {step: 3, freq: time.Hour, expected: 3 * time.Hour},
		"largest hour":     {step: math.MaxInt64 / int(time.Hour), freq: time.Hour, expected: time.Duration(math.MaxInt64/int64(time.Hour)) * time.Hour},
		"overflow":         {step: math.MaxInt64/int(time.Hour) + 1, freq: time.Hour, err: ErrStepOverflow},
		"negative step":    {step: -1, freq: time.Hour, err: ErrNonPositiveStep},
		"no frequency":     {step: 1, err: ErrInvalidFrequency},
		"nanosecond steps": {step: math.MaxInt64, freq: time.Nanosecond, expected: math.MaxInt64},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			d, err := StepDuration(td.step, td.freq)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, d)
		})
	}
}

func mustAbsolute(t *testing.T, times ...time.Time) Horizon {
	t.Helper()
	h, err := NewAbsolute(times...)
	require.NoError(t, err)
	return h
}
