// Package horizon describes forecasting horizons: the future steps, relative to a cutoff, or
// the future timestamps at which predictions are requested.
package horizon

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/aouyang1/go-rollcast/errkind"
)

var (
	ErrEmptyHorizon     = fmt.Errorf("horizon has no steps, %w", errkind.ErrConfiguration)
	ErrNonPositiveStep  = fmt.Errorf("horizon steps must be positive, %w", errkind.ErrConfiguration)
	ErrNotRelative      = fmt.Errorf("horizon must be relative, %w", errkind.ErrConfiguration)
	ErrOffGrid          = fmt.Errorf("horizon time is not on the cutoff frequency grid, %w", errkind.ErrConfiguration)
	ErrBeforeCutoff     = fmt.Errorf("horizon time is not after the cutoff, %w", errkind.ErrConfiguration)
	ErrInvalidFrequency = fmt.Errorf("frequency must be positive, %w", errkind.ErrConfiguration)
	ErrStepOverflow     = fmt.Errorf("horizon step is too far from the cutoff to be represented, %w", errkind.ErrConfiguration)
)

// Horizon is an ascending, duplicate free set of either relative steps or absolute times. The
// zero value is the empty horizon meaning no horizon was given.
type Horizon struct {
	steps    []int
	times    []time.Time
	absolute bool
}

// NewRelative returns a horizon of positive integer steps after a cutoff
func NewRelative(steps ...int) (Horizon, error) {
	if len(steps) == 0 {
		return Horizon{}, ErrEmptyHorizon
	}
	s := slices.Clone(steps)
	slices.Sort(s)
	s = slices.Compact(s)
	if s[0] <= 0 {
		return Horizon{}, fmt.Errorf("got step %d, %w", s[0], ErrNonPositiveStep)
	}
	return Horizon{steps: s}, nil
}

// MustRelative is NewRelative for static horizons and panics on an invalid step
func MustRelative(steps ...int) Horizon {
	h, err := NewRelative(steps...)
	if err != nil {
		panic(err)
	}
	return h
}

// Range returns the relative horizon 1..n
func Range(n int) (Horizon, error) {
	if n <= 0 {
		return Horizon{}, fmt.Errorf("got %d steps, %w", n, ErrNonPositiveStep)
	}
	steps := make([]int, n)
	for i := range steps {
		steps[i] = i + 1
	}
	return Horizon{steps: steps}, nil
}

// NewAbsolute returns a horizon of explicit timestamps
func NewAbsolute(times ...time.Time) (Horizon, error) {
	if len(times) == 0 {
		return Horizon{}, ErrEmptyHorizon
	}
	t := slices.Clone(times)
	slices.SortFunc(t, time.Time.Compare)
	t = slices.CompactFunc(t, time.Time.Equal)
	return Horizon{times: t, absolute: true}, nil
}

// IsEmpty reports whether no horizon was given
func (h Horizon) IsEmpty() bool {
	return len(h.steps) == 0 && len(h.times) == 0
}

// IsRelative reports whether the horizon holds steps rather than times
func (h Horizon) IsRelative() bool {
	return !h.absolute
}

// Len returns the number of steps or times
func (h Horizon) Len() int {
	if h.absolute {
		return len(h.times)
	}
	return len(h.steps)
}

// Steps returns a copy of the relative steps
func (h Horizon) Steps() []int {
	return slices.Clone(h.steps)
}

// Times returns a copy of the absolute times
func (h Horizon) Times() []time.Time {
	return slices.Clone(h.times)
}

// Max returns the largest relative step
func (h Horizon) Max() (int, error) {
	if !h.IsRelative() {
		return 0, ErrNotRelative
	}
	if h.IsEmpty() {
		return 0, ErrEmptyHorizon
	}
	return h.steps[len(h.steps)-1], nil
}

// ToRelative resolves the horizon into steps after cutoff at the given frequency. Every
// absolute time must lie after the cutoff on its frequency grid.
func (h Horizon) ToRelative(cutoff time.Time, freq time.Duration) (Horizon, error) {
	if h.IsRelative() {
		return h, nil
	}
	if freq <= 0 {
		return Horizon{}, ErrInvalidFrequency
	}
	steps := make([]int, 0, len(h.times))
	for _, t := range h.times {
		delta := t.Sub(cutoff)
		if delta == math.MaxInt64 {
			return Horizon{}, fmt.Errorf("time %s with cutoff %s, %w", t, cutoff, ErrStepOverflow)
		}
		if delta <= 0 {
			return Horizon{}, fmt.Errorf("time %s with cutoff %s, %w", t, cutoff, ErrBeforeCutoff)
		}
		if delta%freq != 0 {
			return Horizon{}, fmt.Errorf("time %s with cutoff %s and frequency %s, %w", t, cutoff, freq, ErrOffGrid)
		}
		steps = append(steps, int(delta/freq))
	}
	return Horizon{steps: steps}, nil
}

// ToAbsolute returns cutoff + step*freq for every step in ascending order
func (h Horizon) ToAbsolute(cutoff time.Time, freq time.Duration) ([]time.Time, error) {
	if !h.IsRelative() {
		return h.Times(), nil
	}
	if freq <= 0 {
		return nil, ErrInvalidFrequency
	}
	t := make([]time.Time, 0, len(h.steps))
	for _, step := range h.steps {
		d, err := StepDuration(step, freq)
		if err != nil {
			return nil, err
		}
		t = append(t, cutoff.Add(d))
	}
	return t, nil
}

// StepDuration returns step*freq for a non-negative step, failing when the product does not
// fit in a time.Duration
func StepDuration(step int, freq time.Duration) (time.Duration, error) {
	if freq <= 0 {
		return 0, ErrInvalidFrequency
	}
	if step < 0 {
		return 0, fmt.Errorf("got %d, %w", step, ErrNonPositiveStep)
	}
	if int64(step) > math.MaxInt64/int64(freq) {
		return 0, fmt.Errorf("step %d at frequency %s, %w", step, freq, ErrStepOverflow)
	}
	return time.Duration(step) * freq, nil
}

// Equal reports whether both horizons hold the same steps or times
func (h Horizon) Equal(other Horizon) bool {
	if h.absolute != other.absolute {
		return false
	}
	return slices.Equal(h.steps, other.steps) && slices.EqualFunc(h.times, other.times, time.Time.Equal)
}

func (h Horizon) String() string {
	if h.IsEmpty() {
		return "[]"
	}
	parts := make([]string, 0, h.Len())
	if h.absolute {
		for _, t := range h.times {
			parts = append(parts, t.Format(time.RFC3339))
		}
	} else {
		for _, s := range h.steps {
			parts = append(parts, fmt.Sprintf("%d", s))
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}
