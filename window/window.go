// Package window generates the cutoffs of rolling-origin evaluation and reconstructs the time
// index a correct update-and-predict run over those cutoffs must produce.
package window

import (
	"fmt"
	"time"

	"github.com/aouyang1/go-rollcast/errkind"
	"github.com/aouyang1/go-rollcast/horizon"
	"github.com/aouyang1/go-rollcast/timedataset"
)

var (
	ErrInvalidInitialWindow = fmt.Errorf("initial window must be positive, %w", errkind.ErrConfiguration)
	ErrInvalidStepLength    = fmt.Errorf("step length must be positive, %w", errkind.ErrConfiguration)
	ErrInvalidWindowLength  = fmt.Errorf("window length must be positive, %w", errkind.ErrConfiguration)
	ErrNoFrequency          = fmt.Errorf("series must have a fixed frequency, %w", errkind.ErrConfiguration)
)

// Indexed is a series with a time index and a fixed frequency
type Indexed interface {
	Index() timedataset.TimeSlice
	Freq() (time.Duration, error)
}

// Spec is the window specification of an expanding rolling-origin evaluation: the number of
// observations before the first cutoff and the spacing between successive cutoffs.
type Spec struct {
	InitialWindow int `json:"initial_window" mapstructure:"initial_window"`
	StepLength    int `json:"step_length" mapstructure:"step_length"`
}

// Validate checks that both window parameters are positive
func (s Spec) Validate() error {
	if s.InitialWindow <= 0 {
		return fmt.Errorf("got %d, %w", s.InitialWindow, ErrInvalidInitialWindow)
	}
	if s.StepLength <= 0 {
		return fmt.Errorf("got %d, %w", s.StepLength, ErrInvalidStepLength)
	}
	return nil
}

// Expanding returns an expanding window splitter with these window parameters and the horizon
func (s Spec) Expanding(fh horizon.Horizon) *ExpandingWindow {
	return &ExpandingWindow{
		FH:            fh,
		InitialWindow: s.InitialWindow,
		StepLength:    s.StepLength,
	}
}

func checkHorizon(fh horizon.Horizon) (int, error) {
	if fh.IsEmpty() {
		return 0, horizon.ErrEmptyHorizon
	}
	return fh.Max()
}
