// Package config loads the rollcast command configuration from a YAML file, ROLLCAST_
// environment variables and command flags.
package config

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/aouyang1/go-rollcast/errkind"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidTrainSize = fmt.Errorf("train size must be in (0, 1), %w", errkind.ErrConfiguration)
	ErrUnknownModel     = fmt.Errorf("unknown model, %w", errkind.ErrConfiguration)
	ErrNoHorizon        = fmt.Errorf("window horizon has no steps, %w", errkind.ErrConfiguration)
	ErrInvalidWindow    = fmt.Errorf("window lengths must be positive, %w", errkind.ErrConfiguration)
	ErrUnknownLogLevel  = fmt.Errorf("unknown log level, %w", errkind.ErrConfiguration)
	ErrInvalidSimulate  = fmt.Errorf("simulated series needs positive points, columns and frequency, %w", errkind.ErrConfiguration)
	ErrNoMembers        = fmt.Errorf("ensemble needs at least one member, %w", errkind.ErrConfiguration)
)

// Models lists the names accepted by ModelConfig.Name
var Models = []string{"naive", "trend", "direct", "pooled_drift", "ensemble"}

// Config is the complete command configuration
type Config struct {
	Data     DataConfig     `mapstructure:"data" yaml:"data"`
	Model    ModelConfig    `mapstructure:"model" yaml:"model"`
	Window   WindowConfig   `mapstructure:"window" yaml:"window"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Simulate SimulateConfig `mapstructure:"simulate" yaml:"simulate"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// DataConfig locates the input series. Path is a CSV file with an RFC3339 time column followed
// by one column per variable.
type DataConfig struct {
	Path      string  `mapstructure:"path" yaml:"path"`
	TrainSize float64 `mapstructure:"train_size" yaml:"train_size"`

	// DropNan removes the rows missing a value from a single column series
	DropNan bool `mapstructure:"drop_nan" yaml:"drop_nan"`
}

// ModelConfig selects the forecasting model and its options
type ModelConfig struct {
	Name string `mapstructure:"name" yaml:"name"`

	// Log fits the model on the natural log of the series
	Log bool `mapstructure:"log" yaml:"log"`

	Naive    NaiveConfig    `mapstructure:"naive" yaml:"naive"`
	Trend    TrendConfig    `mapstructure:"trend" yaml:"trend"`
	Ensemble EnsembleConfig `mapstructure:"ensemble" yaml:"ensemble"`
}

type NaiveConfig struct {
	Strategy     string `mapstructure:"strategy" yaml:"strategy"`
	WindowLength int    `mapstructure:"window_length" yaml:"window_length"`
}

type TrendConfig struct {
	Degree         int  `mapstructure:"degree" yaml:"degree"`
	RemoveOutliers bool `mapstructure:"remove_outliers" yaml:"remove_outliers"`
}

// EnsembleConfig combines the named member models, each built from the same naive and trend
// settings
type EnsembleConfig struct {
	Members     []string  `mapstructure:"members" yaml:"members"`
	Aggregation string    `mapstructure:"aggregation" yaml:"aggregation"`
	Weights     []float64 `mapstructure:"weights" yaml:"weights,omitempty"`
}

// WindowConfig sets the rolling cutoffs of a backtest. A zero WindowLength uses an expanding
// window.
type WindowConfig struct {
	FH            []int `mapstructure:"fh" yaml:"fh"`
	InitialWindow int   `mapstructure:"initial_window" yaml:"initial_window"`
	StepLength    int   `mapstructure:"step_length" yaml:"step_length"`
	WindowLength  int   `mapstructure:"window_length" yaml:"window_length"`
	UpdateParams  bool  `mapstructure:"update_params" yaml:"update_params"`
}

// OutputConfig names the report and chart files. An empty report path writes to stdout and an
// empty plot path skips the chart.
type OutputConfig struct {
	Report string `mapstructure:"report" yaml:"report"`
	Plot   string `mapstructure:"plot" yaml:"plot"`
}

// SimulateConfig configures the simulate command
type SimulateConfig struct {
	N             int           `mapstructure:"n" yaml:"n"`
	Columns       int           `mapstructure:"columns" yaml:"columns"`
	Start         time.Time     `mapstructure:"start" yaml:"start"`
	Freq          time.Duration `mapstructure:"freq" yaml:"freq"`
	Seed          uint64        `mapstructure:"seed" yaml:"seed"`
	Level         float64       `mapstructure:"level" yaml:"level"`
	Noise         float64       `mapstructure:"noise" yaml:"noise"`
	HolidayFactor float64       `mapstructure:"holiday_factor" yaml:"holiday_factor"`

	SeasonAmp    float64       `mapstructure:"season_amp" yaml:"season_amp"`
	SeasonPeriod time.Duration `mapstructure:"season_period" yaml:"season_period"`

	// ChangeSlope is the lift per minute after ChangeTime. A zero ChangeTime adds no change.
	ChangeTime  time.Time `mapstructure:"change_time" yaml:"change_time"`
	ChangeBias  float64   `mapstructure:"change_bias" yaml:"change_bias"`
	ChangeSlope float64   `mapstructure:"change_slope" yaml:"change_slope"`

	WeekendLift float64 `mapstructure:"weekend_lift" yaml:"weekend_lift"`

	EventStart time.Time `mapstructure:"event_start" yaml:"event_start"`
	EventEnd   time.Time `mapstructure:"event_end" yaml:"event_end"`
	EventLift  float64   `mapstructure:"event_lift" yaml:"event_lift"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// Default returns the configuration used when no file or override is present
func Default() *Config {
	return &Config{
		Data: DataConfig{
			TrainSize: 0.5,
		},
		Model: ModelConfig{
			Name: "naive",
			Naive: NaiveConfig{
				Strategy: "last",
			},
			Trend: TrendConfig{
				Degree: 1,
			},
			Ensemble: EnsembleConfig{
				Members:     []string{"naive", "trend"},
				Aggregation: "mean",
			},
		},
		Window: WindowConfig{
			FH:            []int{1},
			InitialWindow: 1,
			StepLength:    1,
		},
		Simulate: SimulateConfig{
			N:             365,
			Columns:       1,
			Start:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Freq:          24 * time.Hour,
			Seed:          42,
			Level:         100,
			Noise:         5,
			HolidayFactor: 0.5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the settings shared by every command. Model and window options are further
// validated when the model and splitter are built.
func (c *Config) Validate() error {
	if c.Data.TrainSize <= 0 || c.Data.TrainSize >= 1 {
		return fmt.Errorf("got %.3f, %w", c.Data.TrainSize, ErrInvalidTrainSize)
	}
	if !slices.Contains(Models, c.Model.Name) {
		return fmt.Errorf("got %q, expected one of %v, %w", c.Model.Name, Models, ErrUnknownModel)
	}
	if c.Model.Name == "ensemble" {
		if len(c.Model.Ensemble.Members) == 0 {
			return ErrNoMembers
		}
		for _, m := range c.Model.Ensemble.Members {
			if !slices.Contains(Models, m) || m == "ensemble" {
				return fmt.Errorf("ensemble member %q, %w", m, ErrUnknownModel)
			}
		}
	}
	if len(c.Window.FH) == 0 {
		return ErrNoHorizon
	}
	if c.Window.InitialWindow <= 0 || c.Window.StepLength <= 0 || c.Window.WindowLength < 0 {
		return fmt.Errorf(
			"got initial window %d, step length %d and window length %d, %w",
			c.Window.InitialWindow, c.Window.StepLength, c.Window.WindowLength, ErrInvalidWindow,
		)
	}
	if c.Simulate.N <= 0 || c.Simulate.Columns <= 0 || c.Simulate.Freq <= 0 {
		return ErrInvalidSimulate
	}
	if c.Simulate.SeasonAmp != 0 && c.Simulate.SeasonPeriod <= 0 {
		return fmt.Errorf("got season period %s, %w", c.Simulate.SeasonPeriod, ErrInvalidSimulate)
	}
	if c.Simulate.EventLift != 0 && c.Simulate.EventEnd.Before(c.Simulate.EventStart) {
		return fmt.Errorf("event ends before it starts, %w", ErrInvalidSimulate)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("got %q, %w", c.Logging.Level, ErrUnknownLogLevel)
	}
	return nil
}

// Write encodes the configuration as YAML, the format Load reads
func Write(w io.Writer, c *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("unable to encode config, %w", err)
	}
	return enc.Close()
}
