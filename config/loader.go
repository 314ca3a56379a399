package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables overriding a setting, e.g. ROLLCAST_WINDOW_STEP_LENGTH
const EnvPrefix = "ROLLCAST"

// NewViper returns a viper instance reading the given file, or ./rollcast.yaml when path is
// empty, with defaults and environment overrides set. Flags can be bound to it before Load.
func NewViper(path string) *viper.Viper {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("rollcast")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration file of v, falling back to defaults when no file is found, and
// validates the result
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("unable to read config, %w", err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config, %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config, %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("data.path", d.Data.Path)
	v.SetDefault("data.train_size", d.Data.TrainSize)
	v.SetDefault("data.drop_nan", d.Data.DropNan)

	v.SetDefault("model.name", d.Model.Name)
	v.SetDefault("model.log", d.Model.Log)
	v.SetDefault("model.naive.strategy", d.Model.Naive.Strategy)
	v.SetDefault("model.naive.window_length", d.Model.Naive.WindowLength)
	v.SetDefault("model.trend.degree", d.Model.Trend.Degree)
	v.SetDefault("model.trend.remove_outliers", d.Model.Trend.RemoveOutliers)
	v.SetDefault("model.ensemble.members", d.Model.Ensemble.Members)
	v.SetDefault("model.ensemble.aggregation", d.Model.Ensemble.Aggregation)

	v.SetDefault("window.fh", d.Window.FH)
	v.SetDefault("window.initial_window", d.Window.InitialWindow)
	v.SetDefault("window.step_length", d.Window.StepLength)
	v.SetDefault("window.window_length", d.Window.WindowLength)
	v.SetDefault("window.update_params", d.Window.UpdateParams)

	v.SetDefault("output.report", d.Output.Report)
	v.SetDefault("output.plot", d.Output.Plot)

	v.SetDefault("simulate.n", d.Simulate.N)
	v.SetDefault("simulate.columns", d.Simulate.Columns)
	v.SetDefault("simulate.start", d.Simulate.Start)
	v.SetDefault("simulate.freq", d.Simulate.Freq)
	v.SetDefault("simulate.seed", d.Simulate.Seed)
	v.SetDefault("simulate.level", d.Simulate.Level)
	v.SetDefault("simulate.noise", d.Simulate.Noise)
	v.SetDefault("simulate.holiday_factor", d.Simulate.HolidayFactor)
	v.SetDefault("simulate.season_amp", d.Simulate.SeasonAmp)
	v.SetDefault("simulate.season_period", d.Simulate.SeasonPeriod)
	v.SetDefault("simulate.change_time", d.Simulate.ChangeTime)
	v.SetDefault("simulate.change_bias", d.Simulate.ChangeBias)
	v.SetDefault("simulate.change_slope", d.Simulate.ChangeSlope)
	v.SetDefault("simulate.weekend_lift", d.Simulate.WeekendLift)
	v.SetDefault("simulate.event_start", d.Simulate.EventStart)
	v.SetDefault("simulate.event_end", d.Simulate.EventEnd)
	v.SetDefault("simulate.event_lift", d.Simulate.EventLift)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.development", d.Logging.Development)
}
