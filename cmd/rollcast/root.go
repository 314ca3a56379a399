package main

import (
	"fmt"

	"github.com/aouyang1/go-rollcast/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// configKey is the flag annotation naming the setting a flag overrides
const configKey = "config_key"

// app holds the state shared by the commands of one invocation
type app struct {
	configPath string

	v      *viper.Viper
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "rollcast",
		Short: "Rolling-origin evaluation of time series forecasters",
		Long: `rollcast fits a forecaster on the head of a series and evaluates it by repeatedly
updating it with new observations and predicting a forecasting horizon from every cutoff.

Settings are read from ./rollcast.yaml or --config, overridden by ROLLCAST_ environment
variables such as ROLLCAST_WINDOW_STEP_LENGTH, and then by flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file, defaults to ./rollcast.yaml")
	flags.String("log-level", "info", "log level, one of debug, info, warn or error")
	flags.Bool("development", false, "human readable development logging")
	bindFlag(flags, "log-level", "logging.level")
	bindFlag(flags, "development", "logging.development")

	root.AddCommand(
		newBacktestCmd(a),
		newSimulateCmd(a),
		newConfigCmd(a),
	)
	return root
}

// bindFlag marks the flag as an override of the config key
func bindFlag(flags *pflag.FlagSet, name, key string) {
	if err := flags.SetAnnotation(name, configKey, []string{key}); err != nil {
		panic(err)
	}
}

// setup loads the configuration, with the annotated flags of cmd taking precedence, and builds
// the logger
func (a *app) setup(cmd *cobra.Command, args []string) error {
	a.v = config.NewViper(a.configPath)

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		keys, exists := f.Annotations[configKey]
		if !exists || bindErr != nil {
			return
		}
		bindErr = a.v.BindPFlag(keys[0], f)
	})
	if bindErr != nil {
		return fmt.Errorf("unable to bind flags, %w", bindErr)
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, err = newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	a.logger.Debug("loaded config", zap.String("file", a.v.ConfigFileUsed()))
	return nil
}

func newLogger(c config.LoggingConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("unable to parse log level, %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger, %w", err)
	}
	return logger.Named("rollcast"), nil
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Write(cmd.OutOrStdout(), a.cfg)
		},
	}
}
