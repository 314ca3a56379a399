package forecaster

import "go.uber.org/zap"

// Options configures a forecaster
type Options struct {
	Logger *zap.Logger
}

// NewDefaultOptions returns options with a no-op logger
func NewDefaultOptions() *Options {
	return &Options{
		Logger: zap.NewNop(),
	}
}
