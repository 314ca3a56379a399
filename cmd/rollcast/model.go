package main

import (
	"fmt"

	forecaster "github.com/aouyang1/go-rollcast"
	"github.com/aouyang1/go-rollcast/config"
	"github.com/aouyang1/go-rollcast/horizon"
	"github.com/aouyang1/go-rollcast/models"
	"github.com/aouyang1/go-rollcast/stats"
	"github.com/aouyang1/go-rollcast/window"
)

// buildModel returns the model named by the config, wrapped in a log transform when requested
func buildModel(mc config.ModelConfig) (forecaster.Model, error) {
	m, err := buildNamed(mc.Name, mc)
	if err != nil {
		return nil, err
	}
	if !mc.Log {
		return m, nil
	}
	return models.NewLogTransform(m)
}

func buildNamed(name string, mc config.ModelConfig) (forecaster.Model, error) {
	switch name {
	case "naive":
		return models.NewNaive(&models.NaiveOptions{
			Strategy:     models.Strategy(mc.Naive.Strategy),
			WindowLength: mc.Naive.WindowLength,
		})
	case "trend":
		opt := &models.TrendOptions{Degree: mc.Trend.Degree}
		if mc.Trend.RemoveOutliers {
			opt.OutlierOptions = models.NewDefaultOutlierOptions()
		}
		return models.NewTrend(opt)
	case "direct":
		return models.NewDirect(), nil
	case "pooled_drift":
		return models.NewPooledDrift(), nil
	case "ensemble":
		members := make([]forecaster.Model, 0, len(mc.Ensemble.Members))
		for _, member := range mc.Ensemble.Members {
			if member == "ensemble" {
				return nil, fmt.Errorf("nested ensemble, %w", config.ErrUnknownModel)
			}
			m, err := buildNamed(member, mc)
			if err != nil {
				return nil, fmt.Errorf("unable to build ensemble member %q, %w", member, err)
			}
			members = append(members, m)
		}
		return models.NewEnsemble(&models.EnsembleOptions{
			Aggregation: stats.Aggregation(mc.Ensemble.Aggregation),
			Weights:     mc.Ensemble.Weights,
		}, members...)
	default:
		return nil, fmt.Errorf("got %q, %w", name, config.ErrUnknownModel)
	}
}

// buildSplitter returns a sliding window splitter when a window length is set and an expanding
// one otherwise
func buildSplitter(wc config.WindowConfig) (window.Splitter, error) {
	fh, err := horizon.NewRelative(wc.FH...)
	if err != nil {
		return nil, err
	}
	if wc.WindowLength > 0 {
		return &window.SlidingWindow{
			FH:              fh,
			WindowLength:    wc.WindowLength,
			StepLength:      wc.StepLength,
			StartWithWindow: true,
		}, nil
	}
	return window.Spec{InitialWindow: wc.InitialWindow, StepLength: wc.StepLength}.Expanding(fh), nil
}
