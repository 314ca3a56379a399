package main

import (
	"fmt"
	"io"
	"os"

	forecaster "github.com/aouyang1/go-rollcast"
	"github.com/aouyang1/go-rollcast/errkind"
	"github.com/aouyang1/go-rollcast/report"
	"github.com/aouyang1/go-rollcast/timedataset"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ErrNoDataPath = fmt.Errorf("no data path given, %w", errkind.ErrConfiguration)

func newBacktestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Fit a forecaster on the head of a series and evaluate it over rolling cutoffs",
		Long: `Fits the configured model on the first train_size share of the series, then walks the
remaining points cutoff by cutoff, updating the model with the new observations and
predicting the horizon. The report holds every prediction and its errors against the
observed values.

Example:
  rollcast backtest --data sales.csv --model trend --fh 1,2,3 --step-length 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.backtest(cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.String("data", "", "csv file with a time column followed by value columns")
	flags.Bool("drop-nan", false, "drop the rows missing a value from a single column series")
	flags.Float64("train-size", 0.5, "share of the series the model is fitted on")
	flags.String("model", "naive", "one of naive, trend, direct, pooled_drift or ensemble")
	flags.Bool("log", false, "fit the model on the log of the series")
	flags.IntSlice("fh", []int{1}, "forecasting horizon steps")
	flags.Int("initial-window", 1, "points of the evaluated series before the first cutoff")
	flags.Int("step-length", 1, "points between cutoffs")
	flags.Int("window-length", 0, "use a sliding window of this many points")
	flags.Bool("update-params", false, "re-estimate model parameters at every cutoff")
	flags.StringP("report", "o", "", "report file, defaults to stdout")
	flags.String("plot", "", "html file to chart the predictions in")

	bindFlag(flags, "data", "data.path")
	bindFlag(flags, "drop-nan", "data.drop_nan")
	bindFlag(flags, "train-size", "data.train_size")
	bindFlag(flags, "model", "model.name")
	bindFlag(flags, "log", "model.log")
	bindFlag(flags, "fh", "window.fh")
	bindFlag(flags, "initial-window", "window.initial_window")
	bindFlag(flags, "step-length", "window.step_length")
	bindFlag(flags, "window-length", "window.window_length")
	bindFlag(flags, "update-params", "window.update_params")
	bindFlag(flags, "report", "output.report")
	bindFlag(flags, "plot", "output.plot")
	return cmd
}

func (a *app) backtest(stdout io.Writer) error {
	cfg := a.cfg
	if cfg.Data.Path == "" {
		return ErrNoDataPath
	}
	y, err := readCSVFile(cfg.Data.Path)
	if err != nil {
		return err
	}
	if cfg.Data.DropNan {
		n := y.Len()
		if y, err = dropNan(y); err != nil {
			return fmt.Errorf("unable to drop missing values, %w", err)
		}
		a.logger.Debug("dropped missing values", zap.Int("rows", n-y.Len()))
	}
	train, test, err := y.TemporalSplit(cfg.Data.TrainSize)
	if err != nil {
		return fmt.Errorf("unable to split series, %w", err)
	}

	model, err := buildModel(cfg.Model)
	if err != nil {
		return fmt.Errorf("unable to build model, %w", err)
	}
	cv, err := buildSplitter(cfg.Window)
	if err != nil {
		return fmt.Errorf("unable to build splitter, %w", err)
	}
	f, err := forecaster.New(model, &forecaster.Options{Logger: a.logger})
	if err != nil {
		return err
	}

	a.logger.Info("fitting",
		zap.String("model", f.Name()),
		zap.Int("train_points", train.Len()),
		zap.Int("test_points", test.Len()),
	)
	if err := f.Fit(train, cv.Horizon()); err != nil {
		return fmt.Errorf("unable to fit, %w", err)
	}
	res, err := f.UpdatePredict(test, cv, cfg.Window.UpdateParams)
	if err != nil {
		return fmt.Errorf("unable to evaluate, %w", err)
	}

	actual := timedataset.SinglePanel(y)
	r, err := report.New(f, actual, report.Window{
		FH:            cfg.Window.FH,
		InitialWindow: cfg.Window.InitialWindow,
		StepLength:    cfg.Window.StepLength,
		WindowLength:  cfg.Window.WindowLength,
		UpdateParams:  cfg.Window.UpdateParams,
	}, res)
	if err != nil {
		return err
	}
	if err := writeTo(cfg.Output.Report, stdout, r.Write); err != nil {
		return err
	}
	a.logger.Info("backtest complete",
		zap.Stringer("run_id", r.RunID),
		zap.Int("cutoffs", len(r.Cutoffs)),
		zap.Float64("mape", r.Scores.MAPE),
	)

	if cfg.Output.Plot == "" {
		return nil
	}
	lines := make([]*charts.Line, 0, len(y.Columns))
	for _, col := range y.Columns {
		line, err := forecaster.LineUpdatePredict(actual, "", col, res)
		if err != nil {
			return fmt.Errorf("unable to chart column %q, %w", col, err)
		}
		lines = append(lines, line)
	}
	return writeTo(cfg.Output.Plot, stdout, func(w io.Writer) error {
		return forecaster.RenderPage(w, lines...)
	})
}

func readCSVFile(path string) (*timedataset.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open data, %w", err)
	}
	defer f.Close()

	y, err := readCSV(f)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s, %w", path, err)
	}
	return y, nil
}

// writeTo calls write with the named file, or with stdout when path is empty
func writeTo(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s, %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
