package main

import (
	"io"
	"time"

	"github.com/aouyang1/go-rollcast/timedataset"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// holidays scale the simulated series on their observed dates
var holidays = []*cal.Holiday{
	us.NewYear,
	us.MemorialDay,
	us.IndependenceDay,
	us.LaborDay,
	us.ThanksgivingDay,
	us.ChristmasDay,
}

func newSimulateCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Write a random positive series with configurable effects as csv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeTo(out, cmd.OutOrStdout(), a.simulate)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&out, "output", "o", "", "csv file, defaults to stdout")
	flags.Int("n", 365, "number of points")
	flags.Int("columns", 1, "number of value columns")
	flags.Uint64("seed", 42, "random seed")
	flags.Duration("freq", 24*time.Hour, "time between points")
	flags.Float64("holiday-factor", 0.5, "multiplier applied on holidays")
	flags.Float64("season-amp", 0, "amplitude of a seasonal sine wave")
	flags.Duration("season-period", 0, "period of the seasonal wave")
	flags.String("change-time", "", "RFC3339 time of a changepoint")
	flags.Float64("change-bias", 0, "jump at the changepoint")
	flags.Float64("change-slope", 0, "lift per minute after the changepoint")
	flags.Float64("weekend-lift", 0, "lift on Saturday and Sunday")
	flags.String("event-start", "", "RFC3339 start of an event")
	flags.String("event-end", "", "RFC3339 end of an event")
	flags.Float64("event-lift", 0, "lift during the event")

	bindFlag(flags, "n", "simulate.n")
	bindFlag(flags, "columns", "simulate.columns")
	bindFlag(flags, "seed", "simulate.seed")
	bindFlag(flags, "freq", "simulate.freq")
	bindFlag(flags, "holiday-factor", "simulate.holiday_factor")
	bindFlag(flags, "season-amp", "simulate.season_amp")
	bindFlag(flags, "season-period", "simulate.season_period")
	bindFlag(flags, "change-time", "simulate.change_time")
	bindFlag(flags, "change-bias", "simulate.change_bias")
	bindFlag(flags, "change-slope", "simulate.change_slope")
	bindFlag(flags, "weekend-lift", "simulate.weekend_lift")
	bindFlag(flags, "event-start", "simulate.event_start")
	bindFlag(flags, "event-end", "simulate.event_end")
	bindFlag(flags, "event-lift", "simulate.event_lift")
	return cmd
}

func (a *app) simulate(w io.Writer) error {
	sc := a.cfg.Simulate
	f, err := timedataset.MakeSeries(&timedataset.SeriesOptions{
		N:       sc.N,
		Columns: sc.Columns,
		Start:   sc.Start,
		Freq:    sc.Freq,
		Seed:    sc.Seed,
		Level:   sc.Level,
		Noise:   sc.Noise,

		SeasonAmp:    sc.SeasonAmp,
		SeasonPeriod: sc.SeasonPeriod,
		ChangeTime:   sc.ChangeTime,
		ChangeBias:   sc.ChangeBias,
		ChangeSlope:  sc.ChangeSlope,
		WeekendLift:  sc.WeekendLift,
		EventStart:   sc.EventStart,
		EventEnd:     sc.EventEnd,
		EventLift:    sc.EventLift,
	})
	if err != nil {
		return err
	}
	for c := range f.Values {
		timedataset.Series(f.Values[c]).ScaleOnHolidays(f.T, sc.HolidayFactor, holidays...)
	}

	a.logger.Debug("simulated",
		zap.Int("points", f.Len()),
		zap.Int("columns", len(f.Columns)),
		zap.Time("start", f.T[0]),
	)
	return writeCSV(w, f)
}
