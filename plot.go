package forecaster

import (
	"fmt"
	"io"
	"math"
	"slices"
	"time"

	"github.com/aouyang1/go-rollcast/timedataset"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// missing is rendered by echarts as a gap in the line
const missing = "-"

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination. The input
// y is a slice of series that must have the same length as the input time slice. NaN values are
// drawn as gaps.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	line = line.SetXAxis(t)
	for i, series := range seriesName {
		lineData := make([]opts.LineData, 0, len(y[i]))
		for _, v := range y[i] {
			if math.IsNaN(v) {
				lineData = append(lineData, opts.LineData{Value: missing})
				continue
			}
			lineData = append(lineData, opts.LineData{Value: v})
		}
		line = line.AddSeries(series, lineData)
	}
	return line
}

// LineUpdatePredict generates an echart line chart of one entity and column of the actual series
// along with the forecast made from every cutoff of an update-and-predict run
func LineUpdatePredict(actual *timedataset.Panel, entity, column string, res *RollingResults) (*charts.Line, error) {
	e := slices.Index(actual.Keys, entity)
	if e < 0 {
		return nil, fmt.Errorf("entity %q, %w", entity, timedataset.ErrEntityMismatch)
	}
	values, err := actual.Frames[e].Column(column)
	if err != nil {
		return nil, err
	}

	t := slices.Clone(actual.Index())
	t = append(t, res.Index()...)
	slices.SortFunc(t, time.Time.Compare)
	t = slices.CompactFunc(t, time.Time.Equal)

	pos := make(map[int64]int, len(t))
	for i, ts := range t {
		pos[ts.UnixNano()] = i
	}

	names := []string{"Actual"}
	series := [][]float64{nanSeries(len(t))}
	for i, ts := range actual.Index() {
		series[0][pos[ts.UnixNano()]] = values[i]
	}

	for i, pred := range res.Predictions {
		predValues, err := pred.Entity(entity).Column(column)
		if err != nil {
			return nil, err
		}
		s := nanSeries(len(t))
		for j, ts := range pred.Entity(entity).T {
			s[pos[ts.UnixNano()]] = predValues[j]
		}
		names = append(names, "Cutoff "+res.Cutoffs[i].Format(time.RFC3339))
		series = append(series, s)
	}

	title := "Update Predict"
	if column != "" {
		title += " " + column
	}
	if entity != "" {
		title += " (" + entity + ")"
	}
	return LineTSeries(title, names, t, series), nil
}

// RenderPage writes the charts as a single html page
func RenderPage(w io.Writer, lines ...*charts.Line) error {
	page := components.NewPage()
	for _, line := range lines {
		page.AddCharts(line)
	}
	return page.Render(w)
}

func nanSeries(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
