package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/aouyang1/go-rollcast/errkind"
	"github.com/aouyang1/go-rollcast/timedataset"
)

var (
	ErrNoValueColumns = fmt.Errorf("csv needs a time column and at least one value column, %w", errkind.ErrValue)
	ErrNoRows         = fmt.Errorf("csv has no rows, %w", errkind.ErrValue)
	ErrDropNanColumns = fmt.Errorf("missing values can only be dropped from a single column, %w", errkind.ErrConfiguration)
)

// readCSV parses a header row followed by rows of an RFC3339 time and one value per column.
// Empty and NaN cells are missing values.
func readCSV(r io.Reader) (*timedataset.Frame, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("unable to read csv header, %w", err)
	}
	if len(header) < 2 {
		return nil, ErrNoValueColumns
	}
	columns := append([]string(nil), header[1:]...)

	var t []time.Time
	values := make([][]float64, len(columns))
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read csv, %w", err)
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d, %w", line, err)
		}
		t = append(t, ts)
		for c, cell := range rec[1:] {
			v := math.NaN()
			if cell != "" {
				if v, err = strconv.ParseFloat(cell, 64); err != nil {
					return nil, fmt.Errorf("line %d column %q, %w", line, columns[c], err)
				}
			}
			values[c] = append(values[c], v)
		}
	}
	if len(t) == 0 {
		return nil, ErrNoRows
	}
	return newCSVFrame(t, columns, values)
}

// newCSVFrame infers the frequency of the parsed rows. An unevenly spaced index is reported with
// its most common spacing.
func newCSVFrame(t []time.Time, columns []string, values [][]float64) (*timedataset.Frame, error) {
	f, err := timedataset.NewFrame(t, columns, values, 0)
	if errors.Is(err, timedataset.ErrIrregularFreq) {
		if freq, estErr := timedataset.TimeSlice(t).EstimateFreq(); estErr == nil {
			return nil, fmt.Errorf("most common spacing is %s, %w", freq, err)
		}
	}
	return f, err
}

// dropNan removes the rows missing a value from a single column frame. The rows left must still
// be evenly spaced, which holds when only leading or trailing values are missing.
func dropNan(f *timedataset.Frame) (*timedataset.Frame, error) {
	if len(f.Columns) != 1 {
		return nil, fmt.Errorf("got %d columns, %w", len(f.Columns), ErrDropNanColumns)
	}
	td, err := timedataset.NewUnivariateDataset(f.T, f.Values[0])
	if err != nil {
		return nil, err
	}
	td = td.DropNan()
	if len(td.T) == 0 {
		return nil, ErrNoRows
	}
	return newCSVFrame(td.T, f.Columns, [][]float64{td.Y})
}

// writeCSV writes the frame in the format read by readCSV
func writeCSV(w io.Writer, f *timedataset.Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"time"}, f.Columns...)); err != nil {
		return err
	}
	rec := make([]string, len(f.Columns)+1)
	for i, ts := range f.T {
		rec[0] = ts.Format(time.RFC3339)
		for c := range f.Columns {
			rec[c+1] = strconv.FormatFloat(f.Values[c][i], 'f', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
