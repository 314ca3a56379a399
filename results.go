package forecaster

import (
	"fmt"
	"slices"
	"time"

	"github.com/aouyang1/go-rollcast/errkind"
	"github.com/aouyang1/go-rollcast/timedataset"
)

// Results holds point forecasts, one row per entity and time. Rows are ordered by entity, in
// the order of the fitted panel, then by ascending time. Keys is the entity of each row and
// is "" for a non-hierarchical series.
type Results struct {
	T       []time.Time `json:"time"`
	Keys    []string    `json:"keys"`
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// Len returns the number of rows
func (r *Results) Len() int {
	return len(r.T)
}

// Index returns the time of every row
func (r *Results) Index() []time.Time {
	return r.T
}

// Column returns the values of the named column for every row
func (r *Results) Column(name string) ([]float64, error) {
	idx := slices.Index(r.Columns, name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q, %w", name, timedataset.ErrUnknownColumn)
	}
	res := make([]float64, len(r.Values))
	for i, row := range r.Values {
		res[i] = row[idx]
	}
	return res, nil
}

// Entity returns the rows of one entity
func (r *Results) Entity(key string) *Results {
	res := &Results{Columns: slices.Clone(r.Columns)}
	for i, k := range r.Keys {
		if k != key {
			continue
		}
		res.T = append(res.T, r.T[i])
		res.Keys = append(res.Keys, k)
		res.Values = append(res.Values, slices.Clone(r.Values[i]))
	}
	return res
}

// newResults lays out predictions indexed by entity, column, then step into rows
func newResults(keys, columns []string, t []time.Time, pred [][][]float64) *Results {
	n := len(keys) * len(t)
	r := &Results{
		T:       make([]time.Time, 0, n),
		Keys:    make([]string, 0, n),
		Columns: slices.Clone(columns),
		Values:  make([][]float64, 0, n),
	}
	for e, key := range keys {
		for s, ts := range t {
			row := make([]float64, len(columns))
			for c := range columns {
				row[c] = pred[e][c][s]
			}
			r.T = append(r.T, ts)
			r.Keys = append(r.Keys, key)
			r.Values = append(r.Values, row)
		}
	}
	return r
}

// Interval is the central prediction interval with the given coverage
type Interval struct {
	Coverage float64  `json:"coverage"`
	Lower    *Results `json:"lower"`
	Upper    *Results `json:"upper"`
}

// Quantiles holds one result per requested alpha, in ascending alpha order
type Quantiles struct {
	Alpha   []float64  `json:"alpha"`
	Results []*Results `json:"results"`
}

// Quantile returns the results of a single alpha
func (q *Quantiles) Quantile(alpha float64) (*Results, error) {
	idx := slices.Index(q.Alpha, alpha)
	if idx < 0 {
		return nil, fmt.Errorf("alpha %.3f was not predicted, %w", alpha, errkind.ErrValue)
	}
	return q.Results[idx], nil
}

// RollingResults holds the predictions made at every cutoff of an update-and-predict run
type RollingResults struct {
	Cutoffs     []time.Time `json:"cutoffs"`
	Predictions []*Results  `json:"predictions"`
}

// Index returns the ascending and duplicate free times predicted across all cutoffs
func (r *RollingResults) Index() []time.Time {
	res := []time.Time{}
	for _, p := range r.Predictions {
		res = append(res, p.T...)
	}
	slices.SortFunc(res, time.Time.Compare)
	return slices.CompactFunc(res, time.Time.Equal)
}

// Latest collapses the run into one result holding, for every entity and predicted time, the
// prediction of the most recent cutoff. It is nil when nothing was predicted.
func (r *RollingResults) Latest() *Results {
	if len(r.Predictions) == 0 {
		return nil
	}
	first := r.Predictions[0]

	var keys []string
	for _, p := range r.Predictions {
		for _, k := range p.Keys {
			if !slices.Contains(keys, k) {
				keys = append(keys, k)
			}
		}
	}

	type rowKey struct {
		entity string
		t      int64
	}
	latest := make(map[rowKey][]float64)
	for _, p := range r.Predictions {
		for i := range p.T {
			latest[rowKey{p.Keys[i], p.T[i].UnixNano()}] = p.Values[i]
		}
	}

	index := r.Index()
	res := &Results{Columns: slices.Clone(first.Columns)}
	for _, k := range keys {
		for _, ts := range index {
			v, exists := latest[rowKey{k, ts.UnixNano()}]
			if !exists {
				continue
			}
			res.T = append(res.T, ts)
			res.Keys = append(res.Keys, k)
			res.Values = append(res.Values, slices.Clone(v))
		}
	}
	return res
}
