package forecaster

import (
	"fmt"
	"sort"
	"time"

	"github.com/aouyang1/go-rollcast/horizon"
	"github.com/aouyang1/go-rollcast/metrics"
	"github.com/aouyang1/go-rollcast/timedataset"
	"github.com/aouyang1/go-rollcast/window"
	"go.uber.org/zap"
)

// Update appends y to the observed data and advances the cutoff to its last time. y must hold
// the observed entities and columns and start exactly one period after the cutoff. Model
// parameters are only re-estimated when updateParams is set.
//
// If a model fails to update the forecaster is reset and must be fitted again.
func (b *Base) Update(y any, updateParams bool) error {
	if !b.fitted {
		return ErrNotFitted
	}
	p, err := timedataset.AsPanel(y)
	if err != nil {
		return fmt.Errorf("unable to recognize series, %w", err)
	}
	return b.update(p, updateParams)
}

func (b *Base) update(p *timedataset.Panel, updateParams bool) error {
	next, err := b.y.Append(p)
	if err != nil {
		return fmt.Errorf("unable to extend observed data, %w", err)
	}

	for _, s := range b.slots {
		f, err := slotFrame(next, s)
		if err == nil {
			err = s.model.Update(f, updateParams)
		}
		if err != nil {
			b.reset()
			return fmt.Errorf("unable to update %s, %w", b.slotLabel(next, s), err)
		}
	}

	b.y = next
	b.cutoff = next.Index().EndTime()
	b.logger.Debug("updated",
		zap.Time("cutoff", b.cutoff),
		zap.Int("new_points", p.Len()),
		zap.Bool("update_params", updateParams),
	)
	return nil
}

func (b *Base) reset() {
	b.fitted = false
	b.y = nil
	b.slots = nil
}

// UpdatePredict runs a rolling-origin evaluation over y. For every cutoff the splitter yields
// within y, the points of y since the current cutoff are passed to Update and the splitter's
// horizon is predicted. y is expected to continue the observed data.
func (b *Base) UpdatePredict(y any, cv window.Splitter, updateParams bool) (*RollingResults, error) {
	if !b.fitted {
		return nil, ErrNotFitted
	}
	if cv == nil {
		return nil, ErrNoSplitter
	}
	p, err := timedataset.AsPanel(y)
	if err != nil {
		return nil, fmt.Errorf("unable to recognize series, %w", err)
	}
	cutoffs, err := cv.Cutoffs(p.Len())
	if err != nil {
		return nil, fmt.Errorf("unable to compute cutoffs, %w", err)
	}
	fh := cv.Horizon()
	index := p.Index()

	res := &RollingResults{
		Cutoffs:     make([]time.Time, 0, len(cutoffs)),
		Predictions: make([]*Results, 0, len(cutoffs)),
	}
	for _, c := range cutoffs {
		if index[c].Before(b.cutoff) {
			return nil, fmt.Errorf("cutoff %s is before %s, %w", index[c], b.cutoff, ErrCutoffBehind)
		}
		start := sort.Search(len(index), func(i int) bool {
			return index[i].After(b.cutoff)
		})
		if start <= c {
			if err := b.update(p.Slice(start, c+1), updateParams); err != nil {
				return nil, fmt.Errorf("unable to update to cutoff %s, %w", index[c], err)
			}
		}

		pred, err := b.Predict(fh)
		if err != nil {
			return nil, fmt.Errorf("unable to predict from cutoff %s, %w", b.cutoff, err)
		}
		res.Cutoffs = append(res.Cutoffs, b.cutoff)
		res.Predictions = append(res.Predictions, pred)
	}

	b.logger.Debug("update predict",
		zap.Int("cutoffs", len(res.Cutoffs)),
		zap.Time("cutoff", b.cutoff),
		zap.Stringer("fh", fh),
	)
	return res, nil
}

// UpdatePredictSingle updates with all of y and predicts fh, or the stored horizon when fh is
// empty, from the new cutoff
func (b *Base) UpdatePredictSingle(y any, fh horizon.Horizon, updateParams bool) (*Results, error) {
	if err := b.Update(y, updateParams); err != nil {
		return nil, err
	}
	return b.Predict(fh)
}

// Score predicts fh and returns the non-symmetric mean absolute percentage error against the
// values of y at the predicted times
func (b *Base) Score(y any, fh horizon.Horizon) (float64, error) {
	if !b.fitted {
		return 0, ErrNotFitted
	}
	p, err := b.asObserved(y)
	if err != nil {
		return 0, err
	}
	pred, err := b.Predict(fh)
	if err != nil {
		return 0, err
	}

	rows := make(map[int64]int, p.Len())
	for i, ts := range p.Index() {
		rows[ts.UnixNano()] = i
	}

	n := pred.Len() / len(p.Keys)
	predicted := make([]float64, 0, pred.Len()*len(pred.Columns))
	actual := make([]float64, 0, pred.Len()*len(pred.Columns))
	for i, ts := range pred.T {
		row, exists := rows[ts.UnixNano()]
		if !exists {
			return 0, fmt.Errorf("time %s, %w", ts, ErrMissingActual)
		}
		f := p.Frames[i/n]
		for c := range pred.Columns {
			predicted = append(predicted, pred.Values[i][c])
			actual = append(actual, f.Values[c][row])
		}
	}
	return metrics.MAPE(predicted, actual)
}
