package timedataset

import (
	"math"
	"time"
)

type TimeSlice []time.Time

func (t TimeSlice) StartTime() time.Time {
	var startTime time.Time
	if len(t) < 1 {
		return startTime
	}
	return t[0]
}

func (t TimeSlice) EndTime() time.Time {
	var lastTime time.Time
	if len(t) < 1 {
		return lastTime
	}

	lastTime = t[len(t)-1]
	return lastTime
}

// EstimateFreq returns the most common delta between consecutive points, preferring the
// smaller delta on ties.
func (t TimeSlice) EstimateFreq() (time.Duration, error) {
	if len(t) < 2 {
		return 0, ErrCannotInferFreq
	}

	frequencies := make(map[time.Duration]int)
	for i := 1; i < len(t); i++ {
		delta := t[i].Sub(t[i-1])
		frequencies[delta] += 1
	}

	var maxCnt int
	maxDelta := time.Duration(math.MaxInt64)

	for delta, cnt := range frequencies {
		if cnt > maxCnt || (cnt == maxCnt && delta < maxDelta) {
			maxCnt = cnt
			maxDelta = delta
		}
	}
	return maxDelta, nil
}

// FixedFreq returns the delta shared by every pair of consecutive points. An index with more
// than one distinct positive delta has no fixed frequency.
func (t TimeSlice) FixedFreq() (time.Duration, error) {
	if len(t) < 2 {
		return 0, ErrCannotInferFreq
	}
	freq := t[1].Sub(t[0])
	if freq <= 0 {
		return 0, ErrIrregularFreq
	}
	for i := 2; i < len(t); i++ {
		if t[i].Sub(t[i-1]) != freq {
			return 0, ErrIrregularFreq
		}
	}
	return freq, nil
}

// DateRange generates every timestamp in [start, end] spaced by freq in ascending order.
func DateRange(start, end time.Time, freq time.Duration) (TimeSlice, error) {
	if freq <= 0 {
		return nil, ErrIrregularFreq
	}
	if end.Before(start) {
		return TimeSlice{}, nil
	}
	n := int(end.Sub(start)/freq) + 1
	t := make(TimeSlice, 0, n)
	for i := 0; i < n; i++ {
		t = append(t, start.Add(time.Duration(i)*freq))
	}
	return t, nil
}
