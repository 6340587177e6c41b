package dataset

import (
	"math"
	"sort"
)

// Preprocess normalizes a raw frame for analysis:
//   - the first time-classified column is renamed to Time
//   - columns with no numeric values are dropped
//   - remaining gaps are forward-filled, then back-filled
//
// The input frame is not modified.
func Preprocess(f *Frame) *Frame {
	out := f.Clone()

	groups := Classify(out.Columns())
	if len(groups.Time) > 0 {
		out.Rename(groups.Time[0], TimeColumn)
	}

	for _, name := range out.Columns() {
		if out.countValid(name) == 0 {
			out.dropColumn(name)
		}
	}

	for _, name := range out.Columns() {
		if name == TimeColumn {
			continue
		}
		col, _ := out.Column(name)
		fillForward(col)
		fillBackward(col)
	}
	return out
}

func fillForward(col []float64) {
	last := math.NaN()
	for i, v := range col {
		if math.IsNaN(v) {
			col[i] = last
		} else {
			last = v
		}
	}
}

func fillBackward(col []float64) {
	next := math.NaN()
	for i := len(col) - 1; i >= 0; i-- {
		if math.IsNaN(col[i]) {
			col[i] = next
		} else {
			next = col[i]
		}
	}
}

// Resample aggregates rows into fixed time buckets: each row's Time is rounded
// to the nearest multiple of interval, and rows sharing a bucket collapse into
// one row holding the per-column mean. A non-positive interval, or a frame
// without a Time column, passes through unchanged.
func Resample(f *Frame, interval float64) *Frame {
	if interval <= 0 {
		return f
	}
	times, ok := f.TimeValues()
	if !ok {
		return f
	}

	type bucket struct {
		sums   map[string]float64
		counts map[string]int
	}
	buckets := make(map[float64]*bucket)
	names := f.Columns()

	for i := 0; i < f.NumRows(); i++ {
		t := times[i]
		if math.IsNaN(t) {
			continue
		}
		key := math.Round(t/interval) * interval
		b := buckets[key]
		if b == nil {
			b = &bucket{sums: make(map[string]float64), counts: make(map[string]int)}
			buckets[key] = b
		}
		for _, name := range names {
			if name == TimeColumn {
				continue
			}
			col, _ := f.Column(name)
			if v := col[i]; !math.IsNaN(v) {
				b.sums[name] += v
				b.counts[name]++
			}
		}
	}

	keys := make([]float64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	cols := make(map[string][]float64, len(names))
	for _, name := range names {
		cols[name] = make([]float64, len(keys))
	}
	for i, k := range keys {
		cols[TimeColumn][i] = k
		b := buckets[k]
		for _, name := range names {
			if name == TimeColumn {
				continue
			}
			if n := b.counts[name]; n > 0 {
				cols[name][i] = b.sums[name] / float64(n)
			} else {
				cols[name][i] = math.NaN()
			}
		}
	}
	return NewFrame(names, cols)
}

// CRateColumn is added by AddCRate alongside the detected current channel.
const CRateColumn = "C_Rate"

// AddCRate derives the C-rate (|I| / capacity) from the first current-classified
// column. Frames without a current column are returned unchanged.
func AddCRate(f *Frame, capacityAh float64) *Frame {
	if capacityAh <= 0 {
		return f
	}
	groups := Classify(f.Columns())
	if len(groups.Current) == 0 {
		return f
	}
	current, _ := f.Column(groups.Current[0])

	rate := make([]float64, len(current))
	for i, v := range current {
		if math.IsNaN(v) {
			rate[i] = math.NaN()
		} else {
			rate[i] = math.Abs(v) / capacityAh
		}
	}
	out := f.Clone()
	out.SetColumn(CRateColumn, rate)
	return out
}
