package dataset

import "math"

// ColumnStats summarizes one column. Pointer fields stay nil when the column
// holds no numeric values, which keeps the JSON encoding free of NaN.
type ColumnStats struct {
	NullCount int      `json:"null_count"`
	Mean      *float64 `json:"mean,omitempty"`
	Std       *float64 `json:"std,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
}

type TimeRange struct {
	Start         float64 `json:"start"`
	End           float64 `json:"end"`
	DurationHours float64 `json:"duration_hours"`
}

type Stats struct {
	Rows      int                    `json:"rows"`
	Columns   int                    `json:"columns"`
	ByColumn  map[string]ColumnStats `json:"by_column"`
	TimeRange *TimeRange             `json:"time_range,omitempty"`
}

// Describe computes per-column summary statistics. Std is the sample standard
// deviation; single-value columns report a Std of 0.
func Describe(f *Frame) Stats {
	stats := Stats{
		Rows:     f.NumRows(),
		Columns:  f.NumCols(),
		ByColumn: make(map[string]ColumnStats, f.NumCols()),
	}

	for _, name := range f.Columns() {
		col, _ := f.Column(name)
		stats.ByColumn[name] = describeColumn(col)
	}

	if times, ok := f.TimeValues(); ok {
		if tr, ok := timeRange(times); ok {
			stats.TimeRange = &tr
		}
	}
	return stats
}

func describeColumn(col []float64) ColumnStats {
	var (
		n          int
		sum        float64
		minV, maxV float64
	)
	for _, v := range col {
		if math.IsNaN(v) {
			continue
		}
		if n == 0 {
			minV, maxV = v, v
		} else {
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
		sum += v
		n++
	}

	cs := ColumnStats{NullCount: len(col) - n}
	if n == 0 {
		return cs
	}

	mean := sum / float64(n)
	var sq float64
	for _, v := range col {
		if math.IsNaN(v) {
			continue
		}
		d := v - mean
		sq += d * d
	}
	std := 0.0
	if n > 1 {
		std = math.Sqrt(sq / float64(n-1))
	}

	cs.Mean = &mean
	cs.Std = &std
	cs.Min = &minV
	cs.Max = &maxV
	return cs
}

func timeRange(times []float64) (TimeRange, bool) {
	var (
		start, end float64
		have       bool
	)
	for _, t := range times {
		if math.IsNaN(t) {
			continue
		}
		if !have {
			start, end = t, t
			have = true
			continue
		}
		if t < start {
			start = t
		}
		if t > end {
			end = t
		}
	}
	if !have {
		return TimeRange{}, false
	}
	return TimeRange{
		Start:         start,
		End:           end,
		DurationHours: (end - start) / 3600,
	}, true
}
