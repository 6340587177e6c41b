package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// RelativeTimeColumn and AbsoluteTimeColumn are appended by Combine.
// Relative time restarts at zero for each source; absolute time lays the
// sources end to end so a combined plot reads as one continuous test.
const (
	RelativeTimeColumn = "Relative_Time"
	AbsoluteTimeColumn = "Absolute_Time"
)

// Labeled pairs a frame with the name it should carry in combined output.
type Labeled struct {
	Label string
	Frame *Frame
}

// Span records which combined rows came from which source.
type Span struct {
	Label string `json:"label"`
	Start int    `json:"start"` // first row, inclusive
	End   int    `json:"end"`   // last row, exclusive
}

// Combined is the concatenation of several datasets over the union of their
// columns, NaN-padded where a source lacks a column.
type Combined struct {
	Frame *Frame
	Spans []Span
}

// Combine concatenates preprocessed frames. Sources without a Time column
// fall back to the row index as seconds.
func Combine(items []Labeled) (*Combined, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no datasets to combine")
	}

	// Union of columns, first-seen order, time axes rebuilt below.
	var names []string
	seen := map[string]struct{}{
		TimeColumn:         {},
		RelativeTimeColumn: {},
		AbsoluteTimeColumn: {},
	}
	for _, item := range items {
		if item.Frame == nil {
			return nil, fmt.Errorf("dataset %q is nil", item.Label)
		}
		for _, name := range item.Frame.Columns() {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	total := 0
	for _, item := range items {
		total += item.Frame.NumRows()
	}

	cols := make(map[string][]float64, len(names)+2)
	allNames := append([]string{RelativeTimeColumn, AbsoluteTimeColumn}, names...)
	for _, name := range allNames {
		col := make([]float64, total)
		for i := range col {
			col[i] = math.NaN()
		}
		cols[name] = col
	}

	var (
		spans  []Span
		row    int
		offset float64
	)
	for _, item := range items {
		f := item.Frame
		start := row
		rel := relativeTimes(f)
		for i := 0; i < f.NumRows(); i++ {
			cols[RelativeTimeColumn][row] = rel[i]
			cols[AbsoluteTimeColumn][row] = rel[i] + offset
			for _, name := range names {
				if src, ok := f.Column(name); ok {
					cols[name][row] = src[i]
				}
			}
			row++
		}
		if n := f.NumRows(); n > 0 {
			offset += rel[n-1]
		}
		spans = append(spans, Span{Label: item.Label, Start: start, End: row})
	}

	return &Combined{Frame: NewFrame(allNames, cols), Spans: spans}, nil
}

// relativeTimes maps each row to seconds since the dataset's first sample.
func relativeTimes(f *Frame) []float64 {
	n := f.NumRows()
	out := make([]float64, n)

	times, ok := f.TimeValues()
	if !ok {
		for i := range out {
			out[i] = float64(i)
		}
		return out
	}

	t0 := math.NaN()
	for _, t := range times {
		if !math.IsNaN(t) {
			t0 = t
			break
		}
	}
	if math.IsNaN(t0) {
		for i := range out {
			out[i] = float64(i)
		}
		return out
	}
	for i, t := range times {
		if math.IsNaN(t) {
			out[i] = math.NaN()
		} else {
			out[i] = t - t0
		}
	}
	return out
}

// Records converts combined rows to JSON-safe maps with a "dataset" label.
func (c *Combined) Records(limit int) []map[string]any {
	recs := c.Frame.Records(limit)
	for i := range recs {
		recs[i]["dataset"] = c.labelFor(i)
	}
	return recs
}

// WriteCSV encodes the combined frame with a leading "dataset" column naming
// each row's source; numeric cells follow the Frame.WriteCSV conventions.
func (c *Combined) WriteCSV(w io.Writer) error {
	f := c.Frame
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"dataset"}, f.names...)); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	record := make([]string, len(f.names)+1)
	for i := 0; i < f.rows; i++ {
		record[0] = c.labelFor(i)
		for j, name := range f.names {
			v := f.cols[name][i]
			if math.IsNaN(v) {
				record[j+1] = ""
			} else {
				record[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write CSV row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (c *Combined) labelFor(row int) string {
	for _, s := range c.Spans {
		if row >= s.Start && row < s.End {
			return s.Label
		}
	}
	return ""
}
