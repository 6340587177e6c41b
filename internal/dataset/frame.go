package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimeColumn is the canonical name of the time axis after preprocessing.
const TimeColumn = "Time"

// Frame is a column-oriented table decoded from a battery test CSV.
// Every cell is a float64; blanks and unparseable values are NaN.
type Frame struct {
	names []string
	cols  map[string][]float64
	rows  int
}

// NewFrame builds a frame from ordered columns. Columns shorter than the
// longest are padded with NaN.
func NewFrame(names []string, cols map[string][]float64) *Frame {
	rows := 0
	for _, name := range names {
		if len(cols[name]) > rows {
			rows = len(cols[name])
		}
	}
	out := &Frame{names: append([]string(nil), names...), cols: make(map[string][]float64, len(names)), rows: rows}
	for _, name := range names {
		src := cols[name]
		col := make([]float64, rows)
		for i := range col {
			if i < len(src) {
				col[i] = src[i]
			} else {
				col[i] = math.NaN()
			}
		}
		out.cols[name] = col
	}
	return out
}

// timestampLayouts are tried, in order, for cells that do not parse as floats.
// Matches resolve to epoch seconds so time columns stay numeric.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006 15:04:05",
}

// ParseCSV decodes CSV data into a Frame. The first record is the header;
// duplicate names get a ".N" suffix and empty names become "column_N".
// Short records are padded with NaN, long records truncated.
func ParseCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV input")
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	names := normalizeHeader(header)
	cols := make([][]float64, len(names))

	rows := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row %d: %w", rows+2, err)
		}
		for i := range names {
			v := math.NaN()
			if i < len(record) {
				v = parseCell(record[i])
			}
			cols[i] = append(cols[i], v)
		}
		rows++
	}

	f := &Frame{names: names, cols: make(map[string][]float64, len(names)), rows: rows}
	for i, name := range names {
		f.cols[name] = cols[i]
	}
	return f, nil
}

func normalizeHeader(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, raw := range header {
		name := strings.TrimSpace(raw)
		if name == "" {
			name = fmt.Sprintf("column_%d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
		}
		if _, dup := seen[name]; !dup {
			seen[name] = 1
		}
		names[i] = name
	}
	return names
}

func parseCell(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return math.NaN()
	}
	switch strings.ToLower(s) {
	case "na", "nan", "null", "none":
		return math.NaN()
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return float64(ts.UnixNano()) / float64(time.Second)
		}
	}
	return math.NaN()
}

func (f *Frame) Columns() []string { return append([]string(nil), f.names...) }
func (f *Frame) NumRows() int      { return f.rows }
func (f *Frame) NumCols() int      { return len(f.names) }

func (f *Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Column returns the backing slice for a column. Callers must not mutate it.
func (f *Frame) Column(name string) ([]float64, bool) {
	col, ok := f.cols[name]
	return col, ok
}

// TimeValues returns the canonical time column, if present.
func (f *Frame) TimeValues() ([]float64, bool) {
	return f.Column(TimeColumn)
}

// Select returns a frame holding only the named columns, in the given order.
// Unknown names are ignored; the time column is always carried along when the
// frame has one so downstream resampling keeps working.
func (f *Frame) Select(names []string) *Frame {
	out := &Frame{cols: make(map[string][]float64), rows: f.rows}
	appendCol := func(name string) {
		if _, ok := out.cols[name]; ok {
			return
		}
		col, ok := f.cols[name]
		if !ok {
			return
		}
		out.names = append(out.names, name)
		out.cols[name] = col
	}
	if f.Has(TimeColumn) {
		appendCol(TimeColumn)
	}
	for _, name := range names {
		appendCol(name)
	}
	return out
}

// Rename renames a column in place, keeping its position.
func (f *Frame) Rename(old, new string) {
	if old == new {
		return
	}
	col, ok := f.cols[old]
	if !ok {
		return
	}
	delete(f.cols, old)
	f.cols[new] = col
	for i, name := range f.names {
		if name == old {
			f.names[i] = new
			return
		}
	}
}

// SetColumn adds or replaces a column. New columns go last.
func (f *Frame) SetColumn(name string, values []float64) {
	if len(values) != f.rows {
		padded := make([]float64, f.rows)
		for i := range padded {
			if i < len(values) {
				padded[i] = values[i]
			} else {
				padded[i] = math.NaN()
			}
		}
		values = padded
	}
	if _, ok := f.cols[name]; !ok {
		f.names = append(f.names, name)
	}
	f.cols[name] = values
}

func (f *Frame) dropColumn(name string) {
	if _, ok := f.cols[name]; !ok {
		return
	}
	delete(f.cols, name)
	for i, n := range f.names {
		if n == name {
			f.names = append(f.names[:i], f.names[i+1:]...)
			return
		}
	}
}

func (f *Frame) countValid(name string) int {
	n := 0
	for _, v := range f.cols[name] {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Records converts rows to JSON-safe maps (NaN becomes nil). A non-positive
// limit returns all rows.
func (f *Frame) Records(limit int) []map[string]any {
	n := f.rows
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		rec := make(map[string]any, len(f.names))
		for _, name := range f.names {
			rec[name] = jsonCell(f.cols[name][i])
		}
		out[i] = rec
	}
	return out
}

// Preview returns the first and last n rows as JSON-safe maps.
func (f *Frame) Preview(n int) (head, tail []map[string]any) {
	if n <= 0 || f.rows == 0 {
		return nil, nil
	}
	head = f.Records(n)
	start := f.rows - n
	if start < 0 {
		start = 0
	}
	tail = make([]map[string]any, 0, f.rows-start)
	for i := start; i < f.rows; i++ {
		rec := make(map[string]any, len(f.names))
		for _, name := range f.names {
			rec[name] = jsonCell(f.cols[name][i])
		}
		tail = append(tail, rec)
	}
	return head, tail
}

func jsonCell(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// WriteCSV encodes the frame as canonical CSV: header row, then '%g' cells
// with NaN written as the empty string.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.names); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	record := make([]string, len(f.names))
	for i := 0; i < f.rows; i++ {
		for j, name := range f.names {
			v := f.cols[name][i]
			if math.IsNaN(v) {
				record[j] = ""
			} else {
				record[j] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write CSV row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out := &Frame{names: append([]string(nil), f.names...), cols: make(map[string][]float64, len(f.names)), rows: f.rows}
	for name, col := range f.cols {
		out.cols[name] = append([]float64(nil), col...)
	}
	return out
}
