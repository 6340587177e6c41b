package dataset

import (
	"math"
	"reflect"
	"testing"
)

func TestPreprocess_RenamesFirstTimeColumn(t *testing.T) {
	f := NewFrame(
		[]string{"timestamp", "Battery_Current"},
		map[string][]float64{"timestamp": {0, 1}, "Battery_Current": {1, 2}},
	)
	out := Preprocess(f)
	if !out.Has(TimeColumn) {
		t.Fatalf("expected %s column after preprocess, got %v", TimeColumn, out.Columns())
	}
	if out.Has("timestamp") {
		t.Fatalf("original time column should be renamed, got %v", out.Columns())
	}
}

func TestPreprocess_DropsAllNaNColumns(t *testing.T) {
	f := NewFrame(
		[]string{"Time", "good", "dead"},
		map[string][]float64{
			"Time": {0, 1},
			"good": {1, math.NaN()},
			"dead": {math.NaN(), math.NaN()},
		},
	)
	out := Preprocess(f)
	if out.Has("dead") {
		t.Fatalf("all-NaN column should be dropped, got %v", out.Columns())
	}
	if !out.Has("good") {
		t.Fatalf("column with values should survive, got %v", out.Columns())
	}
}

func TestPreprocess_FillsForwardThenBackward(t *testing.T) {
	f := NewFrame(
		[]string{"Time", "v"},
		map[string][]float64{
			"Time": {0, 1, 2, 3},
			"v":    {math.NaN(), 5, math.NaN(), 7},
		},
	)
	out := Preprocess(f)
	v, _ := out.Column("v")
	want := []float64{5, 5, 5, 7}
	for i := range want {
		if !almostEqual(v[i], want[i]) {
			t.Fatalf("fill mismatch at %d: got %v, want %v", i, v, want)
		}
	}
}

func TestPreprocess_DoesNotMutateInput(t *testing.T) {
	f := NewFrame(
		[]string{"timestamp", "v"},
		map[string][]float64{"timestamp": {0, 1}, "v": {math.NaN(), 2}},
	)
	_ = Preprocess(f)
	if !f.Has("timestamp") {
		t.Fatalf("input frame was mutated: %v", f.Columns())
	}
	v, _ := f.Column("v")
	if !math.IsNaN(v[0]) {
		t.Fatalf("input values were mutated: %v", v)
	}
}

func TestResample_BucketsByRoundedTime(t *testing.T) {
	f := NewFrame(
		[]string{TimeColumn, "v"},
		map[string][]float64{
			TimeColumn: {0.0, 0.4, 1.1, 1.4, 2.6},
			"v":        {10, 20, 30, 50, 100},
		},
	)
	out := Resample(f, 1.0)

	times, _ := out.TimeValues()
	wantTimes := []float64{0, 1, 3}
	if len(times) != len(wantTimes) {
		t.Fatalf("expected %d buckets, got %d (%v)", len(wantTimes), len(times), times)
	}
	for i := range wantTimes {
		if !almostEqual(times[i], wantTimes[i]) {
			t.Fatalf("bucket times mismatch: got %v, want %v", times, wantTimes)
		}
	}

	v, _ := out.Column("v")
	// Bucket 0 holds t=0.0 and t=0.4; bucket 1 holds t=1.1 and t=1.4.
	if !almostEqual(v[0], 15) || !almostEqual(v[1], 40) || !almostEqual(v[2], 100) {
		t.Fatalf("bucket means mismatch: got %v", v)
	}
}

func TestResample_SkipsNaNValuesPerColumn(t *testing.T) {
	f := NewFrame(
		[]string{TimeColumn, "v"},
		map[string][]float64{
			TimeColumn: {0.0, 0.2},
			"v":        {math.NaN(), 8},
		},
	)
	out := Resample(f, 1.0)
	v, _ := out.Column("v")
	if !almostEqual(v[0], 8) {
		t.Fatalf("NaN should not drag the mean: got %v", v[0])
	}
}

func TestResample_PassThrough(t *testing.T) {
	f := NewFrame([]string{"v"}, map[string][]float64{"v": {1, 2}})

	if got := Resample(f, 0); got != f {
		t.Fatalf("non-positive interval should pass through")
	}
	if got := Resample(f, 5); got != f {
		t.Fatalf("frame without %s should pass through", TimeColumn)
	}
}

func TestAddCRate(t *testing.T) {
	f := NewFrame(
		[]string{TimeColumn, "Battery_Current_avg"},
		map[string][]float64{
			TimeColumn:            {0, 1, 2},
			"Battery_Current_avg": {7, -3.5, math.NaN()},
		},
	)
	out := AddCRate(f, 3.5)
	rate, ok := out.Column(CRateColumn)
	if !ok {
		t.Fatalf("expected %s column, got %v", CRateColumn, out.Columns())
	}
	if !almostEqual(rate[0], 2) || !almostEqual(rate[1], 1) {
		t.Fatalf("C-rate values mismatch: %v", rate)
	}
	if !math.IsNaN(rate[2]) {
		t.Fatalf("NaN current should produce NaN C-rate, got %v", rate[2])
	}
}

func TestAddCRate_NoCurrentColumnPassesThrough(t *testing.T) {
	f := NewFrame([]string{"v"}, map[string][]float64{"v": {1}})
	out := AddCRate(f, 3.5)
	if !reflect.DeepEqual(out.Columns(), []string{"v"}) {
		t.Fatalf("expected pass-through, got %v", out.Columns())
	}
}
