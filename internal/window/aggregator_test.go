package window

import (
	"math"
	"testing"
)

// almostEqual returns true if a and b are within epsilon of each other.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func recordsOf(ts []int64, vs []float64) []Record {
	recs := make([]Record, len(ts))
	for i := range ts {
		recs[i] = Record{Pos: i, T: ts[i], Values: []float64{vs[i]}}
	}
	return recs
}

func TestAggregate_SingleWindow(t *testing.T) {
	// Three records 600 apart, one window of width 600. The warm-up cut
	// keeps records at or past t_min + W*G = 600, so two survive; each
	// window [t-600, t) holds exactly the preceding record, and the
	// sample std of a single point is undefined.
	cfg := Config{Windows: 1, Gap: 600}
	res, err := cfg.Aggregate(recordsOf([]int64{0, 600, 1200}, []float64{10, 20, 30}), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Fatalf("results: got %d, want 2", len(res))
	}
	if res[0].T != 600 || res[1].T != 1200 {
		t.Errorf("timestamps: got %d, %d, want 600, 1200", res[0].T, res[1].T)
	}
	wantMeans := []float64{10, 20}
	for i, want := range wantMeans {
		if got := res[i].Features[0]; got != want {
			t.Errorf("mean_before_1[%d]: got %v, want %v", i, got, want)
		}
		if got := res[i].Features[1]; !math.IsNaN(got) {
			t.Errorf("std_before_1[%d]: got %v, want NaN", i, got)
		}
	}
}

func TestAggregate_Backtracking(t *testing.T) {
	// The window [650, 1250) before t=1250 is empty, but one full cycle
	// (1200) earlier the interval [-550, 50) holds the record at t=10.
	cfg := Config{Windows: 1, Gap: 600, BacktrackPeriod: 1200, MaxBacktracks: 1}
	res, err := cfg.Aggregate(recordsOf([]int64{10, 1250}, []float64{10, 30}), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 {
		t.Fatalf("results: got %d, want 1", len(res))
	}
	if got := res[0].Features[0]; got != 10 {
		t.Errorf("backtracked mean: got %v, want 10", got)
	}
}

func TestAggregate_BacktrackedIntervalExcludesUpperBound(t *testing.T) {
	// A record sitting exactly on the shifted upper bound does not
	// count: for t=1200 the window [600, 1200) shifts to [-600, 0), and
	// the record at t=0 is outside the half-open interval, so the
	// window stays empty. The lone survivor has no neighbors, so
	// smoothing cannot repair it either.
	cfg := Config{Windows: 1, Gap: 600, BacktrackPeriod: 1200, MaxBacktracks: 1}
	res, err := cfg.Aggregate(recordsOf([]int64{0, 1200}, []float64{10, 30}), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 {
		t.Fatalf("results: got %d, want 1", len(res))
	}
	if got := res[0].Features[0]; !math.IsNaN(got) {
		t.Errorf("mean at the shifted upper bound: got %v, want NaN", got)
	}
}

func TestAggregate_BacktrackingStopsAtFirstHit(t *testing.T) {
	// For t=2400 the window [2300, 2400) is empty; one cycle back,
	// [1300, 1400) holds the record at 1350, so the search must stop
	// there and never reach k=2.
	cfg := Config{Windows: 1, Gap: 100, BacktrackPeriod: 1000, MaxBacktracks: 2}
	ts := []int64{350, 1350, 2400}
	vs := []float64{111, 222, 999}
	res, err := cfg.Aggregate(recordsOf(ts, vs), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Fatalf("results: got %d, want 2", len(res))
	}
	if got := res[1].Features[0]; got != 222 {
		t.Errorf("k=1 backtrack mean: got %v, want 222", got)
	}
}

func TestAggregate_WarmupInvariant(t *testing.T) {
	cfg := Config{Windows: 3, Gap: 200}
	ts := []int64{0, 100, 250, 599, 600, 601, 900, 1500}
	vs := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	res, err := cfg.Aggregate(recordsOf(ts, vs), 1)
	if err != nil {
		t.Fatal(err)
	}
	warmup := int64(0 + 3*200)
	if len(res) == 0 {
		t.Fatal("expected surviving records")
	}
	for _, r := range res {
		if r.T < warmup {
			t.Errorf("record at t=%d survived below warm-up threshold %d", r.T, warmup)
		}
	}
	if want := 4; len(res) != want { // 600, 601, 900, 1500
		t.Errorf("survivors: got %d, want %d", len(res), want)
	}
}

func TestAggregate_ExhaustedBacktrackingThenSmoothed(t *testing.T) {
	// t=300's window is empty with no backtracking configured. After
	// smoothing it becomes the average of its neighbors' means; the std
	// column stays missing where the forward fill never saw a value.
	cfg := Config{Windows: 1, Gap: 100}
	ts := []int64{0, 100, 300, 350, 360}
	vs := []float64{10, 20, 30, 40, 50}
	res, err := cfg.Aggregate(recordsOf(ts, vs), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 4 {
		t.Fatalf("results: got %d, want 4", len(res))
	}
	// Means before smoothing: [10, NaN, 30, 35]; the gap at t=300 is
	// repaired to (10+30)/2.
	wantMeans := []float64{10, 20, 30, 35}
	for i, want := range wantMeans {
		if got := res[i].Features[0]; !almostEqual(got, want, 1e-9) {
			t.Errorf("mean[%d]: got %v, want %v", i, got, want)
		}
	}
	// Stds before smoothing: [NaN, NaN, NaN, 7.071]. The leading cells
	// have no earlier valid value, so they stay missing.
	for i := 0; i < 3; i++ {
		if got := res[i].Features[1]; !math.IsNaN(got) {
			t.Errorf("std[%d]: got %v, want NaN", i, got)
		}
	}
	if got := res[3].Features[1]; !almostEqual(got, 7.071, 1e-9) {
		t.Errorf("std[3]: got %v, want 7.071", got)
	}
}

func TestAggregate_SmoothingLeavesDenseColumnsAlone(t *testing.T) {
	// Every window of every survivor has data, so smoothing must be a
	// no-op on the mean column.
	cfg := Config{Windows: 1, Gap: 100}
	ts := []int64{0, 100, 200, 300}
	vs := []float64{4, 8, 16, 32}
	res, err := cfg.Aggregate(recordsOf(ts, vs), 1)
	if err != nil {
		t.Fatal(err)
	}
	wantMeans := []float64{4, 8, 16}
	if len(res) != len(wantMeans) {
		t.Fatalf("results: got %d, want %d", len(res), len(wantMeans))
	}
	for i, want := range wantMeans {
		if got := res[i].Features[0]; got != want {
			t.Errorf("mean[%d]: got %v, want %v", i, got, want)
		}
	}
}

func TestAggregate_Rounding(t *testing.T) {
	// Window holding {10, 10, 11}: mean 10.3333... -> 10.333 and sample
	// std 0.5773... -> 0.577.
	cfg := Config{Windows: 1, Gap: 100}
	ts := []int64{10, 20, 30, 110}
	vs := []float64{10, 10, 11, 99}
	res, err := cfg.Aggregate(recordsOf(ts, vs), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 {
		t.Fatalf("results: got %d, want 1", len(res))
	}
	if got := res[0].Features[0]; got != 10.333 {
		t.Errorf("rounded mean: got %v, want 10.333", got)
	}
	if got := res[0].Features[1]; got != 0.577 {
		t.Errorf("rounded std: got %v, want 0.577", got)
	}
}

func TestAggregate_MultipleTargetsAndWindows(t *testing.T) {
	cfg := Config{Windows: 2, Gap: 100}
	recs := []Record{
		{Pos: 0, T: 0, Values: []float64{1, 10}},
		{Pos: 1, T: 100, Values: []float64{2, 20}},
		{Pos: 2, T: 200, Values: []float64{3, 30}},
	}
	res, err := cfg.Aggregate(recs, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 {
		t.Fatalf("results: got %d, want 1", len(res))
	}
	f := res[0].Features
	if len(f) != 8 {
		t.Fatalf("feature width: got %d, want 8", len(f))
	}
	// Target-major: t0 window1 mean/std, t0 window2 mean/std, then t1.
	if f[0] != 2 || f[2] != 1 || f[4] != 20 || f[6] != 10 {
		t.Errorf("means: got [%v %v %v %v], want [2 1 20 10]", f[0], f[2], f[4], f[6])
	}
}

func TestAggregate_EmptyAndDegenerateGroups(t *testing.T) {
	cfg := Config{Windows: 1, Gap: 600}

	res, err := cfg.Aggregate(nil, 1)
	if err != nil || len(res) != 0 {
		t.Errorf("empty group: got %d results, err %v", len(res), err)
	}

	res, err = cfg.Aggregate(recordsOf([]int64{42}, []float64{1}), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 0 {
		t.Errorf("single record: got %d results, want 0", len(res))
	}
}

func TestAggregate_InputNotReordered(t *testing.T) {
	cfg := Config{Windows: 1, Gap: 100}
	recs := recordsOf([]int64{300, 0, 100}, []float64{3, 1, 2})
	if _, err := cfg.Aggregate(recs, 1); err != nil {
		t.Fatal(err)
	}
	if recs[0].T != 300 || recs[1].T != 0 || recs[2].T != 100 {
		t.Error("input slice was reordered")
	}
}

func TestAggregate_Validation(t *testing.T) {
	recs := recordsOf([]int64{0, 600}, []float64{1, 2})
	tests := []struct {
		name    string
		cfg     Config
		targets int
	}{
		{"zero windows", Config{Windows: 0, Gap: 600}, 1},
		{"zero gap", Config{Windows: 1, Gap: 0}, 1},
		{"negative backtracks", Config{Windows: 1, Gap: 600, MaxBacktracks: -1}, 1},
		{"backtracks without period", Config{Windows: 1, Gap: 600, MaxBacktracks: 2}, 1},
		{"no targets", Config{Windows: 1, Gap: 600}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.cfg.Aggregate(recs, tc.targets); err == nil {
				t.Error("expected error")
			}
		})
	}

	t.Run("value width mismatch", func(t *testing.T) {
		cfg := Config{Windows: 1, Gap: 600}
		if _, err := cfg.Aggregate(recs, 2); err == nil {
			t.Error("expected error")
		}
	})
}

func TestColumns(t *testing.T) {
	got := Columns([]string{"Travel Time"}, 2)
	want := []string{
		"mean_TravelTime_before_1", "std_TravelTime_before_1",
		"mean_TravelTime_before_2", "std_TravelTime_before_2",
	}
	if len(got) != len(want) {
		t.Fatalf("columns: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}
