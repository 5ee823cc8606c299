package window

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Config holds the per-group aggregation parameters.
type Config struct {
	// Windows is the number of trailing intervals per target (W).
	// Window 1 is the most recent, window W the most distant.
	Windows int

	// Gap is the width of each interval in timestamp units (G).
	Gap int64

	// BacktrackPeriod is the length of one daily cycle (P). When an
	// interval is empty, the lookup retries at the same interval shifted
	// back whole cycles.
	BacktrackPeriod int64

	// MaxBacktracks bounds how many cycles back the retry may go (K).
	// Zero disables backtracking.
	MaxBacktracks int
}

// Record is one trip inside a group: its entry timestamp, one value per
// target column, and its row position in the source table.
type Record struct {
	Pos    int
	T      int64
	Values []float64
}

// Result carries the derived features for one surviving record.
// Features holds 2*targets*Windows values, target-major: for each
// target, for window i in 1..W, the mean then the sample std.
type Result struct {
	Pos      int
	T        int64
	Features []float64
}

// Columns returns the derived column names in Feature order. Spaces are
// stripped from target names, so "Travel Time" yields
// mean_TravelTime_before_1, std_TravelTime_before_1, ...
func Columns(targets []string, windows int) []string {
	cols := make([]string, 0, 2*len(targets)*windows)
	for _, tg := range targets {
		name := strings.ReplaceAll(tg, " ", "")
		for i := 1; i <= windows; i++ {
			cols = append(cols,
				fmt.Sprintf("mean_%s_before_%d", name, i),
				fmt.Sprintf("std_%s_before_%d", name, i))
		}
	}
	return cols
}

func (c Config) validate(targets int) error {
	if c.Windows < 1 {
		return fmt.Errorf("window: windows must be >= 1 (got %d)", c.Windows)
	}
	if c.Gap <= 0 {
		return fmt.Errorf("window: gap must be positive (got %d)", c.Gap)
	}
	if c.MaxBacktracks < 0 {
		return fmt.Errorf("window: max backtracks must be >= 0 (got %d)", c.MaxBacktracks)
	}
	if c.MaxBacktracks > 0 && c.BacktrackPeriod <= 0 {
		return fmt.Errorf("window: backtrack period must be positive (got %d)", c.BacktrackPeriod)
	}
	if targets < 1 {
		return fmt.Errorf("window: at least one target is required")
	}
	return nil
}

// Aggregate derives trailing-window features for one group.
//
// Records are sorted by timestamp; those earlier than t_min + W*Gap lack
// full history and are excluded. For each survivor, target and window
// index i, the primary interval is [t-Gap*i, t-Gap*(i-1)); if empty, the
// same interval shifted back k cycles (k = 1..MaxBacktracks) is tried,
// and the first non-empty interval supplies the mean and sample std,
// rounded to 3 decimals. A window that stays empty yields NaN for both,
// subject to the smoothing pass. An empty output is valid: a group whose
// records all fall inside the warm-up span contributes nothing.
//
// The input slice is not modified; targets is the number of values each
// record carries.
func (c Config) Aggregate(recs []Record, targets int) ([]Result, error) {
	if err := c.validate(targets); err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}

	sorted := append([]Record(nil), recs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].T < sorted[j].T })

	ts := make([]int64, len(sorted))
	for i, r := range sorted {
		if len(r.Values) != targets {
			return nil, fmt.Errorf("window: record at t=%d has %d values, want %d", r.T, len(r.Values), targets)
		}
		ts[i] = r.T
	}

	// Column-major copies of the target values so an interval is a
	// contiguous slice after the binary searches below.
	vals := make([][]float64, targets)
	for tg := range vals {
		col := make([]float64, len(sorted))
		for i, r := range sorted {
			col[i] = r.Values[tg]
		}
		vals[tg] = col
	}

	warmup := ts[0] + int64(c.Windows)*c.Gap
	start := searchTS(ts, warmup)
	if start == len(ts) {
		return nil, nil
	}

	width := 2 * targets * c.Windows
	out := make([]Result, 0, len(ts)-start)
	for j := start; j < len(ts); j++ {
		t := ts[j]
		feats := make([]float64, 0, width)
		for tg := 0; tg < targets; tg++ {
			for i := 1; i <= c.Windows; i++ {
				lb := t - c.Gap*int64(i)
				ub := t - c.Gap*int64(i-1)
				mean, std := c.lookup(ts, vals[tg], lb, ub)
				feats = append(feats, round3(mean), round3(std))
			}
		}
		out = append(out, Result{Pos: sorted[j].Pos, T: t, Features: feats})
	}

	smooth(out, width)
	return out, nil
}

// lookup finds the first non-empty interval among [lb, ub) and its
// MaxBacktracks cycle-shifted retries, returning NaN/NaN if all are empty.
func (c Config) lookup(ts []int64, vals []float64, lb, ub int64) (mean, std float64) {
	for k := 0; k <= c.MaxBacktracks; k++ {
		shift := c.BacktrackPeriod * int64(k)
		lo := searchTS(ts, lb-shift)
		hi := searchTS(ts, ub-shift)
		if hi > lo {
			return meanStd(vals[lo:hi])
		}
	}
	return math.NaN(), math.NaN()
}

// searchTS returns the index of the first timestamp >= x.
func searchTS(ts []int64, x int64) int {
	return sort.Search(len(ts), func(i int) bool { return ts[i] >= x })
}
