package runner

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tripfeature/tripfeature/internal/table"
	"github.com/tripfeature/tripfeature/internal/window"
)

// Default column names, matching the simulator's vehicle data files.
const (
	DefaultTimeColumn = "In Time"
	DefaultDateColumn = "Date"
)

// Options configures one aggregation run.
type Options struct {
	// GroupBy names the columns whose concatenated cells form the group
	// key (e.g. an OD bucket column).
	GroupBy []string

	// Targets names the numeric columns to derive window features for.
	Targets []string

	// TimeColumn and DateColumn name the entry-timestamp and simulated-
	// day columns. Empty means the simulator defaults.
	TimeColumn string
	DateColumn string

	// Windows, Gap, BacktrackPeriod and MaxBacktracks are passed through
	// to the per-group aggregator.
	Windows         int
	Gap             int64
	BacktrackPeriod int64
	MaxBacktracks   int

	// DropFirstDay removes output rows whose date equals the minimum
	// date observed, since the first simulated day has no full history
	// behind it.
	DropFirstDay bool

	// Workers bounds the number of groups aggregated concurrently.
	// Zero means GOMAXPROCS.
	Workers int
}

// Stats summarizes a completed run.
type Stats struct {
	Groups      int
	RowsIn      int
	RowsOut     int
	FirstDayCut int // rows removed by DropFirstDay
}

type group struct {
	key  string
	rows []int // row indices into the input table
}

// Run derives the trailing-window feature columns for every group in t
// and returns a new table: the original columns plus, per target and
// window index, a mean and a std column. The input table is not
// modified. Row order within a group follows the group's timestamp
// order; groups appear in first-seen key order.
func Run(ctx context.Context, t *table.Table, opts Options) (*table.Table, Stats, error) {
	if opts.TimeColumn == "" {
		opts.TimeColumn = DefaultTimeColumn
	}
	if opts.DateColumn == "" {
		opts.DateColumn = DefaultDateColumn
	}
	if err := validate(t, opts); err != nil {
		return nil, Stats{}, err
	}

	timeIdx := t.ColumnIndex(opts.TimeColumn)
	dateIdx := t.ColumnIndex(opts.DateColumn)
	targetIdx := make([]int, len(opts.Targets))
	for i, tg := range opts.Targets {
		targetIdx[i] = t.ColumnIndex(tg)
	}
	groupIdx := make([]int, len(opts.GroupBy))
	for i, g := range opts.GroupBy {
		groupIdx[i] = t.ColumnIndex(g)
	}

	groups := partition(t, groupIdx)

	cfg := window.Config{
		Windows:         opts.Windows,
		Gap:             opts.Gap,
		BacktrackPeriod: opts.BacktrackPeriod,
		MaxBacktracks:   opts.MaxBacktracks,
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([][]window.Result, len(groups))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for gi, g := range groups {
		gi, g := gi, g
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			recs, err := extract(t, g, timeIdx, targetIdx)
			if err != nil {
				return fmt.Errorf("group %q: %w", g.key, err)
			}
			res, err := cfg.Aggregate(recs, len(targetIdx))
			if err != nil {
				return fmt.Errorf("group %q: %w", g.key, err)
			}
			results[gi] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, Stats{}, err
	}

	out := table.New(append(append([]string(nil), t.Header...), window.Columns(opts.Targets, opts.Windows)...))
	for _, res := range results {
		for _, r := range res {
			row := make([]string, 0, len(out.Header))
			row = append(row, t.Rows[r.Pos]...)
			for _, f := range r.Features {
				row = append(row, table.FormatFloat(f))
			}
			out.Rows = append(out.Rows, row)
		}
	}

	stats := Stats{Groups: len(groups), RowsIn: t.Len(), RowsOut: out.Len()}
	if opts.DropFirstDay && out.Len() > 0 {
		cut, err := dropFirstDay(out, dateIdx)
		if err != nil {
			return nil, Stats{}, err
		}
		stats.FirstDayCut = cut
		stats.RowsOut = out.Len()
	}
	return out, stats, nil
}

func validate(t *table.Table, opts Options) error {
	if opts.Windows < 1 {
		return fmt.Errorf("runner: window count must be >= 1 (got %d)", opts.Windows)
	}
	if opts.Gap <= 0 {
		return fmt.Errorf("runner: window gap must be positive (got %d)", opts.Gap)
	}
	if len(opts.Targets) == 0 {
		return fmt.Errorf("runner: at least one target column is required")
	}
	if len(opts.GroupBy) == 0 {
		return fmt.Errorf("runner: at least one group column is required")
	}
	for _, c := range append(append([]string{opts.TimeColumn, opts.DateColumn}, opts.GroupBy...), opts.Targets...) {
		if !t.HasColumn(c) {
			return fmt.Errorf("runner: missing column %q", c)
		}
	}
	return nil
}

// partition splits the table's rows by group key, preserving row order
// within a group and first-seen order across groups.
func partition(t *table.Table, groupIdx []int) []group {
	var groups []group
	seen := make(map[string]int)
	key := make([]string, len(groupIdx))
	for ri, row := range t.Rows {
		for i, ci := range groupIdx {
			key[i] = row[ci]
		}
		k := strings.Join(key, "|")
		gi, ok := seen[k]
		if !ok {
			gi = len(groups)
			seen[k] = gi
			groups = append(groups, group{key: k})
		}
		groups[gi].rows = append(groups[gi].rows, ri)
	}
	return groups
}

// extract builds the aggregator's working copy of one group.
func extract(t *table.Table, g group, timeIdx int, targetIdx []int) ([]window.Record, error) {
	recs := make([]window.Record, 0, len(g.rows))
	for _, ri := range g.rows {
		ts, err := t.Int(ri, timeIdx)
		if err != nil {
			return nil, err
		}
		vals := make([]float64, len(targetIdx))
		for i, ci := range targetIdx {
			v, err := t.Float(ri, ci)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		recs = append(recs, window.Record{Pos: ri, T: ts, Values: vals})
	}
	return recs, nil
}

// dropFirstDay removes rows whose date cell equals the minimum date in
// the table, returning how many were cut.
func dropFirstDay(t *table.Table, dateIdx int) (int, error) {
	dates := make([]int64, t.Len())
	minDate := int64(0)
	for ri := range t.Rows {
		d, err := t.Int(ri, dateIdx)
		if err != nil {
			return 0, fmt.Errorf("runner: %w", err)
		}
		dates[ri] = d
		if ri == 0 || d < minDate {
			minDate = d
		}
	}
	kept := t.Rows[:0:0]
	for ri, row := range t.Rows {
		if dates[ri] != minDate {
			kept = append(kept, row)
		}
	}
	cut := len(t.Rows) - len(kept)
	t.Rows = kept
	return cut, nil
}
