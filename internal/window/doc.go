// Package window computes trailing-window statistics for one group of
// timestamped trip records.
//
// aggregator.go provides Config.Aggregate: for every record past the
// group's warm-up span it derives, per target and per window index, the
// mean and sample standard deviation of the target values that fell in
// the trailing interval, backtracking whole daily cycles when an
// interval is empty.
//
// smooth.go provides the fill-and-average pass applied to each derived
// column afterwards: missing cells with a valid value on both sides (in
// record order) become the average of the forward-filled and
// backward-filled columns; cells missing a neighbor on either side stay
// missing. A column with no missing cells is left unchanged.
package window
