package feature

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/tripfeature/tripfeature/internal/table"
)

// Input columns expected on raw vehicle data.
const (
	colInTime      = "In Time"
	colArrivalTime = "Arrival Time"
	colOrigin      = "Origin"
	colDestination = "Destination"
	colPathLength  = "PathLength"
)

// Options describes the simulated road network and bucketing scheme.
type Options struct {
	// Cells is the number of cells on the ring.
	Cells int64

	// LightInterval is the cell spacing between traffic lights.
	LightInterval int64

	// ODInterval is the base cell spacing of the origin/destination
	// buckets; buckets are also derived at 5x and 10x this spacing.
	ODInterval int64

	// MinDistance drops trips whose path length does not exceed it.
	MinDistance int64

	// DistanceInterval is the base width of the trip-distance buckets;
	// buckets are also derived at 4x and 8x this width.
	DistanceInterval int64

	// DaySteps is the length of one simulated day in timestamp units.
	DaySteps int64
}

func (o Options) validate() error {
	switch {
	case o.Cells <= 0:
		return fmt.Errorf("feature: cells must be positive (got %d)", o.Cells)
	case o.LightInterval <= 0 || o.LightInterval > o.Cells:
		return fmt.Errorf("feature: light interval must be in 1..cells (got %d)", o.LightInterval)
	case o.ODInterval <= 0:
		return fmt.Errorf("feature: od interval must be positive (got %d)", o.ODInterval)
	case o.DistanceInterval <= 0:
		return fmt.Errorf("feature: distance interval must be positive (got %d)", o.DistanceInterval)
	case o.DaySteps <= 0:
		return fmt.Errorf("feature: day steps must be positive (got %d)", o.DaySteps)
	}
	return nil
}

// Derive appends the trip feature columns to a copy of t. The input
// table is not modified.
func Derive(t *table.Table, opts Options) (*table.Table, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	for _, c := range []string{colInTime, colArrivalTime, colOrigin, colDestination, colPathLength} {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("feature: missing column %q", c)
		}
	}

	inIdx := t.ColumnIndex(colInTime)
	arrIdx := t.ColumnIndex(colArrivalTime)
	origIdx := t.ColumnIndex(colOrigin)
	destIdx := t.ColumnIndex(colDestination)
	distIdx := t.ColumnIndex(colPathLength)

	type trip struct {
		row                      int
		in, arr, orig, dest, len int64
		travel                   int64
	}

	// First pass: parse and drop non-positive travel times. The
	// standardization baseline is taken over this set, before the
	// short-trip cut, matching the upstream pipeline.
	trips := make([]trip, 0, t.Len())
	travels := make([]float64, 0, t.Len())
	for ri := range t.Rows {
		var tr trip
		var err error
		tr.row = ri
		if tr.in, err = t.Int(ri, inIdx); err != nil {
			return nil, fmt.Errorf("feature: %w", err)
		}
		if tr.arr, err = t.Int(ri, arrIdx); err != nil {
			return nil, fmt.Errorf("feature: %w", err)
		}
		if tr.orig, err = t.Int(ri, origIdx); err != nil {
			return nil, fmt.Errorf("feature: %w", err)
		}
		if tr.dest, err = t.Int(ri, destIdx); err != nil {
			return nil, fmt.Errorf("feature: %w", err)
		}
		if tr.len, err = t.Int(ri, distIdx); err != nil {
			return nil, fmt.Errorf("feature: %w", err)
		}
		tr.travel = tr.arr - tr.in
		if tr.travel <= 0 {
			continue
		}
		trips = append(trips, tr)
		travels = append(travels, float64(tr.travel))
	}

	mean, std := baseline(travels)

	numLights := int(opts.Cells / opts.LightInterval)
	odGaps := []int64{opts.ODInterval, opts.ODInterval * 5, opts.ODInterval * 10}
	distGaps := []int64{opts.DistanceInterval, opts.DistanceInterval * 4, opts.DistanceInterval * 8}

	header := append([]string(nil), t.Header...)
	header = append(header,
		"Travel Time", "Travel Time Standardized", "Travel Time Log",
		"Date", "Actual In Time", "Actual Arrival Time", "Hour", "Quarter")
	for i := range odGaps {
		header = append(header,
			fmt.Sprintf("O_Dig_%d", i), fmt.Sprintf("D_Dig_%d", i), fmt.Sprintf("OD_Dig_%d", i))
	}
	for i := range distGaps {
		header = append(header, fmt.Sprintf("Distance_Dig_%d", i))
	}
	header = append(header, "Traffic Light Count")
	for i := 0; i < numLights; i++ {
		header = append(header, fmt.Sprintf("Traffic Light %d", i))
	}

	out := table.New(header)
	// 24 hours and 144 quarter-hour slots per simulated day.
	hourSteps := opts.DaySteps / 24
	if hourSteps < 1 {
		hourSteps = 1
	}
	quarterSteps := opts.DaySteps / 144
	if quarterSteps < 1 {
		quarterSteps = 1
	}
	for _, tr := range trips {
		if tr.len <= opts.MinDistance {
			continue
		}

		row := make([]string, 0, len(header))
		row = append(row, t.Rows[tr.row]...)

		var standardized float64
		if std > 0 {
			standardized = (float64(tr.travel) - mean) / std
		} else {
			standardized = math.NaN()
		}
		actualIn := tr.in % opts.DaySteps
		actualArr := tr.arr % opts.DaySteps
		row = append(row,
			table.FormatInt(tr.travel),
			table.FormatFloat(standardized),
			table.FormatFloat(math.Log1p(float64(tr.travel))),
			table.FormatInt(tr.in/opts.DaySteps),
			table.FormatInt(actualIn),
			table.FormatInt(actualArr),
			table.FormatInt(actualIn/hourSteps),
			table.FormatInt(actualIn/quarterSteps))

		for _, gap := range odGaps {
			o := bucket(tr.orig, gap, opts.Cells)
			d := bucket(tr.dest, gap, opts.Cells)
			row = append(row, table.FormatInt(o), table.FormatInt(d), fmt.Sprintf("%d_%d", o, d))
		}
		for _, gap := range distGaps {
			row = append(row, table.FormatInt(tr.len/gap))
		}

		crossed := lightsCrossed(tr.orig, tr.dest, numLights, opts.LightInterval)
		count := int64(0)
		for _, c := range crossed {
			count += c
		}
		row = append(row, table.FormatInt(count))
		for _, c := range crossed {
			row = append(row, table.FormatInt(c))
		}

		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// baseline returns the mean and sample std of the travel times, NaN/0
// when too few trips exist to standardize.
func baseline(travels []float64) (mean, std float64) {
	if len(travels) < 2 {
		return math.NaN(), 0
	}
	mean, err := stats.Mean(travels)
	if err != nil {
		return math.NaN(), 0
	}
	std, err = stats.StandardDeviationSample(travels)
	if err != nil {
		return mean, 0
	}
	return mean, std
}

// bucket maps a cell index to its OD bucket; cell 0 belongs to the last
// bucket, closing the ring.
func bucket(cell, gap, cells int64) int64 {
	if cell == 0 {
		return cells/gap - 1
	}
	return cell / gap
}

// lightsCrossed returns a 0/1 indicator per traffic light. Light j sits
// at cell j*interval; a trip crosses it when origin < light <= dest, or,
// for trips that wrap past cell 0, when origin < light or light <= dest.
func lightsCrossed(orig, dest int64, numLights int, interval int64) []int64 {
	crossed := make([]int64, numLights)
	for j := range crossed {
		light := int64(j) * interval
		if orig < dest {
			if orig < light && light <= dest {
				crossed[j] = 1
			}
		} else {
			if orig < light || light <= dest {
				crossed[j] = 1
			}
		}
	}
	return crossed
}
