package window

import "math"

// smooth applies the fill-and-average pass to every derived column over
// the results in record order. Each cell becomes the average of the
// forward-filled and backward-filled column values at its position; NaN
// propagates, so a missing cell is repaired only when a non-missing
// value exists on both sides, and a column without missing cells comes
// back unchanged.
func smooth(results []Result, width int) {
	if len(results) == 0 {
		return
	}
	fwd := make([]float64, len(results))
	bwd := make([]float64, len(results))
	for c := 0; c < width; c++ {
		carry := math.NaN()
		for i := range results {
			if v := results[i].Features[c]; !math.IsNaN(v) {
				carry = v
			}
			fwd[i] = carry
		}
		carry = math.NaN()
		for i := len(results) - 1; i >= 0; i-- {
			if v := results[i].Features[c]; !math.IsNaN(v) {
				carry = v
			}
			bwd[i] = carry
		}
		for i := range results {
			results[i].Features[c] = (fwd[i] + bwd[i]) / 2
		}
	}
}

// meanStd returns the arithmetic mean and sample standard deviation
// (N-1 denominator) of vs. A single observation has an undefined sample
// std, reported as NaN. vs must be non-empty.
func meanStd(vs []float64) (mean, std float64) {
	var sum float64
	for _, v := range vs {
		sum += v
	}
	mean = sum / float64(len(vs))
	if len(vs) < 2 {
		return mean, math.NaN()
	}
	var ssd float64
	for _, v := range vs {
		d := v - mean
		ssd += d * d
	}
	return mean, math.Sqrt(ssd / float64(len(vs)-1))
}

// round3 rounds to 3 decimal places; NaN passes through.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
