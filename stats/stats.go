/*
   Summary statistics over link degree distributions.
*/
package stats

import (
	"fmt"
	"sort"
)

// QuintileRanks are the percentile ranks reported by Summary.Quintiles.
var QuintileRanks = [6]float64{0, 20, 40, 60, 80, 100}

// Summary describes the distribution of a sequence of counts.
type Summary struct {
	Count  int
	Min    int
	Max    int
	Mean   float64
	Median float64

	// Quintiles holds the values at the percentile ranks listed in
	// QuintileRanks. Percentiles falling between two samples are linearly
	// interpolated.
	Quintiles [6]float64
}

// Summarize returns the summary of values. An empty input yields the zero
// Summary.
func Summarize(values []int) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	sorted := append([]int(nil), values...)
	sort.Ints(sorted)

	var total float64
	for _, v := range sorted {
		total += float64(v)
	}

	s := Summary{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   total / float64(len(sorted)),
		Median: median(sorted),
	}
	for i, rank := range QuintileRanks {
		s.Quintiles[i] = percentile(sorted, rank)
	}
	return s
}

// String renders the summary on a single line.
func (s Summary) String() string {
	return fmt.Sprintf("count=%d min=%d max=%d avg=%.4f median=%.1f quintiles=%v",
		s.Count, s.Min, s.Max, s.Mean, s.Median, s.Quintiles)
}

// median expects a sorted, non-empty input. For an even number of values it
// averages the middle pair.
func median(sorted []int) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return (float64(sorted[mid-1]) + float64(sorted[mid])) / 2
}

// percentile expects a sorted, non-empty input and interpolates linearly
// between the two closest ranks.
func percentile(sorted []int, rank float64) float64 {
	pos := rank / 100 * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return float64(sorted[len(sorted)-1])
	}
	frac := pos - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}
