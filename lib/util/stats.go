package util

import (
	"math"
)

type Stats struct {
	StdDeviation float64 `json:"std_deviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	MinMaxRatio  float64 `json:"min_max_ratio"`
}

// NewStats computes mean, standard deviation, minimum and maximum of values.
func NewStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	lo, hi := values[0], values[0]
	var sum float64
	for _, v := range values {
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	mean := sum / float64(len(values))

	// population standard deviation
	var squares float64
	for _, v := range values {
		squares += (v - mean) * (v - mean)
	}

	ratio := 1.0
	if hi > 0 {
		ratio = lo / hi
	}

	return Stats{
		StdDeviation: math.Sqrt(squares / float64(len(values))),
		Min:          lo,
		Max:          hi,
		Mean:         mean,
		MinMaxRatio:  ratio,
	}
}

// FairnessStats describes how evenly work was spread over workers
type FairnessStats struct {
	Stats
	// Fairness is 1 for a perfectly even spread and approaches 0 when one worker got everything.
	Fairness float64 `json:"fairness"`
}

// NewFairnessStats computes how evenly the per worker values (e.g. acquired locks or
// wait times) are distributed. It combines the coefficient of variation with the
// min/max ratio.
func NewFairnessStats(perWorker []float64) FairnessStats {
	stats := NewStats(perWorker)

	var cv float64
	if stats.Mean > 0 {
		cv = stats.StdDeviation / stats.Mean
	}

	return FairnessStats{
		Stats:    stats,
		Fairness: (1.0-math.Min(1.0, cv))*0.5 + stats.MinMaxRatio*0.5,
	}
}
