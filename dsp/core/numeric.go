package core

import (
	"slices"

	"github.com/TomokaItou/voice-training/internal/mathx"
)

// Clamp limits v to [lo, hi]. Swapped bounds are accepted.
func Clamp(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	return min(max(v, lo), hi)
}

// DBToLinear converts an amplitude level in dB to a linear factor.
func DBToLinear(db float64) float64 {
	return mathx.Pow10(db / 20)
}

// Median returns the median of values, averaging the middle pair for even
// lengths. values is left untouched; empty input yields 0.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
