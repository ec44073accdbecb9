package testutil

import (
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails tb unless got and want have the same length
// and every pair is within eps.
func RequireSliceNearlyEqual(tb testing.TB, got, want []float64, eps float64) {
	tb.Helper()
	if len(got) != len(want) {
		tb.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
		return
	}
	for i := range got {
		if d := math.Abs(got[i] - want[i]); d > eps {
			tb.Fatalf("index %d: got %v, want %v (|diff| %v > %v)", i, got[i], want[i], d, eps)
		}
	}
}

// RequireFinite fails tb on the first NaN or infinite value.
func RequireFinite(tb testing.TB, data []float64) {
	tb.Helper()
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			tb.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// RequireHz fails tb unless got is within tol Hz of want.
func RequireHz(tb testing.TB, got, want, tol float64) {
	tb.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > tol {
		tb.Fatalf("got %.3f Hz, want %.3f ± %.3f Hz", got, want, tol)
	}
}

// RequireCents fails tb unless got lies within tol cents of want. Useful
// where the allowed error scales with pitch.
func RequireCents(tb testing.TB, got, want, tol float64) {
	tb.Helper()
	if got <= 0 || want <= 0 {
		tb.Fatalf("got %.3f Hz, want %.3f Hz: frequencies must be positive", got, want)
		return
	}
	if c := 1200 * math.Log2(got/want); math.IsNaN(c) || math.Abs(c) > tol {
		tb.Fatalf("got %.3f Hz, %.1f cents from %.3f Hz (tolerance %.1f)", got, c, want, tol)
	}
}
