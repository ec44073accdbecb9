package testutil

import (
	"math"
	"testing"
)

// recorder captures Fatalf without stopping the calling goroutine.
type recorder struct {
	testing.TB
	failed bool
}

func (r *recorder) Helper() {}

func (r *recorder) Fatalf(string, ...any) { r.failed = true }

func TestTolerances(t *testing.T) {
	tests := map[string]struct {
		check func(tb testing.TB)
		fail  bool
	}{
		"slice within eps":  {func(tb testing.TB) { RequireSliceNearlyEqual(tb, []float64{1, 2}, []float64{1.0005, 2}, 1e-3) }, false},
		"slice length":      {func(tb testing.TB) { RequireSliceNearlyEqual(tb, []float64{1}, nil, 1) }, true},
		"finite":            {func(tb testing.TB) { RequireFinite(tb, []float64{0, -1, 1e300}) }, false},
		"nan":               {func(tb testing.TB) { RequireFinite(tb, []float64{0, math.NaN()}) }, true},
		"hz inside":         {func(tb testing.TB) { RequireHz(tb, 149.53, 150, 1) }, false},
		"hz nan":            {func(tb testing.TB) { RequireHz(tb, math.NaN(), 150, 1) }, true},
		"cents inside":      {func(tb testing.TB) { RequireCents(tb, 441, 440, 5) }, false},
		"cents octave away": {func(tb testing.TB) { RequireCents(tb, 220, 440, 50) }, true},
		"cents zero":        {func(tb testing.TB) { RequireCents(tb, 0, 440, 50) }, true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			r := &recorder{TB: t}
			tc.check(r)
			if r.failed != tc.fail {
				t.Fatalf("failed = %v, want %v", r.failed, tc.fail)
			}
		})
	}
}
