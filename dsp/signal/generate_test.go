package signal

import (
	"math"
	"testing"

	"github.com/TomokaItou/voice-training/dsp/core"
)

func newGen(sr float64, opts ...Option) *Generator {
	return NewGenerator([]core.ProcessorOption{core.WithSampleRate(sr)}, opts...)
}

func TestSineLengthAndPeriod(t *testing.T) {
	g := newGen(16000)
	s, err := g.Sine(200, 1, 160)
	if err != nil {
		t.Fatalf("Sine() error = %v", err)
	}
	if len(s) != 160 {
		t.Fatalf("len = %d, want 160", len(s))
	}
	// 80 samples per period.
	if math.Abs(s[20]-1) > 1e-12 || math.Abs(s[60]+1) > 1e-12 {
		t.Fatalf("unexpected waveform: s[20]=%v s[60]=%v", s[20], s[60])
	}
}

func TestHarmonicPeakBounded(t *testing.T) {
	g := newGen(48000)
	out, err := g.Harmonic(150, 0.8, []float64{0.6, 0.4, 0.25}, 4800)
	if err != nil {
		t.Fatalf("Harmonic() error = %v", err)
	}
	for i, v := range out {
		if math.Abs(v) > 0.8+1e-12 {
			t.Fatalf("out[%d] = %v exceeds amplitude", i, v)
		}
	}
}

func TestHarmonicRejectsBadInput(t *testing.T) {
	g := newGen(16000)
	tests := []struct {
		name    string
		f0      float64
		samples int
	}{
		{"zero samples", 150, 0},
		{"zero f0", 0, 10},
		{"above nyquist", 9000, 10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := g.Harmonic(tc.f0, 1, nil, tc.samples); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestGlideStartsAtZeroAndIsBounded(t *testing.T) {
	g := newGen(16000)
	out, err := g.Glide(200, 400, 0.5, 16000)
	if err != nil {
		t.Fatalf("Glide() error = %v", err)
	}
	if out[0] != 0 {
		t.Fatalf("out[0] = %v, want 0", out[0])
	}
	for i, v := range out {
		if math.Abs(v) > 0.5 {
			t.Fatalf("out[%d] = %v exceeds amplitude", i, v)
		}
	}
	if _, err := g.Glide(0, 400, 1, 10); err == nil {
		t.Fatal("expected error for zero start frequency")
	}
}

func TestWhiteNoiseDeterministic(t *testing.T) {
	n1, err := newGen(16000, WithSeed(42)).WhiteNoise(1, 16)
	if err != nil {
		t.Fatalf("WhiteNoise() error = %v", err)
	}
	n2, err := newGen(16000, WithSeed(42)).WhiteNoise(1, 16)
	if err != nil {
		t.Fatalf("WhiteNoise() error = %v", err)
	}
	for i := range n1 {
		if n1[i] != n2[i] {
			t.Fatalf("noise mismatch at %d: %v != %v", i, n1[i], n2[i])
		}
	}
}

func TestSamples(t *testing.T) {
	if got := newGen(16000).Samples(0.02); got != 320 {
		t.Fatalf("Samples(0.02) = %d, want 320", got)
	}
}

func TestMix(t *testing.T) {
	dst := []float64{1, 1, 1}
	Mix(dst, []float64{1, 2, 3, 4}, 0.5)
	want := []float64{1.5, 2, 2.5}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestNormalize(t *testing.T) {
	out, err := Normalize([]float64{-0.5, 1.0, -0.25}, 0.5)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if out[1] != 0.5 {
		t.Fatalf("peak = %v, want 0.5", out[1])
	}
	if _, err := Normalize(nil, 1); err == nil {
		t.Fatal("expected error for empty input")
	}
}
