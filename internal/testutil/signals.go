package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// HarmonicTone generates a voice-like tone: the fundamental plus the given
// harmonic weights (weights[0] is the 2nd harmonic), normalized so the peak
// stays at amplitude.
func HarmonicTone(f0, sampleRate, amplitude float64, weights []float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * f0 / sampleRate
	peak := 1.0
	for _, w := range weights {
		peak += math.Abs(w)
	}
	for i := range out {
		v := math.Sin(step * float64(i))
		for h, w := range weights {
			v += w * math.Sin(step*float64(h+2)*float64(i))
		}
		out[i] = amplitude * v / peak
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Silence returns length zero samples.
func Silence(length int) []float64 {
	return make([]float64, length)
}

// Concat joins signals end to end.
func Concat(parts ...[]float64) []float64 {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]float64, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
