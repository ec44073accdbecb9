package pitch

import (
	"math"
	"testing"

	"github.com/TomokaItou/voice-training/dsp/spectrum"
	"github.com/TomokaItou/voice-training/internal/testutil"
)

var voiceWeights = []float64{0.6, 0.4, 0.25}

func newEstimator(t *testing.T, sr float64, opts ...Option) *Estimator {
	t.Helper()
	e, err := NewEstimator(sr, opts...)
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}
	return e
}

func TestNewEstimatorValidation(t *testing.T) {
	if _, err := NewEstimator(0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
	if _, err := NewEstimator(16000, WithConfig(Config{})); err == nil {
		t.Fatal("expected error for zero config")
	}
}

func TestEstimateBelowEnergyThreshold(t *testing.T) {
	frames := map[string][]float64{
		"silence": testutil.Silence(1024),
		"quiet":   testutil.DeterministicSine(200, 16000, 0.01, 1024),
		"empty":   nil,
	}

	for _, algo := range []Algorithm{AMDF, NormXCorr, HPS} {
		e := newEstimator(t, 16000, WithAlgorithm(algo))
		for name, frame := range frames {
			t.Run(algo.String()+"/"+name, func(t *testing.T) {
				got := e.Estimate(frame, spectrum.Spectrum{})
				if got.Pitch.OK() {
					t.Fatalf("pitch = %v, want none", got.Pitch)
				}
				if got.Confidence != 0 {
					t.Fatalf("confidence = %v, want 0", got.Confidence)
				}
				if got.RMS >= 0.015 {
					t.Fatalf("rms = %v, want below threshold", got.RMS)
				}
			})
		}
	}
}

func TestEstimateSineAMDF(t *testing.T) {
	e := newEstimator(t, 16000)
	frame := testutil.DeterministicSine(150, 16000, 0.5, 320)

	got := e.Estimate(frame, spectrum.Spectrum{})
	hz, ok := got.Pitch.Get()
	if !ok {
		t.Fatal("expected pitch")
	}
	// Best integer offset for a 106.67-sample period is 107.
	testutil.RequireHz(t, hz, 16000.0/107, 1e-9)
	if got.Confidence < 0.9 || got.Confidence > 1 {
		t.Fatalf("confidence = %v, want in [0.9, 1]", got.Confidence)
	}
}

func TestEstimateAvoidsSubharmonicOnLongFrames(t *testing.T) {
	for _, algo := range []Algorithm{AMDF, NormXCorr} {
		t.Run(algo.String(), func(t *testing.T) {
			e := newEstimator(t, 48000, WithAlgorithm(algo))
			frame := testutil.DeterministicSine(220, 48000, 0.5, 4096)
			got := e.Estimate(frame, spectrum.Spectrum{})
			testutil.RequireCents(t, got.Pitch.Hz(), 220, 16)
		})
	}
}

func TestEstimateNormXCorr(t *testing.T) {
	tests := []struct {
		name string
		sr   float64
		f0   float64
		n    int
	}{
		{name: "16k frame", sr: 16000, f0: 150, n: 320},
		{name: "low voice", sr: 48000, f0: 95, n: 4096},
		{name: "high voice", sr: 48000, f0: 660, n: 4096},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEstimator(t, tt.sr, WithAlgorithm(NormXCorr))
			frame := testutil.HarmonicTone(tt.f0, tt.sr, 0.6, voiceWeights, tt.n)
			got := e.Estimate(frame, spectrum.Spectrum{})
			hz, ok := got.Pitch.Get()
			if !ok {
				t.Fatal("expected pitch")
			}
			// Integer lags quantize the period by up to half a sample.
			tol := tt.f0 * tt.f0 / tt.sr
			testutil.RequireHz(t, hz, tt.f0, tol+0.5)
			if got.Confidence < 0.9 {
				t.Fatalf("confidence = %v, want >= 0.9", got.Confidence)
			}
		})
	}
}

func TestEstimateHPSFromAnalyzer(t *testing.T) {
	const sr = 48000.0
	a, err := spectrum.NewAnalyzer(sr, spectrum.WithSmoothing(0))
	if err != nil {
		t.Fatal(err)
	}
	frame := testutil.HarmonicTone(200, sr, 0.6, voiceWeights, 4096)
	a.Write(frame)
	spec := a.Magnitudes()

	e := newEstimator(t, sr, WithAlgorithm(HPS))
	got := e.Estimate(frame, spec)
	testutil.RequireHz(t, got.Pitch.Hz(), 200, spec.BinHz)
	if got.Confidence <= 0 || got.Confidence > 1 {
		t.Fatalf("confidence = %v, want in (0, 1]", got.Confidence)
	}
}

func TestEstimateHPSComputesOwnSpectrum(t *testing.T) {
	const sr = 16000.0
	e := newEstimator(t, sr, WithAlgorithm(HPS))
	frame := testutil.HarmonicTone(250, sr, 0.6, voiceWeights, 2048)

	got := e.Estimate(frame, spectrum.Spectrum{})
	testutil.RequireHz(t, got.Pitch.Hz(), 250, 2*sr/4096)
}

func TestEstimateConfidenceScalesWithEnergy(t *testing.T) {
	e := newEstimator(t, 16000)
	loud := e.Estimate(testutil.DeterministicSine(150, 16000, 0.5, 320), spectrum.Spectrum{})
	soft := e.Estimate(testutil.DeterministicSine(150, 16000, 0.03, 320), spectrum.Spectrum{})

	if !soft.Pitch.OK() {
		t.Fatal("soft tone above the gate should still have a pitch")
	}
	// rms 0.0212 against reference 0.05.
	if soft.Confidence >= loud.Confidence || soft.Confidence > 0.43 {
		t.Fatalf("soft confidence = %v, loud = %v", soft.Confidence, loud.Confidence)
	}
}

func TestEstimateFrameTooShort(t *testing.T) {
	e := newEstimator(t, 16000)
	got := e.Estimate(testutil.DeterministicSine(440, 16000, 0.5, 48), spectrum.Spectrum{})
	if got.Pitch.OK() || got.Confidence != 0 {
		t.Fatalf("got %+v, want no pitch", got)
	}
	if got.RMS == 0 {
		t.Fatal("rms should still be reported")
	}
}

func TestDetectStrict(t *testing.T) {
	e := newEstimator(t, 16000)

	tone := e.DetectStrict(testutil.DeterministicSine(150, 16000, 0.5, 320))
	testutil.RequireHz(t, tone.Hz(), 150, 1)

	if e.DetectStrict(testutil.DeterministicNoise(3, 0.5, 320)).OK() {
		t.Fatal("noise should not pass the strict score")
	}
	if e.DetectStrict(testutil.Silence(320)).OK() {
		t.Fatal("silence should not pass the energy gate")
	}
}

func TestRMS(t *testing.T) {
	if RMS(nil) != 0 {
		t.Fatal("RMS(nil) should be 0")
	}
	got := RMS([]float64{1, -1, 1, -1})
	if got != 1 {
		t.Fatalf("RMS = %v, want 1", got)
	}
}

func BenchmarkEstimateLiveFrame(b *testing.B) {
	frame := testutil.HarmonicTone(180, 48000, 0.5, voiceWeights, 4096)
	for _, algo := range []Algorithm{AMDF, NormXCorr, HPS} {
		b.Run(algo.String(), func(b *testing.B) {
			e, err := NewEstimator(48000, WithAlgorithm(algo))
			if err != nil {
				b.Fatal(err)
			}
			b.ReportAllocs()
			b.ResetTimer()
			for range b.N {
				_ = e.Estimate(frame, spectrum.Spectrum{})
			}
		})
	}
}

// bestOffsetAMDF is the plain AMDF rule: the single best-scoring offset sets
// the pitch.
func bestOffsetAMDF(frame []float64, sr float64, minOffset int) (hz, score float64) {
	half := len(frame) / 2
	best, bestOffset := 0.0, 0
	for offset := minOffset; offset < half; offset++ {
		sum := 0.0
		for i := range half {
			sum += math.Abs(frame[i] - frame[i+offset])
		}
		if s := 1 - sum/float64(half); s > best {
			best, bestOffset = s, offset
		}
	}
	return sr / float64(bestOffset), best
}

func TestAMDFPeakTolerance(t *testing.T) {
	const sr = 48000.0
	frame := testutil.HarmonicTone(110, sr, 0.5, []float64{0.5, 0.3}, 2048)
	refHz, refScore := bestOffsetAMDF(frame, sr, defaultMinOffset)

	exact := newEstimator(t, sr, WithPeakTolerance(0)).Estimate(frame, spectrum.Spectrum{})
	testutil.RequireHz(t, exact.Pitch.Hz(), refHz, 1e-9)
	if math.Abs(exact.Confidence-refScore) > 1e-12 {
		t.Fatalf("confidence = %v, want best score %v", exact.Confidence, refScore)
	}

	// On a long frame the best offset can land on a period multiple. The
	// default tolerance reports the fundamental with the same confidence.
	tolerant := newEstimator(t, sr).Estimate(frame, spectrum.Spectrum{})
	testutil.RequireHz(t, tolerant.Pitch.Hz(), 110, 0.5)
	if math.Abs(tolerant.Confidence-refScore) > 1e-12 {
		t.Fatalf("confidence = %v, want best score %v", tolerant.Confidence, refScore)
	}
}

func TestNormXCorrOverlapNormalization(t *testing.T) {
	const (
		sr  = 16000.0
		lag = 80 // 200 Hz
	)
	frame := testutil.DeterministicSine(200, sr, 0.5, 1024)
	n := len(frame)

	var cross, head, tail, total float64
	for i := range n - lag {
		cross += frame[i] * frame[i+lag]
		head += frame[i] * frame[i]
		tail += frame[i+lag] * frame[i+lag]
	}
	for _, v := range frame {
		total += v * v
	}
	overlap := cross / math.Sqrt(head*tail)

	got := newEstimator(t, sr, WithAlgorithm(NormXCorr)).Estimate(frame, spectrum.Spectrum{})
	testutil.RequireHz(t, got.Pitch.Hz(), sr/lag, 1e-9)
	if math.Abs(got.Confidence-overlap) > 1e-9 {
		t.Fatalf("confidence = %v, want overlap-normalized %v", got.Confidence, overlap)
	}
	// Normalizing by the whole-frame energy would shrink the score by the
	// missing overlap, about lag/n.
	if whole := cross / total; got.Confidence-whole < 0.05 {
		t.Fatalf("confidence %v too close to whole-frame normalization %v", got.Confidence, whole)
	}
}
